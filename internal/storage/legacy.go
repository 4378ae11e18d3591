package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/your-org/mpf/internal/models"
)

// legacyEncodings is the on-disk layout of the pre-service encoding file.
// The older variant keyed records by display name instead of identity.
type legacyEncodings struct {
	IDs       []string    `json:"ids"`
	Names     []string    `json:"names"`
	Encodings [][]float32 `json:"encodings"`
}

// legacyRecord is one parsed entry ready for import. Name-keyed records and
// records whose key is not a uuid carry a freshly generated surrogate id.
type legacyRecord struct {
	CaseID    uuid.UUID
	Name      string
	Embedding []float32
}

// parseLegacyRecords decodes a legacy encodings file into importable
// records. A corrupt file yields zero records and an error; individual
// records without an embedding are skipped with a logged warning.
func parseLegacyRecords(data []byte) ([]legacyRecord, error) {
	var legacy legacyEncodings
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("decode legacy encodings: %w", err)
	}

	keys := legacy.IDs
	named := false
	if len(keys) == 0 && len(legacy.Names) > 0 {
		keys = legacy.Names
		named = true
	}

	records := make([]legacyRecord, 0, len(keys))
	for i, key := range keys {
		if i >= len(legacy.Encodings) || len(legacy.Encodings[i]) == 0 {
			slog.Warn("legacy record has no embedding, skipping", "key", key)
			continue
		}

		rec := legacyRecord{Embedding: legacy.Encodings[i]}
		if named {
			// Old layout: no identity, only a display name.
			rec.CaseID = uuid.New()
			rec.Name = key
		} else if id, err := uuid.Parse(key); err == nil {
			rec.CaseID = id
		} else {
			slog.Warn("legacy record id is not a uuid, assigning surrogate", "key", key)
			rec.CaseID = uuid.New()
		}
		records = append(records, rec)
	}
	return records, nil
}

// MigrateLegacyEncodings imports a legacy JSON encodings file into the
// store. It is an explicit, idempotent one-shot operation run at startup,
// never interleaved with reads.
//
// Name-keyed records (old layout) receive a freshly generated surrogate id
// and a case with empty guardian contact fields, since none existed in that
// format. Records already present are skipped. A corrupt file yields zero
// imports with a logged error; corrupt individual records are skipped.
func (s *PostgresStore) MigrateLegacyEncodings(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("no legacy encodings file, nothing to migrate", "path", path)
			return 0, nil
		}
		return 0, fmt.Errorf("read legacy encodings: %w", err)
	}

	records, err := parseLegacyRecords(data)
	if err != nil {
		slog.Error("legacy encodings file is corrupt, skipping migration", "path", path, "error", err)
		return 0, nil
	}

	migrated := 0
	for _, rec := range records {
		existing, err := s.GetCase(ctx, rec.CaseID)
		if err != nil {
			return migrated, fmt.Errorf("check existing case: %w", err)
		}
		if existing != nil {
			continue
		}

		c := &models.Case{
			ID:     rec.CaseID,
			Name:   rec.Name,
			Status: models.CaseStatusMissing,
		}
		if err := s.CreateCase(ctx, c); err != nil {
			return migrated, fmt.Errorf("create migrated case: %w", err)
		}

		photo := &models.CasePhoto{
			CaseID:    rec.CaseID,
			Embedding: rec.Embedding,
		}
		if err := s.AddPhoto(ctx, photo); err != nil {
			return migrated, fmt.Errorf("store migrated embedding: %w", err)
		}

		migrated++
	}

	slog.Info("legacy encoding migration complete", "migrated", migrated, "total", len(records))
	return migrated, nil
}
