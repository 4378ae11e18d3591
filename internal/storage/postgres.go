package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/mpf/internal/config"
	"github.com/your-org/mpf/internal/match"
	"github.com/your-org/mpf/internal/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureSchema creates the tables if they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS cases (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			age INT NOT NULL DEFAULT 0,
			gender TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'missing',
			last_seen_location TEXT NOT NULL DEFAULT '',
			last_seen_address TEXT NOT NULL DEFAULT '',
			last_seen_at TIMESTAMPTZ,
			guardian_name TEXT NOT NULL DEFAULT '',
			guardian_phone TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS case_photos (
			id UUID PRIMARY KEY,
			case_id UUID NOT NULL REFERENCES cases(id) ON DELETE CASCADE,
			object_key TEXT NOT NULL DEFAULT '',
			embedding vector(128),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS scan_events (
			id UUID PRIMARY KEY,
			scan_id UUID NOT NULL,
			matched BOOLEAN NOT NULL,
			case_id UUID,
			photo_id UUID,
			accuracy DOUBLE PRECISION,
			warning TEXT NOT NULL DEFAULT '',
			notification_sent BOOLEAN NOT NULL DEFAULT FALSE,
			message_id TEXT NOT NULL DEFAULT '',
			latitude TEXT NOT NULL DEFAULT '',
			longitude TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
	for _, stmt := range ddl {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// --- Cases ---

func (s *PostgresStore) CreateCase(ctx context.Context, c *models.Case) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = models.CaseStatusMissing
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO cases (id, name, age, gender, status, last_seen_location, last_seen_address, last_seen_at, guardian_name, guardian_phone)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING created_at, updated_at`,
		c.ID, c.Name, c.Age, c.Gender, c.Status, c.LastSeenLocation, c.LastSeenAddress, c.LastSeenAt,
		c.GuardianName, c.GuardianPhone,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create case: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCase(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	c := &models.Case{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, age, gender, status, last_seen_location, last_seen_address, last_seen_at, guardian_name, guardian_phone, created_at, updated_at
		 FROM cases WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Age, &c.Gender, &c.Status, &c.LastSeenLocation, &c.LastSeenAddress,
		&c.LastSeenAt, &c.GuardianName, &c.GuardianPhone, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get case: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) ListCases(ctx context.Context, status *models.CaseStatus) ([]models.Case, error) {
	query := `SELECT id, name, age, gender, status, last_seen_location, last_seen_address, last_seen_at, guardian_name, guardian_phone, created_at, updated_at
		 FROM cases ORDER BY created_at ASC`
	args := []interface{}{}
	if status != nil {
		query = `SELECT id, name, age, gender, status, last_seen_location, last_seen_address, last_seen_at, guardian_name, guardian_phone, created_at, updated_at
		 FROM cases WHERE status = $1 ORDER BY created_at ASC`
		args = append(args, *status)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	var cases []models.Case
	for rows.Next() {
		var c models.Case
		if err := rows.Scan(&c.ID, &c.Name, &c.Age, &c.Gender, &c.Status, &c.LastSeenLocation,
			&c.LastSeenAddress, &c.LastSeenAt, &c.GuardianName, &c.GuardianPhone, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		cases = append(cases, c)
	}
	return cases, nil
}

// MarkCaseFound transitions a case from missing to found. The transition is
// one-way and only ever triggered by an explicit administrative action; a
// scan match never changes case status.
func (s *PostgresStore) MarkCaseFound(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE cases SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
		models.CaseStatusFound, id, models.CaseStatusMissing)
	if err != nil {
		return fmt.Errorf("mark case found: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("case not found or not in missing status")
	}
	return nil
}

// UpdateCaseLastSeen records where a case's person was last sighted.
func (s *PostgresStore) UpdateCaseLastSeen(ctx context.Context, id uuid.UUID, location, address string, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE cases SET last_seen_location = $1, last_seen_address = $2, last_seen_at = $3, updated_at = NOW() WHERE id = $4`,
		location, address, at, id)
	if err != nil {
		return fmt.Errorf("update case last seen: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteCase(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM cases WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete case: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("case not found")
	}
	return nil
}

// --- Photos / embeddings ---

// AddPhoto stores a photo record with its embedding. Idempotent by photo id:
// re-adding the same id replaces its embedding.
func (s *PostgresStore) AddPhoto(ctx context.Context, p *models.CasePhoto) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	var vec *pgvector.Vector
	if len(p.Embedding) > 0 {
		v := pgvector.NewVector(p.Embedding)
		vec = &v
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO case_photos (id, case_id, object_key, embedding) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET object_key = EXCLUDED.object_key, embedding = EXCLUDED.embedding
		 RETURNING created_at`,
		p.ID, p.CaseID, p.ObjectKey, vec,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("add photo: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemovePhoto(ctx context.Context, photoID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM case_photos WHERE id = $1`, photoID)
	if err != nil {
		return fmt.Errorf("remove photo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("photo not found")
	}
	return nil
}

func (s *PostgresStore) ListPhotos(ctx context.Context, caseID uuid.UUID) ([]models.CasePhoto, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, case_id, object_key, created_at FROM case_photos WHERE case_id = $1 ORDER BY created_at ASC`,
		caseID)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close()

	var photos []models.CasePhoto
	for rows.Next() {
		var p models.CasePhoto
		if err := rows.Scan(&p.ID, &p.CaseID, &p.ObjectKey, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		photos = append(photos, p)
	}
	return photos, nil
}

// ListOpenCaseEmbeddings returns a snapshot of every stored embedding
// belonging to a case still in missing status, cases in creation order so
// the matching engine's first-match policy is deterministic. Photos without
// an embedding are excluded; a corrupt row is logged and skipped rather
// than failing the whole listing.
func (s *PostgresStore) ListOpenCaseEmbeddings(ctx context.Context) ([]match.Candidate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT cp.case_id, cp.id, cp.embedding
		 FROM case_photos cp
		 JOIN cases c ON c.id = cp.case_id
		 WHERE c.status = $1 AND cp.embedding IS NOT NULL
		 ORDER BY c.created_at ASC, cp.created_at ASC`,
		models.CaseStatusMissing)
	if err != nil {
		return nil, fmt.Errorf("list open case embeddings: %w", err)
	}
	defer rows.Close()

	var candidates []match.Candidate
	for rows.Next() {
		var caseID, photoID uuid.UUID
		var vec pgvector.Vector
		if err := rows.Scan(&caseID, &photoID, &vec); err != nil {
			slog.Warn("skipping corrupt embedding row", "error", err)
			continue
		}
		candidates = append(candidates, match.Candidate{
			CaseID:    caseID,
			PhotoID:   photoID,
			Embedding: vec.Slice(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}
	return candidates, nil
}

// --- Scan events ---

func (s *PostgresStore) CreateScanEvent(ctx context.Context, ev *models.MatchEvent) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO scan_events (id, scan_id, matched, case_id, photo_id, accuracy, warning, notification_sent, message_id, latitude, longitude, address, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		uuid.New(), ev.ScanID, ev.Matched, ev.CaseID, ev.PhotoID, ev.Accuracy, ev.Warning,
		ev.NotificationSent, ev.MessageID, ev.Location.Latitude, ev.Location.Longitude,
		ev.Location.Address, ev.Timestamp)
	if err != nil {
		return fmt.Errorf("create scan event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListScanEvents(ctx context.Context, limit int) ([]models.MatchEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	rows, err := s.pool.Query(ctx,
		`SELECT scan_id, matched, case_id, photo_id, accuracy, warning, notification_sent, message_id, latitude, longitude, address, created_at
		 FROM scan_events ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list scan events: %w", err)
	}
	defer rows.Close()

	var events []models.MatchEvent
	for rows.Next() {
		var ev models.MatchEvent
		var accuracy *float64
		if err := rows.Scan(&ev.ScanID, &ev.Matched, &ev.CaseID, &ev.PhotoID, &accuracy, &ev.Warning,
			&ev.NotificationSent, &ev.MessageID, &ev.Location.Latitude, &ev.Location.Longitude,
			&ev.Location.Address, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		if accuracy != nil {
			ev.Accuracy = *accuracy
		}
		events = append(events, ev)
	}
	return events, nil
}
