//go:build integration

package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/your-org/mpf/internal/config"
	"github.com/your-org/mpf/internal/models"
)

func setupTestStore(t *testing.T) (*PostgresStore, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mapped, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	port, err := strconv.Atoi(mapped.Port())
	require.NoError(t, err)

	store, err := NewPostgresStore(config.DatabaseConfig{
		Host:     host,
		Port:     port,
		Name:     "testdb",
		User:     "test",
		Password: "test",
		MaxConns: 5,
	})
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("create store: %v", err)
	}

	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("ensure schema: %v", err)
	}

	cleanup := func() {
		store.Close()
		_ = container.Terminate(ctx)
	}
	return store, cleanup
}

func testEmbedding(seed float32) []float32 {
	e := make([]float32, 128)
	for i := range e {
		e[i] = seed + float32(i)/128.0
	}
	return e
}

func TestEmbeddingRoundTrip(t *testing.T) {
	store, cleanup := setupTestStore(t)
	if store == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()

	cs := &models.Case{Name: "Cali", GuardianPhone: "0619837755"}
	require.NoError(t, store.CreateCase(ctx, cs))

	embedding := testEmbedding(0.25)
	photo := &models.CasePhoto{CaseID: cs.ID, ObjectKey: "cases/x/1.jpg", Embedding: embedding}
	require.NoError(t, store.AddPhoto(ctx, photo))

	candidates, err := store.ListOpenCaseEmbeddings(ctx)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, cs.ID, candidates[0].CaseID)
	assert.Equal(t, photo.ID, candidates[0].PhotoID)

	require.Len(t, candidates[0].Embedding, len(embedding))
	for i := range embedding {
		assert.InDelta(t, embedding[i], candidates[0].Embedding[i], 1e-6)
	}
}

func TestListOpenCaseEmbeddingsExcludesFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	if store == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()

	open := &models.Case{Name: "Open"}
	require.NoError(t, store.CreateCase(ctx, open))
	require.NoError(t, store.AddPhoto(ctx, &models.CasePhoto{CaseID: open.ID, Embedding: testEmbedding(0.1)}))

	closed := &models.Case{Name: "Closed"}
	require.NoError(t, store.CreateCase(ctx, closed))
	require.NoError(t, store.AddPhoto(ctx, &models.CasePhoto{CaseID: closed.ID, Embedding: testEmbedding(0.2)}))
	require.NoError(t, store.MarkCaseFound(ctx, closed.ID))

	candidates, err := store.ListOpenCaseEmbeddings(ctx)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, open.ID, candidates[0].CaseID)
}

func TestMarkCaseFoundIsOneWay(t *testing.T) {
	store, cleanup := setupTestStore(t)
	if store == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()

	cs := &models.Case{Name: "Cali"}
	require.NoError(t, store.CreateCase(ctx, cs))
	require.NoError(t, store.MarkCaseFound(ctx, cs.ID))

	got, err := store.GetCase(ctx, cs.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusFound, got.Status)

	// A second transition has no missing case to act on.
	require.Error(t, store.MarkCaseFound(ctx, cs.ID))
}

func TestAddPhotoIdempotentByID(t *testing.T) {
	store, cleanup := setupTestStore(t)
	if store == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()

	cs := &models.Case{Name: "Cali"}
	require.NoError(t, store.CreateCase(ctx, cs))

	photoID := uuid.New()
	first := &models.CasePhoto{ID: photoID, CaseID: cs.ID, ObjectKey: "a.jpg", Embedding: testEmbedding(0.1)}
	require.NoError(t, store.AddPhoto(ctx, first))

	replacement := testEmbedding(0.9)
	second := &models.CasePhoto{ID: photoID, CaseID: cs.ID, ObjectKey: "b.jpg", Embedding: replacement}
	require.NoError(t, store.AddPhoto(ctx, second))

	candidates, err := store.ListOpenCaseEmbeddings(ctx)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.InDelta(t, replacement[0], candidates[0].Embedding[0], 1e-6)

	photos, err := store.ListPhotos(ctx, cs.ID)
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, "b.jpg", photos[0].ObjectKey)
}

func TestMigrateLegacyEncodings(t *testing.T) {
	store, cleanup := setupTestStore(t)
	if store == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "encodings.json")
	payload, err := json.Marshal(map[string]any{
		"names":     []string{"Cali Xasan"},
		"encodings": [][]float32{testEmbedding(0.3)},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, payload, 0o644))

	migrated, err := store.MigrateLegacyEncodings(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 1, migrated)

	cases, err := store.ListCases(ctx, nil)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, "Cali Xasan", cases[0].Name)
	assert.Equal(t, models.CaseStatusMissing, cases[0].Status)
	assert.Empty(t, cases[0].GuardianName)
	assert.Empty(t, cases[0].GuardianPhone)

	candidates, err := store.ListOpenCaseEmbeddings(ctx)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
}

func TestMigrateLegacyEncodingsIdempotent(t *testing.T) {
	store, cleanup := setupTestStore(t)
	if store == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()

	id := uuid.New()
	path := filepath.Join(t.TempDir(), "encodings.json")
	payload, err := json.Marshal(map[string]any{
		"ids":       []string{id.String()},
		"encodings": [][]float32{testEmbedding(0.4)},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, payload, 0o644))

	migrated, err := store.MigrateLegacyEncodings(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 1, migrated)

	// Re-running the same file imports nothing new.
	migrated, err = store.MigrateLegacyEncodings(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 0, migrated)

	cases, err := store.ListCases(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, cases, 1)
}

func TestMigrateLegacyEncodingsCorruptFile(t *testing.T) {
	store, cleanup := setupTestStore(t)
	if store == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "encodings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ids": [broken`), 0o644))

	migrated, err := store.MigrateLegacyEncodings(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 0, migrated)
}

func TestMigrateLegacyEncodingsMissingFile(t *testing.T) {
	store, cleanup := setupTestStore(t)
	if store == nil {
		return
	}
	defer cleanup()

	migrated, err := store.MigrateLegacyEncodings(context.Background(), filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, migrated)
}
