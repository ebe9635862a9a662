// ABOUTME: IndexStore backed by PostgreSQL with pgvector columns
// ABOUTME: Each save replaces one story's rows inside a single transaction
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/harper/storybrief/internal/index"
	"github.com/harper/storybrief/internal/models"
)

// Schema creates the tables used by IndexStore
const Schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS story_indexes (
    story_id TEXT PRIMARY KEY,
    build_id TEXT NOT NULL,
    dim INTEGER NOT NULL,
    metric TEXT NOT NULL,
    built_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS story_chunks (
    story_id TEXT NOT NULL REFERENCES story_indexes(story_id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    chunk_id TEXT NOT NULL,
    doc_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    text TEXT NOT NULL,
    token_start INTEGER NOT NULL,
    token_end INTEGER NOT NULL,
    embedding vector NOT NULL,
    PRIMARY KEY (story_id, seq)
);

CREATE TABLE IF NOT EXISTS story_documents (
    story_id TEXT NOT NULL REFERENCES story_indexes(story_id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    doc_id TEXT NOT NULL,
    text TEXT NOT NULL,
    chunk_count INTEGER NOT NULL,
    embedding vector NOT NULL,
    PRIMARY KEY (story_id, seq)
);
`

// IndexStore implements index.Store on a pgx connection pool
type IndexStore struct {
	pool *pgxpool.Pool
}

// Open connects to dsn, registers the vector type and applies the schema
func Open(ctx context.Context, dsn string) (*IndexStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse postgres config", goerr.T(models.TagInvalidInput))
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	// The extension must exist before AfterConnect can register its types
	bootstrap, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to connect to postgres")
	}
	_, err = bootstrap.Exec(ctx, Schema)
	_ = bootstrap.Close(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to apply schema")
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create connection pool")
	}
	return &IndexStore{pool: pool}, nil
}

// Close releases the pool
func (s *IndexStore) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// Save replaces the story's index rows. A transaction-scoped advisory lock
// keeps concurrent writers of the same story from interleaving.
func (s *IndexStore) Save(ctx context.Context, idx *index.VectorIndex) error {
	if idx == nil || idx.StoryID == "" {
		return goerr.New("index must have a story id", goerr.T(models.TagInvalidInput))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, idx.StoryID); err != nil {
		return goerr.Wrap(err, "failed to lock story", goerr.V("story_id", idx.StoryID))
	}
	if _, err := tx.Exec(ctx, `DELETE FROM story_indexes WHERE story_id = $1`, idx.StoryID); err != nil {
		return goerr.Wrap(err, "failed to clear previous index", goerr.V("story_id", idx.StoryID))
	}

	br := tx.SendBatch(ctx, insertBatch(idx))
	if err := br.Close(); err != nil {
		return goerr.Wrap(err, "failed to write index rows", goerr.V("story_id", idx.StoryID))
	}

	if err := tx.Commit(ctx); err != nil {
		return goerr.Wrap(err, "failed to commit index", goerr.V("story_id", idx.StoryID))
	}
	return nil
}

// insertBatch queues the header, chunk and document inserts for idx
func insertBatch(idx *index.VectorIndex) *pgx.Batch {
	metric := idx.Metric
	if metric == "" {
		metric = index.MetricCosine
	}
	builtAt := idx.BuiltAt
	if builtAt.IsZero() {
		builtAt = time.Now().UTC()
	}

	b := &pgx.Batch{}
	b.Queue(`INSERT INTO story_indexes (story_id, build_id, dim, metric, built_at) VALUES ($1, $2, $3, $4, $5)`,
		idx.StoryID, idx.BuildID, idx.Dim, string(metric), builtAt)

	for i, e := range idx.Entries {
		b.Queue(`INSERT INTO story_chunks (story_id, seq, chunk_id, doc_id, position, text, token_start, token_end, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			idx.StoryID, i, e.ChunkID, e.DocID, e.Position, e.Text, e.TokenStart, e.TokenEnd, pgvector.NewVector(e.Vector))
	}
	for i, d := range idx.Documents {
		b.Queue(`INSERT INTO story_documents (story_id, seq, doc_id, text, chunk_count, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			idx.StoryID, i, d.DocID, d.Text, d.ChunkCount, pgvector.NewVector(d.Vector))
	}
	return b
}

// Load reads a story's index. Returns models.ErrIndexNotFound when absent.
func (s *IndexStore) Load(ctx context.Context, storyID string) (*index.VectorIndex, error) {
	idx := &index.VectorIndex{StoryID: storyID}
	var metric string
	err := s.pool.QueryRow(ctx,
		`SELECT build_id, dim, metric, built_at FROM story_indexes WHERE story_id = $1`, storyID,
	).Scan(&idx.BuildID, &idx.Dim, &metric, &idx.BuiltAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, goerr.Wrap(models.ErrIndexNotFound, "no index for story", goerr.V("story_id", storyID))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read index header", goerr.V("story_id", storyID))
	}
	idx.Metric = index.Metric(metric)

	rows, err := s.pool.Query(ctx, `
		SELECT chunk_id, doc_id, position, text, token_start, token_end, embedding
		FROM story_chunks WHERE story_id = $1 ORDER BY seq`, storyID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query chunks", goerr.V("story_id", storyID))
	}
	for rows.Next() {
		var (
			e   index.Entry
			vec pgvector.Vector
		)
		if err := rows.Scan(&e.ChunkID, &e.DocID, &e.Position, &e.Text, &e.TokenStart, &e.TokenEnd, &vec); err != nil {
			rows.Close()
			return nil, goerr.Wrap(err, "failed to scan chunk", goerr.V("story_id", storyID))
		}
		e.Vector = vec.Slice()
		idx.Entries = append(idx.Entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate chunks", goerr.V("story_id", storyID))
	}

	docRows, err := s.pool.Query(ctx, `
		SELECT doc_id, text, chunk_count, embedding
		FROM story_documents WHERE story_id = $1 ORDER BY seq`, storyID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query documents", goerr.V("story_id", storyID))
	}
	for docRows.Next() {
		var (
			d   index.DocumentVector
			vec pgvector.Vector
		)
		if err := docRows.Scan(&d.DocID, &d.Text, &d.ChunkCount, &vec); err != nil {
			docRows.Close()
			return nil, goerr.Wrap(err, "failed to scan document", goerr.V("story_id", storyID))
		}
		d.Vector = vec.Slice()
		idx.Documents = append(idx.Documents, d)
	}
	docRows.Close()
	if err := docRows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate documents", goerr.V("story_id", storyID))
	}

	return idx, nil
}

// Exists reports whether a story has a persisted index
func (s *IndexStore) Exists(ctx context.Context, storyID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM story_indexes WHERE story_id = $1)`, storyID,
	).Scan(&exists)
	if err != nil {
		return false, goerr.Wrap(err, "failed to check index", goerr.V("story_id", storyID))
	}
	return exists, nil
}

// Delete removes a story's index and its rows
func (s *IndexStore) Delete(ctx context.Context, storyID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM story_indexes WHERE story_id = $1`, storyID); err != nil {
		return goerr.Wrap(err, "failed to delete index", goerr.V("story_id", storyID))
	}
	return nil
}

var _ index.Store = (*IndexStore)(nil)
