// ABOUTME: IndexStore persists each story index as its own SQLite file
// ABOUTME: Files are written beside the target and renamed into place
package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"github.com/harper/storybrief/internal/index"
	"github.com/harper/storybrief/internal/models"
)

// IndexFileName is the database file inside each story directory
const IndexFileName = "index.db"

// IndexStore implements index.Store on a directory tree rooted at root.
// Each story lives in <root>/id_<story>/index.db.
type IndexStore struct {
	root string
}

// NewIndexStore creates a store rooted at root, creating the directory if needed
func NewIndexStore(root string) (*IndexStore, error) {
	if root == "" {
		return nil, goerr.New("index root is required", goerr.T(models.TagInvalidInput))
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, goerr.Wrap(err, "failed to create index root", goerr.V("root", root))
	}
	return &IndexStore{root: root}, nil
}

// Root returns the directory holding all story indexes
func (s *IndexStore) Root() string {
	return s.root
}

// Dir returns the directory for a story
func (s *IndexStore) Dir(storyID string) string {
	return filepath.Join(s.root, "id_"+SafeID(storyID))
}

// Path returns the database file for a story
func (s *IndexStore) Path(storyID string) string {
	return filepath.Join(s.Dir(storyID), IndexFileName)
}

// SafeID maps a story id onto a filesystem-safe name. Ids that need
// rewriting get a short hash suffix so distinct ids never collide.
func SafeID(storyID string) string {
	var b strings.Builder
	changed := storyID == ""
	for _, r := range storyID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
			changed = true
		}
	}
	if !changed {
		return storyID
	}
	sum := sha256.Sum256([]byte(storyID))
	return b.String() + "_" + hex.EncodeToString(sum[:4])
}

// Save writes idx to a temporary file and renames it over the story's index
func (s *IndexStore) Save(ctx context.Context, idx *index.VectorIndex) error {
	if idx == nil || idx.StoryID == "" {
		return goerr.New("index must have a story id", goerr.T(models.TagInvalidInput))
	}

	dir := s.Dir(idx.StoryID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return goerr.Wrap(err, "failed to create story directory", goerr.V("dir", dir))
	}

	tmp := filepath.Join(dir, IndexFileName+".tmp-"+uuid.NewString())
	if err := writeIndex(ctx, tmp, idx); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, s.Path(idx.StoryID)); err != nil {
		_ = os.Remove(tmp)
		return goerr.Wrap(err, "failed to move index into place", goerr.V("story_id", idx.StoryID))
	}
	return nil
}

func writeIndex(ctx context.Context, path string, idx *index.VectorIndex) (err error) {
	db, err := Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = goerr.Wrap(cerr, "failed to close index file")
		}
	}()

	tx, err := db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	metric := idx.Metric
	if metric == "" {
		metric = index.MetricCosine
	}
	builtAt := idx.BuiltAt
	if builtAt.IsZero() {
		builtAt = time.Now().UTC()
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO index_meta (id, story_id, build_id, dim, metric, built_at, schema_version)
		VALUES (1, ?, ?, ?, ?, ?, ?)
	`, idx.StoryID, idx.BuildID, idx.Dim, string(metric), builtAt.Format(time.RFC3339Nano), SchemaVersion); err != nil {
		return goerr.Wrap(err, "failed to write index header")
	}

	chunkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (seq, chunk_id, doc_id, position, text, token_start, token_end, vector)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return goerr.Wrap(err, "failed to prepare chunk insert")
	}
	defer func() { _ = chunkStmt.Close() }()

	for i, e := range idx.Entries {
		if _, err := chunkStmt.ExecContext(ctx, i, e.ChunkID, e.DocID, e.Position, e.Text,
			e.TokenStart, e.TokenEnd, vectorToBlob(e.Vector)); err != nil {
			return goerr.Wrap(err, "failed to write chunk", goerr.V("chunk_id", e.ChunkID))
		}
	}

	docStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (seq, doc_id, text, chunk_count, vector)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return goerr.Wrap(err, "failed to prepare document insert")
	}
	defer func() { _ = docStmt.Close() }()

	for i, d := range idx.Documents {
		if _, err := docStmt.ExecContext(ctx, i, d.DocID, d.Text, d.ChunkCount, vectorToBlob(d.Vector)); err != nil {
			return goerr.Wrap(err, "failed to write document", goerr.V("doc_id", d.DocID))
		}
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit index")
	}
	return nil
}

// Load reads a story's index. Returns models.ErrIndexNotFound when absent.
func (s *IndexStore) Load(ctx context.Context, storyID string) (*index.VectorIndex, error) {
	path := s.Path(storyID)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, goerr.Wrap(models.ErrIndexNotFound, "no index for story", goerr.V("story_id", storyID))
		}
		return nil, goerr.Wrap(err, "failed to stat index", goerr.V("path", path))
	}

	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	return readIndex(ctx, db.Conn())
}

func readIndex(ctx context.Context, conn *sql.DB) (*index.VectorIndex, error) {
	var (
		idx     index.VectorIndex
		metric  string
		builtAt string
	)
	err := conn.QueryRowContext(ctx, `
		SELECT story_id, build_id, dim, metric, built_at FROM index_meta WHERE id = 1
	`).Scan(&idx.StoryID, &idx.BuildID, &idx.Dim, &metric, &builtAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.New("index file has no header", goerr.T(models.TagInvalidInput))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read index header")
	}
	idx.Metric = index.Metric(metric)
	if t, perr := time.Parse(time.RFC3339Nano, builtAt); perr == nil {
		idx.BuiltAt = t
	}

	rows, err := conn.QueryContext(ctx, `
		SELECT chunk_id, doc_id, position, text, token_start, token_end, vector
		FROM chunks ORDER BY seq ASC
	`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query chunks")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			e    index.Entry
			blob []byte
		)
		if err := rows.Scan(&e.ChunkID, &e.DocID, &e.Position, &e.Text, &e.TokenStart, &e.TokenEnd, &blob); err != nil {
			return nil, goerr.Wrap(err, "failed to scan chunk")
		}
		if e.Vector, err = blobToVector(blob); err != nil {
			return nil, goerr.Wrap(err, "corrupt chunk vector", goerr.V("chunk_id", e.ChunkID))
		}
		idx.Entries = append(idx.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate chunks")
	}

	docRows, err := conn.QueryContext(ctx, `
		SELECT doc_id, text, chunk_count, vector FROM documents ORDER BY seq ASC
	`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query documents")
	}
	defer func() { _ = docRows.Close() }()

	for docRows.Next() {
		var (
			d    index.DocumentVector
			blob []byte
		)
		if err := docRows.Scan(&d.DocID, &d.Text, &d.ChunkCount, &blob); err != nil {
			return nil, goerr.Wrap(err, "failed to scan document")
		}
		if d.Vector, err = blobToVector(blob); err != nil {
			return nil, goerr.Wrap(err, "corrupt document vector", goerr.V("doc_id", d.DocID))
		}
		idx.Documents = append(idx.Documents, d)
	}
	if err := docRows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate documents")
	}

	return &idx, nil
}

// Exists reports whether a story has a persisted index
func (s *IndexStore) Exists(_ context.Context, storyID string) (bool, error) {
	_, err := os.Stat(s.Path(storyID))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, goerr.Wrap(err, "failed to stat index", goerr.V("story_id", storyID))
}

// Delete removes a story's index directory
func (s *IndexStore) Delete(_ context.Context, storyID string) error {
	if err := os.RemoveAll(s.Dir(storyID)); err != nil {
		return goerr.Wrap(err, "failed to delete index", goerr.V("story_id", storyID))
	}
	return nil
}

// List returns the story ids with a persisted index, in directory order
func (s *IndexStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read index root", goerr.V("root", s.root))
	}

	var ids []string
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "id_") {
			continue
		}
		path := filepath.Join(s.root, e.Name(), IndexFileName)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		db, err := Open(path)
		if err != nil {
			continue
		}
		var storyID string
		err = db.Conn().QueryRowContext(ctx, `SELECT story_id FROM index_meta WHERE id = 1`).Scan(&storyID)
		_ = db.Close()
		if err == nil {
			ids = append(ids, storyID)
		}
	}
	return ids, nil
}

var _ index.Store = (*IndexStore)(nil)
