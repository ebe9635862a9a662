// ABOUTME: SQLite schema for a persisted story index
// ABOUTME: One database file holds exactly one story's chunks and document vectors
package sqlite

// Schema contains all SQL statements for database initialization
const Schema = `
-- Index header singleton
CREATE TABLE IF NOT EXISTS index_meta (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    story_id TEXT NOT NULL,
    build_id TEXT NOT NULL,
    dim INTEGER NOT NULL,
    metric TEXT NOT NULL,
    built_at TEXT NOT NULL,
    schema_version INTEGER NOT NULL
);

-- Chunk entries; seq preserves insertion order for stable tie-breaks
CREATE TABLE IF NOT EXISTS chunks (
    seq INTEGER PRIMARY KEY,
    chunk_id TEXT NOT NULL UNIQUE,
    doc_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    text TEXT NOT NULL,
    token_start INTEGER NOT NULL,
    token_end INTEGER NOT NULL,
    vector BLOB NOT NULL
);

-- Aggregated document vectors
CREATE TABLE IF NOT EXISTS documents (
    seq INTEGER PRIMARY KEY,
    doc_id TEXT NOT NULL UNIQUE,
    text TEXT NOT NULL,
    chunk_count INTEGER NOT NULL,
    vector BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_doc ON chunks(doc_id);
`

// SchemaVersion is the current schema version for migrations
const SchemaVersion = 1
