// ABOUTME: Backend selection for persisted story indexes
// ABOUTME: Opens the SQLite file tree, Postgres or the in-memory store by name
package storage

import (
	"context"

	"github.com/m-mizutani/goerr/v2"

	"github.com/harper/storybrief/internal/index"
	"github.com/harper/storybrief/internal/models"
	"github.com/harper/storybrief/internal/storage/postgres"
	"github.com/harper/storybrief/internal/storage/sqlite"
)

// Backend names accepted by Open
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Options selects and configures an index backend
type Options struct {
	Backend     string
	IndexRoot   string
	PostgresURL string
}

// Storage is an opened index backend
type Storage struct {
	index.Store
	closer func()
}

// Close releases backend resources
func (s *Storage) Close() error {
	if s != nil && s.closer != nil {
		s.closer()
	}
	return nil
}

// Open returns the configured index store
func Open(ctx context.Context, opts Options) (*Storage, error) {
	switch opts.Backend {
	case "", BackendSQLite:
		store, err := sqlite.NewIndexStore(opts.IndexRoot)
		if err != nil {
			return nil, err
		}
		return &Storage{Store: store}, nil

	case BackendPostgres:
		if opts.PostgresURL == "" {
			return nil, goerr.New("POSTGRES_URL is required for the postgres backend", goerr.T(models.TagInvalidInput))
		}
		store, err := postgres.Open(ctx, opts.PostgresURL)
		if err != nil {
			return nil, err
		}
		return &Storage{Store: store, closer: store.Close}, nil

	case BackendMemory:
		return &Storage{Store: index.NewMemoryStore()}, nil
	}

	return nil, goerr.New("unknown index backend",
		goerr.T(models.TagInvalidInput),
		goerr.V("backend", opts.Backend))
}
