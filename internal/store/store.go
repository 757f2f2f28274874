// Package store persists phone book entries to a flat file or PostgreSQL.
package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/smileynet/phonebook/internal/book"
	"github.com/smileynet/phonebook/internal/config"
)

// Store loads and saves a complete set of entries.
type Store interface {
	book.Source
	book.Sink
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*PostgresStore)(nil)
)

// Open returns the backend selected by cfg. The returned close function
// releases any connection the backend holds.
func Open(ctx context.Context, cfg config.Store, log *zap.Logger) (Store, func() error, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		fs, err := NewFileStore(cfg.Path, cfg.Encoding, log)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() error { return nil }, nil
	case config.BackendPostgres:
		ps, err := OpenPostgres(ctx, cfg.DSN, log)
		if err != nil {
			return nil, nil, err
		}
		if err := ps.EnsureSchema(ctx); err != nil {
			_ = ps.Close()
			return nil, nil, err
		}
		return ps, ps.Close, nil
	default:
		return nil, nil, fmt.Errorf("store: unknown backend %q", cfg.Backend)
	}
}
