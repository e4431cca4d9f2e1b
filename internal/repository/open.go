package repository

import (
	"context"
	"log/slog"

	"github.com/rotisserie/eris"

	"github.com/mr1hm/go-evac-priority/internal/config"
)

// Open connects to the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (Store, error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := NewSQLiteDB(cfg.Path)
		if err != nil {
			return nil, err
		}
		return db, nil
	case "postgres":
		db, err := ConnectPostgres(ctx, cfg.URL, log)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, eris.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
