// Package store picks the message catalog and download log backend.
package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xob0t/ProfileStencil/internal/config"
	"github.com/xob0t/ProfileStencil/internal/core"
	"github.com/xob0t/ProfileStencil/internal/store/memory"
	"github.com/xob0t/ProfileStencil/internal/store/sqlite"
)

var (
	ErrNotFound = core.ErrNotFound
	ErrInvalid  = core.ErrInvalid
)

// Open returns the backend named by cfg.Type.
func Open(ctx context.Context, cfg config.Storage, log *zap.Logger) (core.Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	switch cfg.Type {
	case "sqlite":
		s, err := sqlite.New(ctx, cfg.DSN, log)
		if err != nil {
			return nil, err
		}
		log.Info("using storage", zap.String("type", "sqlite"), zap.String("dsn", cfg.DSN))
		return s, nil
	case "", "memory":
		log.Info("using storage", zap.String("type", "memory"))
		return memory.New(log), nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
