package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xob0t/ProfileStencil/internal/config"
	"github.com/xob0t/ProfileStencil/internal/core"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	mem, err := Open(ctx, config.Storage{Type: "memory"}, nil)
	require.NoError(t, err)
	defer mem.Close()

	db, err := Open(ctx, config.Storage{Type: "sqlite", DSN: filepath.Join(t.TempDir(), "s.db")}, nil)
	require.NoError(t, err)
	defer db.Close()

	for _, s := range []core.Store{mem, db} {
		_, err := s.Get(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	}

	_, err = Open(ctx, config.Storage{Type: "redis"}, nil)
	assert.Error(t, err)
}
