// Package storetest is the behaviour suite every core.Store passes.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xob0t/ProfileStencil/internal/core"
)

// Run exercises a fresh store returned by open.
func Run(t *testing.T, open func(t *testing.T) core.Store) {
	t.Run("MessageLifecycle", func(t *testing.T) { messageLifecycle(t, open(t)) })
	t.Run("ListOrderAndFilter", func(t *testing.T) { listOrderAndFilter(t, open(t)) })
	t.Run("NotFound", func(t *testing.T) { notFound(t, open(t)) })
	t.Run("Invalid", func(t *testing.T) { invalid(t, open(t)) })
	t.Run("DownloadStats", func(t *testing.T) { downloadStats(t, open(t)) })
}

func messageLifecycle(t *testing.T, s core.Store) {
	ctx := context.Background()

	created, err := s.Create(ctx, core.Message{Label: " Vote ", Text: "Every voice counts", Active: true})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Vote", created.Label)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	created.Text = "Make it count"
	created.Active = false
	updated, err := s.Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, "Make it count", updated.Text)
	assert.Equal(t, got.CreatedAt, updated.CreatedAt)
	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))

	got, err = s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	require.NoError(t, s.Delete(ctx, created.ID))
	_, err = s.Get(ctx, created.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func listOrderAndFilter(t *testing.T, s core.Store) {
	ctx := context.Background()

	var ids []string
	for i, active := range []bool{true, false, true} {
		m, err := s.Create(ctx, core.Message{Label: "m", Text: string(rune('a' + i)), Active: active})
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}

	all, err := s.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, m := range all {
		assert.Equal(t, ids[i], m.ID)
	}

	active, err := s.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "a", active[0].Text)
	assert.Equal(t, "c", active[1].Text)
}

func notFound(t *testing.T, s core.Store) {
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = s.Update(ctx, core.Message{ID: "missing", Label: "x", Text: "y"})
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "missing"), core.ErrNotFound)

	list, err := s.List(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func invalid(t *testing.T, s core.Store) {
	ctx := context.Background()

	_, err := s.Create(ctx, core.Message{Label: "", Text: "x"})
	assert.ErrorIs(t, err, core.ErrInvalid)

	m, err := s.Create(ctx, core.Message{Label: "ok", Text: "ok"})
	require.NoError(t, err)
	m.Text = ""
	_, err = s.Update(ctx, m)
	assert.ErrorIs(t, err, core.ErrInvalid)

	got, err := s.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "ok", got.Text)
}

func downloadStats(t *testing.T, s core.Store) {
	ctx := context.Background()

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Empty(t, stats)

	for _, text := range []string{"b", "a", "c", "a", "", "c", "a"} {
		d, err := s.Record(ctx, core.Download{Text: text})
		require.NoError(t, err)
		assert.NotEmpty(t, d.ID)
		assert.False(t, d.CreatedAt.IsZero())
	}

	stats, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.DownloadStat{
		{Text: "a", Count: 3},
		{Text: "c", Count: 2},
		{Text: "", Count: 1},
		{Text: "b", Count: 1},
	}, stats)
}
