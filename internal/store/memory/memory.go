// Package memory keeps messages and downloads in process memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/xob0t/ProfileStencil/internal/core"
)

type store struct {
	log       *zap.Logger
	mu        sync.RWMutex
	messages  map[string]core.Message
	downloads []core.Download
}

func New(log *zap.Logger) core.Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &store{
		log:      log,
		messages: make(map[string]core.Message),
	}
}

func (s *store) List(ctx context.Context, activeOnly bool) ([]core.Message, error) {
	s.mu.RLock()
	out := make([]core.Message, 0, len(s.messages))
	for _, m := range s.messages {
		if activeOnly && !m.Active {
			continue
		}
		out = append(out, m)
	}
	s.mu.RUnlock()

	// ULIDs sort by creation time.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *store) Get(ctx context.Context, id string) (core.Message, error) {
	s.mu.RLock()
	m, ok := s.messages[id]
	s.mu.RUnlock()
	if !ok {
		return core.Message{}, fmt.Errorf("message %s: %w", id, core.ErrNotFound)
	}
	return m, nil
}

func (s *store) Create(ctx context.Context, m core.Message) (core.Message, error) {
	m, err := m.Normalize()
	if err != nil {
		return core.Message{}, err
	}
	m.ID = ulid.Make().String()
	m.CreatedAt = core.Now()
	m.UpdatedAt = m.CreatedAt

	s.mu.Lock()
	s.messages[m.ID] = m
	s.mu.Unlock()

	s.log.Debug("message created", zap.String("message_id", m.ID))
	return m, nil
}

func (s *store) Update(ctx context.Context, m core.Message) (core.Message, error) {
	m, err := m.Normalize()
	if err != nil {
		return core.Message{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.messages[m.ID]
	if !ok {
		return core.Message{}, fmt.Errorf("message %s: %w", m.ID, core.ErrNotFound)
	}
	m.CreatedAt = old.CreatedAt
	m.UpdatedAt = core.Now()
	s.messages[m.ID] = m

	s.log.Debug("message updated", zap.String("message_id", m.ID))
	return m, nil
}

func (s *store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[id]; !ok {
		return fmt.Errorf("message %s: %w", id, core.ErrNotFound)
	}
	delete(s.messages, id)

	s.log.Debug("message deleted", zap.String("message_id", id))
	return nil
}

func (s *store) Record(ctx context.Context, d core.Download) (core.Download, error) {
	d.ID = ulid.Make().String()
	d.CreatedAt = core.Now()

	s.mu.Lock()
	s.downloads = append(s.downloads, d)
	s.mu.Unlock()
	return d, nil
}

func (s *store) Stats(ctx context.Context) ([]core.DownloadStat, error) {
	s.mu.RLock()
	counts := make(map[string]int)
	for _, d := range s.downloads {
		counts[d.Text]++
	}
	s.mu.RUnlock()

	out := make([]core.DownloadStat, 0, len(counts))
	for text, n := range counts {
		out = append(out, core.DownloadStat{Text: text, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Text < out[j].Text
	})
	return out, nil
}

func (s *store) Close() error { return nil }
