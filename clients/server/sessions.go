// sessions.go — Per-user render sessions, each owning one Compositor.
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xob0t/ProfileStencil/pkg/compositor"
)

type session struct {
	id   string
	comp *compositor.Compositor

	renderMu sync.Mutex // held across a render and its remember

	mu        sync.Mutex
	lastUsed  time.Time
	png       []byte // latest render, served by download
	text      string
	messageID string
}

// remember stores the latest render and the text it was drawn with.
func (s *session) remember(png []byte, text, messageID string) {
	s.mu.Lock()
	s.png, s.text, s.messageID = png, text, messageID
	s.mu.Unlock()
}

func (s *session) latest() (png []byte, text, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.png, s.text, s.messageID
}

// apply runs render and records its result in one step, so latest always
// holds the render that finished last.
func (s *session) apply(render func() (*compositor.RenderResult, error), text, messageID string) (*compositor.RenderResult, error) {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()

	res, err := render()
	if err != nil {
		return nil, err
	}
	s.remember(res.PNG, text, messageID)
	return res, nil
}

// forget drops the retained photo and the latest render.
func (s *session) forget() {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()
	s.comp.StartOver()
	s.remember(nil, "", "")
}

type sessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*session
	ttl      time.Duration
	max      int
	now      func() time.Time
}

func newSessionManager(ttl time.Duration, maxSessions int) *sessionManager {
	return &sessionManager{
		sessions: make(map[string]*session),
		ttl:      ttl,
		max:      maxSessions,
		now:      time.Now,
	}
}

// add registers comp under a new ID, evicting the least recently used
// session when full.
func (sm *sessionManager) add(comp *compositor.Compositor) *session {
	s := &session{id: randomID(), comp: comp, lastUsed: sm.now()}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.max > 0 && len(sm.sessions) >= sm.max {
		sm.evictOldestLocked()
	}
	sm.sessions[s.id] = s
	return s
}

// get returns the session and marks it used.
func (sm *sessionManager) get(id string) (*session, bool) {
	sm.mu.RLock()
	s, ok := sm.sessions[id]
	sm.mu.RUnlock()
	if ok {
		s.mu.Lock()
		s.lastUsed = sm.now()
		s.mu.Unlock()
	}
	return s, ok
}

func (sm *sessionManager) len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// sweep removes sessions idle for longer than the TTL and returns how many.
func (sm *sessionManager) sweep() int {
	cutoff := sm.now().Add(-sm.ttl)

	sm.mu.Lock()
	defer sm.mu.Unlock()
	n := 0
	for id, s := range sm.sessions {
		s.mu.Lock()
		idle := s.lastUsed.Before(cutoff)
		s.mu.Unlock()
		if idle {
			delete(sm.sessions, id)
			n++
		}
	}
	return n
}

func (sm *sessionManager) evictOldestLocked() {
	var oldest *session
	var oldestAt time.Time
	for _, s := range sm.sessions {
		s.mu.Lock()
		at := s.lastUsed
		s.mu.Unlock()
		if oldest == nil || at.Before(oldestAt) {
			oldest, oldestAt = s, at
		}
	}
	if oldest != nil {
		delete(sm.sessions, oldest.id)
	}
}

func (sm *sessionManager) janitor(ctx context.Context, log *zap.Logger) {
	t := time.NewTicker(janitorInterval(sm.ttl))
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := sm.sweep(); n > 0 {
				log.Info("evicted idle sessions", zap.Int("count", n), zap.Int("remaining", sm.len()))
			}
		}
	}
}

func randomID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
