// Package store keeps per-recording state between the identify and
// generate steps. The store is owned by the composition root and injected
// where needed; there is no package-level instance.
package store

import (
	"errors"
	"sync"
	"time"

	"github.com/forPelevin/shortcut/internal/domain/timeline"
	"github.com/forPelevin/shortcut/internal/types"
)

var ErrNotFound = errors.New("store: session not found")

// Session holds everything identify produced for one uploaded recording.
type Session struct {
	VideoID   string
	VideoPath string
	Analysis  types.Analysis
	Timeline  timeline.Timeline
	CreatedAt time.Time
}

type Sessions struct {
	mu sync.RWMutex
	m  map[string]Session
}

func NewSessions() *Sessions {
	return &Sessions{m: make(map[string]Session)}
}

func (s *Sessions) Put(sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	s.m[sess.VideoID] = sess
}

func (s *Sessions) Get(videoID string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.m[videoID]
	if !ok {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

func (s *Sessions) Delete(videoID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, videoID)
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
