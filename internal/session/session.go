// Package session holds the transcript of one chat widget instance.
package session

import (
	"sync"
	"time"

	"github.com/ashureev/portfolio-chat/internal/domain"
)

// Session is an append-only transcript seeded with an assistant greeting.
// It lives as long as the widget that owns it and is never persisted.
type Session struct {
	mu       sync.RWMutex
	messages []domain.Message
	seeded   bool
	closed   bool
	now      func() time.Time
}

// New creates a session. A non-empty greeting becomes the first message.
// A nil clock uses time.Now.
func New(greeting string, clock func() time.Time) *Session {
	if clock == nil {
		clock = time.Now
	}
	s := &Session{now: clock}
	if greeting != "" {
		s.messages = append(s.messages, domain.NewAssistantMessage(greeting, clock()))
		s.seeded = true
	}
	return s
}

// Now returns the session clock's current time.
func (s *Session) Now() time.Time {
	return s.now()
}

// Append adds m at the end of the transcript. A timestamp earlier than the
// current tail is raised to the tail's so timestamps never decrease.
func (s *Session) Append(m domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSessionClosed
	}
	if n := len(s.messages); n > 0 {
		if tail := s.messages[n-1].Timestamp; m.Timestamp.Before(tail) {
			m.Timestamp = tail
		}
	}
	s.messages = append(s.messages, m)
	return nil
}

// RecentWindow returns up to n of the latest conversation messages, oldest
// first. The seed greeting is not part of the conversation and is skipped.
func (s *Session) RecentWindow(n int) []domain.Message {
	if n <= 0 {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv := s.messages
	if s.seeded {
		conv = conv[1:]
	}
	if n < len(conv) {
		conv = conv[len(conv)-n:]
	}
	out := make([]domain.Message, len(conv))
	copy(out, conv)
	return out
}

// History returns RecentWindow(n) as wire history turns.
func (s *Session) History(n int) []domain.HistoryTurn {
	return domain.Turns(s.RecentWindow(n))
}

// Messages returns a copy of the full transcript, greeting included.
func (s *Session) Messages() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the transcript length, greeting included.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Close discards the session. Further appends fail.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
