// Package memory provides an in-process conversation store with per-session
// message caps and TTL-based expiry. It backs the chat memory advisor.
package memory

import (
	"strings"
	"sync"
	"time"
)

// Message is one remembered conversation turn.
type Message struct {
	Role      string // "user" or "assistant"
	Content   string
	CreatedAt time.Time
}

type session struct {
	messages []Message
	touched  time.Time
}

// Store keeps conversation history per session. Sessions idle past the TTL
// are dropped by a background sweep.
type Store struct {
	mu          sync.RWMutex
	sessions    map[string]*session
	maxMessages int
	ttl         time.Duration

	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Store.
type Option func(*Store)

// WithMaxMessages caps messages kept per session; older turns are trimmed.
func WithMaxMessages(n int) Option {
	return func(s *Store) { s.maxMessages = n }
}

// WithTTL sets how long an idle session survives.
func WithTTL(d time.Duration) Option {
	return func(s *Store) { s.ttl = d }
}

// NewStore creates a Store and starts its expiry sweep. Call Close when done.
func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions:    make(map[string]*session),
		maxMessages: 20,
		ttl:         time.Hour,
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.sweep()
	return s
}

// Append records one turn for the session, trimming to the message cap.
func (s *Store) Append(sessionID, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &session{}
		s.sessions[sessionID] = sess
	}
	sess.messages = append(sess.messages, Message{Role: role, Content: content, CreatedAt: time.Now()})
	if over := len(sess.messages) - s.maxMessages; over > 0 {
		sess.messages = sess.messages[over:]
	}
	sess.touched = time.Now()
}

// Get returns a copy of the session's messages, oldest first.
func (s *Store) Get(sessionID string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	return append([]Message(nil), sess.messages...)
}

// Clear forgets a session.
func (s *Store) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// FormatForPrompt renders the session history as role-prefixed lines,
// suitable for inclusion in a system prompt.
func (s *Store) FormatForPrompt(sessionID string) string {
	messages := s.Get(sessionID)
	if len(messages) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, m := range messages {
		if i > 0 {
			sb.WriteString("\n")
		}
		switch m.Role {
		case "user":
			sb.WriteString("User: ")
		case "assistant":
			sb.WriteString("Assistant: ")
		default:
			sb.WriteString(m.Role + ": ")
		}
		sb.WriteString(m.Content)
	}
	return sb.String()
}

// Close stops the expiry sweep.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *Store) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.expire(time.Now())
		}
	}
}

func (s *Store) expire(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if now.Sub(sess.touched) > s.ttl {
			delete(s.sessions, id)
		}
	}
}
