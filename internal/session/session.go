// Package session keeps the volatile per-chat questioning state.
//
// State lives for the lifetime of the process only: a restart abandons any
// round in progress.
package session

import (
	"sync"

	"github.com/vigliag/vijournalbot/internal/model"
)

// Session is the in-memory state of one chat. Its methods are not safe for
// concurrent use; obtain it through Registry.Acquire and hold it until Release.
type Session struct {
	mu         sync.Mutex
	remaining  []model.Question
	authorized bool
}

// SetQuestions replaces the queue so that questions are asked in the given order.
func (s *Session) SetQuestions(questions []model.Question) {
	remaining := make([]model.Question, len(questions))
	for i, q := range questions {
		remaining[len(questions)-1-i] = q
	}
	s.remaining = remaining
}

// Current returns the pending question without consuming it.
func (s *Session) Current() (model.Question, bool) {
	if len(s.remaining) == 0 {
		return model.Question{}, false
	}
	return s.remaining[len(s.remaining)-1], true
}

// Advance pops the pending question.
func (s *Session) Advance() (model.Question, bool) {
	q, ok := s.Current()
	if ok {
		s.remaining = s.remaining[:len(s.remaining)-1]
	}
	return q, ok
}

// Remove drops the question with the given id from the queue, keeping the
// order of the others. It reports whether the question was queued.
func (s *Session) Remove(id uint) bool {
	for i, q := range s.remaining {
		if q.ID == id {
			s.remaining = append(s.remaining[:i], s.remaining[i+1:]...)
			return true
		}
	}
	return false
}

// Pending is the number of questions left in the round.
func (s *Session) Pending() int {
	return len(s.remaining)
}

func (s *Session) Authorized() bool {
	return s.authorized
}

// Authorize is idempotent; sessions are never de-authorized.
func (s *Session) Authorize() {
	s.authorized = true
}

// Release unlocks a session obtained from Registry.Acquire.
func (s *Session) Release() {
	s.mu.Unlock()
}

// Registry owns the sessions of every chat, keyed by chat id.
type Registry struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[int64]*Session)}
}

// Acquire returns the chat's session, creating an unauthorized empty one on
// first access, and locks it. Callers must Release it.
func (r *Registry) Acquire(chatID int64) *Session {
	r.mu.Lock()
	s, ok := r.sessions[chatID]
	if !ok {
		s = &Session{}
		r.sessions[chatID] = s
	}
	r.mu.Unlock()

	s.mu.Lock()
	return s
}

// Len reports how many chats have a session.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
