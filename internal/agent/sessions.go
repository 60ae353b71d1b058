package agent

import (
	"sync"

	"github.com/google/uuid"
)

// Sessions keeps one Chatbot per conversation id, in process memory only.
type Sessions struct {
	mu     sync.Mutex
	bots   map[string]*Chatbot
	order  []string
	max    int
	newBot func() *Chatbot
}

// NewSessions creates a session store. When more than max sessions exist
// the oldest is dropped; max <= 0 means 100.
func NewSessions(max int, factory func() *Chatbot) *Sessions {
	if max <= 0 {
		max = 100
	}
	return &Sessions{bots: make(map[string]*Chatbot), max: max, newBot: factory}
}

// Get returns the chatbot for id. An empty or unknown id starts a new
// session; the returned id is the one to use next time.
func (s *Sessions) Get(id string) (*Chatbot, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bot, ok := s.bots[id]; ok {
		return bot, id
	}
	id = uuid.NewString()
	bot := s.newBot()
	s.bots[id] = bot
	s.order = append(s.order, id)
	for len(s.order) > s.max {
		delete(s.bots, s.order[0])
		s.order = s.order[1:]
	}
	return bot, id
}

// Lookup returns the chatbot for an existing session.
func (s *Sessions) Lookup(id string) (*Chatbot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bot, ok := s.bots[id]
	return bot, ok
}

// Clear clears the history of session id. It reports whether it existed.
func (s *Sessions) Clear(id string) bool {
	bot, ok := s.Lookup(id)
	if ok {
		bot.ClearHistory()
	}
	return ok
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bots)
}
