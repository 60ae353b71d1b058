package dashboard

import (
	"fmt"
	"time"
)

// Stage names a refresh progress step.
type Stage string

const (
	StageStarted     Stage = "started"
	StageResolved    Stage = "resolved"
	StageFetched     Stage = "fetched"
	StageDone        Stage = "done"
	StageUnavailable Stage = "unavailable"
	StageCompleted   Stage = "completed"
)

// Event reports refresh progress. Ticker and Index are unset for the
// started and completed events.
type Event struct {
	RefreshID string    `json:"refresh_id"`
	Stage     Stage     `json:"stage"`
	Ticker    string    `json:"ticker,omitempty"`
	Index     int       `json:"index"`
	Total     int       `json:"total"`
	Message   string    `json:"message,omitempty"`
	At        time.Time `json:"at"`
}

// Observer receives refresh events synchronously. It must not block.
type Observer func(Event)

// Subscribe registers o for all future refreshes.
func (s *Service) Subscribe(o Observer) {
	if o == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

func (s *Service) emit(ev Event) {
	ev.At = time.Now()
	s.mu.RLock()
	obs := append([]Observer(nil), s.observers...)
	s.mu.RUnlock()
	for _, o := range obs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Warn().Str("panic", fmt.Sprint(r)).Msg("dashboard: observer panicked")
				}
			}()
			o(ev)
		}()
	}
}
