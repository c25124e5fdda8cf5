package service

import (
	"sync"
	"time"

	"github.com/bnema/ffpoc/internal/domain"
	"github.com/bnema/ffpoc/internal/infrastructure/logger"
	"github.com/bnema/ffpoc/internal/port"
)

// Session is the page-level state shared by the bootstrapper and the
// workflow controller: engine lifecycle, selection, status and transcript.
type Session struct {
	mu     sync.RWMutex
	state  domain.EngineState
	status string
	input  *domain.Input
	busy   bool

	store  port.TranscriptStore
	events EventPublisher
}

func NewSession(store port.TranscriptStore, events EventPublisher) *Session {
	return &Session{
		state:  domain.EngineUninitialized,
		status: domain.StatusLoading,
		store:  store,
		events: events,
	}
}

// AppendLog records an engine log line. It may be called from any goroutine
// at any point of an action.
func (s *Session) AppendLog(message string) {
	line, err := s.store.AppendLog(message)
	if err != nil {
		logger.Error.Printf("append transcript: %v", err)
		return
	}
	s.publish(Event{Type: EventLog, Seq: line.Seq, Message: line.Message})
}

func (s *Session) Logs() ([]domain.LogLine, error) {
	return s.store.ListLogs(0)
}

func (s *Session) LogsAfter(seq int64) ([]domain.LogLine, error) {
	return s.store.ListLogs(seq)
}

func (s *Session) SetStatus(status string) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
	s.publish(Event{Type: EventStatus, Status: status})
}

func (s *Session) Status() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// transition moves the engine lifecycle forward, refusing illegal moves.
func (s *Session) transition(to domain.EngineState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.CanTransition(to) {
		return false
	}
	s.state = to
	return true
}

func (s *Session) State() domain.EngineState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) Ready() bool {
	return s.State() == domain.EngineReady
}

// Select replaces the current input. A nil or empty-named input clears it.
func (s *Session) Select(name string, data []byte, contentType string) {
	var in *domain.Input
	if name != "" {
		in = &domain.Input{
			Name:        name,
			Data:        data,
			ContentType: contentType,
			SelectedAt:  time.Now(),
		}
	}

	s.mu.Lock()
	s.input = in
	s.mu.Unlock()

	s.publish(Event{Type: EventSelected, Message: name})
}

// Input returns the current selection, or nil.
func (s *Session) Input() *domain.Input {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.input
}

// setBusy flips the in-flight flag; clearing it tells the page the buttons
// are usable again.
func (s *Session) setBusy(b bool) {
	s.mu.Lock()
	s.busy = b
	s.mu.Unlock()
	if !b {
		s.publish(Event{Type: EventIdle})
	}
}

// Snapshot returns the current view. Logs are included when withLogs is set.
func (s *Session) Snapshot(withLogs bool) domain.Snapshot {
	s.mu.RLock()
	snap := domain.Snapshot{
		State:  s.state,
		Ready:  s.state == domain.EngineReady,
		Status: s.status,
		Busy:   s.busy,
	}
	if s.input != nil {
		snap.InputName = s.input.Name
		snap.InputSize = s.input.Size()
	}
	s.mu.RUnlock()

	if withLogs {
		logs, err := s.store.ListLogs(0)
		if err != nil {
			logger.Error.Printf("list transcript: %v", err)
		}
		snap.Logs = logs
	}
	return snap
}

func (s *Session) publish(e Event) {
	if s.events != nil {
		s.events.Publish(SessionTopic, e)
	}
}
