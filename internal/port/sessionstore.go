package port

import "github.com/bnema/ffpoc/internal/domain"

type TranscriptStore interface {
	AppendLog(message string) (domain.LogLine, error)
	ListLogs(afterSeq int64) ([]domain.LogLine, error)
	CountLogs() (int64, error)
}

type RunStore interface {
	SaveRun(r *domain.Run) error
	UpdateRun(r *domain.Run) error
	GetRun(id string) (*domain.Run, error)
	ListRuns() ([]*domain.Run, error)
}

// SessionStore holds everything a session accumulates.
type SessionStore interface {
	TranscriptStore
	RunStore
}
