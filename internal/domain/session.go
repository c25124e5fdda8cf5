package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	StatusLoading    = "Loading ffmpeg-core.js..."
	StatusLoaded     = "FFmpeg loaded"
	StatusLoadFailed = "Failed to load FFmpeg: "
)

// LoadFailedStatus returns the status shown when bootstrap fails with msg.
func LoadFailedStatus(msg string) string {
	return StatusLoadFailed + msg
}

type EngineState string

const (
	EngineUninitialized EngineState = "uninitialized"
	EngineLoading       EngineState = "loading"
	EngineReady         EngineState = "ready"
	EngineFailed        EngineState = "failed"
)

// CanTransition reports whether the bootstrap lifecycle allows from -> to.
// Ready and failed are terminal.
func (s EngineState) CanTransition(to EngineState) bool {
	switch s {
	case EngineUninitialized:
		return to == EngineLoading
	case EngineLoading:
		return to == EngineReady || to == EngineFailed
	default:
		return false
	}
}

// Input is the user's current selection.
type Input struct {
	Name        string
	Data        []byte
	ContentType string
	SelectedAt  time.Time
}

func (in *Input) Size() int64 {
	if in == nil {
		return 0
	}
	return int64(len(in.Data))
}

type LogLine struct {
	Seq     int64     `json:"seq"`
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// JoinTranscript renders lines the way the logs block shows them.
func JoinTranscript(lines []LogLine) string {
	msgs := make([]string, len(lines))
	for i, l := range lines {
		msgs[i] = l.Message
	}
	return strings.Join(msgs, "\n")
}

type Blob struct {
	Ref    string `json:"ref"`
	MIME   string `json:"mime"`
	Size   int64  `json:"size"`
	Digest string `json:"digest"`
}

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run records one action invocation.
type Run struct {
	ID           string      `json:"id"`
	Action       Action      `json:"action"`
	Namespace    string      `json:"namespace"`
	InputName    string      `json:"input_name"`
	Status       RunStatus   `json:"status"`
	FailureKind  FailureKind `json:"failure_kind,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
	OutputSize   int64       `json:"output_size"`
	OutputDigest string      `json:"output_digest,omitempty"`
	StartedAt    time.Time   `json:"started_at"`
	FinishedAt   time.Time   `json:"finished_at"`
}

func NewRun(action Action, inputName string) *Run {
	id := uuid.NewString()
	return &Run{
		ID:        id,
		Action:    action,
		Namespace: "run-" + id,
		InputName: inputName,
		Status:    RunRunning,
		StartedAt: time.Now(),
	}
}

func (r *Run) MarkSucceeded(blob Blob) {
	r.Status = RunSucceeded
	r.OutputSize = blob.Size
	r.OutputDigest = blob.Digest
	r.FinishedAt = time.Now()
}

func (r *Run) MarkFailed(err error) {
	r.Status = RunFailed
	r.FailureKind = KindOf(err)
	r.ErrorMessage = err.Error()
	r.FinishedAt = time.Now()
}

func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Snapshot is a read-only view of the session for rendering.
type Snapshot struct {
	State     EngineState `json:"state"`
	Ready     bool        `json:"ready"`
	Status    string      `json:"status"`
	InputName string      `json:"input_name,omitempty"`
	InputSize int64       `json:"input_size,omitempty"`
	Busy      bool        `json:"busy"`
	Logs      []LogLine   `json:"logs,omitempty"`
}

// CanAct reports whether the action buttons are shown.
func (s Snapshot) CanAct() bool {
	return s.Ready && s.InputName != ""
}
