package port

import "context"

// LogEvent is one line of engine output.
type LogEvent struct {
	Type    string
	Message string
}

// LoadConfig carries blob references the engine dereferences at load time.
type LoadConfig struct {
	CoreURL string
	WasmURL string
}

// Engine is the media engine and its private virtual filesystem. Paths are
// relative to the engine's filesystem root.
type Engine interface {
	On(listener func(LogEvent))
	Load(ctx context.Context, cfg LoadConfig) error
	Loaded() bool
	CreateDir(ctx context.Context, path string) error
	WriteFile(ctx context.Context, path string, data []byte) error
	Exec(ctx context.Context, args []string) error
	ReadFile(ctx context.Context, path string) ([]byte, error)
	DeleteDir(ctx context.Context, path string) error
	Close() error
}
