//go:build integration

package steps

import (
	"context"
	"errors"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/bnema/ffpoc/internal/port"
)

// scriptedEngine stands in for ffmpeg: it keeps files in memory and answers
// Exec by writing a small MP3-looking payload to the last argument.
type scriptedEngine struct {
	mu        sync.Mutex
	listeners []func(port.LogEvent)
	files     map[string][]byte
	dirs      map[string]bool
	execs     [][]string
	loaded    bool
	execErr   error
	gate      chan struct{}
}

func newScriptedEngine() *scriptedEngine {
	return &scriptedEngine{
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
	}
}

func (e *scriptedEngine) On(listener func(port.LogEvent)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, listener)
}

func (e *scriptedEngine) emit(msg string) {
	e.mu.Lock()
	ls := append([]func(port.LogEvent){}, e.listeners...)
	e.mu.Unlock()
	for _, l := range ls {
		l(port.LogEvent{Type: "stderr", Message: msg})
	}
}

func (e *scriptedEngine) Load(_ context.Context, cfg port.LoadConfig) error {
	if cfg.CoreURL == "" || cfg.WasmURL == "" {
		return errors.New("missing core reference")
	}
	e.mu.Lock()
	e.loaded = true
	e.mu.Unlock()
	e.emit("ffmpeg version scripted")
	return nil
}

func (e *scriptedEngine) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded
}

func (e *scriptedEngine) CreateDir(_ context.Context, p string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dirs[p] = true
	return nil
}

func (e *scriptedEngine) WriteFile(_ context.Context, p string, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.dirs[path.Dir(p)] {
		return os.ErrNotExist
	}
	e.files[p] = append([]byte(nil), data...)
	return nil
}

func (e *scriptedEngine) Exec(ctx context.Context, args []string) error {
	e.mu.Lock()
	e.execs = append(e.execs, append([]string(nil), args...))
	gate, execErr := e.gate, e.execErr
	e.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	e.emit("Input #0, mov,mp4,m4a,3gp,3g2,mj2, from 'input.mp4':")
	if execErr != nil {
		e.emit("Conversion failed!")
		return execErr
	}

	out := args[len(args)-1]
	e.mu.Lock()
	e.files[out] = []byte("ID3" + strings.Join(args, " "))
	e.mu.Unlock()
	e.emit("size=       1kB time=00:00:01.00 bitrate=  64.0kbits/s")
	return nil
}

func (e *scriptedEngine) ReadFile(_ context.Context, p string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	data, ok := e.files[p]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

func (e *scriptedEngine) DeleteDir(_ context.Context, p string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for name := range e.files {
		if strings.HasPrefix(name, p+"/") {
			delete(e.files, name)
		}
	}
	delete(e.dirs, p)
	return nil
}

func (e *scriptedEngine) Close() error { return nil }

// namespaces returns the run directories still present.
func (e *scriptedEngine) namespaces() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for d := range e.dirs {
		out = append(out, d)
	}
	return out
}

// lastExec returns the last invocation with namespace prefixes removed.
func (e *scriptedEngine) lastExec() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.execs) == 0 {
		return nil
	}
	last := e.execs[len(e.execs)-1]
	out := make([]string, len(last))
	for i, a := range last {
		if strings.HasPrefix(path.Dir(a), "run-") {
			a = path.Base(a)
		}
		out[i] = a
	}
	return out
}

var _ port.Engine = (*scriptedEngine)(nil)
