package service

import (
	"context"
	"errors"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/bnema/ffpoc/internal/domain"
	"github.com/bnema/ffpoc/internal/port"
)

// memStore is an in-memory port.SessionStore.
type memStore struct {
	mu   sync.Mutex
	logs []domain.LogLine
	runs []*domain.Run
}

func (m *memStore) AppendLog(message string) (domain.LogLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	line := domain.LogLine{Seq: int64(len(m.logs) + 1), At: time.Now(), Message: message}
	m.logs = append(m.logs, line)
	return line, nil
}

func (m *memStore) ListLogs(afterSeq int64) ([]domain.LogLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.LogLine
	for _, l := range m.logs {
		if l.Seq > afterSeq {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memStore) CountLogs() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.logs)), nil
}

func (m *memStore) messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.logs))
	for i, l := range m.logs {
		out[i] = l.Message
	}
	return out
}

func (m *memStore) SaveRun(r *domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.runs = append(m.runs, &cp)
	return nil
}

func (m *memStore) UpdateRun(r *domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.runs {
		if existing.ID == r.ID {
			cp := *r
			m.runs[i] = &cp
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memStore) GetRun(id string) (*domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memStore) ListRuns() ([]*domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Run, len(m.runs))
	for i, r := range m.runs {
		out[len(m.runs)-1-i] = r
	}
	return out, nil
}

// fakeEngine is a scripted port.Engine with an in-memory filesystem. Exec
// writes a payload derived from its arguments to the last argument.
type fakeEngine struct {
	mu        sync.Mutex
	listeners []func(port.LogEvent)
	loaded    bool
	loadCfg   port.LoadConfig
	files     map[string][]byte
	dirs      map[string]bool
	execs     [][]string
	deleted   []string
	fail      map[string]error
	execLines []string
	// gate, when set, blocks Exec until it is closed.
	gate chan struct{}
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
		fail:  make(map[string]error),
	}
}

func (f *fakeEngine) On(listener func(port.LogEvent)) {
	f.mu.Lock()
	f.listeners = append(f.listeners, listener)
	f.mu.Unlock()
}

func (f *fakeEngine) emit(msg string) {
	f.mu.Lock()
	ls := append([]func(port.LogEvent){}, f.listeners...)
	f.mu.Unlock()
	for _, l := range ls {
		l(port.LogEvent{Type: "stderr", Message: msg})
	}
}

func (f *fakeEngine) Load(_ context.Context, cfg port.LoadConfig) error {
	f.emit("loading core")
	if err := f.fail["load"]; err != nil {
		return err
	}
	f.mu.Lock()
	f.loaded = true
	f.loadCfg = cfg
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) Loaded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded
}

func (f *fakeEngine) CreateDir(_ context.Context, p string) error {
	if err := f.fail["mkdir"]; err != nil {
		return err
	}
	f.mu.Lock()
	f.dirs[p] = true
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) WriteFile(_ context.Context, p string, data []byte) error {
	if err := f.fail["write"]; err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.dirs[path.Dir(p)] {
		return os.ErrNotExist
	}
	f.files[p] = append([]byte(nil), data...)
	return nil
}

func (f *fakeEngine) Exec(ctx context.Context, args []string) error {
	f.mu.Lock()
	f.execs = append(f.execs, append([]string(nil), args...))
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	for _, l := range f.execLines {
		f.emit(l)
	}
	if err := f.fail["exec"]; err != nil {
		return err
	}

	out := args[len(args)-1]
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[path.Join(path.Dir(out), domain.InputName)]; !ok {
		return errors.New("input file not found")
	}
	f.files[out] = []byte("ID3" + strings.Join(args, " "))
	return nil
}

func (f *fakeEngine) ReadFile(_ context.Context, p string) ([]byte, error) {
	if err := f.fail["read"]; err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[p]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

func (f *fakeEngine) DeleteDir(_ context.Context, p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, p)
	delete(f.dirs, p)
	for name := range f.files {
		if strings.HasPrefix(name, p+"/") {
			delete(f.files, name)
		}
	}
	return nil
}

func (f *fakeEngine) Close() error { return nil }

func (f *fakeEngine) execCalls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.execs...)
}

func (f *fakeEngine) fileCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.files)
}

// statusRecorder collects every status event published on the bus.
type statusRecorder struct {
	mu       sync.Mutex
	statuses []string
	types    []string
	// onPublish, when set, sees every event after it is recorded.
	onPublish func(Event)
}

func (r *statusRecorder) Publish(_ string, e Event) int {
	r.mu.Lock()
	r.types = append(r.types, e.Type)
	if e.Type == EventStatus {
		r.statuses = append(r.statuses, e.Status)
	}
	hook := r.onPublish
	r.mu.Unlock()

	if hook != nil {
		hook(e)
	}
	return 1
}

func (r *statusRecorder) Statuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.statuses...)
}

func (r *statusRecorder) Count(typ string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.types {
		if t == typ {
			n++
		}
	}
	return n
}

// readySession returns a session whose engine is already loaded.
func readySession(store *memStore, events EventPublisher) *Session {
	s := NewSession(store, events)
	s.transition(domain.EngineLoading)
	s.transition(domain.EngineReady)
	s.SetStatus(domain.StatusLoaded)
	return s
}
