package ffmpeg

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bnema/ffpoc/internal/domain"
	"github.com/bnema/ffpoc/internal/infrastructure/digest"
	"github.com/bnema/ffpoc/internal/infrastructure/logger"
	"github.com/bnema/ffpoc/internal/port"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

const (
	rootPrefix   = "vfs-"
	lockFileName = "ffpoc.lock"
)

var (
	ErrInvalidPath  = errors.New("path escapes engine filesystem")
	ErrEmptyPath    = errors.New("path is empty")
	ErrInvalidCore  = errors.New("core script is empty")
	ErrInvalidWasm  = errors.New("wasm payload has no wasm header")
	ErrNotInstalled = errors.New("ffmpeg not found or not executable")
)

var wasmMagic = []byte{0x00, 'a', 's', 'm'}

// Engine runs a native ffmpeg against a private directory that plays the role
// of the engine's in-memory filesystem.
type Engine struct {
	ffmpegPath string
	workDir    string
	blobs      port.BlobStore
	runner     CommandRunner

	mu        sync.Mutex
	listeners []func(port.LogEvent)
	emitMu    sync.Mutex

	loaded atomic.Bool
	root   string
	lock   *flock.Flock
}

type Option func(*Engine)

func WithFFmpegPath(path string) Option {
	return func(e *Engine) {
		e.ffmpegPath = path
	}
}

// WithCommandRunner sets a custom command runner (for testing)
func WithCommandRunner(runner CommandRunner) Option {
	return func(e *Engine) {
		e.runner = runner
	}
}

// NewEngine creates an engine whose filesystem roots live under workDir and
// whose load references are resolved through blobs.
func NewEngine(workDir string, blobs port.BlobStore, opts ...Option) *Engine {
	e := &Engine{
		ffmpegPath: "ffmpeg",
		workDir:    workDir,
		blobs:      blobs,
		runner:     &ExecCommandRunner{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) On(listener func(port.LogEvent)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, listener)
}

func (e *Engine) emit(typ, msg string) {
	e.mu.Lock()
	listeners := append([]func(port.LogEvent){}, e.listeners...)
	e.mu.Unlock()

	e.emitMu.Lock()
	defer e.emitMu.Unlock()
	for _, l := range listeners {
		l(port.LogEvent{Type: typ, Message: msg})
	}
}

func (e *Engine) Load(ctx context.Context, cfg port.LoadConfig) error {
	if e.loaded.Load() {
		return nil
	}

	_, core, err := e.blobs.Open(cfg.CoreURL)
	if err != nil {
		return fmt.Errorf("open core %s: %w", cfg.CoreURL, err)
	}
	if len(bytes.TrimSpace(core)) == 0 {
		return ErrInvalidCore
	}

	_, wasm, err := e.blobs.Open(cfg.WasmURL)
	if err != nil {
		return fmt.Errorf("open wasm %s: %w", cfg.WasmURL, err)
	}
	version, err := wasmVersion(wasm)
	if err != nil {
		return err
	}

	e.emit("info", fmt.Sprintf("core script: %d bytes, blake2b %s", len(core), digest.Short(digest.Sum(core))))
	e.emit("info", fmt.Sprintf("core wasm: %d bytes, version %d, blake2b %s", len(wasm), version, digest.Short(digest.Sum(wasm))))

	if err := os.MkdirAll(e.workDir, 0755); err != nil {
		return fmt.Errorf("create work directory: %w", err)
	}

	if err := e.runner.Run(ctx, e.workDir, e.ffmpegPath, []string{"-hide_banner", "-version"}, e.forward); err != nil {
		return fmt.Errorf("%w: %v", ErrNotInstalled, err)
	}

	e.lock = flock.New(filepath.Join(e.workDir, lockFileName))
	if ok, err := e.lock.TryLock(); err != nil {
		logger.Warn.Printf("work dir lock: %v", err)
	} else if ok {
		e.sweepStale()
	} else {
		logger.Debug.Printf("work dir %s shared with another process, skipping stale sweep", e.workDir)
	}

	root := filepath.Join(e.workDir, rootPrefix+uuid.NewString())
	if err := os.MkdirAll(root, 0700); err != nil {
		return fmt.Errorf("create engine filesystem: %w", err)
	}
	e.root = root
	e.loaded.Store(true)

	e.emit("info", "engine loaded")
	return nil
}

func wasmVersion(payload []byte) (uint32, error) {
	if len(payload) < 8 || !bytes.Equal(payload[:4], wasmMagic) {
		return 0, ErrInvalidWasm
	}
	v := binary.LittleEndian.Uint32(payload[4:8])
	if v != 1 {
		return 0, fmt.Errorf("%w: unsupported version %d", ErrInvalidWasm, v)
	}
	return v, nil
}

// sweepStale removes filesystem roots left behind by processes that exited
// without Close. Only called while holding the work dir lock.
func (e *Engine) sweepStale() {
	entries, err := os.ReadDir(e.workDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), rootPrefix) {
			continue
		}
		stale := filepath.Join(e.workDir, entry.Name())
		if err := os.RemoveAll(stale); err != nil {
			logger.Warn.Printf("remove stale engine filesystem %s: %v", stale, err)
			continue
		}
		logger.Info.Printf("removed stale engine filesystem %s", stale)
	}
}

func (e *Engine) forward(stream, line string) {
	e.emit(stream, line)
}

func (e *Engine) Loaded() bool {
	return e.loaded.Load()
}

// resolve maps an engine path onto the host filesystem.
func (e *Engine) resolve(p string) (string, error) {
	if !e.loaded.Load() {
		return "", domain.ErrEngineNotLoaded
	}
	return resolveIn(e.root, p)
}

func resolveIn(root, p string) (string, error) {
	if p == "" {
		return "", ErrEmptyPath
	}
	if strings.ContainsRune(p, 0) || filepath.IsAbs(p) {
		return "", ErrInvalidPath
	}
	clean := filepath.Clean(filepath.FromSlash(p))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return filepath.Join(root, clean), nil
}

func (e *Engine) CreateDir(_ context.Context, p string) error {
	full, err := e.resolve(p)
	if err != nil {
		return err
	}
	return os.MkdirAll(full, 0700)
}

func (e *Engine) WriteFile(_ context.Context, p string, data []byte) error {
	full, err := e.resolve(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0700); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0600)
}

func (e *Engine) ReadFile(_ context.Context, p string) ([]byte, error) {
	full, err := e.resolve(p)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

func (e *Engine) DeleteDir(_ context.Context, p string) error {
	full, err := e.resolve(p)
	if err != nil {
		return err
	}
	return os.RemoveAll(full)
}

// Exec runs ffmpeg with args inside the engine filesystem. Outputs are always
// overwritten and stdin is never read.
func (e *Engine) Exec(ctx context.Context, args []string) error {
	if !e.loaded.Load() {
		return domain.ErrEngineNotLoaded
	}
	for i, arg := range args {
		if looksLikePath(arg) {
			if _, err := resolveIn(e.root, arg); err != nil {
				return fmt.Errorf("argument %d: %w", i, err)
			}
		}
	}

	full := append([]string{"-nostdin", "-y"}, args...)
	logger.Debug.Printf("exec %s %s", e.ffmpegPath, strings.Join(full, " "))
	if err := e.runner.Run(ctx, e.root, e.ffmpegPath, full, e.forward); err != nil {
		return fmt.Errorf("ffmpeg exited: %w", err)
	}
	return nil
}

func looksLikePath(arg string) bool {
	if strings.HasPrefix(arg, "-") {
		return false
	}
	return strings.ContainsAny(arg, "/\\") || filepath.Ext(arg) != ""
}

// Close removes the engine filesystem and releases the work dir lock.
func (e *Engine) Close() error {
	var err error
	if e.root != "" {
		err = os.RemoveAll(e.root)
	}
	if e.lock != nil {
		_ = e.lock.Unlock()
	}
	e.loaded.Store(false)
	return err
}

var _ port.Engine = (*Engine)(nil)
