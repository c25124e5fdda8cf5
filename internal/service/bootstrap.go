package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bnema/ffpoc/internal/domain"
	"github.com/bnema/ffpoc/internal/infrastructure/logger"
	"github.com/bnema/ffpoc/internal/port"
)

const (
	CoreScriptName = "ffmpeg-core.js"
	CoreWasmName   = "ffmpeg-core.wasm"
	coreScriptType = "text/javascript"
	coreWasmType   = "application/wasm"
)

// Bootstrapper owns the one-time engine initialization.
type Bootstrapper struct {
	engine  port.Engine
	fetcher port.AssetFetcher
	blobs   port.BlobStore
	session *Session
	baseURL string
}

func NewBootstrapper(engine port.Engine, fetcher port.AssetFetcher, blobs port.BlobStore, session *Session, baseURL string) *Bootstrapper {
	return &Bootstrapper{
		engine:  engine,
		fetcher: fetcher,
		blobs:   blobs,
		session: session,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// AssetURL resolves an asset name against the base location.
func (b *Bootstrapper) AssetURL(name string) string {
	return b.baseURL + "/" + name
}

// Initialize fetches both core assets, hands their blob references to the
// engine and waits for it to load. It runs at most once per session; a
// failure is terminal.
func (b *Bootstrapper) Initialize(ctx context.Context) error {
	if !b.session.transition(domain.EngineLoading) {
		return domain.ErrAlreadyBootstrapped
	}

	// Registered before anything else so no startup line is dropped.
	b.engine.On(func(ev port.LogEvent) {
		logger.Info.Printf("[ffmpeg] %s", logger.TruncateForLog(ev.Message))
		b.session.AppendLog(ev.Message)
	})

	if err := b.load(ctx); err != nil {
		b.session.transition(domain.EngineFailed)
		logger.Error.Printf("engine bootstrap failed: %v", err)
		b.session.SetStatus(domain.LoadFailedStatus(domain.FailureMessage(err)))
		return err
	}

	b.session.transition(domain.EngineReady)
	b.session.SetStatus(domain.StatusLoaded)
	b.session.publish(Event{Type: EventReady})
	logger.Info.Printf("engine ready (assets from %s)", b.baseURL)
	return nil
}

func (b *Bootstrapper) load(ctx context.Context) error {
	coreRef, err := b.toBlobRef(ctx, CoreScriptName, coreScriptType)
	if err != nil {
		return err
	}
	wasmRef, err := b.toBlobRef(ctx, CoreWasmName, coreWasmType)
	if err != nil {
		return err
	}

	if err := b.engine.Load(ctx, port.LoadConfig{CoreURL: coreRef, WasmURL: wasmRef}); err != nil {
		return domain.NewFailure(domain.FailureEngineLoad, "load engine", err)
	}
	return nil
}

// toBlobRef fetches an asset and converts it into a local blob reference.
func (b *Bootstrapper) toBlobRef(ctx context.Context, name, mime string) (string, error) {
	url := b.AssetURL(name)
	data, err := b.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", domain.NewFailure(domain.FailureAssetFetch, fmt.Sprintf("fetch %s", name), err)
	}
	blob, err := b.blobs.Create(data, mime)
	if err != nil {
		return "", domain.NewFailure(domain.FailureAssetFetch, fmt.Sprintf("blob %s", name), err)
	}
	logger.Info.Printf("fetched %s (%s) as %s", name, domain.FormatSize(blob.Size), blob.Ref)
	return blob.Ref, nil
}
