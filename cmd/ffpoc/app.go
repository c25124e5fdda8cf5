package main

import (
	"fmt"
	"os"

	"github.com/bnema/ffpoc/config"
	"github.com/bnema/ffpoc/internal/adapter/blob/memory"
	"github.com/bnema/ffpoc/internal/adapter/engine/ffmpeg"
	sqlitestore "github.com/bnema/ffpoc/internal/adapter/storage/sqlite"
	"github.com/bnema/ffpoc/internal/infrastructure/logger"
	"github.com/bnema/ffpoc/internal/port"
	"github.com/bnema/ffpoc/internal/service"
)

// app holds the pieces both the server and the headless commands need: one
// session with its store, blob store, event bus and engine.
type app struct {
	cfg     *config.Config
	store   *sqlitestore.Store
	blobs   *memory.Store
	bus     *service.EventBus
	session *service.Session
	engine  *ffmpeg.Engine
}

func newApp(cfg *config.Config) (*app, error) {
	if err := os.MkdirAll(cfg.WorkDir, 0755); err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}

	store, err := sqlitestore.NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	blobs := memory.NewStore()
	bus := service.NewEventBus()

	return &app{
		cfg:     cfg,
		store:   store,
		blobs:   blobs,
		bus:     bus,
		session: service.NewSession(store, bus),
		engine:  ffmpeg.NewEngine(cfg.WorkDir, blobs, ffmpeg.WithFFmpegPath(cfg.FFmpegPath)),
	}, nil
}

func (a *app) workflow(downloader port.Downloader) *service.Workflow {
	return service.NewWorkflow(a.engine, a.blobs, downloader, a.store, a.session)
}

func (a *app) close() {
	if err := a.engine.Close(); err != nil {
		logger.Warn.Printf("close engine: %v", err)
	}
	if err := a.store.Close(); err != nil {
		logger.Warn.Printf("close session store: %v", err)
	}
	logger.Sync()
}
