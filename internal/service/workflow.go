package service

import (
	"context"
	"errors"

	"github.com/bnema/ffpoc/internal/domain"
	"github.com/bnema/ffpoc/internal/infrastructure/logger"
	"github.com/bnema/ffpoc/internal/port"
)

// Workflow runs the two audio actions against the current selection.
type Workflow struct {
	engine     port.Engine
	blobs      port.BlobStore
	downloader port.Downloader
	runs       port.RunStore
	session    *Session
}

func NewWorkflow(engine port.Engine, blobs port.BlobStore, downloader port.Downloader, runs port.RunStore, session *Session) *Workflow {
	return &Workflow{
		engine:     engine,
		blobs:      blobs,
		downloader: downloader,
		runs:       runs,
		session:    session,
	}
}

func (w *Workflow) ExtractAudio(ctx context.Context) (*domain.Run, error) {
	return w.Run(ctx, domain.ActionExtract)
}

func (w *Workflow) CompressAudio(ctx context.Context) (*domain.Run, error) {
	return w.Run(ctx, domain.ActionCompress)
}

// Precheck reports whether action may run now. Violations are silent no-ops
// for the user; callers get ErrNoop wrapping the reason.
func (w *Workflow) Precheck(action domain.Action) error {
	if _, err := action.Spec(); err != nil {
		return err
	}
	if !w.session.Ready() {
		return errors.Join(domain.ErrNoop, domain.ErrNotReady)
	}
	if w.session.Input() == nil {
		return errors.Join(domain.ErrNoop, domain.ErrNoInput)
	}
	return nil
}

// Run executes one action end to end. On success exactly one download is
// triggered; on failure none is, and the fixed failure status is shown.
func (w *Workflow) Run(ctx context.Context, action domain.Action) (*domain.Run, error) {
	if err := w.Precheck(action); err != nil {
		return nil, err
	}
	spec, _ := action.Spec()
	input := w.session.Input()

	run := domain.NewRun(action, input.Name)
	if err := w.runs.SaveRun(run); err != nil {
		logger.Warn.Printf("save run %s: %v", run.ID, err)
	}

	w.session.SetStatus(spec.Running)
	logger.Info.Printf("run %s: %s %q (%s)", run.ID, action, logger.SanitizeForLog(input.Name), domain.FormatSize(input.Size()))

	blob, err := w.execute(ctx, spec, run.Namespace, input)
	w.cleanup(run.Namespace)

	if err != nil {
		run.MarkFailed(err)
		w.finish(run)
		logger.Error.Printf("run %s: %s failed: %v", run.ID, action, err)
		w.session.SetStatus(spec.Failed)
		return run, err
	}

	run.MarkSucceeded(blob)
	w.finish(run)
	logger.Info.Printf("run %s: %s produced %s in %s", run.ID, action, domain.FormatSize(blob.Size), domain.FormatElapsed(run.Duration()))
	w.session.SetStatus(spec.Succeeded)
	return run, nil
}

func (w *Workflow) execute(ctx context.Context, spec domain.ActionSpec, ns string, input *domain.Input) (domain.Blob, error) {
	if err := w.engine.CreateDir(ctx, ns); err != nil {
		return domain.Blob{}, domain.NewFailure(domain.FailureFSWrite, "create namespace", err)
	}
	if err := w.engine.WriteFile(ctx, spec.InputPath(ns), input.Data); err != nil {
		return domain.Blob{}, domain.NewFailure(domain.FailureFSWrite, "write input", err)
	}
	if err := w.engine.Exec(ctx, spec.ArgsIn(ns)); err != nil {
		return domain.Blob{}, domain.NewFailure(domain.FailureInvocation, "exec", err)
	}
	data, err := w.engine.ReadFile(ctx, spec.OutputPath(ns))
	if err != nil {
		return domain.Blob{}, domain.NewFailure(domain.FailureReadBack, "read output", err)
	}
	blob, err := w.blobs.Create(data, spec.MIME)
	if err != nil {
		return domain.Blob{}, domain.NewFailure(domain.FailureBlob, "create blob", err)
	}
	if err := w.downloader.Trigger(ctx, blob, spec.DownloadName); err != nil {
		_ = w.blobs.Revoke(blob.Ref)
		return domain.Blob{}, domain.NewFailure(domain.FailureDownload, "trigger download", err)
	}
	return blob, nil
}

// cleanup removes the run namespace. It runs detached from ctx so an expired
// request context still leaves the engine filesystem clean.
func (w *Workflow) cleanup(ns string) {
	if err := w.engine.DeleteDir(context.Background(), ns); err != nil {
		logger.Warn.Printf("remove namespace %s: %v", ns, err)
	}
}

func (w *Workflow) finish(run *domain.Run) {
	if err := w.runs.UpdateRun(run); err != nil {
		logger.Warn.Printf("update run %s: %v", run.ID, err)
	}
}

// History lists recorded runs, newest first.
func (w *Workflow) History() ([]*domain.Run, error) {
	return w.runs.ListRuns()
}
