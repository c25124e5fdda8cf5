package service

import (
	"context"
	"sync"

	"github.com/bnema/ffpoc/internal/domain"
	"github.com/bnema/ffpoc/internal/infrastructure/logger"
)

// Runner executes actions one at a time in the background. A submission
// while an action is in flight is rejected with ErrBusy.
type Runner struct {
	workflow *Workflow
	session  *Session
	jobs     chan domain.Action
	slot     chan struct{}
	wg       sync.WaitGroup
}

func NewRunner(workflow *Workflow, session *Session) *Runner {
	return &Runner{
		workflow: workflow,
		session:  session,
		jobs:     make(chan domain.Action, 1),
		slot:     make(chan struct{}, 1),
	}
}

// Start launches the worker. Actions run under ctx, not under the context of
// the request that submitted them.
func (r *Runner) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.work(ctx)
	logger.Info.Println("action runner started")
}

// Wait blocks until the worker has exited after its context was cancelled.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Submit queues action. Precondition violations return ErrNoop.
func (r *Runner) Submit(action domain.Action) error {
	if err := r.workflow.Precheck(action); err != nil {
		return err
	}

	select {
	case r.slot <- struct{}{}:
	default:
		return domain.ErrBusy
	}

	r.session.setBusy(true)
	r.jobs <- action
	return nil
}

// Busy reports whether an action is queued or running.
func (r *Runner) Busy() bool {
	return len(r.slot) > 0
}

func (r *Runner) work(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			logger.Info.Println("action runner shutting down")
			return
		case action := <-r.jobs:
			r.process(ctx, action)
		}
	}
}

func (r *Runner) process(ctx context.Context, action domain.Action) {
	// The slot is free before idle is announced, so a click on the
	// re-enabled buttons is accepted.
	defer func() {
		<-r.slot
		r.session.setBusy(false)
	}()

	if _, err := r.workflow.Run(ctx, action); err != nil {
		logger.Debug.Printf("runner: %s ended with error: %v", action, err)
	}
}
