//go:build integration

package steps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/bnema/ffpoc/internal/adapter/assets/httpfetch"
	"github.com/bnema/ffpoc/internal/adapter/blob/memory"
	"github.com/bnema/ffpoc/internal/adapter/download/filesystem"
	sqlitestore "github.com/bnema/ffpoc/internal/adapter/storage/sqlite"
	"github.com/bnema/ffpoc/internal/domain"
	"github.com/bnema/ffpoc/internal/service"
)

// mp4Header is enough of an ISO BMFF header for content sniffing.
var mp4Header = []byte("\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00mp42isom")

type scenario struct {
	tempDir  string
	assetDir string
	outDir   string

	engine   *scriptedEngine
	store    *sqlitestore.Store
	blobs    *memory.Store
	session  *service.Session
	boot     *service.Bootstrapper
	writer   *filesystem.Writer
	workflow *service.Workflow
	runner   *service.Runner
	stop     context.CancelFunc

	initErr   error
	actionErr error
	submitErr error
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	sc := &scenario{}

	ctx.Before(func(c context.Context, _ *godog.Scenario) (context.Context, error) {
		return c, sc.setUp()
	})
	ctx.After(func(c context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
		sc.tearDown()
		return c, nil
	})

	ctx.Step(`^the core assets are published$`, sc.theCoreAssetsArePublished)
	ctx.Step(`^only the core script is published$`, sc.onlyTheCoreScriptIsPublished)
	ctx.Step(`^the engine is initialized$`, sc.theEngineIsInitialized)
	ctx.Step(`^the engine is initialized again$`, sc.theEngineIsInitialized)
	ctx.Step(`^the status is "([^"]*)"$`, sc.theStatusIs)
	ctx.Step(`^the status starts with "([^"]*)"$`, sc.theStatusStartsWith)
	ctx.Step(`^the engine is ready$`, sc.theEngineIsReady)
	ctx.Step(`^the engine is not ready$`, sc.theEngineIsNotReady)
	ctx.Step(`^the initialization is refused as already attempted$`, sc.theInitializationIsRefused)

	ctx.Step(`^the file "([^"]*)" is selected$`, sc.theFileIsSelected)
	ctx.Step(`^ffmpeg exits with an error$`, sc.ffmpegExitsWithAnError)
	ctx.Step(`^ffmpeg is slow to finish$`, sc.ffmpegIsSlowToFinish)
	ctx.Step(`^I extract the audio$`, sc.iRun(domain.ActionExtract))
	ctx.Step(`^I compress the audio$`, sc.iRun(domain.ActionCompress))
	ctx.Step(`^I submit extract and then compress$`, sc.iSubmitExtractAndThenCompress)
	ctx.Step(`^a download named "([^"]*)" is saved$`, sc.aDownloadNamedIsSaved)
	ctx.Step(`^no download is saved$`, sc.noDownloadIsSaved)
	ctx.Step(`^ffmpeg was invoked with "([^"]*)"$`, sc.ffmpegWasInvokedWith)
	ctx.Step(`^no run namespace is left behind$`, sc.noRunNamespaceIsLeftBehind)
	ctx.Step(`^the action is skipped$`, sc.theActionIsSkipped)
	ctx.Step(`^the second submission is rejected as busy$`, sc.theSecondSubmissionIsRejectedAsBusy)
	ctx.Step(`^after ffmpeg finishes a download named "([^"]*)" is saved$`, sc.afterFFmpegFinishes)
}

func (s *scenario) setUp() error {
	tempDir, err := os.MkdirTemp("", "ffpoc-features-*")
	if err != nil {
		return err
	}
	*s = scenario{
		tempDir:  tempDir,
		assetDir: filepath.Join(tempDir, "assets"),
		outDir:   filepath.Join(tempDir, "out"),
	}
	for _, dir := range []string{s.assetDir, s.outDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	s.store, err = sqlitestore.NewStore(filepath.Join(tempDir, "session.db"))
	if err != nil {
		return err
	}
	s.blobs = memory.NewStore()
	s.engine = newScriptedEngine()
	s.session = service.NewSession(s.store, service.NewEventBus())

	fetcher := httpfetch.NewFetcher(httpfetch.WithFileRoot(s.assetDir))
	s.boot = service.NewBootstrapper(s.engine, fetcher, s.blobs, s.session, "file:///")
	s.writer = filesystem.NewWriter(s.outDir, s.blobs)
	s.workflow = service.NewWorkflow(s.engine, s.blobs, s.writer, s.store, s.session)
	return nil
}

func (s *scenario) tearDown() {
	if s.stop != nil {
		s.stop()
		s.runner.Wait()
	}
	if s.store != nil {
		_ = s.store.Close()
	}
	if s.tempDir != "" {
		_ = os.RemoveAll(s.tempDir)
	}
}

func (s *scenario) publish(name, content string) error {
	return os.WriteFile(filepath.Join(s.assetDir, name), []byte(content), 0644)
}

func (s *scenario) theCoreAssetsArePublished() error {
	if err := s.publish(service.CoreScriptName, "/* core */"); err != nil {
		return err
	}
	return s.publish(service.CoreWasmName, "\x00asm\x01\x00\x00\x00")
}

func (s *scenario) onlyTheCoreScriptIsPublished() error {
	return s.publish(service.CoreScriptName, "/* core */")
}

func (s *scenario) theEngineIsInitialized() error {
	s.initErr = s.boot.Initialize(context.Background())
	return nil
}

func (s *scenario) theStatusIs(want string) error {
	if got := s.session.Status(); got != want {
		return fmt.Errorf("status = %q, want %q", got, want)
	}
	return nil
}

func (s *scenario) theStatusStartsWith(prefix string) error {
	if got := s.session.Status(); !strings.HasPrefix(got, prefix) {
		return fmt.Errorf("status = %q, want prefix %q", got, prefix)
	}
	return nil
}

func (s *scenario) theEngineIsReady() error {
	if !s.session.Ready() {
		return fmt.Errorf("engine not ready: %v", s.initErr)
	}
	return nil
}

func (s *scenario) theEngineIsNotReady() error {
	if s.session.Ready() {
		return errors.New("engine reports ready")
	}
	if s.initErr == nil {
		return errors.New("initialization did not fail")
	}
	return nil
}

func (s *scenario) theInitializationIsRefused() error {
	if !errors.Is(s.initErr, domain.ErrAlreadyBootstrapped) {
		return fmt.Errorf("got %v, want %v", s.initErr, domain.ErrAlreadyBootstrapped)
	}
	return nil
}

func (s *scenario) theFileIsSelected(name string) error {
	s.session.Select(name, mp4Header, "video/mp4")
	return nil
}

func (s *scenario) ffmpegExitsWithAnError() error {
	s.engine.execErr = errors.New("exit status 1")
	return nil
}

func (s *scenario) ffmpegIsSlowToFinish() error {
	s.engine.gate = make(chan struct{})
	return nil
}

func (s *scenario) iRun(action domain.Action) func() error {
	return func() error {
		_, s.actionErr = s.workflow.Run(context.Background(), action)
		return nil
	}
}

func (s *scenario) iSubmitExtractAndThenCompress() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	s.runner = service.NewRunner(s.workflow, s.session)
	s.runner.Start(ctx)

	if err := s.runner.Submit(domain.ActionExtract); err != nil {
		return fmt.Errorf("first submission: %w", err)
	}
	s.submitErr = s.runner.Submit(domain.ActionCompress)
	return nil
}

func (s *scenario) theSecondSubmissionIsRejectedAsBusy() error {
	if !errors.Is(s.submitErr, domain.ErrBusy) {
		return fmt.Errorf("got %v, want %v", s.submitErr, domain.ErrBusy)
	}
	return nil
}

func (s *scenario) afterFFmpegFinishes(name string) error {
	close(s.engine.gate)

	deadline := time.Now().Add(5 * time.Second)
	for s.runner.Busy() {
		if time.Now().After(deadline) {
			return errors.New("runner still busy")
		}
		time.Sleep(10 * time.Millisecond)
	}
	return s.aDownloadNamedIsSaved(name)
}

func (s *scenario) aDownloadNamedIsSaved(name string) error {
	paths := s.writer.Paths()
	if len(paths) != 1 {
		return fmt.Errorf("saved %d downloads, want 1", len(paths))
	}
	if filepath.Base(paths[0]) != name {
		return fmt.Errorf("saved %q, want %q", filepath.Base(paths[0]), name)
	}
	data, err := os.ReadFile(paths[0])
	if err != nil {
		return err
	}
	if !strings.HasPrefix(string(data), "ID3") {
		return fmt.Errorf("unexpected download content %q", data)
	}
	return nil
}

func (s *scenario) noDownloadIsSaved() error {
	entries, err := os.ReadDir(s.outDir)
	if err != nil {
		return err
	}
	if len(entries) != 0 || len(s.writer.Paths()) != 0 {
		return fmt.Errorf("found %d saved files", len(entries))
	}
	if n := s.blobs.Len(); n != 2 {
		return fmt.Errorf("blob store holds %d blobs, want only the 2 core assets", n)
	}
	return nil
}

func (s *scenario) ffmpegWasInvokedWith(want string) error {
	got := strings.Join(s.engine.lastExec(), " ")
	if got != want {
		return fmt.Errorf("invoked with %q, want %q", got, want)
	}
	return nil
}

func (s *scenario) noRunNamespaceIsLeftBehind() error {
	if ns := s.engine.namespaces(); len(ns) != 0 {
		return fmt.Errorf("namespaces left: %v", ns)
	}
	return nil
}

func (s *scenario) theActionIsSkipped() error {
	if !errors.Is(s.actionErr, domain.ErrNoop) {
		return fmt.Errorf("got %v, want %v", s.actionErr, domain.ErrNoop)
	}
	return nil
}
