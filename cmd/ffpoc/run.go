package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bnema/ffpoc/internal/adapter/assets/httpfetch"
	"github.com/bnema/ffpoc/internal/adapter/download/filesystem"
	"github.com/bnema/ffpoc/internal/adapter/http/validation"
	"github.com/bnema/ffpoc/internal/domain"
	"github.com/bnema/ffpoc/internal/service"
)

func newActionCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newActionCommand(ctx, domain.ActionExtract, "Extract the audio track to extracted_audio.mp3"),
		newActionCommand(ctx, domain.ActionCompress, "Re-encode the audio track at 64 kbit/s to compressed.mp3"),
	}
}

func newActionCommand(ctx *commandContext, action domain.Action, short string) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   string(action) + " <file>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.load(true); err != nil {
				return err
			}
			return runAction(cmd.Context(), ctx, action, args[0], outDir, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory the result is written to")
	return cmd
}

// runAction is the headless page: bootstrap from local assets, select the
// file, run one action and save its download.
func runAction(ctx context.Context, cc *commandContext, action domain.Action, inputPath, outDir string, stdout io.Writer) error {
	cfg := cc.cfg
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	fetcher := httpfetch.NewFetcher(httpfetch.WithFileRoot(cfg.AssetDir))
	boot := service.NewBootstrapper(a.engine, fetcher, a.blobs, a.session, cfg.LocalAssetBase())
	if err := boot.Initialize(ctx); err != nil {
		return fmt.Errorf("%s: %w", a.session.Status(), err)
	}

	if err := selectFile(a.session, inputPath, int64(cfg.MaxUploadSizeMB)*1024*1024); err != nil {
		return err
	}

	writer := filesystem.NewWriter(outDir, a.blobs)
	run, runErr := a.workflow(writer).Run(ctx, action)
	if run == nil {
		return runErr
	}

	summary := summaryRows(run, a.session.Status(), writer.Paths())
	fmt.Fprintln(stdout, renderSummary(summary, isTerminal(stdout)))

	if runErr != nil {
		if errors.Is(runErr, domain.ErrNoop) {
			return runErr
		}
		return fmt.Errorf("%s: %w", a.session.Status(), runErr)
	}
	return nil
}

func selectFile(session *service.Session, path string, maxBytes int64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close() //nolint:errcheck

	br := bufio.NewReaderSize(f, 512)
	head, _ := br.Peek(512)

	inputs := service.NewInputService(session, maxBytes)
	if _, err := inputs.Select(filepath.Base(path), br, validation.SniffMediaType(head)); err != nil {
		return err
	}
	return nil
}
