package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os/exec"
	"sync"

	"github.com/bnema/ffpoc/internal/infrastructure/logger"
)

const maxLineBytes = 1 << 20

// CommandRunner runs an external command in dir, calling onLine for every
// line written to stdout or stderr.
type CommandRunner interface {
	Run(ctx context.Context, dir, name string, args []string, onLine func(stream, line string)) error
}

// ExecCommandRunner is the production runner built on os/exec.
type ExecCommandRunner struct{}

func (r *ExecCommandRunner) Run(ctx context.Context, dir, name string, args []string, onLine func(stream, line string)) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scanLines(stdout, "stdout", onLine)
	}()
	go func() {
		defer wg.Done()
		scanLines(stderr, "stderr", onLine)
	}()
	wg.Wait()

	return cmd.Wait()
}

// scanLines forwards r line by line until EOF. After a scan error the rest
// of r is discarded unread so the child never blocks on a full pipe.
func scanLines(r io.Reader, stream string, onLine func(stream, line string)) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	sc.Split(splitLines)
	for sc.Scan() {
		line := string(bytes.TrimRight(sc.Bytes(), " "))
		if line == "" {
			continue
		}
		onLine(stream, line)
	}
	if err := sc.Err(); err != nil {
		logger.Warn.Printf("ffmpeg %s: %v; discarding the rest of the stream", stream, err)
		if _, err := io.Copy(io.Discard, r); err != nil {
			logger.Warn.Printf("ffmpeg %s: drain: %v", stream, err)
		}
	}
}

// splitLines splits on \n and on bare \r, which ffmpeg uses for progress.
func splitLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		advance = i + 1
		if data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n' {
			advance++
		}
		return advance, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
