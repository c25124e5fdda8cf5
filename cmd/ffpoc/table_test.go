package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/ffpoc/internal/domain"
)

func finishedRun(t *testing.T, err error) *domain.Run {
	t.Helper()
	run := domain.NewRun(domain.ActionCompress, "clip.mp4")
	run.StartedAt = time.Now().Add(-1500 * time.Millisecond)
	if err != nil {
		run.MarkFailed(err)
	} else {
		run.MarkSucceeded(domain.Blob{Ref: "blob:1", Size: 2048, Digest: "0123456789abcdef0123"})
	}
	return run
}

func TestSummaryRows(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		paths  []string
		want   map[string]string
		absent []string
	}{
		{
			name:  "succeeded",
			paths: []string{"/tmp/out/compressed.mp3"},
			want: map[string]string{
				"Action":   "compress",
				"Input":    "clip.mp4",
				"Status":   "Audio compressed!",
				"Digest":   "0123456789ab",
				"Saved to": "/tmp/out/compressed.mp3",
			},
			absent: []string{"Failure"},
		},
		{
			name: "failed",
			err:  domain.NewFailure(domain.FailureInvocation, "exec", errors.New("exit status 1")),
			want: map[string]string{
				"Status":  "Audio compressed!",
				"Failure": "invocation",
			},
			absent: []string{"Digest", "Saved to"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := summaryRows(finishedRun(t, tt.err), "Audio compressed!", tt.paths)

			got := make(map[string]string, len(rows))
			for _, r := range rows {
				got[r.label] = r.value
			}
			for k, v := range tt.want {
				assert.Equal(t, v, got[k], k)
			}
			for _, k := range tt.absent {
				assert.NotContains(t, got, k)
			}
			assert.Contains(t, got, "Elapsed")
		})
	}
}

func TestRenderSummary(t *testing.T) {
	rows := []summaryRow{{"Action", "extract"}, {"Input", "clip.mp4"}}

	plain := renderSummary(rows, false)
	assert.Contains(t, plain, "extract")
	assert.Contains(t, plain, "clip.mp4")
	assert.Contains(t, plain, "+")
	assert.NotContains(t, plain, "╭")

	rounded := renderSummary(rows, true)
	assert.True(t, strings.HasPrefix(rounded, "╭"), rounded)
}

func TestIsTerminal_NonFile(t *testing.T) {
	require.False(t, isTerminal(&bytes.Buffer{}))
}
