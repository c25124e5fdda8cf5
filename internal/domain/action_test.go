package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAction_Spec(t *testing.T) {
	tests := []struct {
		action   Action
		args     []string
		output   string
		download string
		running  string
		ok       string
		failed   string
	}{
		{
			action:   ActionExtract,
			args:     []string{"-i", "input.mp4", "output.mp3"},
			output:   "output.mp3",
			download: "extracted_audio.mp3",
			running:  "Extracting audio...",
			ok:       "Audio extracted!",
			failed:   "Extraction failed",
		},
		{
			action:   ActionCompress,
			args:     []string{"-i", "input.mp4", "-b:a", "64k", "compressed.mp3"},
			output:   "compressed.mp3",
			download: "compressed.mp3",
			running:  "Compressing audio...",
			ok:       "Audio compressed!",
			failed:   "Compression failed",
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			spec, err := tt.action.Spec()
			require.NoError(t, err)
			assert.Equal(t, tt.args, spec.Args)
			assert.Equal(t, tt.output, spec.OutputName)
			assert.Equal(t, tt.download, spec.DownloadName)
			assert.Equal(t, "audio/mp3", spec.MIME)
			assert.Equal(t, tt.running, spec.Running)
			assert.Equal(t, tt.ok, spec.Succeeded)
			assert.Equal(t, tt.failed, spec.Failed)
		})
	}
}

func TestActionSpec_ArgsIn(t *testing.T) {
	spec, err := ActionCompress.Spec()
	require.NoError(t, err)

	args := spec.ArgsIn("run-1")
	assert.Equal(t, []string{"-i", "run-1/input.mp4", "-b:a", "64k", "run-1/compressed.mp3"}, args)
	assert.Equal(t, "run-1/input.mp4", spec.InputPath("run-1"))
	assert.Equal(t, "run-1/compressed.mp3", spec.OutputPath("run-1"))

	// The shared table is not mutated.
	assert.Equal(t, "input.mp4", spec.Args[1])
}

func TestParseAction(t *testing.T) {
	for _, a := range Actions() {
		got, err := ParseAction(string(a))
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}

	_, err := ParseAction("transcode")
	assert.Error(t, err)
}
