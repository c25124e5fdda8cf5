package domain

import (
	"fmt"
	"path"
)

type Action string

const (
	ActionExtract  Action = "extract"
	ActionCompress Action = "compress"
)

const (
	// InputName is the engine-side name every action writes the selection to.
	InputName = "input.mp4"
	// AudioMIME is the type attached to every produced download.
	AudioMIME = "audio/mp3"
)

// ActionSpec describes one fixed engine invocation and its user-facing texts.
type ActionSpec struct {
	Action       Action
	Args         []string
	OutputName   string
	DownloadName string
	MIME         string
	Running      string
	Succeeded    string
	Failed       string
}

var actionSpecs = map[Action]ActionSpec{
	ActionExtract: {
		Action:       ActionExtract,
		Args:         []string{"-i", InputName, "output.mp3"},
		OutputName:   "output.mp3",
		DownloadName: "extracted_audio.mp3",
		MIME:         AudioMIME,
		Running:      "Extracting audio...",
		Succeeded:    "Audio extracted!",
		Failed:       "Extraction failed",
	},
	ActionCompress: {
		Action:       ActionCompress,
		Args:         []string{"-i", InputName, "-b:a", "64k", "compressed.mp3"},
		OutputName:   "compressed.mp3",
		DownloadName: "compressed.mp3",
		MIME:         AudioMIME,
		Running:      "Compressing audio...",
		Succeeded:    "Audio compressed!",
		Failed:       "Compression failed",
	},
}

// Spec returns the fixed invocation for a.
func (a Action) Spec() (ActionSpec, error) {
	spec, ok := actionSpecs[a]
	if !ok {
		return ActionSpec{}, fmt.Errorf("unknown action: %q", string(a))
	}
	return spec, nil
}

func ParseAction(s string) (Action, error) {
	a := Action(s)
	if _, err := a.Spec(); err != nil {
		return "", err
	}
	return a, nil
}

func Actions() []Action {
	return []Action{ActionExtract, ActionCompress}
}

// InputPath returns the input file path inside namespace ns.
func (s ActionSpec) InputPath(ns string) string {
	return path.Join(ns, InputName)
}

// OutputPath returns the output file path inside namespace ns.
func (s ActionSpec) OutputPath(ns string) string {
	return path.Join(ns, s.OutputName)
}

// ArgsIn rewrites the literal argument list so that the fixed input and output
// names resolve inside namespace ns. Flags and values are left untouched.
func (s ActionSpec) ArgsIn(ns string) []string {
	args := make([]string, len(s.Args))
	for i, arg := range s.Args {
		switch arg {
		case InputName, s.OutputName:
			args[i] = path.Join(ns, arg)
		default:
			args[i] = arg
		}
	}
	return args
}
