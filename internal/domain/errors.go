package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("resource not found")
	ErrNotReady            = errors.New("engine is not ready")
	ErrNoInput             = errors.New("no input selected")
	ErrNoop                = errors.New("action skipped")
	ErrBusy                = errors.New("another action is in progress")
	ErrAlreadyBootstrapped = errors.New("engine bootstrap already attempted")
	ErrBlobNotFound        = errors.New("blob not found or revoked")
	ErrEngineNotLoaded     = errors.New("engine not loaded")
)

// FailureKind classifies where a bootstrap or action step failed.
type FailureKind string

const (
	FailureAssetFetch FailureKind = "asset_fetch"
	FailureEngineLoad FailureKind = "engine_load"
	FailureFSWrite    FailureKind = "fs_write"
	FailureInvocation FailureKind = "invocation"
	FailureReadBack   FailureKind = "read_back"
	FailureBlob       FailureKind = "blob"
	FailureDownload   FailureKind = "download"
)

// Failure is a step failure tagged with its kind.
type Failure struct {
	Kind FailureKind
	Op   string
	Err  error
}

func NewFailure(kind FailureKind, op string, err error) *Failure {
	return &Failure{Kind: kind, Op: op, Err: err}
}

func (f *Failure) Error() string {
	if f.Op == "" {
		return fmt.Sprintf("%s: %v", f.Kind, f.Err)
	}
	return fmt.Sprintf("%s: %v", f.Op, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Message returns the underlying error text without the step prefix.
func (f *Failure) Message() string {
	if f.Err == nil {
		return string(f.Kind)
	}
	return f.Err.Error()
}

// KindOf returns the failure kind carried by err, or "" if err is not a Failure.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// FailureMessage returns the message used for user-facing status text.
func FailureMessage(err error) string {
	var f *Failure
	if errors.As(err, &f) {
		return f.Message()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
