package http

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/bnema/ffpoc/internal/adapter/http/middleware"
	"github.com/bnema/ffpoc/internal/adapter/http/templates"
	"github.com/bnema/ffpoc/internal/adapter/http/validation"
	"github.com/bnema/ffpoc/internal/domain"
	"github.com/bnema/ffpoc/internal/infrastructure/logger"
	"github.com/bnema/ffpoc/internal/service"
)

// multipartOverhead is the slack allowed on top of the upload cap for the
// multipart envelope and the CSRF field.
const multipartOverhead = 1 << 20

type SessionView interface {
	Snapshot(withLogs bool) domain.Snapshot
	Input() *domain.Input
}

type InputSelector interface {
	Select(name string, r io.Reader, contentType string) (*domain.Input, error)
}

type ActionSubmitter interface {
	Submit(action domain.Action) error
}

type RunHistory interface {
	History() ([]*domain.Run, error)
}

type DownloadSource interface {
	Claim(ref string) (domain.Blob, []byte, string, error)
}

type Handlers struct {
	session   SessionView
	inputs    InputSelector
	actions   ActionSubmitter
	history   RunHistory
	downloads DownloadSource
	maxSizeMB int
}

func NewHandlers(session SessionView, inputs InputSelector, actions ActionSubmitter, history RunHistory, downloads DownloadSource, maxSizeMB int) *Handlers {
	return &Handlers{
		session:   session,
		inputs:    inputs,
		actions:   actions,
		history:   history,
		downloads: downloads,
		maxSizeMB: maxSizeMB,
	}
}

func (h *Handlers) Page() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := templates.PageData{
			Snapshot:  h.session.Snapshot(true),
			CSRFToken: middleware.Token(r.Context()),
		}
		if in := h.session.Input(); in != nil {
			data.PreviewTag = previewTag(in.ContentType)
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		if err := templates.Page(data).Render(r.Context(), w); err != nil {
			logger.Error.Printf("render page: %v", err)
		}
	}
}

// previewTag picks the media element the page previews the input with. Types
// the browser cannot play still get a video element, as the picker accepts
// any file.
func previewTag(contentType string) string {
	if !validation.IsVideo(contentType) && validation.Playable(contentType) {
		return "audio"
	}
	return "video"
}

// SelectInput replaces the current input with the uploaded "file" part. A
// request without a file clears the selection.
func (h *Handlers) SelectInput() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		maxBytes := int64(h.maxSizeMB) * 1024 * 1024
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)

		if err := r.ParseMultipartForm(32 << 20); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeInlineError(w, r, http.StatusRequestEntityTooLarge, "File too large")
				return
			}
			writeInlineError(w, r, http.StatusBadRequest, "Invalid file upload")
			return
		}

		file, header, err := r.FormFile("file")
		if errors.Is(err, http.ErrMissingFile) {
			_, _ = h.inputs.Select("", nil, "")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if err != nil {
			writeInlineError(w, r, http.StatusBadRequest, "Invalid file upload")
			return
		}
		defer file.Close() //nolint:errcheck

		br := bufio.NewReaderSize(file, 512)
		head, _ := br.Peek(512)
		contentType := validation.SniffMediaType(head)

		if _, err := h.inputs.Select(header.Filename, br, contentType); err != nil {
			if errors.Is(err, service.ErrInputTooLarge) {
				writeInlineError(w, r, http.StatusRequestEntityTooLarge, "File too large")
				return
			}
			logger.Error.Printf("select input %s: %v", logger.SanitizeForLog(header.Filename), err)
			writeInlineError(w, r, http.StatusInternalServerError, "Failed to read file")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// Preview streams the selected input back inline, with range support so the
// media element can seek.
func (h *Handlers) Preview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in := h.session.Input()
		if in == nil {
			http.Error(w, "No input selected", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", in.ContentType)
		w.Header().Set("Content-Disposition", validation.ContentDisposition(in.Name, true))
		w.Header().Set("Cache-Control", "no-store")
		http.ServeContent(w, r, in.Name, in.SelectedAt, bytes.NewReader(in.Data))
	}
}

// Action submits one of the two fixed actions. 202 means it was queued; 204
// is the silent no-op when the engine is not ready or nothing is selected.
func (h *Handlers) Action() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		action, err := domain.ParseAction(r.PathValue("action"))
		if err != nil {
			http.Error(w, "Unknown action", http.StatusNotFound)
			return
		}

		switch err := h.actions.Submit(action); {
		case err == nil:
			w.WriteHeader(http.StatusAccepted)
		case errors.Is(err, domain.ErrNoop):
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, domain.ErrBusy):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			logger.Error.Printf("submit %s: %v", action, err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
	}
}

func (h *Handlers) State() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, h.session.Snapshot(r.URL.Query().Get("logs") == "1"))
	}
}

func (h *Handlers) History() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		runs, err := h.history.History()
		if err != nil {
			logger.Error.Printf("list runs: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if runs == nil {
			runs = []*domain.Run{}
		}
		writeJSON(w, http.StatusOK, runs)
	}
}

// Download serves an announced blob once.
func (h *Handlers) Download() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		blob, data, filename, err := h.downloads.Claim(r.PathValue("ref"))
		if err != nil {
			if errors.Is(err, domain.ErrBlobNotFound) {
				http.Error(w, "Download not found or already taken", http.StatusNotFound)
				return
			}
			logger.Error.Printf("claim download: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", blob.MIME)
		w.Header().Set("Content-Disposition", validation.ContentDisposition(filename, false))
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(data); err != nil {
			logger.Warn.Printf("write download %s: %v", blob.Ref, err)
		}
	}
}

func writeInlineError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = templates.ErrorInline(msg).Render(r.Context(), w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error.Printf("encode response: %v", err)
	}
}
