package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/ffpoc/internal/domain"
	"github.com/bnema/ffpoc/internal/infrastructure/logger"
	"github.com/bnema/ffpoc/internal/service"
)

const keepAliveInterval = 15 * time.Second

type EventSource interface {
	Subscribe(topic string) chan service.Event
	Unsubscribe(topic string, ch chan service.Event)
}

type TranscriptReader interface {
	Logs() ([]domain.LogLine, error)
	LogsAfter(seq int64) ([]domain.LogLine, error)
	Status() string
	Ready() bool
}

type SSEHandler struct {
	events     EventSource
	transcript TranscriptReader
	keepAlive  time.Duration
}

func NewSSEHandler(events EventSource, transcript TranscriptReader) *SSEHandler {
	return &SSEHandler{
		events:     events,
		transcript: transcript,
		keepAlive:  keepAliveInterval,
	}
}

// sseWrite writes one SSE event, splitting multi-line data.
func sseWrite(w http.ResponseWriter, eventName string, data string) {
	_, _ = fmt.Fprintf(w, "event: %s\n", eventName)
	for _, line := range strings.Split(data, "\n") {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = fmt.Fprint(w, "\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func sseEvent(w http.ResponseWriter, e service.Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		logger.Error.Printf("encode %s event: %v", e.Type, err)
		return
	}
	sseWrite(w, e.Type, string(payload))
}

func sendKeepAlive(w http.ResponseWriter) {
	_, _ = fmt.Fprint(w, ": keep-alive\n\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// Events streams the session: the transcript so far and the current status
// first, then live events. Log events already covered by the replay are
// skipped by sequence number, and log lines the bus dropped are read back
// from the transcript when the next one arrives.
func (h *SSEHandler) Events() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		// Subscribe before replaying so nothing falls between the two.
		ch := h.events.Subscribe(service.SessionTopic)
		defer h.events.Unsubscribe(service.SessionTopic, ch)

		var lastSeq int64
		logs, err := h.transcript.Logs()
		if err != nil {
			logger.Error.Printf("replay transcript: %v", err)
		}
		for _, l := range logs {
			sseEvent(w, service.Event{Type: service.EventLog, Seq: l.Seq, Message: l.Message})
			lastSeq = l.Seq
		}
		sseEvent(w, service.Event{Type: service.EventStatus, Status: h.transcript.Status()})
		if h.transcript.Ready() {
			sseEvent(w, service.Event{Type: service.EventReady})
		}

		ctx := r.Context()
		keepAlive := time.NewTicker(h.keepAlive)
		defer keepAlive.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-keepAlive.C:
				sendKeepAlive(w)
			case event, ok := <-ch:
				if !ok {
					return
				}
				if event.Type == service.EventLog {
					if event.Seq > lastSeq+1 {
						lastSeq = h.fillGap(w, lastSeq)
					}
					if event.Seq <= lastSeq {
						continue
					}
					lastSeq = event.Seq
				}
				sseEvent(w, event)
			}
		}
	}
}

// fillGap sends the transcript lines after seq and returns the last sequence
// number sent.
func (h *SSEHandler) fillGap(w http.ResponseWriter, seq int64) int64 {
	missed, err := h.transcript.LogsAfter(seq)
	if err != nil {
		logger.Error.Printf("read transcript after %d: %v", seq, err)
		return seq
	}
	for _, l := range missed {
		sseEvent(w, service.Event{Type: service.EventLog, Seq: l.Seq, Message: l.Message})
		seq = l.Seq
	}
	return seq
}
