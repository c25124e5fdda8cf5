package service

import (
	"errors"
	"fmt"
	"io"

	"github.com/bnema/ffpoc/internal/domain"
	"github.com/bnema/ffpoc/internal/infrastructure/logger"
)

var ErrInputTooLarge = errors.New("input exceeds the maximum size")

// InputService reads a chosen file into the session as the current input.
type InputService struct {
	session  *Session
	maxBytes int64
}

// NewInputService caps selections at maxBytes. Zero means no cap.
func NewInputService(session *Session, maxBytes int64) *InputService {
	return &InputService{session: session, maxBytes: maxBytes}
}

// Select replaces the current input with the contents of r. An empty name
// clears the selection. The content itself is not validated: whatever the
// user picked is handed to the engine as-is.
func (s *InputService) Select(name string, r io.Reader, contentType string) (*domain.Input, error) {
	if name == "" {
		s.session.Select("", nil, "")
		logger.Info.Println("input cleared")
		return nil, nil
	}

	if s.maxBytes > 0 {
		r = io.LimitReader(r, s.maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w (%s)", ErrInputTooLarge, domain.FormatSize(s.maxBytes))
	}

	s.session.Select(name, data, contentType)
	in := s.session.Input()
	logger.Info.Printf("input selected: name=%q, size=%s, type=%s",
		logger.SanitizeForLog(name), domain.FormatSize(in.Size()), contentType)
	return in, nil
}

// Current returns the selected input, or nil.
func (s *InputService) Current() *domain.Input {
	return s.session.Input()
}
