package upload

import (
	"fmt"

	"github.com/angelmondragon/dmmedia/pkg/enums"
	pkgerrors "github.com/angelmondragon/dmmedia/pkg/errors"
)

// Session is the client-side view of one server upload session.
type Session struct {
	MediaID          string
	MediaKey         string
	ExpiresAfterSecs int
	Phase            enums.UploadPhase
	SegmentsSent     int
	StatusPolls      int
}

func (s *Session) require(next enums.UploadPhase) error {
	if s == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "upload session required")
	}
	if !s.Phase.CanTransitionTo(next) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("upload session cannot move from %s to %s", s.Phase, next)).
			WithDetails(map[string]any{"media_id": s.MediaID, "phase": s.Phase.String()})
	}
	return nil
}

func (s *Session) advance(next enums.UploadPhase) error {
	if err := s.require(next); err != nil {
		return err
	}
	s.Phase = next
	return nil
}

// fail marks the session failed unless it already reached a terminal phase.
func (s *Session) fail() {
	if s == nil || s.Phase.IsTerminal() {
		return
	}
	s.Phase = enums.UploadPhaseFailed
}
