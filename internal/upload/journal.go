package upload

import (
	"context"

	"github.com/angelmondragon/dmmedia/internal/media"
	"github.com/angelmondragon/dmmedia/pkg/enums"
	"github.com/google/uuid"
)

// Attempt identifies one UploadMedia invocation.
type Attempt struct {
	ID         uuid.UUID
	Descriptor media.Descriptor
	Category   enums.MediaCategory
}

// Journal records upload progress. Implementations must tolerate Advance and Fail for attempts
// whose Begin failed.
type Journal interface {
	Begin(ctx context.Context, attempt Attempt) error
	Advance(ctx context.Context, attemptID uuid.UUID, session *Session) error
	Fail(ctx context.Context, attemptID uuid.UUID, session *Session, cause error) error
}

// NopJournal discards everything.
type NopJournal struct{}

func (NopJournal) Begin(context.Context, Attempt) error                    { return nil }
func (NopJournal) Advance(context.Context, uuid.UUID, *Session) error      { return nil }
func (NopJournal) Fail(context.Context, uuid.UUID, *Session, error) error { return nil }
