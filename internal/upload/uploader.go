package upload

import (
	"context"
	"fmt"

	"github.com/angelmondragon/dmmedia/internal/media"
	"github.com/angelmondragon/dmmedia/pkg/enums"
	pkgerrors "github.com/angelmondragon/dmmedia/pkg/errors"
	"github.com/angelmondragon/dmmedia/pkg/logger"
	"github.com/angelmondragon/dmmedia/pkg/metrics"
	"github.com/google/uuid"
)

const outcomeSucceeded = "succeeded"

// MediaUploader is what message composition needs from this package.
type MediaUploader interface {
	UploadMedia(ctx context.Context, path string, category enums.MediaCategory) (string, error)
}

// DescriptorResolver inspects a local file.
type DescriptorResolver interface {
	Resolve(ctx context.Context, path string) (media.Descriptor, error)
}

type UploaderOption func(*Uploader)

// WithJournal persists attempt progress. Journal errors are logged, never returned.
func WithJournal(journal Journal) UploaderOption {
	return func(u *Uploader) {
		if journal != nil {
			u.journal = journal
		}
	}
}

func WithLogger(logg *logger.Logger) UploaderOption {
	return func(u *Uploader) {
		if logg != nil {
			u.logg = logg
		}
	}
}

func WithMetrics(m *metrics.UploadMetrics) UploaderOption {
	return func(u *Uploader) {
		u.metrics = m
	}
}

// WithDefaultCategory is used when UploadMedia receives no category.
func WithDefaultCategory(category enums.MediaCategory) UploaderOption {
	return func(u *Uploader) {
		u.defaultCategory = category
	}
}

// WithCategoryPicker derives a category from the resolved file when neither the caller nor
// WithDefaultCategory supplied one.
func WithCategoryPicker(pick func(media.Descriptor) enums.MediaCategory) UploaderOption {
	return func(u *Uploader) {
		u.pickCategory = pick
	}
}

// Uploader sequences resolve, INIT, APPEND, FINALIZE and STATUS polling.
type Uploader struct {
	resolver        DescriptorResolver
	pipeline        *Pipeline
	journal         Journal
	logg            *logger.Logger
	metrics         *metrics.UploadMetrics
	defaultCategory enums.MediaCategory
	pickCategory    func(media.Descriptor) enums.MediaCategory
	newID           func() uuid.UUID
}

func NewUploader(resolver DescriptorResolver, pipeline *Pipeline, opts ...UploaderOption) (*Uploader, error) {
	if resolver == nil {
		return nil, fmt.Errorf("descriptor resolver required")
	}
	if pipeline == nil {
		return nil, fmt.Errorf("upload pipeline required")
	}
	u := &Uploader{
		resolver: resolver,
		pipeline: pipeline,
		journal:  NopJournal{},
		logg:     logger.Nop(),
		newID:    uuid.New,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u, nil
}

// UploadMedia uploads the file at path and returns the media id once the server reports it ready.
// Failures come back unmodified; no cleanup call is made for a partially created session.
func (u *Uploader) UploadMedia(ctx context.Context, path string, category enums.MediaCategory) (string, error) {
	attemptID := u.newID()
	ctx = u.logg.WithAttemptID(ctx, attemptID.String())

	if category == enums.MediaCategoryNone {
		category = u.defaultCategory
	}

	desc, err := u.resolver.Resolve(ctx, path)
	if err != nil {
		u.finish(ctx, err)
		return "", err
	}
	if category == enums.MediaCategoryNone && u.pickCategory != nil {
		category = u.pickCategory(desc)
	}
	ctx = u.logg.WithFields(ctx, map[string]any{
		"mime_type":  desc.MimeType,
		"size_bytes": desc.SizeBytes,
	})

	u.record(ctx, "begin", u.journal.Begin(ctx, Attempt{ID: attemptID, Descriptor: desc, Category: category}))

	session, err := u.pipeline.Initiate(ctx, desc, category)
	if err != nil {
		return "", u.abort(ctx, attemptID, nil, err)
	}
	ctx = u.logg.WithMediaID(ctx, session.MediaID)
	u.advance(ctx, attemptID, session)

	if err := u.pipeline.Append(ctx, session, desc); err != nil {
		return "", u.abort(ctx, attemptID, session, err)
	}
	u.advance(ctx, attemptID, session)

	outcome, err := u.pipeline.Finalize(ctx, session)
	if err != nil {
		return "", u.abort(ctx, attemptID, session, err)
	}
	u.advance(ctx, attemptID, session)

	if outcome.Kind != OutcomeReady {
		if err := u.pipeline.PollUntilReady(ctx, session, outcome); err != nil {
			return "", u.abort(ctx, attemptID, session, err)
		}
		u.advance(ctx, attemptID, session)
	}

	u.finish(ctx, nil)
	return session.MediaID, nil
}

func (u *Uploader) advance(ctx context.Context, attemptID uuid.UUID, session *Session) {
	u.logg.Info(u.logg.WithPhase(ctx, session.Phase.String()), "upload phase completed")
	u.record(ctx, "advance", u.journal.Advance(ctx, attemptID, session))
}

func (u *Uploader) abort(ctx context.Context, attemptID uuid.UUID, session *Session, err error) error {
	u.record(ctx, "fail", u.journal.Fail(ctx, attemptID, session, err))
	u.finish(ctx, err)
	return err
}

func (u *Uploader) finish(ctx context.Context, err error) {
	if err == nil {
		u.metrics.IncOutcome(outcomeSucceeded)
		u.logg.Info(ctx, "media upload succeeded")
		return
	}
	outcome := string(pkgerrors.CodeInternal)
	if typed := pkgerrors.As(err); typed != nil {
		outcome = string(typed.Code())
	}
	u.metrics.IncOutcome(outcome)
	u.logg.Error(ctx, "media upload failed", err)
}

func (u *Uploader) record(ctx context.Context, step string, err error) {
	if err == nil {
		return
	}
	u.logg.Warn(u.logg.WithFields(ctx, map[string]any{
		"journal_step": step,
		"error_dump":   pkgerrors.Dump(err),
	}), "upload journal write failed")
}
