package uploadlog

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/dmmedia/internal/upload"
	"github.com/angelmondragon/dmmedia/pkg/db/models"
	"github.com/angelmondragon/dmmedia/pkg/enums"
	pkgerrors "github.com/angelmondragon/dmmedia/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxErrorMessageLen = 1000

// Repository persists upload attempts to the upload_records table.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

var _ upload.Journal = (*Repository)(nil)

// NewRepository constructs a journal bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Begin inserts the attempt row once its file has been resolved.
func (r *Repository) Begin(ctx context.Context, attempt upload.Attempt) error {
	record := &models.UploadRecord{
		ID:            attempt.ID,
		FilePath:      attempt.Descriptor.Path,
		MimeType:      attempt.Descriptor.MimeType,
		SizeBytes:     attempt.Descriptor.SizeBytes,
		MediaCategory: attempt.Category,
		Phase:         enums.UploadPhaseResolved,
		CreatedAt:     r.now().UTC(),
	}
	if attempt.Descriptor.HasDuration() {
		duration := attempt.Descriptor.DurationMs
		record.DurationMs = &duration
	}
	return r.db.WithContext(ctx).Create(record).Error
}

// Advance stores the session's current phase, media id and poll count.
func (r *Repository) Advance(ctx context.Context, attemptID uuid.UUID, session *upload.Session) error {
	if session == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "upload session required")
	}
	updates := map[string]any{
		"phase":        session.Phase.String(),
		"media_id":     session.MediaID,
		"status_polls": session.StatusPolls,
	}
	if session.Phase.IsTerminal() {
		updates["completed_at"] = r.now().UTC()
	}
	return r.update(ctx, attemptID, updates)
}

// Fail marks the attempt failed with the error code and message of cause.
func (r *Repository) Fail(ctx context.Context, attemptID uuid.UUID, session *upload.Session, cause error) error {
	code := string(pkgerrors.CodeInternal)
	if typed := pkgerrors.As(cause); typed != nil {
		code = string(typed.Code())
	}
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	if len(message) > maxErrorMessageLen {
		message = message[:maxErrorMessageLen]
	}

	updates := map[string]any{
		"phase":         enums.UploadPhaseFailed.String(),
		"error_code":    code,
		"error_message": message,
		"completed_at":  r.now().UTC(),
	}
	if session != nil {
		if session.MediaID != "" {
			updates["media_id"] = session.MediaID
		}
		updates["status_polls"] = session.StatusPolls
	}
	return r.update(ctx, attemptID, updates)
}

// FindByID retrieves one attempt.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.UploadRecord, error) {
	var record models.UploadRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "upload record not found")
		}
		return nil, err
	}
	return &record, nil
}

// ListByPhase returns attempts in phase, newest first, and the cursor of the next page ("" when done).
func (r *Repository) ListByPhase(ctx context.Context, phase enums.UploadPhase, page Page) ([]models.UploadRecord, string, error) {
	after, err := parseCursor(page.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid page cursor")
	}
	limit := normalizeLimit(page.Limit)

	query := r.db.WithContext(ctx).Where("phase = ?", phase.String())
	if after != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", after.CreatedAt, after.CreatedAt, after.ID)
	}

	var records []models.UploadRecord
	if err := query.Order("created_at DESC").Order("id DESC").Limit(limit + 1).Find(&records).Error; err != nil {
		return nil, "", err
	}

	next := ""
	if len(records) > limit {
		records = records[:limit]
		last := records[len(records)-1]
		next = encodeCursor(cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return records, next, nil
}

func (r *Repository) update(ctx context.Context, attemptID uuid.UUID, updates map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.UploadRecord{}).
		Where("id = ?", attemptID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "upload record not found").
			WithDetails(map[string]any{"attempt_id": attemptID.String()})
	}
	return nil
}
