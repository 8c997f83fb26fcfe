package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/dmmedia/internal/media"
	"github.com/angelmondragon/dmmedia/internal/transport"
	"github.com/angelmondragon/dmmedia/pkg/enums"
	pkgerrors "github.com/angelmondragon/dmmedia/pkg/errors"
	"github.com/angelmondragon/dmmedia/pkg/logger"
	"github.com/angelmondragon/dmmedia/pkg/metrics"
)

const (
	// DefaultEndpoint is the chunked media upload endpoint.
	DefaultEndpoint = "https://upload.twitter.com/i/media/upload.json"
	// DefaultOrigin is sent as Origin and Referer on every upload call.
	DefaultOrigin = "https://twitter.com"

	multipartField = "media"
)

// PipelineConfig holds the static settings of a Pipeline.
type PipelineConfig struct {
	Endpoint string
	Origin   string
	// SegmentBytes splits APPEND into segments of at most this size. Zero sends one segment.
	SegmentBytes int64
	Poll         PollPolicy
}

// PipelineOption customises a Pipeline.
type PipelineOption func(*Pipeline)

// WithSleeper replaces the wait used between STATUS calls.
func WithSleeper(sleep Sleeper) PipelineOption {
	return func(p *Pipeline) {
		if sleep != nil {
			p.sleep = sleep
		}
	}
}

// WithClock replaces the time source used for the MaxWait bound.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

func WithPipelineLogger(logg *logger.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logg != nil {
			p.logg = logg
		}
	}
}

func WithPipelineMetrics(m *metrics.UploadMetrics) PipelineOption {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// Pipeline implements the four protocol phases. It keeps no per-upload state; all of it lives in Session.
type Pipeline struct {
	requester    transport.Requester
	endpoint     *url.URL
	origin       string
	segmentBytes int64
	policy       PollPolicy
	sleep        Sleeper
	now          func() time.Time
	logg         *logger.Logger
	metrics      *metrics.UploadMetrics
}

// NewPipeline validates cfg and builds a pipeline over requester.
func NewPipeline(requester transport.Requester, cfg PipelineConfig, opts ...PipelineOption) (*Pipeline, error) {
	if requester == nil {
		return nil, fmt.Errorf("requester required")
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid upload endpoint %q", endpoint)
	}
	if cfg.SegmentBytes < 0 {
		return nil, fmt.Errorf("segment bytes must not be negative")
	}
	origin := strings.TrimRight(strings.TrimSpace(cfg.Origin), "/")
	if origin == "" {
		origin = DefaultOrigin
	}

	p := &Pipeline{
		requester:    requester,
		endpoint:     parsed,
		origin:       origin,
		segmentBytes: cfg.SegmentBytes,
		policy:       cfg.Poll.normalized(),
		sleep:        sleepContext,
		now:          time.Now,
		logg:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Initiate opens an upload session declaring size, type, optional category and, for video, duration.
func (p *Pipeline) Initiate(ctx context.Context, desc media.Descriptor, category enums.MediaCategory) (*Session, error) {
	const command = enums.UploadCommandInit

	params := url.Values{}
	params.Set("command", command.String())
	params.Set("total_bytes", strconv.FormatInt(desc.SizeBytes, 10))
	params.Set("media_type", desc.MimeType)
	if category != enums.MediaCategoryNone {
		params.Set("media_category", category.String())
	}
	if desc.HasDuration() {
		params.Set("video_duration_ms", strconv.FormatInt(desc.DurationMs, 10))
	}

	resp, err := p.call(ctx, command, http.MethodPost, params, nil, "")
	if err != nil {
		return nil, err
	}

	var decoded initResponse
	if err := resp.DecodeJSON(&decoded); err != nil {
		return nil, phaseError(command, err, "decode init response")
	}
	if strings.TrimSpace(decoded.MediaIDString) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUploadTransport, "init response missing media_id_string").WithPhase(command.Phase())
	}

	session := &Session{
		MediaID:          decoded.MediaIDString,
		MediaKey:         decoded.MediaKey,
		ExpiresAfterSecs: decoded.ExpiresAfterSecs,
		Phase:            enums.UploadPhaseInitiated,
	}
	p.logg.Info(p.logg.WithMediaID(ctx, session.MediaID), "upload session initiated")
	return session, nil
}

// Append transfers the file body. The whole file goes as segment 0 unless SegmentBytes is set.
func (p *Pipeline) Append(ctx context.Context, session *Session, desc media.Descriptor) error {
	const command = enums.UploadCommandAppend

	if err := session.require(enums.UploadPhaseAppended); err != nil {
		return err
	}

	file, err := os.Open(desc.Path)
	if err != nil {
		session.fail()
		return phaseError(command, err, "open media file")
	}
	defer file.Close()

	if p.segmentBytes <= 0 {
		data, err := io.ReadAll(file)
		if err != nil {
			session.fail()
			return phaseError(command, err, "read media file")
		}
		if err := p.appendSegment(ctx, session, desc, 0, data); err != nil {
			return err
		}
		return session.advance(enums.UploadPhaseAppended)
	}

	buf := make([]byte, p.segmentBytes)
	for index := 0; ; index++ {
		n, readErr := io.ReadFull(file, buf)
		if n > 0 || index == 0 {
			if err := p.appendSegment(ctx, session, desc, index, buf[:n]); err != nil {
				return err
			}
		}
		if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
			break
		}
		if readErr != nil {
			session.fail()
			return phaseError(command, readErr, "read media file")
		}
	}
	return session.advance(enums.UploadPhaseAppended)
}

func (p *Pipeline) appendSegment(ctx context.Context, session *Session, desc media.Descriptor, index int, data []byte) error {
	const command = enums.UploadCommandAppend

	body, contentType, err := encodeSegment(desc.FileName(), data)
	if err != nil {
		session.fail()
		return phaseError(command, err, "encode append payload")
	}

	params := url.Values{}
	params.Set("command", command.String())
	params.Set("media_id", session.MediaID)
	params.Set("segment_index", strconv.Itoa(index))

	if _, err := p.call(ctx, command, http.MethodPost, params, body, contentType); err != nil {
		session.fail()
		return err
	}
	session.SegmentsSent++
	p.metrics.AddUploadedBytes(int64(len(data)))
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeSegment(filename string, data []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, multipartField, quoteEscaper.Replace(filename)))
	header.Set("Content-Type", "application/octet-stream")
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

// Finalize closes the transfer and reports whether the media is ready or still processing.
func (p *Pipeline) Finalize(ctx context.Context, session *Session) (Outcome, error) {
	const command = enums.UploadCommandFinalize

	if err := session.require(enums.UploadPhaseFinalized); err != nil {
		return Outcome{}, err
	}

	params := url.Values{}
	params.Set("command", command.String())
	params.Set("media_id", session.MediaID)
	params.Set("allow_async", "true")

	resp, err := p.call(ctx, command, http.MethodPost, params, nil, "")
	if err != nil {
		session.fail()
		return Outcome{}, err
	}

	var decoded processingResponse
	if err := resp.DecodeJSON(&decoded); err != nil {
		session.fail()
		return Outcome{}, phaseError(command, err, "decode finalize response")
	}
	if err := session.advance(enums.UploadPhaseFinalized); err != nil {
		return Outcome{}, err
	}

	outcome := outcomeFromWire(decoded.ProcessingInfo)
	switch outcome.Kind {
	case OutcomeReady:
		session.Phase = enums.UploadPhaseSucceeded
	case OutcomeFailed:
		session.fail()
	default:
		session.Phase = enums.UploadPhaseProcessing
	}
	return outcome, nil
}

// PollUntilReady waits for server-side processing to finish. It sleeps before every STATUS call for the
// interval the latest reply asked for, and stops on success, failure, the attempt or wall-clock bound,
// or ctx cancellation.
func (p *Pipeline) PollUntilReady(ctx context.Context, session *Session, initial Outcome) error {
	const command = enums.UploadCommandStatus

	if session == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "upload session required")
	}
	switch initial.Kind {
	case OutcomeReady:
		if session.Phase != enums.UploadPhaseSucceeded {
			if err := session.advance(enums.UploadPhaseSucceeded); err != nil {
				return err
			}
		}
		return nil
	case OutcomeFailed:
		session.fail()
		return processingFailed(session, enums.UploadCommandFinalize, initial.Info)
	}
	if session.Phase != enums.UploadPhaseProcessing {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("upload session cannot poll from %s", session.Phase)).
			WithDetails(map[string]any{"media_id": session.MediaID, "phase": session.Phase.String()})
	}

	started := p.now()
	current := initial
	for attempt := 1; attempt <= p.policy.MaxAttempts; attempt++ {
		delay := p.policy.delayFor(current.Info)
		if p.policy.MaxWait > 0 && p.now().Add(delay).Sub(started) > p.policy.MaxWait {
			session.fail()
			return processingStalled(session, current.Info, "processing did not finish within the wait budget")
		}
		if err := p.sleep(ctx, delay); err != nil {
			session.fail()
			return err
		}

		params := url.Values{}
		params.Set("command", command.String())
		params.Set("media_id", session.MediaID)

		resp, err := p.call(ctx, command, http.MethodGet, params, nil, "")
		session.StatusPolls++
		p.metrics.IncStatusPoll()
		if err != nil {
			session.fail()
			return err
		}

		var decoded processingResponse
		if err := resp.DecodeJSON(&decoded); err != nil {
			session.fail()
			return phaseError(command, err, "decode status response")
		}
		current = outcomeFromWire(decoded.ProcessingInfo)

		switch current.Kind {
		case OutcomeReady:
			return session.advance(enums.UploadPhaseSucceeded)
		case OutcomeFailed:
			session.fail()
			return processingFailed(session, command, current.Info)
		}
		p.logg.Debug(p.logg.WithFields(ctx, map[string]any{
			"attempt":          attempt,
			"state":            current.Info.State.String(),
			"progress_percent": current.Info.ProgressPercent,
		}), "media still processing")
	}

	session.fail()
	return processingStalled(session, current.Info, "processing did not finish within the attempt budget")
}

func (p *Pipeline) call(ctx context.Context, command enums.UploadCommand, method string, params url.Values, body []byte, contentType string) (*transport.Response, error) {
	target := *p.endpoint
	target.RawQuery = params.Encode()

	header := http.Header{}
	header.Set("Origin", p.origin)
	header.Set("Referer", p.origin)
	header.Set("Sec-Fetch-Site", "same-site")
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}

	started := p.now()
	resp, err := p.requester.Send(ctx, &transport.Request{
		Method: method,
		URL:    target.String(),
		Header: header,
		Body:   body,
	})
	p.metrics.ObservePhase(command.Phase(), p.now().Sub(started))
	if err != nil {
		return nil, phaseError(command, err, fmt.Sprintf("%s request failed", command))
	}
	return resp, nil
}

func phaseError(command enums.UploadCommand, err error, message string) error {
	wrapped := pkgerrors.Wrap(pkgerrors.CodeUploadTransport, err, message).WithPhase(command.Phase())
	var apiErr *transport.APIError
	if errors.As(err, &apiErr) {
		wrapped = wrapped.WithDetails(map[string]any{
			"status_code": apiErr.StatusCode,
			"api_code":    string(apiErr.ErrorCode()),
		})
	}
	return wrapped
}

func processingFailed(session *Session, command enums.UploadCommand, info ProcessingInfo) error {
	message := "media processing failed"
	if info.ErrorMessage != "" {
		message = fmt.Sprintf("media processing failed: %s", info.ErrorMessage)
	}
	return pkgerrors.New(pkgerrors.CodeProcessingFailed, message).
		WithPhase(command.Phase()).
		WithDetails(map[string]any{"media_id": session.MediaID, "status_polls": session.StatusPolls})
}

func processingStalled(session *Session, info ProcessingInfo, message string) error {
	return pkgerrors.New(pkgerrors.CodeProcessingStalled, message).
		WithPhase(enums.UploadCommandStatus.Phase()).
		WithDetails(map[string]any{
			"media_id":     session.MediaID,
			"status_polls": session.StatusPolls,
			"last_state":   info.State.String(),
		})
}
