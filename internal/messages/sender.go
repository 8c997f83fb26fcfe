package messages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/angelmondragon/dmmedia/internal/transport"
	"github.com/angelmondragon/dmmedia/internal/upload"
	"github.com/angelmondragon/dmmedia/pkg/enums"
	pkgerrors "github.com/angelmondragon/dmmedia/pkg/errors"
	"github.com/angelmondragon/dmmedia/pkg/logger"
	"github.com/google/uuid"
)

const (
	// DefaultBaseURL is the REST API root the sender posts to.
	DefaultBaseURL = "https://twitter.com/i/api/1.1"

	newMessagePath = "/dm/new2.json"
	cardsPlatform  = "Web-12"
)

var newMessageQuery = url.Values{
	"ext":                                {"mediaColor,altText,mediaStats,highlightedLabel,voiceInfo,birdwatchPivot,superFollowMetadata,unmentionInfo,editControl,article"},
	"include_ext_alt_text":               {"true"},
	"include_ext_limited_action_results": {"true"},
	"include_reply_count":                {"1"},
	"tweet_mode":                         {"extended"},
	"include_ext_views":                  {"true"},
	"include_groups":                     {"true"},
	"include_inbox_timelines":            {"true"},
	"include_ext_media_color":            {"true"},
	"supports_reactions":                 {"true"},
}

// SendParams describes one outgoing direct message. Text or MediaPath must be set.
type SendParams struct {
	ConversationID string              `json:"conversation_id" validate:"required"`
	Text           string              `json:"text" validate:"required_without=MediaPath,max=10000"`
	MediaPath      string              `json:"media_path" validate:"required_without=Text"`
	MediaCategory  enums.MediaCategory `json:"media_category" validate:"omitempty,oneof=dm_image dm_video dm_gif tweet_image tweet_video tweet_gif"`
}

type newMessageRequest struct {
	ConversationID    string `json:"conversation_id"`
	RecipientIDs      bool   `json:"recipient_ids"`
	RequestID         string `json:"request_id"`
	Text              string `json:"text"`
	CardsPlatform     string `json:"cards_platform"`
	IncludeCards      int    `json:"include_cards"`
	IncludeQuoteCount bool   `json:"include_quote_count"`
	DMUsers           bool   `json:"dm_users"`
	MediaID           string `json:"media_id,omitempty"`
}

// MessageData is the stored form of a sent message.
type MessageData struct {
	ID             string `json:"id"`
	Time           string `json:"time"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	Text           string `json:"text"`
}

// SendResult is the decoded dm/new2.json reply.
type SendResult struct {
	Entries []struct {
		Message struct {
			ID             string      `json:"id"`
			Time           string      `json:"time"`
			RequestID      string      `json:"request_id"`
			ConversationID string      `json:"conversation_id"`
			MessageData    MessageData `json:"message_data"`
		} `json:"message"`
	} `json:"entries"`
	Users map[string]json.RawMessage `json:"users"`
}

// MessageIDs lists the ids of the created message events.
func (r *SendResult) MessageIDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(r.Entries))
	for _, entry := range r.Entries {
		if entry.Message.ID != "" {
			ids = append(ids, entry.Message.ID)
		}
	}
	return ids
}

// Sender posts direct messages, uploading attached media first.
type Sender struct {
	requester    transport.Requester
	uploader     upload.MediaUploader
	baseURL      string
	logg         *logger.Logger
	newRequestID func() uuid.UUID
}

func NewSender(requester transport.Requester, uploader upload.MediaUploader, baseURL string, logg *logger.Logger) (*Sender, error) {
	if requester == nil {
		return nil, fmt.Errorf("requester required")
	}
	if uploader == nil {
		return nil, fmt.Errorf("media uploader required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Sender{
		requester:    requester,
		uploader:     uploader,
		baseURL:      baseURL,
		logg:         logg,
		newRequestID: uuid.New,
	}, nil
}

// Send validates params, uploads media when present and posts the message.
func (s *Sender) Send(ctx context.Context, params SendParams) (*SendResult, error) {
	params.ConversationID = strings.TrimSpace(params.ConversationID)
	params.MediaPath = strings.TrimSpace(params.MediaPath)
	if err := validateStruct(params); err != nil {
		return nil, err
	}
	ctx = s.logg.WithConversationID(ctx, params.ConversationID)

	body := newMessageRequest{
		ConversationID:    params.ConversationID,
		RecipientIDs:      false,
		RequestID:         s.newRequestID().String(),
		Text:              params.Text,
		CardsPlatform:     cardsPlatform,
		IncludeCards:      1,
		IncludeQuoteCount: true,
		DMUsers:           false,
	}

	if params.MediaPath != "" {
		mediaID, err := s.uploader.UploadMedia(ctx, params.MediaPath, params.MediaCategory)
		if err != nil {
			return nil, err
		}
		body.MediaID = mediaID
		ctx = s.logg.WithMediaID(ctx, mediaID)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode message")
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	resp, err := s.requester.Send(ctx, &transport.Request{
		Method: http.MethodPost,
		URL:    s.baseURL + newMessagePath + "?" + newMessageQuery.Encode(),
		Header: header,
		Body:   payload,
	})
	if err != nil {
		return nil, classify(err, "send direct message")
	}

	var result SendResult
	if err := resp.DecodeJSON(&result); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode send message response")
	}
	s.logg.Info(ctx, "direct message sent")
	return &result, nil
}

func classify(err error, message string) error {
	var apiErr *transport.APIError
	if errors.As(err, &apiErr) {
		return pkgerrors.Wrap(apiErr.ErrorCode(), err, message)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
