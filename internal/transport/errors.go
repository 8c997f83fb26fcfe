package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/dmmedia/pkg/errors"
)

const maxErrorBodyPreview = 512

// APIErrorDetail is one entry of the `errors` array the API returns.
type APIErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// APIError is a reply the server understood and rejected.
type APIError struct {
	StatusCode int
	Status     string
	Body       []byte
	Errors     []APIErrorDetail
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if len(e.Errors) > 0 {
		parts := make([]string, 0, len(e.Errors))
		for _, detail := range e.Errors {
			parts = append(parts, fmt.Sprintf("%d: %s", detail.Code, detail.Message))
		}
		return fmt.Sprintf("api error %s (%s)", e.Status, strings.Join(parts, "; "))
	}
	body := strings.TrimSpace(string(e.Body))
	if len(body) > maxErrorBodyPreview {
		body = body[:maxErrorBodyPreview]
	}
	if body == "" {
		return fmt.Sprintf("api error %s", e.Status)
	}
	return fmt.Sprintf("api error %s: %s", e.Status, body)
}

// ErrorCode classifies the failure into the shared error taxonomy.
func (e *APIError) ErrorCode() pkgerrors.Code {
	if e == nil {
		return pkgerrors.CodeInternal
	}
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return pkgerrors.CodeUnauthorized
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return pkgerrors.CodeValidation
	default:
		return pkgerrors.CodeDependency
	}
}

// parseErrorEnvelope extracts `{"errors":[...]}` from a body, if present.
func parseErrorEnvelope(body []byte) []APIErrorDetail {
	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, "{") {
		return nil
	}
	var envelope struct {
		Errors []APIErrorDetail `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}
	return envelope.Errors
}
