package upload

import (
	"time"

	"github.com/angelmondragon/dmmedia/pkg/enums"
)

// OutcomeKind is the closed set of results a FINALIZE or STATUS reply can produce.
type OutcomeKind int

const (
	OutcomeReady OutcomeKind = iota + 1
	OutcomeProcessing
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeReady:
		return "ready"
	case OutcomeProcessing:
		return "processing"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ProcessingInfo is the server's latest view of asynchronous processing.
type ProcessingInfo struct {
	State           enums.ProcessingState
	CheckAfterSecs  int
	ProgressPercent int
	ErrorMessage    string
}

// CheckAfter returns the server-suggested delay before the next STATUS call.
func (p ProcessingInfo) CheckAfter() time.Duration {
	if p.CheckAfterSecs <= 0 {
		return 0
	}
	return time.Duration(p.CheckAfterSecs) * time.Second
}

// Outcome is the decoded result of FINALIZE or STATUS.
type Outcome struct {
	Kind OutcomeKind
	Info ProcessingInfo
}

type processingInfoWire struct {
	State           string `json:"state"`
	CheckAfterSecs  int    `json:"check_after_secs"`
	ProgressPercent int    `json:"progress_percent"`
	Error           *struct {
		Code    int    `json:"code"`
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type initResponse struct {
	MediaIDString    string `json:"media_id_string"`
	MediaKey         string `json:"media_key"`
	ExpiresAfterSecs int    `json:"expires_after_secs"`
}

type processingResponse struct {
	MediaIDString  string              `json:"media_id_string"`
	ProcessingInfo *processingInfoWire `json:"processing_info"`
}

// outcomeFromWire maps an optional processing_info block onto a closed outcome.
// A missing block means the media is ready.
func outcomeFromWire(info *processingInfoWire) Outcome {
	if info == nil {
		return Outcome{Kind: OutcomeReady, Info: ProcessingInfo{State: enums.ProcessingStateSucceeded}}
	}

	parsed := ProcessingInfo{
		State:           enums.ParseProcessingState(info.State),
		CheckAfterSecs:  info.CheckAfterSecs,
		ProgressPercent: info.ProgressPercent,
	}
	if info.Error != nil {
		parsed.ErrorMessage = info.Error.Message
		if parsed.ErrorMessage == "" {
			parsed.ErrorMessage = info.Error.Name
		}
	}

	switch {
	case parsed.State.IsSucceeded():
		return Outcome{Kind: OutcomeReady, Info: parsed}
	case parsed.State.IsFailed():
		return Outcome{Kind: OutcomeFailed, Info: parsed}
	default:
		return Outcome{Kind: OutcomeProcessing, Info: parsed}
	}
}
