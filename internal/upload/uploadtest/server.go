// Package uploadtest provides an in-process fake of the chunked media upload endpoint.
package uploadtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// UploadPath is the route the fake serves.
const UploadPath = "/i/media/upload.json"

// Call is one request observed by the fake.
type Call struct {
	Method        string
	Command       string
	Query         map[string]string
	Header        http.Header
	ContentLength int64
	FileName      string
	Payload       []byte
	At            time.Time
}

// Reply scripts one FINALIZE or STATUS response. A nil ProcessingInfo omits the block.
type Reply struct {
	StatusCode     int
	ProcessingInfo map[string]any
}

// Server records every call and answers from scripted replies.
type Server struct {
	srv *httptest.Server

	mu            sync.Mutex
	calls         []Call
	mediaID       string
	failures      map[string]int
	finalize      Reply
	statusReplies []Reply
	statusServed  int
	now           func() time.Time
}

// NewServer starts a fake that issues mediaID from INIT and reports FINALIZE as ready.
func NewServer(mediaID string) *Server {
	s := &Server{
		mediaID:  mediaID,
		failures: map[string]int{},
		now:      time.Now,
	}

	router := chi.NewRouter()
	router.Post(UploadPath, s.handlePost)
	router.Get(UploadPath, s.handleStatus)
	s.srv = httptest.NewServer(router)
	return s
}

// Endpoint is the absolute URL of the upload route.
func (s *Server) Endpoint() string {
	return s.srv.URL + UploadPath
}

func (s *Server) Close() {
	s.srv.Close()
}

// SetClock makes recorded call times come from now.
func (s *Server) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// FailCommand makes every request for command answer with status.
func (s *Server) FailCommand(command string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[command] = status
}

// SetFinalize scripts the FINALIZE reply.
func (s *Server) SetFinalize(reply Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalize = reply
}

// SetStatusReplies scripts STATUS replies in order; the last one repeats.
func (s *Server) SetStatusReplies(replies ...Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusReplies = replies
	s.statusServed = 0
}

// Calls returns a copy of the observed requests.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Commands lists the command of every observed request, in order.
func (s *Server) Commands() []string {
	calls := s.Calls()
	out := make([]string, 0, len(calls))
	for _, call := range calls {
		out = append(out, call.Command)
	}
	return out
}

// CallsFor filters observed requests by command.
func (s *Server) CallsFor(command string) []Call {
	var out []Call
	for _, call := range s.Calls() {
		if call.Command == command {
			out = append(out, call)
		}
	}
	return out
}

func (s *Server) record(r *http.Request) (Call, int) {
	call := Call{
		Method:        r.Method,
		Command:       r.URL.Query().Get("command"),
		Query:         map[string]string{},
		Header:        r.Header.Clone(),
		ContentLength: r.ContentLength,
	}
	for key := range r.URL.Query() {
		call.Query[key] = r.URL.Query().Get(key)
	}
	if call.Command == "APPEND" {
		if file, header, err := r.FormFile("media"); err == nil {
			call.FileName = header.Filename
			call.Payload, _ = io.ReadAll(file)
			_ = file.Close()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	call.At = s.now()
	s.calls = append(s.calls, call)
	return call, s.failures[call.Command]
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	call, failStatus := s.record(r)
	if failStatus != 0 {
		writeJSON(w, failStatus, map[string]any{
			"errors": []map[string]any{{"code": failStatus, "message": "scripted failure"}},
		})
		return
	}

	switch call.Command {
	case "INIT":
		writeJSON(w, http.StatusAccepted, map[string]any{
			"media_id_string":    s.mediaID,
			"media_key":          "7_" + s.mediaID,
			"expires_after_secs": 86399,
		})
	case "APPEND":
		w.WriteHeader(http.StatusNoContent)
	case "FINALIZE":
		s.mu.Lock()
		reply := s.finalize
		s.mu.Unlock()
		s.writeProcessing(w, reply)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"errors": []map[string]any{{"code": 38, "message": "command parameter is missing."}},
		})
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	call, failStatus := s.record(r)
	if failStatus != 0 {
		w.WriteHeader(failStatus)
		return
	}
	if call.Command != "STATUS" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	var reply Reply
	if len(s.statusReplies) > 0 {
		index := s.statusServed
		if index >= len(s.statusReplies) {
			index = len(s.statusReplies) - 1
		}
		reply = s.statusReplies[index]
		s.statusServed++
	}
	s.mu.Unlock()
	s.writeProcessing(w, reply)
}

func (s *Server) writeProcessing(w http.ResponseWriter, reply Reply) {
	status := reply.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	body := map[string]any{"media_id_string": s.mediaID}
	if reply.ProcessingInfo != nil {
		body["processing_info"] = reply.ProcessingInfo
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Pending builds a processing_info block with the given state and check_after_secs.
func Pending(state string, checkAfterSecs int) Reply {
	return Reply{ProcessingInfo: map[string]any{
		"state":            state,
		"check_after_secs": checkAfterSecs,
	}}
}

// Succeeded builds a processing_info block reporting success.
func Succeeded() Reply {
	return Reply{ProcessingInfo: map[string]any{"state": "succeeded", "progress_percent": 100}}
}

// Failed builds a processing_info block reporting failure.
func Failed(message string) Reply {
	return Reply{ProcessingInfo: map[string]any{
		"state": "failed",
		"error": map[string]any{"code": 1, "name": "InvalidMedia", "message": message},
	}}
}
