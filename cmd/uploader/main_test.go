package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/dmmedia/pkg/db"
	"github.com/angelmondragon/dmmedia/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	cases := []struct {
		name    string
		args    []string
		wantErr bool
		message bool
	}{
		{name: "upload only", args: []string{"-file", "clip.mp4"}},
		{name: "upload to conversation", args: []string{"-file", "clip.mp4", "-conversation", "12-34"}, message: true},
		{name: "text to user", args: []string{"-text", "hi", "-to", "jack"}, message: true},
		{name: "nothing", args: nil, wantErr: true},
		{name: "text without recipient", args: []string{"-text", "hi"}, wantErr: true},
		{name: "both recipients", args: []string{"-text", "hi", "-to", "jack", "-conversation", "1-2"}, wantErr: true},
		{name: "list phase", args: []string{"-list", "failed"}},
		{name: "list bad phase", args: []string{"-list", "lost"}, wantErr: true},
		{name: "list with upload", args: []string{"-list", "failed", "-file", "a.png"}, wantErr: true},
		{name: "bad category", args: []string{"-file", "a.png", "-category", "banner"}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts, err := parseFlags(tc.args)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.message, opts.wantsMessage())
		})
	}
}

func TestMetricsRouter(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics.NewUploadMetrics(registry).IncOutcome("succeeded")
	srv := httptest.NewServer(newMetricsRouter(registry, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `media_upload_total{outcome="succeeded"} 1`)

	live, err := http.Get(srv.URL + "/health/live")
	require.NoError(t, err)
	defer live.Body.Close()
	assert.Equal(t, http.StatusOK, live.StatusCode)
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error {
	return p.err
}

func TestHealthReady(t *testing.T) {
	cases := []struct {
		name       string
		checks     map[string]db.Pinger
		wantStatus int
		wantFailed []any
	}{
		{name: "no stores configured", wantStatus: http.StatusOK},
		{
			name:       "all reachable",
			checks:     map[string]db.Pinger{"database": stubPinger{}, "redis": stubPinger{}},
			wantStatus: http.StatusOK,
		},
		{
			name: "redis down",
			checks: map[string]db.Pinger{
				"database": stubPinger{},
				"redis":    stubPinger{err: errors.New("connection refused")},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantFailed: []any{"redis"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(newMetricsRouter(prometheus.NewRegistry(), tc.checks))
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/health/ready")
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tc.wantStatus, resp.StatusCode)

			var body map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			if tc.wantFailed == nil {
				assert.Equal(t, "ready", body["status"])
				return
			}
			assert.Equal(t, "unavailable", body["status"])
			assert.Equal(t, tc.wantFailed, body["failed"])
		})
	}
}
