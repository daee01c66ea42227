package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interview-coach/internal/api"
	"interview-coach/internal/config"
	"interview-coach/internal/logger"
	"interview-coach/internal/terminal"
)

func TestPing_ShowsLogFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer srv.Close()

	logPath := filepath.Join(t.TempDir(), "coach.log")
	log := logger.NewZapLogger(logPath, true)
	defer log.Sync()

	var buf bytes.Buffer
	prev := current
	current = &app{
		env:    &config.AppConfig{API: config.APIConfig{BaseURL: srv.URL}},
		log:    log,
		client: api.NewClient(srv.URL),
		out:    terminal.NewOutput(&buf, true),
	}
	t.Cleanup(func() { current = prev })

	pingCmd.SetContext(context.Background())
	require.NoError(t, pingCmd.RunE(pingCmd, nil))
	assert.Contains(t, buf.String(), "is healthy")
	assert.Contains(t, buf.String(), "Logs: "+logPath)
}
