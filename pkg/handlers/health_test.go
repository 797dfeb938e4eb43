package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolgrid/schoolgrid-engine/pkg/config"
	"github.com/schoolgrid/schoolgrid-engine/pkg/metadata"
)

func TestHealth(t *testing.T) {
	store := metadata.NewStore()
	require.NoError(t, store.Load())
	h := NewHealthHandler(&config.Config{}, store, "gpt-4o-mini", nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	h.Health(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestPing(t *testing.T) {
	store := metadata.NewStore()
	require.NoError(t, store.Load())
	cfg := &config.Config{Env: "test", Version: "1.2.3"}
	h := NewHealthHandler(cfg, store, "gpt-4o-mini", nil)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	h.Ping(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp PingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "schoolgrid-engine", resp.Service)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Equal(t, "test", resp.Environment)
	assert.Equal(t, "gpt-4o-mini", resp.Model)
	assert.Contains(t, resp.Domains, "attendance")
	assert.Contains(t, resp.Domains, "fees")
}
