package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/schoolgrid/schoolgrid-engine/pkg/config"
	"github.com/schoolgrid/schoolgrid-engine/pkg/metadata"
)

// PingResponse reports what the engine needs to answer queries: the
// configured model and the metadata domains it knows about.
type PingResponse struct {
	Status      string   `json:"status"`
	Service     string   `json:"service"`
	Version     string   `json:"version"`
	Environment string   `json:"environment"`
	Model       string   `json:"model"`
	Domains     []string `json:"domains"`
}

// HealthHandler serves the liveness and readiness endpoints.
type HealthHandler struct {
	cfg    *config.Config
	store  *metadata.Store
	model  string
	logger *zap.Logger
}

// NewHealthHandler creates a health handler. The store and model name
// feed the readiness checks.
func NewHealthHandler(cfg *config.Config, store *metadata.Store, model string, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{cfg: cfg, store: store, model: model, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", h.Health)
	mux.HandleFunc("/ping", h.Ping)
}

// Health handles GET /healthz. Every query depends on the metadata
// bundles, so a store that cannot load means not ready.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		if _, err := h.store.Common(); err != nil {
			h.logger.Error("Health check failed", zap.Error(err))
			http.Error(w, "metadata unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ping handles GET /ping with service identity and readiness detail.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	var domains []string
	if h.store != nil {
		domains = h.store.Domains()
	}

	response := PingResponse{
		Status:      "ok",
		Service:     "schoolgrid-engine",
		Version:     h.cfg.Version,
		Environment: h.cfg.Env,
		Model:       h.model,
		Domains:     domains,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
