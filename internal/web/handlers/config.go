package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/config"
)

// ConfigHandler exposes the effective matching and attendance settings.
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
	}
}

// ConfigResponse represents the configuration response. Credentials are never included.
type ConfigResponse struct {
	Threshold    float64 `json:"threshold"`
	EmbeddingDim int     `json:"embedding_dim"`
	Model        string  `json:"model"`
	LateCutoff   string  `json:"late_cutoff"`
	Timezone     string  `json:"timezone"`
	Location     string  `json:"location"`
	AuthEnabled  bool    `json:"auth_enabled"`
}

// Get returns the effective configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ConfigResponse{
		Threshold:    h.config.Matching.Threshold,
		EmbeddingDim: h.config.Embedding.Dim,
		Model:        h.config.Embedding.Model,
		LateCutoff:   h.config.Attendance.LateCutoff,
		Timezone:     h.config.Attendance.Timezone,
		Location:     h.config.Attendance.Location,
		AuthEnabled:  h.config.Web.APIToken != "",
	})
}
