package api

import (
	"net/http"

	"github.com/seenimoa/fundash/internal/config"
)

// KeysResponse is returned by GET /api/v1/config/keys.
type KeysResponse struct {
	Primary string             `json:"primary"`
	Keys    []config.KeyStatus `json:"keys"`
}

// handleGetConfigKeys reports which chat provider keys are configured.
// Values are masked.
func (s *Server) handleGetConfigKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: KeysResponse{
			Primary: s.cfg.LLM.Primary,
			Keys:    config.CheckAPIKeys(s.cfg),
		},
	})
}
