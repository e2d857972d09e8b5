package httpserver

import (
	"net/http"
	"time"
)

// health handles GET /healthz.
func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	now := time.Now()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    now.Sub(serverStartTime).String(),
		"timestamp": now.UTC(),
		"enforced":  h.signer.Enforced(),
	})
}
