package maintenance

import (
	"encoding/json"
	"net/http"
	"strings"
)

// SweepHandler exposes the retention sweep for platform cron jobs. Hidden
// unless a cron secret is configured, and guarded by it.
type SweepHandler struct {
	sweeper    *Sweeper
	cronSecret string
}

func NewSweepHandler(sweeper *Sweeper, cronSecret string) *SweepHandler {
	return &SweepHandler{sweeper: sweeper, cronSecret: strings.TrimSpace(cronSecret)}
}

func (h *SweepHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.cronSecret == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) != h.cronSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	result, err := h.sweeper.Sweep(r.Context())
	if err != nil {
		h.sweeper.logger.Error("retention_sweep_failed", map[string]any{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "sweep failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"result": result,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
