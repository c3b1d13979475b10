package http

import (
	"net/http"
)

const StatusHealthy = "healthy"

// HealthStatus identifies the service and the model it fronts.
type HealthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Model   string `json:"model"`
}

// Health always succeeds; it does not probe the remote Space.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthStatus{
		Status:  StatusHealthy,
		Service: "hugging-face-3d-server",
		Model:   h.Config.Space,
	})
}
