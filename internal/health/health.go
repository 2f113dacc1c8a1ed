// Package health exposes a liveness endpoint for load balancers.
package health

import (
	"fmt"
	"net/http"
)

// Config of health check handler.
type Config struct {
	// Version is reported in the response body when set.
	Version string
}

// Handler answers liveness probes.
type Handler struct {
	config Config
}

// NewHandler creates new Handler.
func NewHandler(c Config) *Handler {
	return &Handler{config: c}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if h.config.Version != "" {
		fmt.Fprintf(w, `{"version": %q}`, h.config.Version)
		return
	}
	_, _ = w.Write([]byte(`{}`))
}
