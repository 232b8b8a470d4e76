package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
)

// Check is a named readiness dependency such as the database pool.
type Check struct {
	Name  string
	Check func(context.Context) error
}

type healthStatus struct {
	Status string   `json:"status"`
	Failed []string `json:"failed,omitempty"`
}

// Liveness always answers 200.
func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, healthStatus{Status: "alive"})
	}
}

// Readiness answers 200 when every check passes and 503 listing the failed ones otherwise.
func Readiness(log *slog.Logger, checks ...Check) http.HandlerFunc {
	if log == nil {
		log = logger.Discard()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var failed []string
		for _, c := range checks {
			if err := c.Check(r.Context()); err != nil {
				log.WarnContext(r.Context(), "readiness check failed",
					slog.String("check", c.Name),
					logger.Error(err),
				)
				failed = append(failed, c.Name)
			}
		}
		if len(failed) > 0 {
			writeStatus(w, http.StatusServiceUnavailable, healthStatus{Status: "not_ready", Failed: failed})
			return
		}
		writeStatus(w, http.StatusOK, healthStatus{Status: "ready"})
	}
}

func writeStatus(w http.ResponseWriter, code int, body healthStatus) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
