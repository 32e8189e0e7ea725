package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
)

// Pinger checks that the journal store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// StatusSource exposes the live scheduler and session state.
type StatusSource struct {
	Sessions  func() int
	LastSweep func() time.Time
}

func New(db Pinger, status StatusSource) http.Handler {
	r := httprouter.New()

	r.GET("/healthz", func(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.GET("/status", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		writeJSON(w, http.StatusOK, map[string]any{
			"sessions":   status.Sessions(),
			"last_sweep": status.LastSweep().Format(time.RFC3339),
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
