// Package status serves a small local HTTP endpoint for kiosk monitoring.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/ticketdawg/checkin/internal/scanner"
)

const (
	requestTimeout  = 5 * time.Second
	shutdownTimeout = 3 * time.Second
)

// Snapshotter is implemented by scanner.Session.
type Snapshotter interface {
	Snapshot() scanner.Snapshot
}

type lastAttempt struct {
	AttemptID  string    `json:"attemptId"`
	Status     string    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	TicketID   string    `json:"ticketId,omitempty"`
	FinishedAt time.Time `json:"finishedAt"`
}

type statusResponse struct {
	Gate       string           `json:"gate"`
	Version    string           `json:"version"`
	State      string           `json:"state"`
	Validating bool             `json:"validating"`
	LastError  string           `json:"lastError,omitempty"`
	Counters   scanner.Counters `json:"counters"`
	Last       *lastAttempt     `json:"last,omitempty"`
}

// NewRouter returns the /health and /status routes.
func NewRouter(src Snapshotter, gate, version string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(requestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		snap := src.Snapshot()
		resp := statusResponse{
			Gate:       gate,
			Version:    version,
			State:      snap.State.String(),
			Validating: snap.Validating,
			Counters:   snap.Counters,
		}
		if snap.LastError != nil {
			resp.LastError = snap.LastError.Error()
		}
		if a := snap.Last; a != nil {
			last := &lastAttempt{
				AttemptID:  a.ID.String(),
				Status:     a.Status.String(),
				Reason:     string(a.Reason),
				FinishedAt: a.FinishedAt.UTC(),
			}
			if a.Result != nil {
				last.TicketID = a.Result.TicketID
			}
			resp.Last = last
		}
		writeJSON(w, http.StatusOK, resp)
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Str("requestId", chimiddleware.GetReqID(r.Context())).
			Msg("status request")
	})
}

// Serve runs the endpoint on addr until ctx is done.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: requestTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("starting status endpoint")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("status endpoint forced to shutdown")
		return err
	}
	log.Info().Msg("status endpoint stopped")
	return nil
}
