package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rg/danmakubot/internal/storage"
)

const (
	shutdownTimeout = 2 * time.Second
	recentLimit     = 5
)

// StatsSource reports the commands the bot has handled.
type StatsSource interface {
	CommandCount() (int, error)
	RecentCommands(limit int) ([]*storage.CommandRecord, error)
}

type recentCommand struct {
	Command   string    `json:"command"`
	Status    string    `json:"status"`
	Chunks    int       `json:"chunks"`
	CreatedAt time.Time `json:"created_at"`
}

type statsResponse struct {
	Commands      int             `json:"commands"`
	ChunkLimit    int             `json:"chunk_limit"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Recent        []recentCommand `json:"recent"`
}

// NewRouter serves /healthz and /stats.
func NewRouter(stats StatsSource, chunkLimit int) http.Handler {
	started := time.Now()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
		count, err := stats.CommandCount()
		if err != nil {
			slog.Error("Failed to read command count", "request_id", middleware.GetReqID(req.Context()), "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "stats unavailable"})
			return
		}
		records, err := stats.RecentCommands(recentLimit)
		if err != nil {
			slog.Error("Failed to read recent commands", "request_id", middleware.GetReqID(req.Context()), "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "stats unavailable"})
			return
		}

		recent := make([]recentCommand, 0, len(records))
		for _, rec := range records {
			recent = append(recent, recentCommand{
				Command:   rec.Command,
				Status:    rec.Status,
				Chunks:    rec.Chunks,
				CreatedAt: rec.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, statsResponse{
			Commands:      count,
			ChunkLimit:    chunkLimit,
			UptimeSeconds: int64(time.Since(started).Seconds()),
			Recent:        recent,
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}

// Start listens on addr and serves handler until ctx is done.
func Start(ctx context.Context, addr string, handler http.Handler) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Health server stopped", "addr", srv.Addr, "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Health server shutdown failed", "error", err)
		}
	}()

	slog.Info("Health server listening", "addr", srv.Addr)
	return srv, nil
}
