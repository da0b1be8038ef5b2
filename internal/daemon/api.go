package daemon

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/junerver/MCP2Skills/internal/result"
	"github.com/junerver/MCP2Skills/internal/session"
)

type healthResponse struct {
	Running       bool     `json:"running"`
	Connected     bool     `json:"connected"`
	UptimeSeconds *float64 `json:"uptime_seconds"`
	LastError     string   `json:"last_error,omitempty"`
	ToolsCached   bool     `json:"tools_cached"`
	PID           int      `json:"pid"`
}

type callRequest struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

func (d *Daemon) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", d.handleHealth)
	mux.HandleFunc("GET /tools", d.handleListTools)
	mux.HandleFunc("GET /tools/{name}", d.handleDescribeTool)
	mux.HandleFunc("POST /call", d.handleCall)
	mux.HandleFunc("POST /shutdown", d.handleShutdown)
	return mux
}

// handleHealth always answers 200, even when the downstream connection is
// broken; the body carries the real state.
func (d *Daemon) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := d.sess.Snapshot()

	var uptime *float64
	if st.Connected && !st.ConnectedAt.IsZero() {
		secs := time.Since(st.ConnectedAt).Seconds()
		uptime = &secs
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Running:       true,
		Connected:     st.Connected,
		UptimeSeconds: uptime,
		LastError:     st.LastError,
		ToolsCached:   st.ToolsCached,
		PID:           os.Getpid(),
	})
}

func (d *Daemon) handleListTools(w http.ResponseWriter, r *http.Request) {
	d.touch()
	logger := d.requestLogger(r)

	tools, err := d.sess.ListTools(r.Context())
	if err != nil {
		logger.Error("listing tools failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	logger.Info("listed tools", slog.Int("count", len(tools)))
	writeJSON(w, http.StatusOK, map[string]any{"tools": tools})
}

func (d *Daemon) handleDescribeTool(w http.ResponseWriter, r *http.Request) {
	d.touch()
	name := r.PathValue("name")
	logger := d.requestLogger(r).With(slog.String("tool", name))

	tool, err := d.sess.DescribeTool(r.Context(), name)
	if err != nil {
		if errors.Is(err, session.ErrToolNotFound) {
			writeError(w, http.StatusNotFound, "Tool not found: "+name)
			return
		}
		logger.Error("describing tool failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tool": tool})
}

func (d *Daemon) handleCall(w http.ResponseWriter, r *http.Request) {
	d.touch()
	logger := d.requestLogger(r)

	var req callRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Tool == "" {
		writeError(w, http.StatusBadRequest, "Missing 'tool' parameter")
		return
	}

	logger = logger.With(slog.String("tool", req.Tool))
	start := time.Now()

	res, err := d.sess.CallTool(r.Context(), req.Tool, req.Arguments)
	if err != nil {
		logger.Error("tool call failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info("tool call complete", slog.Duration("elapsed", time.Since(start)))
	writeJSON(w, http.StatusOK, map[string]any{"result": result.Normalize(res)})
}

// handleShutdown acknowledges first, then tears down after a short grace so
// the response makes it out.
func (d *Daemon) handleShutdown(w http.ResponseWriter, r *http.Request) {
	d.requestLogger(r).Info("shutdown requested")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Shutting down..."})
	time.AfterFunc(shutdownGrace, func() { d.Shutdown("http request") })
}

func (d *Daemon) requestLogger(r *http.Request) *slog.Logger {
	return d.logger.With(
		slog.String("request_id", uuid.NewString()),
		slog.String("path", r.URL.Path),
	)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("encoding response", slog.String("error", err.Error()))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
