// Package serverapp assembles the HTTP handler tree from its parts so
// both main and tests can stand up the full application.
package serverapp

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/krishnaAiGen/voice-first-to-do/internal/auth"
	"github.com/krishnaAiGen/voice-first-to-do/internal/config"
	"github.com/krishnaAiGen/voice-first-to-do/internal/engine"
	"github.com/krishnaAiGen/voice-first-to-do/internal/httpmw"
	"github.com/krishnaAiGen/voice-first-to-do/internal/intent"
	"github.com/krishnaAiGen/voice-first-to-do/internal/query"
	"github.com/krishnaAiGen/voice-first-to-do/internal/server"
	"github.com/krishnaAiGen/voice-first-to-do/internal/task"
	"github.com/krishnaAiGen/voice-first-to-do/internal/telemetry"
)

type Options struct {
	Config   *config.Config
	DataDir  string
	Logger   *zap.Logger
	Store    task.Store
	Producer intent.Producer
	Events   telemetry.Repository
}

func NewHandler(opts Options) (http.Handler, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if opts.Store == nil {
		return nil, errors.New("task store is required")
	}
	if opts.Producer == nil {
		return nil, errors.New("intent producer is required")
	}
	if opts.DataDir == "" {
		opts.DataDir = "data"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Events == nil {
		opts.Events = telemetry.NewMemoryRepository()
	}

	mux := http.NewServeMux()
	rr := &server.RouteRegistry{}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"service": "voice-first-to-do",
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if _, err := opts.Store.GetAll(r.Context(), uuid.Nil, 1); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"ok":    false,
				"error": "task storage unavailable",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"service": "voice-first-to-do",
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	authRepo, err := auth.NewFileRepo(filepath.Join(opts.DataDir, "auth"))
	if err != nil {
		return nil, err
	}
	authService := auth.NewService(authRepo, opts.Logger)
	authHandler := auth.NewHandler(authService)
	server.Handle(mux, rr, "POST /api/auth/request-otp", "Request a one-time login code", `{"email":"you@example.com"}`, authHandler.RequestOTP)
	server.Handle(mux, rr, "POST /api/auth/verify-otp", "Exchange the code for a session", `{"email":"you@example.com","code":"123456"}`, authHandler.VerifyOTP)
	server.Handle(mux, rr, "GET /api/auth/session", "Describe the current session", "", authHandler.Session)
	server.Handle(mux, rr, "POST /api/auth/logout", "Revoke the current session", "", authHandler.Logout)

	taskHandler := task.NewHandler(opts.Store, opts.Logger)
	mux.Handle("/api/tasks", authService.RequireAPI(http.HandlerFunc(taskHandler.TasksRoot)))
	mux.Handle("/api/tasks/", authService.RequireAPI(http.HandlerFunc(taskHandler.TasksSub)))
	rr.Add(server.RouteDoc{Method: "GET", Pattern: "/api/tasks", Summary: "List the caller's tasks"})
	rr.Add(server.RouteDoc{Method: "POST", Pattern: "/api/tasks", Summary: "Create a task", ExampleBody: `{"title":"buy milk","priority":2}`})
	rr.Add(server.RouteDoc{Method: "GET", Pattern: "/api/tasks/{id}", Summary: "Fetch one task"})
	rr.Add(server.RouteDoc{Method: "PATCH", Pattern: "/api/tasks/{id}", Summary: "Partially update a task"})
	rr.Add(server.RouteDoc{Method: "DELETE", Pattern: "/api/tasks/{id}", Summary: "Delete a task"})

	builder := query.NewSafeQueryBuilder(query.RealClock{}, opts.Logger)
	executor := engine.NewExecutor(opts.Store, builder, opts.Logger)
	if opts.Config.Engine.DefaultReadLimit > 0 {
		executor.SetDefaultReadLimit(opts.Config.Engine.DefaultReadLimit)
	}
	cmdHandler := server.NewCommandHandler(opts.Producer, executor, opts.Events, opts.Logger, opts.Config.Server.DevMode)
	mux.Handle("/api/v1/command", authService.RequireAPI(http.HandlerFunc(cmdHandler.Command)))
	rr.Add(server.RouteDoc{Method: "POST", Pattern: "/api/v1/command", Summary: "Execute a natural-language command", ExampleBody: `{"command":"add buy milk to my list"}`})

	mux.Handle("/api/v1/stats", authService.RequireAPI(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
			return
		}
		since := time.Now().AddDate(0, 0, -7)
		events, err := opts.Events.GetEvents(since, nil)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "could not load events"})
			return
		}
		stats, err := telemetry.CalculateStats(events, since)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "could not compute stats"})
			return
		}
		writeJSON(w, http.StatusOK, stats)
	})))
	rr.Add(server.RouteDoc{Method: "GET", Pattern: "/api/v1/stats", Summary: "Command traffic stats for the last 7 days"})

	mux.Handle("/api/v1/routes", authService.RequireAPI(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
			return
		}
		writeJSON(w, http.StatusOK, rr.List())
	})))

	mux.Handle("/api/config", authService.RequireAPI(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(opts.Config); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})))

	return httpmw.Chain(
		mux,
		httpmw.WithAccessLog(opts.Logger),
		httpmw.WithRequestID,
		httpmw.WithRecover(opts.Logger),
	), nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
