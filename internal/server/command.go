// Package server holds the HTTP surface that turns a natural-language
// command into an executed plan against the caller's tasks.
package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/krishnaAiGen/voice-first-to-do/internal/auth"
	"github.com/krishnaAiGen/voice-first-to-do/internal/engine"
	"github.com/krishnaAiGen/voice-first-to-do/internal/intent"
	"github.com/krishnaAiGen/voice-first-to-do/internal/spec"
	"github.com/krishnaAiGen/voice-first-to-do/internal/telemetry"
)

type CommandHandler struct {
	producer intent.Producer
	executor *engine.Executor
	events   telemetry.Repository
	logger   *zap.Logger
	devMode  bool
}

func NewCommandHandler(producer intent.Producer, executor *engine.Executor, events telemetry.Repository, logger *zap.Logger, devMode bool) *CommandHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandHandler{
		producer: producer,
		executor: executor,
		events:   events,
		logger:   logger,
		devMode:  devMode,
	}
}

type commandRequest struct {
	Command string            `json:"command"`
	History []intent.Exchange `json:"history,omitempty"`
}

type stepResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type commandResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    any          `json:"data,omitempty"`
	Steps   []stepResult `json:"steps,omitempty"`
	Detail  string       `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func (h *CommandHandler) record(t telemetry.EventType, md telemetry.EventMetadata) {
	if h.events == nil {
		return
	}
	_ = h.events.RecordEvent(t, md)
}

// POST /api/v1/command
func (h *CommandHandler) Command(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var in commandRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeErr(w, http.StatusBadRequest, "bad json")
		return
	}
	if in.Command == "" {
		writeErr(w, http.StatusBadRequest, "command is required")
		return
	}

	h.record(telemetry.EventCommandReceived, telemetry.EventMetadata{
		"user_id": u.ID.String(),
	})

	s, err := h.producer.Produce(r.Context(), in.Command, in.History)
	if err != nil {
		h.record(telemetry.EventSpecRejected, telemetry.EventMetadata{
			"user_id": u.ID.String(),
			"error":   err.Error(),
		})
		h.logger.Warn("could not produce plan",
			zap.String("user_id", u.ID.String()),
			zap.Error(err))
		resp := commandResponse{
			Success: false,
			Message: "Sorry, I could not understand that command.",
		}
		if h.devMode {
			resp.Detail = err.Error()
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	h.record(telemetry.EventSpecProduced, telemetry.EventMetadata{
		"user_id":    u.ID.String(),
		"complexity": string(s.Complexity),
		"steps":      len(s.Steps),
	})

	res, err := h.executor.Execute(r.Context(), s, u.ID)
	if err != nil {
		h.record(telemetry.EventExecutionFailed, telemetry.EventMetadata{
			"user_id": u.ID.String(),
			"error":   err.Error(),
		})
		h.logger.Error("execution aborted",
			zap.String("user_id", u.ID.String()),
			zap.Error(err))
		resp := commandResponse{
			Success: false,
			Message: "Something went wrong executing your command.",
		}
		if h.devMode {
			resp.Detail = err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	h.recordStepEvents(u.ID.String(), s, res)
	if res.Success {
		h.record(telemetry.EventExecutionCompleted, telemetry.EventMetadata{
			"user_id": u.ID.String(),
			"steps":   len(res.Results),
		})
	} else {
		h.record(telemetry.EventExecutionFailed, telemetry.EventMetadata{
			"user_id": u.ID.String(),
			"message": res.Message,
		})
	}

	out := commandResponse{
		Success: res.Success,
		Message: res.Message,
		Data:    res.Data,
	}
	for _, sr := range res.Results {
		out.Steps = append(out.Steps, stepResult{Success: sr.Success, Message: sr.Message})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *CommandHandler) recordStepEvents(userID string, s spec.Specification, res engine.ExecutionResult) {
	for i, sr := range res.Results {
		op := ""
		if i < len(s.Steps) {
			op = string(s.Steps[i].Operation)
		}
		t := telemetry.EventStepExecuted
		if !sr.Success {
			t = telemetry.EventStepFailed
		}
		h.record(t, telemetry.EventMetadata{
			"user_id":   userID,
			"operation": op,
			"order":     i + 1,
		})
	}
}
