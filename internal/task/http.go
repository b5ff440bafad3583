package task

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/krishnaAiGen/voice-first-to-do/internal/auth"
)

type Handler struct {
	store  Store
	logger *zap.Logger
}

func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func decodeJSON(r *http.Request, out any) error {
	return json.NewDecoder(r.Body).Decode(out)
}

func (h *Handler) writeStoreErr(w http.ResponseWriter, err error) {
	var se *StorageError
	switch {
	case errors.Is(err, ErrNotFound):
		writeErr(w, http.StatusNotFound, "not found")
	case errors.As(err, &se):
		h.logger.Error("task store failure", zap.String("op", se.Op), zap.Error(se.Err))
		writeErr(w, http.StatusInternalServerError, "storage failure")
	default:
		writeErr(w, http.StatusBadRequest, err.Error())
	}
}

// /api/tasks  (collection)
func (h *Handler) TasksRoot(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	switch r.Method {
	case http.MethodGet:
		limit := 0
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				writeErr(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = n
		}
		ts, err := h.store.GetAll(r.Context(), u.ID, limit)
		if err != nil {
			h.writeStoreErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ts)
		return

	case http.MethodPost:
		var in CreateInput
		if err := decodeJSON(r, &in); err != nil {
			writeErr(w, http.StatusBadRequest, "bad json")
			return
		}
		if strings.TrimSpace(in.Title) == "" {
			writeErr(w, http.StatusBadRequest, "title is required")
			return
		}
		if in.Priority < 0 || in.Priority > 3 {
			writeErr(w, http.StatusBadRequest, "priority must be between 0 and 3")
			return
		}
		t, err := h.store.Create(r.Context(), in, u.ID)
		if err != nil {
			h.writeStoreErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, t)
		return

	default:
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
}

// /api/tasks/{id}
func (h *Handler) TasksSub(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	tail := strings.TrimPrefix(r.URL.Path, "/api/tasks/")
	tail = strings.Trim(tail, "/")
	if tail == "" || strings.Contains(tail, "/") {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}
	id, err := uuid.Parse(tail)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid task id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		t, err := h.store.GetByID(r.Context(), id, u.ID)
		if err != nil {
			h.writeStoreErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
		return

	case http.MethodPatch:
		var fields map[string]any
		if err := decodeJSON(r, &fields); err != nil {
			writeErr(w, http.StatusBadRequest, "bad json")
			return
		}
		p, err := ParsePatch(fields)
		if err != nil {
			writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
		t, err := h.store.Update(r.Context(), id, p, u.ID)
		if err != nil {
			h.writeStoreErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
		return

	case http.MethodDelete:
		if err := h.store.Delete(r.Context(), id, u.ID); err != nil {
			h.writeStoreErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return

	default:
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
}
