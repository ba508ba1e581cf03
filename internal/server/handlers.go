package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/cleared-dev/finqa/internal/agent"
	"github.com/cleared-dev/finqa/internal/tables"
)

// AskRequest is the body of POST /api/v1/ask.
type AskRequest struct {
	Question string `json:"question"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

type handler struct {
	deps Dependencies
}

func (h *handler) ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := zerolog.Ctx(ctx)

	var body AskRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	out, err := h.deps.Session.Ask(ctx, body.Question)
	switch {
	case errors.Is(err, agent.ErrEmptyQuestion):
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, agent.ErrBusy):
		writeError(w, r, http.StatusConflict, err.Error())
		return
	case out == nil:
		log.Error().Err(err).Msg("ask failed")
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	case err != nil:
		// degraded answers are still answers
		log.Warn().Err(err).Str("status", string(out.Status)).Msg("question ended without a normal answer")
	}

	if h.deps.OnOutcome != nil {
		h.deps.OnOutcome(ctx, out)
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (h *handler) dataset(w http.ResponseWriter, r *http.Request) {
	name, err := tables.ParseName(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	summary, err := h.deps.Data.SchemaSummary(name)
	if err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, summary)
}

func (h *handler) datasets(w http.ResponseWriter, r *http.Request) {
	names := make([]string, len(tables.Names))
	for i, n := range tables.Names {
		names[i] = string(n)
	}
	writeJSON(w, r, http.StatusOK, map[string][]string{"datasets": names})
}

func (h *handler) trace(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.deps.Trace.Entries())
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}
