package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/syllog-ai/syllog/internal/service"
	"github.com/syllog-ai/syllog/internal/store"
)

type CaseHandler struct {
	svc *service.CaseService
}

func NewCaseHandler(svc *service.CaseService) *CaseHandler {
	return &CaseHandler{svc: svc}
}

type createCaseRequest struct {
	Name       string         `json:"name"`
	Attributes map[string]any `json:"attributes"`
	Outcome    string         `json:"outcome,omitempty"`
}

func (h *CaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.svc.Create(r.Context(), req.Name, req.Attributes, req.Outcome)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCaseNameEmpty), errors.Is(err, service.ErrCaseAttributesNone):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to create case")
		}
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

func (h *CaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid case id")
		return
	}

	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "case not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get case")
		return
	}

	writeJSON(w, http.StatusOK, c)
}

type nearestCasesRequest struct {
	Attributes map[string]any `json:"attributes"`
	K          int            `json:"k,omitempty"`
}

func (h *CaseHandler) Nearest(w http.ResponseWriter, r *http.Request) {
	var req nearestCasesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cases, err := h.svc.Nearest(r.Context(), req.Attributes, req.K)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCaseAttributesNone):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrCaseStoreMissing):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to find cases")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"cases": cases, "count": len(cases)})
}

func (h *CaseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid case id")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "case not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete case")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
