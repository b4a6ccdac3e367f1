package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/syllog-ai/syllog/internal/domain"
	"github.com/syllog-ai/syllog/internal/service"
)

type ReasonHandler struct {
	svc *service.EngineService
}

func NewReasonHandler(svc *service.EngineService) *ReasonHandler {
	return &ReasonHandler{svc: svc}
}

type reasonGoal struct {
	Name     string         `json:"name"`
	Value    string         `json:"value,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type reasonRequest struct {
	Strategy string      `json:"strategy"`
	Goal     *reasonGoal `json:"goal,omitempty"`
}

func (h *ReasonHandler) Reason(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var goal *domain.Proposition
	if req.Goal != nil {
		value := domain.TruthValue(req.Goal.Value)
		if req.Goal.Value == "" {
			value = domain.TruthTrue
		}
		p, err := domain.NewProposition(req.Goal.Name, value, 1.0)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		p.Metadata = req.Goal.Metadata
		goal = p
	}

	result, err := h.svc.Reason(r.Context(), req.Strategy, goal)
	if err != nil {
		var limit *domain.LimitError
		var quality *domain.DataQualityError
		switch {
		case errors.Is(err, service.ErrStrategyMissing), errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &limit), errors.As(err, &quality):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusGatewayTimeout, "reasoning timed out")
		default:
			writeError(w, http.StatusInternalServerError, "reasoning failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *ReasonHandler) Strategies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"strategies": h.svc.Strategies()})
}
