package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/syllog-ai/syllog/internal/domain"
	"github.com/syllog-ai/syllog/internal/kb"
	"github.com/syllog-ai/syllog/internal/service"
)

type KBHandler struct {
	svc *service.EngineService
}

func NewKBHandler(svc *service.EngineService) *KBHandler {
	return &KBHandler{svc: svc}
}

type addFactRequest struct {
	Name  string `json:"name"`
	Value bool   `json:"value"`
}

func (h *KBHandler) AddFact(w http.ResponseWriter, r *http.Request) {
	var req addFactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.AddFact(req.Name, req.Value); err != nil {
		var consistency *domain.ConsistencyError
		switch {
		case errors.Is(err, service.ErrFactNameEmpty), errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &consistency):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to add fact")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"name":  req.Name,
		"value": domain.TruthOf(req.Value),
	})
}

func (h *KBHandler) RetractFact(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.svc.RetractFact(name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *KBHandler) ListFacts(w http.ResponseWriter, r *http.Request) {
	facts := h.svc.Base().Facts()
	out := make(map[string]domain.TruthValue, len(facts))
	for name, v := range facts {
		out[name] = domain.TruthOf(v)
	}
	writeJSON(w, http.StatusOK, map[string]any{"facts": out, "count": len(out)})
}

type addRuleRequest struct {
	Rule          string   `json:"rule"`
	Exceptions    []string `json:"exceptions,omitempty"`
	Priority      int      `json:"priority,omitempty"`
	Bidirectional bool     `json:"bidirectional,omitempty"`
}

func (h *KBHandler) AddRule(w http.ResponseWriter, r *http.Request) {
	var req addRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rule, err := h.svc.AddRule(req.Rule, req.Exceptions, req.Priority, req.Bidirectional)
	if err != nil {
		var cycle *domain.CycleError
		switch {
		case errors.Is(err, service.ErrRuleEmpty), errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &cycle):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to add rule")
		}
		return
	}

	writeJSON(w, http.StatusCreated, rule)
}

func (h *KBHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules := h.svc.Base().Rules()
	defeasible := h.svc.Base().DefeasibleRules()
	rendered := make([]string, 0, len(rules)+len(defeasible))
	for _, rule := range rules {
		rendered = append(rendered, rule.Render())
	}
	for _, rule := range defeasible {
		rendered = append(rendered, rule.Render())
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": rendered, "count": len(rendered)})
}

type addProbabilisticRequest struct {
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
}

func (h *KBHandler) AddProbabilisticFact(w http.ResponseWriter, r *http.Request) {
	var req addProbabilisticRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.AddProbabilisticFact(req.Name, req.Probability); err != nil {
		switch {
		case errors.Is(err, service.ErrFactNameEmpty),
			errors.Is(err, domain.ErrInvalidInput),
			errors.Is(err, domain.ErrBelowThreshold):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to add probabilistic fact")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"name":        req.Name,
		"probability": req.Probability,
	})
}

type addTemporalRequest struct {
	Name  string    `json:"name"`
	Value bool      `json:"value"`
	At    time.Time `json:"at"`
}

func (h *KBHandler) AddTemporalFact(w http.ResponseWriter, r *http.Request) {
	var req addTemporalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.At.IsZero() {
		writeError(w, http.StatusBadRequest, "at timestamp is required")
		return
	}

	if err := h.svc.AddTemporalFact(req.Name, req.Value, req.At); err != nil {
		switch {
		case errors.Is(err, service.ErrFactNameEmpty), errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to add temporal fact")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"name":  req.Name,
		"value": domain.TruthOf(req.Value),
		"at":    req.At,
	})
}

func (h *KBHandler) AddContextFact(w http.ResponseWriter, r *http.Request) {
	context := chi.URLParam(r, "context")

	var req addFactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.AddContextFact(context, req.Name, req.Value); err != nil {
		switch {
		case errors.Is(err, service.ErrFactNameEmpty), errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrContextLimit):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to add context fact")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"context": context,
		"name":    req.Name,
		"value":   domain.TruthOf(req.Value),
	})
}

type addExampleRequest struct {
	Attributes map[string]any `json:"attributes"`
	Label      string         `json:"label"`
}

func (h *KBHandler) AddExample(w http.ResponseWriter, r *http.Request) {
	var req addExampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	example, err := domain.NewExample(req.Attributes, req.Label)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.svc.AddExample(example)

	writeJSON(w, http.StatusCreated, example)
}

func (h *KBHandler) Query(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "name query parameter is required")
		return
	}

	var opts kb.QueryOpts
	opts.Context = r.URL.Query().Get("context")
	if raw := r.URL.Query().Get("at"); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "at must be RFC 3339")
			return
		}
		opts.At = &at
	}

	result, err := h.svc.Query(name, opts)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *KBHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Statistics())
}
