package reason

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/syllog-ai/syllog/internal/domain"
	"github.com/syllog-ai/syllog/internal/kb"
)

// Kind names one of the ten reasoning strategies. The set is closed.
type Kind string

const (
	KindForwardChaining        Kind = "forward_chaining"
	KindBackwardChaining       Kind = "backward_chaining"
	KindResolution             Kind = "resolution"
	KindModelChecking          Kind = "model_checking"
	KindConstraintSatisfaction Kind = "constraint_satisfaction"
	KindInductive              Kind = "inductive"
	KindAbductive              Kind = "abductive"
	KindAnalogical             Kind = "analogical"
	KindNonMonotonic           Kind = "non_monotonic"
	KindProbabilistic          Kind = "probabilistic"
)

// Strategy is the contract every reasoning strategy implements: consume the
// shared knowledge base and an optional goal, mutate/query the base, return
// a typed result with the bookkeeping the downstream consumer renders.
type Strategy interface {
	Kind() Kind
	Reason(ctx context.Context, base *kb.KnowledgeBase, goal *domain.Proposition) (*Result, error)
}

// Firing records one successful rule application for explanation.
type Firing struct {
	RuleID     uuid.UUID `json:"rule_id"`
	Rule       string    `json:"rule"`
	Derived    string    `json:"derived"`
	Exceptions []string  `json:"exceptions_checked,omitempty"`
	Blocked    bool      `json:"blocked,omitempty"`
	At         time.Time `json:"at"`
}

// ResolutionStep records one resolvent derivation.
type ResolutionStep struct {
	Left      string `json:"left"`
	Right     string `json:"right"`
	OnLiteral string `json:"on_literal"`
	Resolvent string `json:"resolvent"`
}

// Explanation is one ranked abductive explanation for an observed goal.
type Explanation struct {
	Propositions []string  `json:"propositions"`
	RuleID       uuid.UUID `json:"rule_id"`
	Score        float64   `json:"score"`
	Simplicity   float64   `json:"simplicity"`
	Relevance    float64   `json:"relevance"`
	Consistency  float64   `json:"consistency"`
}

// Trace carries the strategy-internal bookkeeping used for explanation. The
// downstream consumer reads it; nothing in it is needed for correctness.
type Trace struct {
	InferenceHistory []Firing          `json:"inference_history,omitempty"`
	ProofTrace       []string          `json:"proof_trace,omitempty"`
	ResolutionSteps  []ResolutionStep  `json:"resolution_steps,omitempty"`
	Models           []map[string]bool `json:"models,omitempty"`
	Iterations       int               `json:"iterations,omitempty"`
	Backtracks       int               `json:"backtracks,omitempty"`
	CacheHit         bool              `json:"cache_hit,omitempty"`
}

// Result is the closed tagged union of strategy outcomes. Kind selects which
// fields are meaningful.
type Result struct {
	Kind         Kind                 `json:"kind"`
	Proved       bool                 `json:"proved,omitempty"`
	Derived      []domain.Proposition `json:"derived,omitempty"`
	Probability  float64              `json:"probability,omitempty"`
	Explanations []Explanation        `json:"explanations,omitempty"`
	Assignment   map[string]bool      `json:"assignment,omitempty"`
	LearnedRules []*domain.Rule       `json:"learned_rules,omitempty"`
	Adapted      map[string]any       `json:"adapted,omitempty"`
	Trace        Trace                `json:"trace"`
}

// Registry holds one instance of each strategy, keyed by kind. The set is
// fixed at construction; unknown names are invalid input.
type Registry struct {
	strategies map[Kind]Strategy
}

func NewRegistry(logger *zap.Logger) *Registry {
	r := &Registry{strategies: make(map[Kind]Strategy)}
	for _, s := range []Strategy{
		NewForwardChainer(logger),
		NewBackwardChainer(logger),
		NewResolver(logger),
		NewModelChecker(logger),
		NewConstraintSolver(logger),
		NewInducer(logger),
		NewAbducer(logger),
		NewAnalogizer(logger),
		NewReviser(logger),
		NewProbabilisticReasoner(logger),
	} {
		r.strategies[s.Kind()] = s
	}
	return r
}

// Get returns the strategy registered under name.
func (r *Registry) Get(name string) (Strategy, error) {
	s, ok := r.strategies[Kind(name)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown strategy %q", domain.ErrInvalidInput, name)
	}
	return s, nil
}

// Kinds lists the registered strategy names in stable order.
func (r *Registry) Kinds() []string {
	out := make([]string, 0, len(r.strategies))
	for k := range r.strategies {
		out = append(out, string(k))
	}
	sort.Strings(out)
	return out
}
