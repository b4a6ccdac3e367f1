package service

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/syllog-ai/syllog/internal/domain"
	"github.com/syllog-ai/syllog/internal/kb"
	"github.com/syllog-ai/syllog/internal/reason"
)

func newTestEngine(t *testing.T) *EngineService {
	t.Helper()
	logger := zap.NewNop()
	return NewEngineService(kb.New(logger), reason.NewRegistry(logger), logger)
}

func TestEngineService_AddFactValidation(t *testing.T) {
	s := newTestEngine(t)
	if err := s.AddFact("", true); err != ErrFactNameEmpty {
		t.Fatalf("expected ErrFactNameEmpty, got %v", err)
	}
	if err := s.AddFact("rain", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEngineService_AddRuleParsesRenderedForm(t *testing.T) {
	s := newTestEngine(t)
	r, err := s.AddRule("IF rain THEN wet_ground (conf=0.90)", nil, 0, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Conclusion.Name != "wet_ground" {
		t.Fatalf("wrong conclusion: %s", r.Conclusion.Name)
	}
	if len(s.Base().Rules()) != 1 {
		t.Fatal("rule not committed")
	}
}

func TestEngineService_AddRuleWithExceptionsIsDefeasible(t *testing.T) {
	s := newTestEngine(t)
	_, err := s.AddRule("IF bird THEN flies (conf=0.90)", []string{"penguin"}, 5, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defeasible := s.Base().DefeasibleRules()
	if len(defeasible) != 1 {
		t.Fatalf("expected 1 defeasible rule, got %d", len(defeasible))
	}
	if defeasible[0].Priority != 5 {
		t.Fatalf("priority not carried: %d", defeasible[0].Priority)
	}
}

func TestEngineService_QueryLadder(t *testing.T) {
	s := newTestEngine(t)
	if err := s.AddFact("rain", true); err != nil {
		t.Fatal(err)
	}

	result, err := s.Query("rain", kb.QueryOpts{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Value != domain.TruthTrue || result.Confidence != 1.0 {
		t.Fatalf("plain fact must resolve (true, 1.0), got (%s, %f)", result.Value, result.Confidence)
	}

	unknown, err := s.Query("snow", kb.QueryOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if unknown.Value != domain.TruthUnknown || unknown.Confidence != 0 {
		t.Fatalf("unknown must resolve (unknown, 0), got (%s, %f)", unknown.Value, unknown.Confidence)
	}
}

func TestEngineService_ReasonEndToEnd(t *testing.T) {
	s := newTestEngine(t)
	if err := s.AddFact("rain", true); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddRule("IF rain THEN wet_ground (conf=0.90)", nil, 0, false); err != nil {
		t.Fatal(err)
	}

	result, err := s.Reason(context.Background(), "forward_chaining", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Derived) != 1 || result.Derived[0].Name != "wet_ground" {
		t.Fatalf("expected wet_ground derived, got %+v", result.Derived)
	}

	q, err := s.Query("wet_ground", kb.QueryOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if q.Value != domain.TruthTrue || q.Confidence != 1.0 {
		t.Fatalf("derived fact must query as (true, 1.0), got (%s, %f)", q.Value, q.Confidence)
	}

	stats := s.Statistics()
	if stats.StrategyApplications["forward_chaining"] != 1 {
		t.Fatalf("expected 1 forward_chaining application, got %+v", stats.StrategyApplications)
	}
}

func TestEngineService_ReasonUnknownStrategy(t *testing.T) {
	s := newTestEngine(t)
	if _, err := s.Reason(context.Background(), "oracle", nil); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
	if _, err := s.Reason(context.Background(), "", nil); err != ErrStrategyMissing {
		t.Fatal("expected ErrStrategyMissing")
	}
}

func TestEngineService_Strategies(t *testing.T) {
	s := newTestEngine(t)
	if got := len(s.Strategies()); got != 10 {
		t.Fatalf("expected 10 strategies, got %d", got)
	}
}
