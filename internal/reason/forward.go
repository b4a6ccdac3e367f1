package reason

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/syllog-ai/syllog/internal/domain"
	"github.com/syllog-ai/syllog/internal/kb"
)

const DefaultMaxIterations = 100

// ForwardChainer runs data-driven fixed-point inference: scan the rules,
// fire every rule whose premises already hold and whose conclusion is not
// yet known, repeat until an iteration adds nothing.
//
// Overwrite policy: a re-derived fact never flips a stored truth value; a
// rule whose conclusion is already known simply does not fire.
type ForwardChainer struct {
	logger *zap.Logger

	MaxIterations int
	// SortRules orders rules by descending confidence, then premise count,
	// so more specific rules fire first.
	SortRules bool
	// RecordHistory captures every firing in the trace.
	RecordHistory bool
}

func NewForwardChainer(logger *zap.Logger) *ForwardChainer {
	return &ForwardChainer{
		logger:        logger,
		MaxIterations: DefaultMaxIterations,
		SortRules:     true,
		RecordHistory: true,
	}
}

func (f *ForwardChainer) Kind() Kind { return KindForwardChaining }

// Reason derives new facts until fixed point, the optional goal is reached,
// or the iteration budget is exhausted (fatal).
func (f *ForwardChainer) Reason(ctx context.Context, base *kb.KnowledgeBase, goal *domain.Proposition) (*Result, error) {
	rules := base.Rules()
	if f.SortRules {
		sort.SliceStable(rules, func(i, j int) bool {
			if rules[i].Confidence != rules[j].Confidence {
				return rules[i].Confidence > rules[j].Confidence
			}
			return len(rules[i].Premises) > len(rules[j].Premises)
		})
	}

	result := &Result{Kind: f.Kind()}
	for iteration := 0; ; iteration++ {
		if iteration >= f.MaxIterations {
			return nil, &domain.LimitError{Kind: domain.LimitIterations, Limit: f.MaxIterations}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.Trace.Iterations = iteration + 1

		fired := false
		for _, r := range rules {
			name := r.Conclusion.Name
			if _, known := base.FactValue(name); known {
				continue
			}
			if !premisesHold(base, r) {
				continue
			}
			value := r.Conclusion.Value != domain.TruthFalse
			if err := base.AddFact(name, value); err != nil {
				return nil, err
			}
			now := time.Now()
			r.MarkApplied(now)
			fired = true

			derived := domain.Proposition{
				Name:       name,
				Value:      domain.TruthOf(value),
				Confidence: r.Confidence,
				CreatedAt:  now,
			}
			result.Derived = append(result.Derived, derived)
			if f.RecordHistory {
				result.Trace.InferenceHistory = append(result.Trace.InferenceHistory, Firing{
					RuleID:  r.ID,
					Rule:    r.Render(),
					Derived: name,
					At:      now,
				})
			}
			f.logger.Debug("rule fired", zap.String("rule", r.Render()), zap.String("derived", name))

			if goal != nil && name == goal.Name {
				result.Proved = true
				return result, nil
			}
		}
		if !fired {
			break
		}
	}

	if goal != nil {
		v, known := base.FactValue(goal.Name)
		result.Proved = known && v
	}
	return result, nil
}

// premisesHold reports whether every premise matches the current fact set.
func premisesHold(base *kb.KnowledgeBase, r *domain.Rule) bool {
	for _, p := range r.Premises {
		v, known := base.FactValue(p.Name)
		if !known {
			return false
		}
		if v != (p.Value != domain.TruthFalse) {
			return false
		}
	}
	return true
}
