package reason

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/syllog-ai/syllog/internal/domain"
	"github.com/syllog-ai/syllog/internal/kb"
)

const DefaultMaxRevisionDepth = 50

// Reviser runs defeasible rules to a fixed point. Rules fire in priority
// order, an exception fact known true blocks a rule, and a conclusion is
// only drawn when the base has no value for it yet. Established facts are
// never overwritten; a blocked rule leaves a trace entry instead.
type Reviser struct {
	logger *zap.Logger

	MaxRevisionDepth int
	RecordHistory    bool
}

func NewReviser(logger *zap.Logger) *Reviser {
	return &Reviser{
		logger:           logger,
		MaxRevisionDepth: DefaultMaxRevisionDepth,
		RecordHistory:    true,
	}
}

func (r *Reviser) Kind() Kind { return KindNonMonotonic }

func (r *Reviser) Reason(ctx context.Context, base *kb.KnowledgeBase, goal *domain.Proposition) (*Result, error) {
	result := &Result{Kind: r.Kind()}

	for depth := 0; ; depth++ {
		if depth >= r.MaxRevisionDepth {
			return nil, &domain.LimitError{Kind: domain.LimitRevisions, Limit: r.MaxRevisionDepth}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.Trace.Iterations = depth + 1

		changed := false
		for _, rule := range base.DefeasibleRules() {
			name := rule.Conclusion.Name
			if _, known := base.FactValue(name); known {
				continue
			}
			if !premisesHold(base, rule) {
				continue
			}
			if blocked, exception := r.defeated(base, rule); blocked {
				if r.RecordHistory {
					result.Trace.InferenceHistory = append(result.Trace.InferenceHistory, Firing{
						RuleID:     rule.ID,
						Rule:       rule.Render(),
						Derived:    name,
						Exceptions: []string{exception},
						Blocked:    true,
						At:         time.Now().UTC(),
					})
				}
				continue
			}

			now := time.Now().UTC()
			value := rule.Conclusion.Value != domain.TruthFalse
			if err := base.AddFact(name, value); err != nil {
				return nil, err
			}
			rule.MarkApplied(now)
			changed = true
			result.Derived = append(result.Derived, domain.Proposition{
				Name:       name,
				Value:      domain.TruthOf(value),
				Confidence: rule.Confidence,
			})
			if r.RecordHistory {
				result.Trace.InferenceHistory = append(result.Trace.InferenceHistory, Firing{
					RuleID:     rule.ID,
					Rule:       rule.Render(),
					Derived:    name,
					Exceptions: rule.Exceptions,
					At:         time.Now().UTC(),
				})
			}
			if goal != nil && name == goal.Name {
				result.Proved = value == (goal.Value != domain.TruthFalse)
			}
		}
		if !changed {
			break
		}
	}

	r.logger.Debug("revision complete",
		zap.Int("derived", len(result.Derived)),
		zap.Int("passes", result.Trace.Iterations))
	return result, nil
}

// defeated reports whether any of the rule's exceptions is a known true
// fact, returning the first one that blocks it.
func (r *Reviser) defeated(base *kb.KnowledgeBase, rule *domain.Rule) (bool, string) {
	for _, e := range rule.Exceptions {
		if v, known := base.FactValue(e); known && v {
			return true, e
		}
	}
	return false, ""
}
