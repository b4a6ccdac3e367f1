package reason

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/syllog-ai/syllog/internal/domain"
	"github.com/syllog-ai/syllog/internal/kb"
)

const DefaultMaxRecursionDepth = 50

// BackwardChainer runs goal-driven proof search: a goal holds if it is a
// known fact, or some rule concludes it and all of that rule's premises can
// be proved recursively. A visited set carried down each branch rejects
// re-entering a proposition already being proved, so rule cycles yield
// "unprovable" rather than infinite regress.
type BackwardChainer struct {
	logger *zap.Logger

	MaxRecursionDepth int

	// memo caches successful proofs keyed by goal and base version; any
	// write to the base keys new entries.
	memo map[memoKey]bool
}

type memoKey struct {
	goal    string
	want    bool
	version uint64
}

// subgoal is one polarity-qualified proof obligation on the search path.
type subgoal struct {
	name string
	want bool
}

func NewBackwardChainer(logger *zap.Logger) *BackwardChainer {
	return &BackwardChainer{
		logger:            logger,
		MaxRecursionDepth: DefaultMaxRecursionDepth,
		memo:              make(map[memoKey]bool),
	}
}

func (b *BackwardChainer) Kind() Kind { return KindBackwardChaining }

func (b *BackwardChainer) Reason(ctx context.Context, base *kb.KnowledgeBase, goal *domain.Proposition) (*Result, error) {
	if goal == nil {
		return nil, domain.ErrMissingGoal
	}
	result := &Result{Kind: b.Kind()}
	want := goal.Value != domain.TruthFalse
	proved, err := b.prove(ctx, base, subgoal{name: goal.Name, want: want}, make(map[subgoal]struct{}), 0, result)
	if err != nil {
		return nil, err
	}
	result.Proved = proved
	return result, nil
}

func (b *BackwardChainer) prove(ctx context.Context, base *kb.KnowledgeBase, goal subgoal, visited map[subgoal]struct{}, depth int, result *Result) (bool, error) {
	if depth > b.MaxRecursionDepth {
		return false, &domain.LimitError{Kind: domain.LimitRecursion, Limit: b.MaxRecursionDepth}
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if v, known := base.FactValue(goal.name); known {
		if v == goal.want {
			result.Trace.ProofTrace = append(result.Trace.ProofTrace, fmt.Sprintf("fact: %s", renderGoal(goal)))
		}
		return v == goal.want, nil
	}
	if _, inProgress := visited[goal]; inProgress {
		return false, nil
	}
	if proved, ok := b.memo[memoKey{goal: goal.name, want: goal.want, version: base.Version()}]; ok {
		result.Trace.CacheHit = true
		return proved, nil
	}

	visited[goal] = struct{}{}
	defer delete(visited, goal)

	for _, r := range base.RulesFor(goal.name) {
		// A rule only supports the sought polarity of its conclusion.
		if (r.Conclusion.Value != domain.TruthFalse) != goal.want {
			continue
		}
		all := true
		mark := len(result.Trace.ProofTrace)
		for _, p := range r.Premises {
			sub := subgoal{name: p.Name, want: p.Value != domain.TruthFalse}
			proved, err := b.prove(ctx, base, sub, visited, depth+1, result)
			if err != nil {
				return false, err
			}
			if !proved {
				all = false
				break
			}
		}
		if all {
			result.Trace.ProofTrace = append(result.Trace.ProofTrace, fmt.Sprintf("rule: %s", r.Render()))
			b.memo[memoKey{goal: goal.name, want: goal.want, version: base.Version()}] = true
			b.logger.Debug("goal proved", zap.String("goal", goal.name), zap.String("rule", r.Render()))
			return true, nil
		}
		// Roll back the partial sub-proof of a failed candidate rule.
		result.Trace.ProofTrace = result.Trace.ProofTrace[:mark]
	}
	return false, nil
}

func renderGoal(g subgoal) string {
	if !g.want {
		return "¬" + g.name
	}
	return g.name
}
