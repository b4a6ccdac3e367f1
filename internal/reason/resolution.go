package reason

import (
	"context"

	"go.uber.org/zap"

	"github.com/syllog-ai/syllog/internal/domain"
	"github.com/syllog-ai/syllog/internal/kb"
)

const DefaultResolutionIterations = 200

// Resolver proves a goal by refutation: assume the negated goal, convert the
// base to clause form, and resolve clause pairs until the empty clause
// appears (goal proved) or no new non-tautological clause can be produced
// (goal unprovable). Subsumed clauses are pruned each round and resolved
// pairs are cached so no pair is resolved twice.
type Resolver struct {
	logger *zap.Logger

	MaxIterations int
}

func NewResolver(logger *zap.Logger) *Resolver {
	return &Resolver{logger: logger, MaxIterations: DefaultResolutionIterations}
}

func (r *Resolver) Kind() Kind { return KindResolution }

func (r *Resolver) Reason(ctx context.Context, base *kb.KnowledgeBase, goal *domain.Proposition) (*Result, error) {
	if goal == nil {
		return nil, domain.ErrMissingGoal
	}
	result := &Result{Kind: r.Kind()}

	clauses := clausesFromBase(base)
	negGoal := newClause(literal{name: goal.Name, negated: goal.Value != domain.TruthFalse})
	clauses = append(clauses, negGoal)
	clauses = pruneSubsumed(dropTautologies(clauses))

	known := make(map[string]struct{}, len(clauses))
	for _, c := range clauses {
		known[c.key()] = struct{}{}
	}
	resolvedPairs := make(map[[2]string]struct{})

	for iteration := 0; ; iteration++ {
		if iteration >= r.MaxIterations {
			return nil, &domain.LimitError{Kind: domain.LimitIterations, Limit: r.MaxIterations}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.Trace.Iterations = iteration + 1

		var fresh []clause
		for i := 0; i < len(clauses); i++ {
			for j := i + 1; j < len(clauses); j++ {
				pair := pairKey(clauses[i], clauses[j])
				if _, done := resolvedPairs[pair]; done {
					continue
				}
				resolvedPairs[pair] = struct{}{}

				for _, resolvent := range resolve(clauses[i], clauses[j]) {
					key := resolvent.key()
					if _, seen := known[key]; seen {
						continue
					}
					result.Trace.ResolutionSteps = append(result.Trace.ResolutionSteps, ResolutionStep{
						Left:      clauses[i].key(),
						Right:     clauses[j].key(),
						Resolvent: key,
					})
					if resolvent.empty() {
						result.Proved = true
						r.logger.Debug("refutation complete",
							zap.String("goal", goal.Name),
							zap.Int("steps", len(result.Trace.ResolutionSteps)))
						return result, nil
					}
					known[key] = struct{}{}
					fresh = append(fresh, resolvent)
				}
			}
		}

		if len(fresh) == 0 {
			result.Proved = false
			return result, nil
		}
		clauses = pruneSubsumed(append(clauses, fresh...))
	}
}

func pairKey(a, b clause) [2]string {
	ka, kb := a.key(), b.key()
	if ka > kb {
		ka, kb = kb, ka
	}
	return [2]string{ka, kb}
}

func dropTautologies(clauses []clause) []clause {
	out := clauses[:0]
	for _, c := range clauses {
		if !c.tautology() {
			out = append(out, c)
		}
	}
	return out
}

// pruneSubsumed removes every clause strictly subsumed by another, bounding
// clause growth between rounds.
func pruneSubsumed(clauses []clause) []clause {
	var out []clause
	for i, c := range clauses {
		subsumed := false
		for j, other := range clauses {
			if i == j {
				continue
			}
			if other.subsumes(c) && (len(other) < len(c) || j < i) {
				subsumed = true
				break
			}
		}
		if !subsumed {
			out = append(out, c)
		}
	}
	return out
}
