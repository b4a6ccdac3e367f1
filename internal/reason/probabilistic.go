package reason

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/syllog-ai/syllog/internal/domain"
	"github.com/syllog-ai/syllog/internal/kb"
)

const DefaultMaxChainDepth = 25

// ProbabilisticReasoner estimates the probability of a proposition. A
// stored probabilistic fact answers directly, a plain fact counts as
// certainty, and otherwise the probability is chained through the rules
// concluding the goal: each rule contributes its confidence times the
// product of its premise probabilities, and contributions combine by
// noisy-OR.
type ProbabilisticReasoner struct {
	logger *zap.Logger

	MaxChainDepth int
	// MarkovBlanket limits premise recursion to propositions that share a
	// rule with the goal instead of the whole base.
	MarkovBlanket bool

	mu   sync.Mutex
	memo map[probKey]float64
}

type probKey struct {
	goal    string
	version uint64
}

func NewProbabilisticReasoner(logger *zap.Logger) *ProbabilisticReasoner {
	return &ProbabilisticReasoner{
		logger:        logger,
		MaxChainDepth: DefaultMaxChainDepth,
		memo:          make(map[probKey]float64),
	}
}

func (p *ProbabilisticReasoner) Kind() Kind { return KindProbabilistic }

func (p *ProbabilisticReasoner) Reason(ctx context.Context, base *kb.KnowledgeBase, goal *domain.Proposition) (*Result, error) {
	if goal == nil {
		return nil, domain.ErrMissingGoal
	}

	key := probKey{goal: goal.Name, version: base.Version()}
	p.mu.Lock()
	if prob, ok := p.memo[key]; ok {
		p.mu.Unlock()
		return &Result{Kind: p.Kind(), Probability: prob, Proved: prob >= 0.5, Trace: Trace{CacheHit: true}}, nil
	}
	p.mu.Unlock()

	blanket := map[string]struct{}(nil)
	if p.MarkovBlanket {
		blanket = markovBlanket(base, goal.Name)
	}

	visited := make(map[string]struct{})
	prob, err := p.estimate(ctx, base, goal.Name, blanket, visited, 0)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.memo[key] = prob
	p.mu.Unlock()

	p.logger.Debug("probability estimated",
		zap.String("goal", goal.Name),
		zap.Float64("probability", prob))
	return &Result{Kind: p.Kind(), Probability: prob, Proved: prob >= 0.5}, nil
}

func (p *ProbabilisticReasoner) estimate(ctx context.Context, base *kb.KnowledgeBase, name string, blanket map[string]struct{}, visited map[string]struct{}, depth int) (float64, error) {
	if depth >= p.MaxChainDepth {
		return 0, &domain.LimitError{Kind: domain.LimitRecursion, Limit: p.MaxChainDepth}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if f, ok := base.ProbabilisticFact(name); ok {
		return f.Probability, nil
	}
	if v, known := base.FactValue(name); known {
		if v {
			return 1, nil
		}
		return 0, nil
	}
	if _, seen := visited[name]; seen {
		return 0, nil
	}
	visited[name] = struct{}{}
	defer delete(visited, name)

	// Each rule's contribution is its confidence scaled by the joint
	// probability of its premises; multiple rules combine by noisy-OR.
	complement := 1.0
	for _, r := range base.RulesFor(name) {
		if r.Conclusion.Value == domain.TruthFalse {
			continue
		}
		joint := r.Confidence
		for _, premise := range r.Premises {
			if blanket != nil {
				if _, in := blanket[premise.Name]; !in {
					joint = 0
					break
				}
			}
			pp, err := p.estimate(ctx, base, premise.Name, blanket, visited, depth+1)
			if err != nil {
				return 0, err
			}
			if premise.Value == domain.TruthFalse {
				pp = 1 - pp
			}
			joint *= pp
			if joint == 0 {
				break
			}
		}
		complement *= 1 - joint
	}
	return 1 - complement, nil
}

// markovBlanket collects the propositions sharing a rule with the goal:
// premises of rules concluding it and co-premises of rules it feeds.
func markovBlanket(base *kb.KnowledgeBase, goal string) map[string]struct{} {
	blanket := map[string]struct{}{goal: {}}
	for _, r := range base.Rules() {
		touches := r.Conclusion.Name == goal
		if !touches {
			for _, p := range r.Premises {
				if p.Name == goal {
					touches = true
					break
				}
			}
		}
		if !touches {
			continue
		}
		blanket[r.Conclusion.Name] = struct{}{}
		for _, p := range r.Premises {
			blanket[p.Name] = struct{}{}
		}
	}
	return blanket
}
