package reason

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/syllog-ai/syllog/internal/domain"
	"github.com/syllog-ai/syllog/internal/kb"
)

const DefaultSimilarityThreshold = 0.5

// AdaptFunc rewrites the adapted attribute map for the target situation.
// Adapters run in registration order over the map built from the target
// plus the transferred attributes.
type AdaptFunc func(adapted, target map[string]any) map[string]any

// Analogizer retrieves the stored case most similar to a target attribute
// map and transfers the attributes the target lacks. Similarity is weighted
// attribute overlap; a tie at the top or no case above the threshold yields
// an empty adaptation rather than a guess.
type Analogizer struct {
	logger *zap.Logger

	SimilarityThreshold float64
	// AttributeWeights biases the overlap score per attribute; missing
	// entries weigh 1.
	AttributeWeights map[string]float64

	adapters []AdaptFunc
}

func NewAnalogizer(logger *zap.Logger) *Analogizer {
	return &Analogizer{
		logger:              logger,
		SimilarityThreshold: DefaultSimilarityThreshold,
	}
}

func (a *Analogizer) Kind() Kind { return KindAnalogical }

// AddAdapter appends an adaptation step applied to the winning case.
func (a *Analogizer) AddAdapter(fn AdaptFunc) {
	a.adapters = append(a.adapters, fn)
}

func (a *Analogizer) Reason(ctx context.Context, base *kb.KnowledgeBase, goal *domain.Proposition) (*Result, error) {
	target, err := targetAttributes(goal)
	if err != nil {
		return nil, err
	}

	cases := base.Cases()
	if len(cases) == 0 {
		return &Result{Kind: a.Kind(), Adapted: map[string]any{}}, nil
	}

	scored := make([]domain.CaseWithScore, 0, len(cases))
	for _, c := range cases {
		scored = append(scored, domain.CaseWithScore{Case: *c, Score: a.similarity(target, c.Attributes)})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	best := scored[0]
	if best.Score < a.SimilarityThreshold {
		a.logger.Debug("no case above similarity threshold",
			zap.Float64("best", best.Score),
			zap.Float64("threshold", a.SimilarityThreshold))
		return &Result{Kind: a.Kind(), Adapted: map[string]any{}}, nil
	}
	if len(scored) > 1 && scored[1].Score == best.Score {
		a.logger.Debug("ambiguous retrieval, top cases tied",
			zap.String("first", best.Name),
			zap.String("second", scored[1].Name))
		return &Result{Kind: a.Kind(), Adapted: map[string]any{}}, nil
	}

	// The target's own attributes stand; only attributes the winning case
	// has and the target lacks transfer over.
	adapted := make(map[string]any, len(target)+len(best.Attributes)+2)
	for k, v := range target {
		adapted[k] = v
	}
	for k, v := range best.Attributes {
		if _, present := target[k]; present {
			continue
		}
		adapted[k] = v
	}
	for _, fn := range a.adapters {
		adapted = fn(adapted, target)
	}
	adapted["source_case"] = best.Name
	adapted["similarity"] = best.Score
	if best.Outcome != "" {
		adapted["outcome"] = best.Outcome
	}

	return &Result{Kind: a.Kind(), Adapted: adapted}, nil
}

// targetAttributes extracts the target situation from the goal's metadata.
func targetAttributes(goal *domain.Proposition) (map[string]any, error) {
	if goal == nil {
		return nil, domain.ErrMissingGoal
	}
	raw, ok := goal.Metadata["attributes"]
	if !ok {
		return nil, fmt.Errorf("%w: goal metadata has no target attributes", domain.ErrInvalidInput)
	}
	attrs, ok := raw.(map[string]any)
	if !ok || len(attrs) == 0 {
		return nil, fmt.Errorf("%w: target attributes are empty", domain.ErrInvalidInput)
	}
	return attrs, nil
}

// similarity is the weighted share of target attributes the case matches.
func (a *Analogizer) similarity(target, candidate map[string]any) float64 {
	var matched, total float64
	for k, v := range target {
		w := 1.0
		if a.AttributeWeights != nil {
			if override, ok := a.AttributeWeights[k]; ok {
				w = override
			}
		}
		total += w
		if cv, ok := candidate[k]; ok && fmt.Sprintf("%v", cv) == fmt.Sprintf("%v", v) {
			matched += w
		}
	}
	if total == 0 {
		return 0
	}
	return matched / total
}
