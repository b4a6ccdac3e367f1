package reason

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/syllog-ai/syllog/internal/domain"
	"github.com/syllog-ai/syllog/internal/kb"
)

const (
	DefaultMaxExplanations = 5

	defaultSimplicityWeight  = 0.4
	defaultRelevanceWeight   = 0.35
	defaultConsistencyWeight = 0.25
)

// Abducer proposes hypotheses: for an observed goal it collects each
// concluding rule's not-yet-known premises, drops premises the base already
// contradicts, deduplicates subsumed sets and ranks the rest by a weighted
// blend of simplicity, relevance and consistency.
type Abducer struct {
	logger *zap.Logger

	MaxExplanations   int
	SimplicityWeight  float64
	RelevanceWeight   float64
	ConsistencyWeight float64

	mu    sync.Mutex
	cache map[abduceKey][]Explanation
}

type abduceKey struct {
	goal    string
	value   domain.TruthValue
	version uint64
}

func NewAbducer(logger *zap.Logger) *Abducer {
	return &Abducer{
		logger:            logger,
		MaxExplanations:   DefaultMaxExplanations,
		SimplicityWeight:  defaultSimplicityWeight,
		RelevanceWeight:   defaultRelevanceWeight,
		ConsistencyWeight: defaultConsistencyWeight,
		cache:             make(map[abduceKey][]Explanation),
	}
}

func (a *Abducer) Kind() Kind { return KindAbductive }

func (a *Abducer) Reason(ctx context.Context, base *kb.KnowledgeBase, goal *domain.Proposition) (*Result, error) {
	if goal == nil {
		return nil, domain.ErrMissingGoal
	}

	key := abduceKey{goal: goal.Name, value: goal.Value, version: base.Version()}
	a.mu.Lock()
	if cached, ok := a.cache[key]; ok {
		a.mu.Unlock()
		return &Result{Kind: a.Kind(), Explanations: cached, Trace: Trace{CacheHit: true}}, nil
	}
	a.mu.Unlock()

	candidates := a.candidates(base, goal)
	explanations := a.rank(goal, candidates)
	if len(explanations) > a.MaxExplanations {
		explanations = explanations[:a.MaxExplanations]
	}

	a.mu.Lock()
	a.cache[key] = explanations
	a.mu.Unlock()

	a.logger.Debug("abduction complete",
		zap.String("goal", goal.Name),
		zap.Int("explanations", len(explanations)))
	return &Result{Kind: a.Kind(), Explanations: explanations}, nil
}

type hypothesis struct {
	props       []string
	rule        *domain.Rule
	consistency float64
}

// candidates collects, per rule concluding the goal, the premises the base
// does not yet know. Premises already known to hold need no assuming and
// premises the base contradicts cannot be assumed; both stay out of the
// explanation set. A rule with nothing left to assume yields no hypothesis.
func (a *Abducer) candidates(base *kb.KnowledgeBase, goal *domain.Proposition) []hypothesis {
	wantTrue := goal.Value != domain.TruthFalse
	var out []hypothesis
	for _, r := range base.RulesFor(goal.Name) {
		if (r.Conclusion.Value != domain.TruthFalse) != wantTrue {
			continue
		}
		props := make([]string, 0, len(r.Premises))
		contradicted := 0
		for _, p := range r.Premises {
			if v, known := base.FactValue(p.Name); known {
				if v != (p.Value != domain.TruthFalse) {
					contradicted++
				}
				continue
			}
			props = append(props, p.Name)
		}
		if len(props) == 0 {
			continue
		}
		sort.Strings(props)
		out = append(out, hypothesis{
			props:       props,
			rule:        r,
			consistency: float64(len(r.Premises)-contradicted) / float64(len(r.Premises)),
		})
	}
	return dedupe(out)
}

// dedupe removes hypotheses whose proposition set is a superset of another
// hypothesis's set; the smaller explanation subsumes the larger.
func dedupe(hyps []hypothesis) []hypothesis {
	var out []hypothesis
	for i, h := range hyps {
		subsumed := false
		hi := stringSet(h.props)
		for j, other := range hyps {
			if i == j {
				continue
			}
			ho := stringSet(other.props)
			if len(ho) < len(hi) && subset(ho, hi) {
				subsumed = true
				break
			}
			// identical sets: keep the first occurrence only
			if len(ho) == len(hi) && subset(ho, hi) && j < i {
				subsumed = true
				break
			}
		}
		if !subsumed {
			out = append(out, h)
		}
	}
	return out
}

func stringSet(ss []string) map[string]struct{} {
	s := make(map[string]struct{}, len(ss))
	for _, v := range ss {
		s[v] = struct{}{}
	}
	return s
}

// rank scores each hypothesis. Simplicity rewards fewer assumed
// propositions, relevance rewards lexical overlap with the goal name,
// consistency is the fraction of the source rule's premises the base does
// not contradict.
func (a *Abducer) rank(goal *domain.Proposition, hyps []hypothesis) []Explanation {
	out := make([]Explanation, 0, len(hyps))
	for _, h := range hyps {
		simplicity := 1.0 / float64(len(h.props))
		relevance := lexicalOverlap(goal.Name, h.props)

		out = append(out, Explanation{
			Propositions: h.props,
			RuleID:       h.rule.ID,
			Simplicity:   simplicity,
			Relevance:    relevance,
			Consistency:  h.consistency,
			Score: a.SimplicityWeight*simplicity +
				a.RelevanceWeight*relevance +
				a.ConsistencyWeight*h.consistency,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return len(out[i].Propositions) < len(out[j].Propositions)
	})
	return out
}

// lexicalOverlap is the share of the goal name's underscore-separated tokens
// that also appear in an assumed proposition's name.
func lexicalOverlap(goal string, props []string) float64 {
	goalTokens := stringSet(strings.Split(goal, "_"))
	propTokens := make(map[string]struct{})
	for _, name := range props {
		for _, tok := range strings.Split(name, "_") {
			propTokens[tok] = struct{}{}
		}
	}
	shared := 0
	for tok := range goalTokens {
		if _, ok := propTokens[tok]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(goalTokens))
}
