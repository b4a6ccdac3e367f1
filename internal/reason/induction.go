package reason

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/syllog-ai/syllog/internal/domain"
	"github.com/syllog-ai/syllog/internal/kb"
)

const (
	DefaultMinSupport       = 2
	DefaultSignificance     = 0.05
	DefaultMaxMissingPct    = 0.3
	DefaultZScoreCutoff     = 3.0
	DefaultMinRuleConfidence = 0.6
	DefaultValidationSplit  = 0.2
	DefaultPatience         = 3
	DefaultWorkers          = 4
	DefaultWindowSize       = 5000
)

// Inducer mines labeled examples for frequent attribute patterns, keeps the
// statistically significant ones, turns them into candidate rules and
// validates the survivors against the base and a held-out split. Pattern
// counting fans out across a worker pool for large example sets; the merge
// is deterministic regardless of worker scheduling.
type Inducer struct {
	logger *zap.Logger

	MinSupport      int
	Significance    float64
	MaxMissingPct   float64
	ZScoreCutoff    float64
	MinConfidence   float64
	ValidationSplit float64
	Patience        int
	Workers         int
	// WindowSize switches counting to incremental sliding windows when the
	// example set exceeds it.
	WindowSize int
}

func NewInducer(logger *zap.Logger) *Inducer {
	return &Inducer{
		logger:          logger,
		MinSupport:      DefaultMinSupport,
		Significance:    DefaultSignificance,
		MaxMissingPct:   DefaultMaxMissingPct,
		ZScoreCutoff:    DefaultZScoreCutoff,
		MinConfidence:   DefaultMinRuleConfidence,
		ValidationSplit: DefaultValidationSplit,
		Patience:        DefaultPatience,
		Workers:         DefaultWorkers,
		WindowSize:      DefaultWindowSize,
	}
}

func (in *Inducer) Kind() Kind { return KindInductive }

// condition is one attribute=value test.
type condition struct {
	attr  string
	value string
}

func (c condition) name() string { return c.attr + "=" + c.value }

// pattern is a conjunction of one or two conditions, keyed canonically.
type pattern struct {
	conds []condition
}

func (p pattern) key() string {
	parts := make([]string, len(p.conds))
	for i, c := range p.conds {
		parts[i] = c.name()
	}
	return strings.Join(parts, "&")
}

func (p pattern) matches(e domain.Example) bool {
	for _, c := range p.conds {
		v, ok := e.Attributes[c.attr]
		if !ok || fmt.Sprintf("%v", v) != c.value {
			return false
		}
	}
	return true
}

type patternCount struct {
	pattern pattern
	byLabel map[string]int
	total   int
}

func (in *Inducer) Reason(ctx context.Context, base *kb.KnowledgeBase, goal *domain.Proposition) (*Result, error) {
	examples := base.Examples()
	if len(examples) == 0 {
		return nil, fmt.Errorf("%w: no examples for induction", domain.ErrInvalidInput)
	}

	if err := in.checkMissing(examples); err != nil {
		return nil, err
	}
	examples = in.impute(examples)

	train, holdout := in.split(examples)

	counts, err := in.minePatterns(ctx, train)
	if err != nil {
		return nil, err
	}
	in.logger.Debug("patterns mined", zap.Int("patterns", len(counts)), zap.Int("examples", len(train)))

	counts = in.filterSignificant(counts, len(train), train)
	counts = in.dropAnomalies(counts)

	candidates := in.generateRules(counts, len(train))
	candidates = in.pruneRules(candidates, base)
	rules := in.validate(candidates, holdout)

	result := &Result{Kind: in.Kind(), LearnedRules: rules}
	in.logger.Debug("induction complete", zap.Int("rules", len(rules)))
	return result, nil
}

// checkMissing fails on any attribute with too many missing values to
// impute, naming the attribute.
func (in *Inducer) checkMissing(examples []domain.Example) error {
	attrs := make(map[string]int)
	for _, e := range examples {
		for a := range e.Attributes {
			attrs[a]++
		}
	}
	names := make([]string, 0, len(attrs))
	for a := range attrs {
		names = append(names, a)
	}
	sort.Strings(names)
	for _, a := range names {
		missing := 0
		for _, e := range examples {
			if v, ok := e.Attributes[a]; !ok || v == nil {
				missing++
			}
		}
		pct := float64(missing) / float64(len(examples))
		if pct > in.MaxMissingPct {
			return &domain.DataQualityError{Attribute: a, MissingPct: pct}
		}
	}
	return nil
}

// impute fills missing values: mean for numeric attributes, mode otherwise.
func (in *Inducer) impute(examples []domain.Example) []domain.Example {
	attrs := make(map[string]struct{})
	for _, e := range examples {
		for a := range e.Attributes {
			attrs[a] = struct{}{}
		}
	}
	out := make([]domain.Example, len(examples))
	for i, e := range examples {
		copied := domain.Example{Label: e.Label, Attributes: make(map[string]any, len(e.Attributes))}
		for k, v := range e.Attributes {
			copied.Attributes[k] = v
		}
		out[i] = copied
	}
	for a := range attrs {
		var nums []float64
		modes := make(map[string]int)
		numeric := true
		for _, e := range examples {
			v, ok := e.Attributes[a]
			if !ok || v == nil {
				continue
			}
			if f, isNum := toFloat(v); isNum {
				nums = append(nums, f)
			} else {
				numeric = false
			}
			modes[fmt.Sprintf("%v", v)]++
		}
		var fill any
		if numeric && len(nums) > 0 {
			sum := 0.0
			for _, f := range nums {
				sum += f
			}
			fill = sum / float64(len(nums))
		} else {
			best, bestCount := "", 0
			keys := make([]string, 0, len(modes))
			for k := range modes {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if modes[k] > bestCount {
					best, bestCount = k, modes[k]
				}
			}
			fill = best
		}
		for i := range out {
			if v, ok := out[i].Attributes[a]; !ok || v == nil {
				out[i].Attributes[a] = fill
			}
		}
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// split carves off a deterministic held-out slice for validation.
func (in *Inducer) split(examples []domain.Example) (train, holdout []domain.Example) {
	if in.ValidationSplit <= 0 || len(examples) < 5 {
		return examples, nil
	}
	every := int(1 / in.ValidationSplit)
	if every < 2 {
		every = 2
	}
	for i, e := range examples {
		if (i+1)%every == 0 {
			holdout = append(holdout, e)
		} else {
			train = append(train, e)
		}
	}
	return train, holdout
}

// minePatterns counts single- and two-condition patterns per label. Chunks
// of the example set are counted in parallel and merged in sorted key order
// so the outcome does not depend on scheduling. Very large sets are walked
// window by window instead of loading one giant chunk per worker.
func (in *Inducer) minePatterns(ctx context.Context, examples []domain.Example) (map[string]*patternCount, error) {
	workers := in.Workers
	if workers <= 0 || len(examples) < workers*8 {
		workers = 1
	}
	chunk := len(examples)/workers + 1
	if in.WindowSize > 0 && chunk > in.WindowSize {
		chunk = in.WindowSize
	}

	var chunks [][]domain.Example
	for start := 0; start < len(examples); start += chunk {
		end := start + chunk
		if end > len(examples) {
			end = len(examples)
		}
		chunks = append(chunks, examples[start:end])
	}

	partials := make([]map[string]*patternCount, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, c := range chunks {
		i, c := i, c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			partials[i] = countPatterns(c)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]*patternCount)
	for _, partial := range partials {
		keys := make([]string, 0, len(partial))
		for k := range partial {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			pc := partial[k]
			if existing, ok := merged[k]; ok {
				existing.total += pc.total
				for label, n := range pc.byLabel {
					existing.byLabel[label] += n
				}
			} else {
				clone := &patternCount{pattern: pc.pattern, total: pc.total, byLabel: make(map[string]int, len(pc.byLabel))}
				for label, n := range pc.byLabel {
					clone.byLabel[label] = n
				}
				merged[k] = clone
			}
		}
	}
	return merged, nil
}

func countPatterns(examples []domain.Example) map[string]*patternCount {
	counts := make(map[string]*patternCount)
	bump := func(p pattern, label string) {
		k := p.key()
		pc, ok := counts[k]
		if !ok {
			pc = &patternCount{pattern: p, byLabel: make(map[string]int)}
			counts[k] = pc
		}
		pc.total++
		pc.byLabel[label]++
	}
	for _, e := range examples {
		conds := make([]condition, 0, len(e.Attributes))
		for a, v := range e.Attributes {
			conds = append(conds, condition{attr: a, value: fmt.Sprintf("%v", v)})
		}
		sort.Slice(conds, func(i, j int) bool { return conds[i].name() < conds[j].name() })
		for i, c := range conds {
			bump(pattern{conds: []condition{c}}, e.Label)
			for _, c2 := range conds[i+1:] {
				bump(pattern{conds: []condition{c, c2}}, e.Label)
			}
		}
	}
	return counts
}

// filterSignificant keeps patterns meeting minimum support whose best label
// association survives a chi-square (or Fisher exact, for sparse tables)
// test with Holm-Bonferroni correction.
func (in *Inducer) filterSignificant(counts map[string]*patternCount, n int, examples []domain.Example) map[string]*patternCount {
	labelTotals := make(map[string]int)
	for _, e := range examples {
		labelTotals[e.Label]++
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var tested []string
	var pvalues []float64
	for _, k := range keys {
		pc := counts[k]
		if pc.total < in.MinSupport {
			continue
		}
		label := bestLabel(pc)
		t := contingency{
			a: pc.byLabel[label],
			b: pc.total - pc.byLabel[label],
			c: labelTotals[label] - pc.byLabel[label],
			d: n - pc.total - labelTotals[label] + pc.byLabel[label],
		}
		var p float64
		if t.smallExpected() {
			p = t.fisherExact()
		} else {
			_, p = t.chiSquare()
		}
		tested = append(tested, k)
		pvalues = append(pvalues, p)
	}

	keep := holmBonferroni(pvalues, in.Significance)
	out := make(map[string]*patternCount)
	for i, k := range tested {
		if keep[i] {
			out[k] = counts[k]
		}
	}
	return out
}

// dropAnomalies removes patterns whose support is a z-score outlier.
func (in *Inducer) dropAnomalies(counts map[string]*patternCount) map[string]*patternCount {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	supports := make([]float64, len(keys))
	for i, k := range keys {
		supports[i] = float64(counts[k].total)
	}
	outliers := zOutliers(supports, in.ZScoreCutoff)
	out := make(map[string]*patternCount)
	for i, k := range keys {
		if !outliers[i] {
			out[k] = counts[k]
		}
	}
	return out
}

func bestLabel(pc *patternCount) string {
	best, bestCount := "", -1
	labels := make([]string, 0, len(pc.byLabel))
	for l := range pc.byLabel {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	for _, l := range labels {
		if pc.byLabel[l] > bestCount {
			best, bestCount = l, pc.byLabel[l]
		}
	}
	return best
}

// generateRules turns surviving patterns into candidate rules: premises are
// the pattern's attribute=value propositions, the conclusion is
// label=<majority label>, confidence is the pattern's precision.
func (in *Inducer) generateRules(counts map[string]*patternCount, n int) []*domain.Rule {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var rules []*domain.Rule
	for _, k := range keys {
		pc := counts[k]
		label := bestLabel(pc)
		confidence := float64(pc.byLabel[label]) / float64(pc.total)
		premises := make([]domain.Proposition, len(pc.pattern.conds))
		for i, c := range pc.pattern.conds {
			premises[i] = domain.Prop(c.name())
		}
		r, err := domain.NewRule(premises, domain.Prop("label="+label), confidence)
		if err != nil {
			continue
		}
		rules = append(rules, r)
	}
	return rules
}

// pruneRules drops low-confidence candidates, candidates contradicted by
// the base, and redundant generalization pairs (a superset premise set with
// no confidence gain over its subset).
func (in *Inducer) pruneRules(rules []*domain.Rule, base *kb.KnowledgeBase) []*domain.Rule {
	var kept []*domain.Rule
	for _, r := range rules {
		if r.Confidence < in.MinConfidence {
			continue
		}
		if v, known := base.FactValue(r.Conclusion.Name); known && !v {
			continue
		}
		kept = append(kept, r)
	}

	premiseSet := func(r *domain.Rule) map[string]struct{} {
		s := make(map[string]struct{}, len(r.Premises))
		for _, p := range r.Premises {
			s[p.Name] = struct{}{}
		}
		return s
	}
	var out []*domain.Rule
	for i, r := range kept {
		redundant := false
		ri := premiseSet(r)
		for j, other := range kept {
			if i == j || other.Conclusion.Name != r.Conclusion.Name {
				continue
			}
			rj := premiseSet(other)
			if len(rj) < len(ri) && subset(rj, ri) && other.Confidence >= r.Confidence {
				redundant = true
				break
			}
		}
		if !redundant {
			out = append(out, r)
		}
	}
	return out
}

func subset(a, b map[string]struct{}) bool {
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// validate greedily admits rules in descending confidence order while the
// held-out score keeps improving within the patience window.
func (in *Inducer) validate(candidates []*domain.Rule, holdout []domain.Example) []*domain.Rule {
	if len(holdout) == 0 || len(candidates) == 0 {
		return candidates
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	var admitted []*domain.Rule
	bestScore := 0.0
	stale := 0
	for _, r := range candidates {
		trial := append(append([]*domain.Rule(nil), admitted...), r)
		score := holdoutScore(trial, holdout)
		if score > bestScore {
			bestScore = score
			admitted = trial
			stale = 0
			continue
		}
		stale++
		if stale >= in.Patience {
			break
		}
	}
	return admitted
}

// holdoutScore is the fraction of held-out examples whose first applicable
// rule predicts their label.
func holdoutScore(rules []*domain.Rule, holdout []domain.Example) float64 {
	correct := 0
	for _, e := range holdout {
		for _, r := range rules {
			if !ruleApplies(r, e) {
				continue
			}
			if r.Conclusion.Name == "label="+e.Label {
				correct++
			}
			break
		}
	}
	return float64(correct) / float64(len(holdout))
}

func ruleApplies(r *domain.Rule, e domain.Example) bool {
	for _, p := range r.Premises {
		attr, value, ok := strings.Cut(p.Name, "=")
		if !ok {
			return false
		}
		v, present := e.Attributes[attr]
		if !present || fmt.Sprintf("%v", v) != value {
			return false
		}
	}
	return true
}
