package kb

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/syllog-ai/syllog/internal/domain"
)

const (
	DefaultMaxContexts          = 64
	DefaultUncertaintyThreshold = 0.05
	DefaultCacheSize            = 1024
)

// Config tunes a knowledge base. The zero value is replaced by defaults.
type Config struct {
	MaxContexts          int
	UncertaintyThreshold float64
	CacheSize            int
}

func DefaultConfig() Config {
	return Config{
		MaxContexts:          DefaultMaxContexts,
		UncertaintyThreshold: DefaultUncertaintyThreshold,
		CacheSize:            DefaultCacheSize,
	}
}

// Context is a named scope of facts and rules layered over the base.
type Context struct {
	Facts map[string]bool
	Rules []*domain.Rule
}

// QueryOpts narrows a query to a point in time and/or a named context.
type QueryOpts struct {
	At      *time.Time
	Context string
}

// KnowledgeBase is the single shared mutable store every strategy reads and
// writes. It is not safe for concurrent use: callers own single-writer
// discipline, and no strategy may run against a base while another does.
type KnowledgeBase struct {
	cfg    Config
	logger *zap.Logger

	facts      map[string]bool
	probFacts  map[string]*domain.ProbabilisticFact
	temporal   map[string][]domain.TemporalEntry
	rules      []*domain.Rule
	defeasible []*domain.Rule
	contexts   map[string]*Context
	examples   []domain.Example
	cases      []*domain.Case

	constraints []Constraint
	deps        *graph // rule edges only, kept acyclic
	invalid     *graph // superset used for cache invalidation
	cache       *queryCache

	version     uint64
	queryCount  int64
	cacheHits   int64
	cacheMisses int64
}

func New(logger *zap.Logger) *KnowledgeBase {
	return NewWithConfig(logger, DefaultConfig())
}

func NewWithConfig(logger *zap.Logger, cfg Config) *KnowledgeBase {
	if cfg.MaxContexts <= 0 {
		cfg.MaxContexts = DefaultMaxContexts
	}
	if cfg.UncertaintyThreshold <= 0 {
		cfg.UncertaintyThreshold = DefaultUncertaintyThreshold
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	return &KnowledgeBase{
		cfg:       cfg,
		logger:    logger,
		facts:     make(map[string]bool),
		probFacts: make(map[string]*domain.ProbabilisticFact),
		temporal:  make(map[string][]domain.TemporalEntry),
		contexts:  make(map[string]*Context),
		deps:      newGraph(),
		invalid:   newGraph(),
		cache:     newQueryCache(cfg.CacheSize),
	}
}

// AddFact commits a boolean fact after checking every registered constraint.
// Re-adding an existing name replaces its value: the caller is the authority
// over plain facts. On violation the base is left unmodified.
func (b *KnowledgeBase) AddFact(name string, value bool) error {
	if name == "" {
		return fmt.Errorf("%w: fact name is empty", domain.ErrInvalidInput)
	}
	for _, c := range b.constraints {
		if c.Violated(name, value, b.facts) {
			return &domain.ConsistencyError{Fact: name, Constraint: c.Name()}
		}
	}
	b.facts[name] = value
	b.write(name)
	b.logger.Debug("fact added", zap.String("name", name), zap.Bool("value", value))
	return nil
}

// AddProposition commits a proposition's truth value (Unknown adds nothing)
// and records its declared dependencies for cache invalidation.
func (b *KnowledgeBase) AddProposition(p *domain.Proposition) error {
	if p == nil || p.Name == "" {
		return fmt.Errorf("%w: nil or unnamed proposition", domain.ErrInvalidInput)
	}
	if err := domain.CheckConfidence(p.Confidence); err != nil {
		return err
	}
	for _, dep := range p.Dependencies {
		b.invalid.addEdge(dep, p.Name)
	}
	if p.Value == domain.TruthUnknown {
		b.write(p.Name)
		return nil
	}
	return b.AddFact(p.Name, p.Value == domain.TruthTrue)
}

// RetractFact removes a plain fact, e.g. when a defeasible exception is
// withdrawn and derived beliefs need revision.
func (b *KnowledgeBase) RetractFact(name string) {
	if _, ok := b.facts[name]; !ok {
		return
	}
	delete(b.facts, name)
	b.write(name)
	b.logger.Debug("fact retracted", zap.String("name", name))
}

// AddContextFact commits a fact into a named context, creating the context
// if the configured maximum allows.
func (b *KnowledgeBase) AddContextFact(context, name string, value bool) error {
	if context == "" || name == "" {
		return fmt.Errorf("%w: context and fact name required", domain.ErrInvalidInput)
	}
	c, ok := b.contexts[context]
	if !ok {
		if len(b.contexts) >= b.cfg.MaxContexts {
			return fmt.Errorf("%w: %d contexts", domain.ErrContextLimit, b.cfg.MaxContexts)
		}
		c = &Context{Facts: make(map[string]bool)}
		b.contexts[context] = c
	}
	c.Facts[name] = value
	b.write(name)
	return nil
}

// AddRule validates the rule, rejects any premise→conclusion edge that would
// close a dependency cycle, then commits it. Rules carrying exceptions go to
// the defeasible set consumed by non-monotonic reasoning; bidirectional
// rules are expanded into explicit reverse rules whose edges join cache
// invalidation but not the acyclic rule graph.
func (b *KnowledgeBase) AddRule(r *domain.Rule) error {
	if r == nil {
		return fmt.Errorf("%w: nil rule", domain.ErrInvalidInput)
	}
	if err := domain.CheckConfidence(r.Confidence); err != nil {
		return err
	}
	if len(r.Premises) == 0 || r.Conclusion.Name == "" {
		return fmt.Errorf("%w: rule needs premises and a conclusion", domain.ErrInvalidInput)
	}
	for _, p := range r.Premises {
		if b.deps.wouldCycle(p.Name, r.Conclusion.Name) {
			return &domain.CycleError{Premise: p.Name, Conclusion: r.Conclusion.Name}
		}
	}
	for _, p := range r.Premises {
		b.deps.addEdge(p.Name, r.Conclusion.Name)
		b.invalid.addEdge(p.Name, r.Conclusion.Name)
	}
	if r.Defeasible() {
		b.defeasible = append(b.defeasible, r)
	} else {
		b.rules = append(b.rules, r)
	}
	for _, rev := range r.Reverse() {
		b.invalid.addEdge(rev.Premises[0].Name, rev.Conclusion.Name)
		b.rules = append(b.rules, rev)
	}
	b.write(r.Conclusion.Name)
	b.logger.Debug("rule added", zap.String("rule", r.Render()))
	return nil
}

// AddProbabilisticFact commits or merges a probabilistic fact. Estimates
// below the uncertainty threshold are rejected as noise.
func (b *KnowledgeBase) AddProbabilisticFact(f *domain.ProbabilisticFact) error {
	if f == nil {
		return fmt.Errorf("%w: nil probabilistic fact", domain.ErrInvalidInput)
	}
	if err := domain.CheckConfidence(f.Probability); err != nil {
		return err
	}
	if f.Probability < b.cfg.UncertaintyThreshold {
		return fmt.Errorf("%w: %.3f < %.3f", domain.ErrBelowThreshold,
			f.Probability, b.cfg.UncertaintyThreshold)
	}
	name := f.Proposition.Name
	if existing, ok := b.probFacts[name]; ok {
		if err := existing.Merge(f); err != nil {
			return err
		}
	} else {
		b.probFacts[name] = f
	}
	b.write(name)
	return nil
}

// AddTemporalFact appends an observation to a proposition's time stream.
func (b *KnowledgeBase) AddTemporalFact(name string, value bool, at time.Time) error {
	if name == "" {
		return fmt.Errorf("%w: fact name is empty", domain.ErrInvalidInput)
	}
	stream := append(b.temporal[name], domain.TemporalEntry{Value: value, At: at})
	sort.Slice(stream, func(i, j int) bool { return stream[i].At.Before(stream[j].At) })
	b.temporal[name] = stream
	b.write(name)
	return nil
}

func (b *KnowledgeBase) AddExample(e domain.Example) {
	b.examples = append(b.examples, e)
}

func (b *KnowledgeBase) AddCase(c *domain.Case) {
	b.cases = append(b.cases, c)
}

// AddConstraint registers a consistency constraint checked on every
// subsequent fact write.
func (b *KnowledgeBase) AddConstraint(c Constraint) {
	b.constraints = append(b.constraints, c)
}

// Query resolves a proposition with no temporal or context narrowing.
func (b *KnowledgeBase) Query(name string) (domain.TruthValue, float64) {
	return b.QueryWith(name, QueryOpts{})
}

// QueryWith resolves a proposition in priority order: context-local fact,
// temporal fact at the given time, probabilistic fact, plain fact, unknown.
// Results are cached by (name, time, context); every write invalidates the
// written name and its transitive dependents.
func (b *KnowledgeBase) QueryWith(name string, opts QueryOpts) (domain.TruthValue, float64) {
	b.queryCount++
	key := cacheKey(name, opts.At, opts.Context)
	if ans, ok := b.cache.get(key); ok {
		b.cacheHits++
		return ans.value, ans.confidence
	}
	b.cacheMisses++

	value, confidence := b.resolve(name, opts)
	b.cache.put(key, cachedAnswer{value: value, confidence: confidence})
	return value, confidence
}

func (b *KnowledgeBase) resolve(name string, opts QueryOpts) (domain.TruthValue, float64) {
	if opts.Context != "" {
		if c, ok := b.contexts[opts.Context]; ok {
			if v, ok := c.Facts[name]; ok {
				return domain.TruthOf(v), 1.0
			}
		}
	}
	if opts.At != nil {
		if stream, ok := b.temporal[name]; ok {
			// Latest observation at or before the query time wins.
			for i := len(stream) - 1; i >= 0; i-- {
				if !stream[i].At.After(*opts.At) {
					return domain.TruthOf(stream[i].Value), 1.0
				}
			}
		}
	}
	if f, ok := b.probFacts[name]; ok {
		if f.Probability >= 0.5 {
			return domain.TruthTrue, f.Probability
		}
		return domain.TruthFalse, 1 - f.Probability
	}
	if v, ok := b.facts[name]; ok {
		return domain.TruthOf(v), 1.0
	}
	return domain.TruthUnknown, 0
}

// FactValue reads a plain fact without touching the cache.
func (b *KnowledgeBase) FactValue(name string) (value bool, known bool) {
	value, known = b.facts[name]
	return
}

// Facts returns a copy of the plain fact set.
func (b *KnowledgeBase) Facts() map[string]bool {
	out := make(map[string]bool, len(b.facts))
	for k, v := range b.facts {
		out[k] = v
	}
	return out
}

// Rules returns the strict (non-defeasible) rules, including expanded
// reverse forms.
func (b *KnowledgeBase) Rules() []*domain.Rule {
	out := make([]*domain.Rule, len(b.rules))
	copy(out, b.rules)
	return out
}

// DefeasibleRules returns the rules carrying exceptions, highest priority
// first.
func (b *KnowledgeBase) DefeasibleRules() []*domain.Rule {
	out := make([]*domain.Rule, len(b.defeasible))
	copy(out, b.defeasible)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}

// RulesFor returns strict rules concluding name, highest confidence first.
func (b *KnowledgeBase) RulesFor(name string) []*domain.Rule {
	var out []*domain.Rule
	for _, r := range b.rules {
		if r.Conclusion.Name == name {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}

// ProbabilisticFact returns the stored estimate for name, if any.
func (b *KnowledgeBase) ProbabilisticFact(name string) (*domain.ProbabilisticFact, bool) {
	f, ok := b.probFacts[name]
	return f, ok
}

func (b *KnowledgeBase) Examples() []domain.Example {
	out := make([]domain.Example, len(b.examples))
	copy(out, b.examples)
	return out
}

func (b *KnowledgeBase) Cases() []*domain.Case {
	out := make([]*domain.Case, len(b.cases))
	copy(out, b.cases)
	return out
}

// Version increments on every write; strategy memo caches key their entries
// by it so a mutation invalidates them wholesale.
func (b *KnowledgeBase) Version() uint64 {
	return b.version
}

// Statistics reports the observable state of the base.
func (b *KnowledgeBase) Statistics() domain.Statistics {
	return domain.Statistics{
		FactCount:           len(b.facts),
		RuleCount:           len(b.rules),
		DefeasibleRuleCount: len(b.defeasible),
		ProbabilisticCount:  len(b.probFacts),
		TemporalCount:       len(b.temporal),
		ContextCount:        len(b.contexts),
		CaseCount:           len(b.cases),
		ExampleCount:        len(b.examples),
		QueryCount:          b.queryCount,
		CacheHits:           b.cacheHits,
		CacheMisses:         b.cacheMisses,
		Version:             b.version,
	}
}

// Snapshot renders the base into its round-trippable document form.
func (b *KnowledgeBase) Snapshot() *domain.Document {
	doc := &domain.Document{
		Facts:              b.Facts(),
		ProbabilisticFacts: make(map[string]domain.ProbabilisticFactDoc, len(b.probFacts)),
		TemporalFacts:      make(map[string][]domain.TemporalEntry, len(b.temporal)),
		Contexts:           make(map[string]domain.ContextDoc, len(b.contexts)),
		Statistics:         b.Statistics(),
	}
	for _, r := range b.rules {
		doc.Rules = append(doc.Rules, r.Render())
	}
	for _, r := range b.defeasible {
		doc.DefeasibleRules = append(doc.DefeasibleRules, r.Render())
	}
	for name, f := range b.probFacts {
		doc.ProbabilisticFacts[name] = domain.ProbabilisticFactDoc{
			Probability:   f.Probability,
			Lower:         f.Interval.Lower,
			Upper:         f.Interval.Upper,
			EvidenceCount: f.EvidenceCount,
			Conditioning:  f.Conditioning,
		}
	}
	for name, stream := range b.temporal {
		doc.TemporalFacts[name] = append([]domain.TemporalEntry(nil), stream...)
	}
	for name, c := range b.contexts {
		cd := domain.ContextDoc{Facts: make(map[string]bool, len(c.Facts))}
		for k, v := range c.Facts {
			cd.Facts[k] = v
		}
		for _, r := range c.Rules {
			cd.Rules = append(cd.Rules, r.Render())
		}
		doc.Contexts[name] = cd
	}
	return doc
}

// Restore resets the base and repopulates it from a snapshot document.
// Registered constraints survive the restore, so the snapshot's facts pass
// through the same consistency checking as live additions; rules likewise
// pass through cycle checking.
func (b *KnowledgeBase) Restore(doc *domain.Document) error {
	if doc == nil {
		return fmt.Errorf("%w: nil document", domain.ErrInvalidInput)
	}
	fresh := NewWithConfig(b.logger, b.cfg)
	fresh.constraints = append(fresh.constraints, b.constraints...)
	for name, value := range doc.Facts {
		if err := fresh.AddFact(name, value); err != nil {
			return err
		}
	}
	for _, rendered := range append(append([]string(nil), doc.Rules...), doc.DefeasibleRules...) {
		r, err := domain.ParseRule(rendered)
		if err != nil {
			return err
		}
		if err := fresh.AddRule(r); err != nil {
			return err
		}
	}
	for name, fd := range doc.ProbabilisticFacts {
		f, err := domain.NewProbabilisticFact(domain.Prop(name), fd.Probability)
		if err != nil {
			return err
		}
		f.EvidenceCount = fd.EvidenceCount
		f.Interval = domain.ConfidenceInterval{Lower: fd.Lower, Upper: fd.Upper}
		f.Conditioning = fd.Conditioning
		if err := fresh.AddProbabilisticFact(f); err != nil {
			return err
		}
	}
	for name, stream := range doc.TemporalFacts {
		for _, e := range stream {
			if err := fresh.AddTemporalFact(name, e.Value, e.At); err != nil {
				return err
			}
		}
	}
	for name, cd := range doc.Contexts {
		for k, v := range cd.Facts {
			if err := fresh.AddContextFact(name, k, v); err != nil {
				return err
			}
		}
	}

	b.facts = fresh.facts
	b.probFacts = fresh.probFacts
	b.temporal = fresh.temporal
	b.rules = fresh.rules
	b.defeasible = fresh.defeasible
	b.contexts = fresh.contexts
	b.deps = fresh.deps
	b.invalid = fresh.invalid
	b.cache.purge()
	b.version++
	b.logger.Info("knowledge base restored",
		zap.Int("facts", len(b.facts)),
		zap.Int("rules", len(b.rules)+len(b.defeasible)))
	return nil
}

// write bumps the version and invalidates every cached query that the
// written name could have influenced.
func (b *KnowledgeBase) write(name string) {
	b.version++
	b.cache.invalidate(b.invalid.dependents(name))
}
