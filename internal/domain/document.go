package domain

import "time"

// TemporalEntry is one observation in a temporal fact stream.
type TemporalEntry struct {
	Value bool      `json:"value"`
	At    time.Time `json:"at"`
}

// ContextDoc is the serialized form of a named context.
type ContextDoc struct {
	Facts map[string]bool `json:"facts"`
	Rules []string        `json:"rules,omitempty"`
}

// ProbabilisticFactDoc is the serialized form of a probabilistic fact.
type ProbabilisticFactDoc struct {
	Probability   float64            `json:"probability"`
	Lower         float64            `json:"lower"`
	Upper         float64            `json:"upper"`
	EvidenceCount int                `json:"evidence_count"`
	Conditioning  map[string]float64 `json:"conditioning_factors,omitempty"`
}

// Statistics summarizes the observable state of a knowledge base.
type Statistics struct {
	FactCount          int   `json:"fact_count"`
	RuleCount          int   `json:"rule_count"`
	DefeasibleRuleCount int  `json:"defeasible_rule_count"`
	ProbabilisticCount int   `json:"probabilistic_count"`
	TemporalCount      int   `json:"temporal_count"`
	ContextCount       int   `json:"context_count"`
	CaseCount          int   `json:"case_count"`
	ExampleCount       int   `json:"example_count"`
	QueryCount         int64 `json:"query_count"`
	CacheHits          int64 `json:"cache_hits"`
	CacheMisses        int64 `json:"cache_misses"`
	Version            uint64 `json:"version"`

	// StrategyApplications counts completed runs per strategy name. It is
	// filled by the engine service; the base itself does not track it.
	StrategyApplications map[string]int64 `json:"strategy_applications,omitempty"`
}

// Document is the round-trippable persisted form of a knowledge base.
// Rules are stored in their rendered string form
// (IF p1 AND p2 THEN c (conf=x) [UNLESS e]); restoring a document parses
// them back. Restore(Snapshot()) reproduces an equivalent base.
type Document struct {
	Facts              map[string]bool                 `json:"facts"`
	Rules              []string                        `json:"rules"`
	DefeasibleRules    []string                        `json:"defeasible_rules,omitempty"`
	ProbabilisticFacts map[string]ProbabilisticFactDoc `json:"probabilistic_facts,omitempty"`
	TemporalFacts      map[string][]TemporalEntry      `json:"temporal_facts,omitempty"`
	Contexts           map[string]ContextDoc           `json:"contexts,omitempty"`
	Statistics         Statistics                      `json:"statistics"`
}
