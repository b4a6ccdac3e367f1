package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput rejects a request before any computation starts:
	// missing goal, out-of-range score, malformed rule, empty example set.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMissingGoal is returned by goal-driven strategies invoked without one.
	ErrMissingGoal = fmt.Errorf("%w: goal proposition required", ErrInvalidInput)

	// ErrContextLimit is returned when creating a context would exceed the
	// configured maximum number of named contexts.
	ErrContextLimit = errors.New("context limit reached")

	// ErrBelowThreshold rejects a probabilistic fact whose probability is
	// under the knowledge base's uncertainty threshold.
	ErrBelowThreshold = errors.New("probability below uncertainty threshold")
)

// LimitKind names the resource bound a strategy exhausted.
type LimitKind string

const (
	LimitIterations LimitKind = "iterations"
	LimitRecursion  LimitKind = "recursion depth"
	LimitBacktracks LimitKind = "backtracks"
	LimitModelSize  LimitKind = "model size"
	LimitRevisions  LimitKind = "revision depth"
)

// LimitError reports an exhausted resource bound, the only interruption
// mechanism in the reasoning core. The knowledge base holds no partial
// state when it is raised; every fact committed before the limit was
// validly derived.
type LimitError struct {
	Kind  LimitKind
	Limit int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s limit exceeded (%d)", e.Kind, e.Limit)
}

// ConsistencyError rejects a fact write that would violate a registered
// constraint. The base is left unmodified.
type ConsistencyError struct {
	Fact       string
	Constraint string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("fact %q violates constraint %q", e.Fact, e.Constraint)
}

// CycleError rejects a rule whose premise→conclusion edge would close a
// dependency cycle.
type CycleError struct {
	Premise    string
	Conclusion string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("rule edge %s -> %s would create a dependency cycle", e.Premise, e.Conclusion)
}

// DataQualityError is raised by induction when an attribute has too many
// missing values to impute safely.
type DataQualityError struct {
	Attribute  string
	MissingPct float64
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("attribute %q has %.1f%% missing values", e.Attribute, e.MissingPct*100)
}
