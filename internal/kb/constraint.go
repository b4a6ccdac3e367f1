package kb

import "fmt"

// Constraint vets a fact write before it commits. Violated receives the
// candidate write and a read-only view of the current fact set.
type Constraint interface {
	Name() string
	Violated(name string, value bool, facts map[string]bool) bool
}

// MutualExclusion forbids two propositions from being true at once.
type MutualExclusion struct {
	A string
	B string
}

func (m MutualExclusion) Name() string {
	return fmt.Sprintf("mutual_exclusion(%s, %s)", m.A, m.B)
}

func (m MutualExclusion) Violated(name string, value bool, facts map[string]bool) bool {
	if !value {
		return false
	}
	switch name {
	case m.A:
		return facts[m.B]
	case m.B:
		return facts[m.A]
	}
	return false
}

// Requires forbids asserting a proposition while its prerequisite is absent
// or false.
type Requires struct {
	Prop     string
	Requires string
}

func (r Requires) Name() string {
	return fmt.Sprintf("requires(%s, %s)", r.Prop, r.Requires)
}

func (r Requires) Violated(name string, value bool, facts map[string]bool) bool {
	if name != r.Prop || !value {
		return false
	}
	return !facts[r.Requires]
}

// FuncConstraint adapts an arbitrary predicate.
type FuncConstraint struct {
	Label string
	Check func(name string, value bool, facts map[string]bool) bool
}

func (f FuncConstraint) Name() string { return f.Label }

func (f FuncConstraint) Violated(name string, value bool, facts map[string]bool) bool {
	return f.Check(name, value, facts)
}
