package reason

import (
	"sort"
	"strings"

	"github.com/syllog-ai/syllog/internal/domain"
	"github.com/syllog-ai/syllog/internal/kb"
)

// literal is a possibly negated proposition name.
type literal struct {
	name    string
	negated bool
}

func (l literal) String() string {
	if l.negated {
		return "¬" + l.name
	}
	return l.name
}

func (l literal) complement() literal {
	return literal{name: l.name, negated: !l.negated}
}

// clause is a disjunction of literals, kept sorted and deduplicated so that
// equal clauses have equal keys.
type clause []literal

func newClause(lits ...literal) clause {
	seen := make(map[literal]struct{}, len(lits))
	out := make(clause, 0, len(lits))
	for _, l := range lits {
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].name != out[j].name {
			return out[i].name < out[j].name
		}
		return !out[i].negated && out[j].negated
	})
	return out
}

func (c clause) key() string {
	parts := make([]string, len(c))
	for i, l := range c {
		parts[i] = l.String()
	}
	return strings.Join(parts, " ∨ ")
}

func (c clause) empty() bool { return len(c) == 0 }

// tautology reports whether the clause contains a literal and its complement.
func (c clause) tautology() bool {
	seen := make(map[string]bool, len(c))
	for _, l := range c {
		if neg, ok := seen[l.name]; ok && neg != l.negated {
			return true
		}
		seen[l.name] = l.negated
	}
	return false
}

// subsumes reports whether every literal of c appears in other.
func (c clause) subsumes(other clause) bool {
	if len(c) > len(other) {
		return false
	}
	have := make(map[literal]struct{}, len(other))
	for _, l := range other {
		have[l] = struct{}{}
	}
	for _, l := range c {
		if _, ok := have[l]; !ok {
			return false
		}
	}
	return true
}

// resolve produces every non-tautological resolvent of a and b: for each
// complementary literal pair, the union of the remaining literals.
func resolve(a, b clause) []clause {
	var out []clause
	for _, la := range a {
		for _, lb := range b {
			if la.name != lb.name || la.negated == lb.negated {
				continue
			}
			merged := make([]literal, 0, len(a)+len(b)-2)
			for _, l := range a {
				if l != la {
					merged = append(merged, l)
				}
			}
			for _, l := range b {
				if l != lb {
					merged = append(merged, l)
				}
			}
			resolvent := newClause(merged...)
			if !resolvent.tautology() {
				out = append(out, resolvent)
			}
		}
	}
	return out
}

// clausesFromBase converts the knowledge base to conjunctive normal form:
// each fact becomes a unit clause, each rule p1 ∧ … ∧ pn → c becomes
// ¬p1 ∨ … ∨ ¬pn ∨ c. A premise or conclusion literal keeps its polarity,
// so a negated premise ¬p contributes p and a negated conclusion ¬c
// contributes ¬c.
func clausesFromBase(base *kb.KnowledgeBase) []clause {
	var out []clause
	for name, value := range base.Facts() {
		out = append(out, newClause(literal{name: name, negated: !value}))
	}
	for _, r := range base.Rules() {
		lits := make([]literal, 0, len(r.Premises)+1)
		for _, p := range r.Premises {
			lits = append(lits, literal{name: p.Name, negated: p.Value != domain.TruthFalse})
		}
		lits = append(lits, literal{
			name:    r.Conclusion.Name,
			negated: r.Conclusion.Value == domain.TruthFalse,
		})
		out = append(out, newClause(lits...))
	}
	return out
}
