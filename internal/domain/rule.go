package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Rule is a premises-imply-conclusion inference step. A rule with a
// non-empty exception set is defeasible: it never fires while any
// exception holds.
type Rule struct {
	ID            uuid.UUID     `json:"id"`
	Premises      []Proposition `json:"premises"`
	Conclusion    Proposition   `json:"conclusion"`
	Confidence    float64       `json:"confidence"`
	Exceptions    []string      `json:"exceptions,omitempty"`
	Priority      int           `json:"priority"`
	Bidirectional bool          `json:"bidirectional"`
	Applications  int           `json:"applications"`
	LastApplied   *time.Time    `json:"last_applied,omitempty"`
}

func NewRule(premises []Proposition, conclusion Proposition, confidence float64) (*Rule, error) {
	if len(premises) == 0 {
		return nil, fmt.Errorf("%w: rule has no premises", ErrInvalidInput)
	}
	if conclusion.Name == "" {
		return nil, fmt.Errorf("%w: rule has no conclusion", ErrInvalidInput)
	}
	if err := CheckConfidence(confidence); err != nil {
		return nil, err
	}
	return &Rule{
		ID:         uuid.New(),
		Premises:   premises,
		Conclusion: conclusion,
		Confidence: confidence,
	}, nil
}

// MustRule is NewRule for statically known-good rules, mostly in tests.
func MustRule(premises []Proposition, conclusion Proposition, confidence float64) *Rule {
	r, err := NewRule(premises, conclusion, confidence)
	if err != nil {
		panic(err)
	}
	return r
}

// Prop builds a positive proposition literal for rule construction.
func Prop(name string) Proposition {
	return Proposition{Name: name, Value: TruthTrue, Confidence: 1.0}
}

// HasException reports whether name is registered as an exception.
func (r *Rule) HasException(name string) bool {
	for _, e := range r.Exceptions {
		if e == name {
			return true
		}
	}
	return false
}

// Defeasible reports whether the rule carries exceptions.
func (r *Rule) Defeasible() bool {
	return len(r.Exceptions) > 0
}

// MarkApplied bumps the application counter and timestamp after a
// successful firing.
func (r *Rule) MarkApplied(at time.Time) {
	r.Applications++
	r.LastApplied = &at
}

// Reverse returns the reverse form of a bidirectional rule: the conclusion
// becomes the single premise and the premises become conclusions. Only
// single-conclusion reversal is supported, so a rule with n premises reverses
// into n rules.
func (r *Rule) Reverse() []*Rule {
	if !r.Bidirectional {
		return nil
	}
	out := make([]*Rule, 0, len(r.Premises))
	for _, p := range r.Premises {
		rev := &Rule{
			ID:         uuid.New(),
			Premises:   []Proposition{r.Conclusion},
			Conclusion: p,
			Confidence: r.Confidence,
			Priority:   r.Priority,
		}
		out = append(out, rev)
	}
	return out
}

// Render produces the canonical string form used by the snapshot document:
//
//	IF p1 AND p2 THEN c (conf=0.90) [UNLESS e1, e2]
func (r *Rule) Render() string {
	var b strings.Builder
	b.WriteString("IF ")
	for i, p := range r.Premises {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(p.Name)
	}
	b.WriteString(" THEN ")
	b.WriteString(r.Conclusion.Name)
	fmt.Fprintf(&b, " (conf=%.2f)", r.Confidence)
	if len(r.Exceptions) > 0 {
		b.WriteString(" UNLESS ")
		b.WriteString(strings.Join(r.Exceptions, ", "))
	}
	return b.String()
}

// ParseRule parses the Render form back into a Rule. Round-tripping a rule
// through Render/ParseRule preserves premises, conclusion, confidence and
// exceptions; IDs and counters are fresh.
func ParseRule(s string) (*Rule, error) {
	text := strings.TrimSpace(s)
	if !strings.HasPrefix(text, "IF ") {
		return nil, fmt.Errorf("%w: rule %q missing IF", ErrInvalidInput, s)
	}
	text = strings.TrimPrefix(text, "IF ")

	thenIdx := strings.Index(text, " THEN ")
	if thenIdx < 0 {
		return nil, fmt.Errorf("%w: rule %q missing THEN", ErrInvalidInput, s)
	}
	premisePart := text[:thenIdx]
	rest := text[thenIdx+len(" THEN "):]

	var exceptions []string
	if idx := strings.Index(rest, " UNLESS "); idx >= 0 {
		for _, e := range strings.Split(rest[idx+len(" UNLESS "):], ",") {
			if e = strings.TrimSpace(e); e != "" {
				exceptions = append(exceptions, e)
			}
		}
		rest = rest[:idx]
	}

	confidence := 1.0
	if open := strings.LastIndex(rest, "(conf="); open >= 0 {
		close := strings.Index(rest[open:], ")")
		if close < 0 {
			return nil, fmt.Errorf("%w: rule %q has unterminated confidence", ErrInvalidInput, s)
		}
		c, err := strconv.ParseFloat(rest[open+len("(conf="):open+close], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %q confidence: %v", ErrInvalidInput, s, err)
		}
		confidence = c
		rest = strings.TrimSpace(rest[:open])
	}

	conclusion := strings.TrimSpace(rest)
	if conclusion == "" {
		return nil, fmt.Errorf("%w: rule %q has empty conclusion", ErrInvalidInput, s)
	}

	var premises []Proposition
	for _, p := range strings.Split(premisePart, " AND ") {
		if p = strings.TrimSpace(p); p != "" {
			premises = append(premises, Prop(p))
		}
	}

	r, err := NewRule(premises, Prop(conclusion), confidence)
	if err != nil {
		return nil, err
	}
	r.Exceptions = exceptions
	return r, nil
}
