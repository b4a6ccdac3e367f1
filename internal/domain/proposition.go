package domain

import (
	"fmt"
	"time"
)

// TruthValue is the three-valued result of a knowledge base query.
type TruthValue string

const (
	TruthTrue    TruthValue = "true"
	TruthFalse   TruthValue = "false"
	TruthUnknown TruthValue = "unknown"
)

func ValidTruthValue(v string) bool {
	switch TruthValue(v) {
	case TruthTrue, TruthFalse, TruthUnknown:
		return true
	}
	return false
}

// TruthOf converts a stored boolean fact to a TruthValue.
func TruthOf(b bool) TruthValue {
	if b {
		return TruthTrue
	}
	return TruthFalse
}

// Proposition is a named boolean statement with a confidence score.
// The name is its identity and never changes; value and confidence are
// updated through SetValue so the confidence bound holds at every point.
type Proposition struct {
	Name         string         `json:"name"`
	Value        TruthValue     `json:"value"`
	Confidence   float64        `json:"confidence"`
	ValidFrom    *time.Time     `json:"valid_from,omitempty"`
	ValidUntil   *time.Time     `json:"valid_until,omitempty"`
	Dependencies []string       `json:"dependencies,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

func NewProposition(name string, value TruthValue, confidence float64) (*Proposition, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: proposition name is empty", ErrInvalidInput)
	}
	if !ValidTruthValue(string(value)) {
		return nil, fmt.Errorf("%w: truth value %q", ErrInvalidInput, value)
	}
	if err := CheckConfidence(confidence); err != nil {
		return nil, err
	}
	return &Proposition{
		Name:       name,
		Value:      value,
		Confidence: confidence,
		CreatedAt:  time.Now(),
	}, nil
}

// SetValue updates the truth value and confidence. The name is immutable;
// callers needing a differently named statement create a new Proposition.
func (p *Proposition) SetValue(value TruthValue, confidence float64) error {
	if !ValidTruthValue(string(value)) {
		return fmt.Errorf("%w: truth value %q", ErrInvalidInput, value)
	}
	if err := CheckConfidence(confidence); err != nil {
		return err
	}
	p.Value = value
	p.Confidence = confidence
	return nil
}

// ValidAt reports whether the proposition's temporal window covers t.
// A nil boundary is open-ended.
func (p *Proposition) ValidAt(t time.Time) bool {
	if p.ValidFrom != nil && t.Before(*p.ValidFrom) {
		return false
	}
	if p.ValidUntil != nil && t.After(*p.ValidUntil) {
		return false
	}
	return true
}

// DependsOn records a dependency on another proposition by name.
// Duplicates are ignored.
func (p *Proposition) DependsOn(name string) {
	for _, d := range p.Dependencies {
		if d == name {
			return
		}
	}
	p.Dependencies = append(p.Dependencies, name)
}

// CheckConfidence validates a confidence or probability score.
func CheckConfidence(c float64) error {
	if c < 0 || c > 1 {
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrInvalidInput, c)
	}
	return nil
}
