package domain

import (
	"fmt"
	"time"
)

// ConfidenceInterval bounds a probability estimate.
type ConfidenceInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// ProbabilisticFact wraps a proposition with a probability estimate that is
// refined as evidence arrives. Merging two facts about the same proposition
// is an evidence-count-weighted average, which keeps the operation
// associative over evidence weight.
type ProbabilisticFact struct {
	Proposition  Proposition        `json:"proposition"`
	Probability  float64            `json:"probability"`
	Interval     ConfidenceInterval `json:"confidence_interval"`
	EvidenceCount int               `json:"evidence_count"`
	Conditioning map[string]float64 `json:"conditioning_factors,omitempty"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

func NewProbabilisticFact(prop Proposition, probability float64) (*ProbabilisticFact, error) {
	if err := CheckConfidence(probability); err != nil {
		return nil, err
	}
	return &ProbabilisticFact{
		Proposition:   prop,
		Probability:   probability,
		Interval:      intervalFor(probability, 1),
		EvidenceCount: 1,
		UpdatedAt:     time.Now(),
	}, nil
}

// Update folds a new observation into the estimate, weighting the stored
// probability by its accumulated evidence count.
func (f *ProbabilisticFact) Update(observed float64, evidence int) error {
	if err := CheckConfidence(observed); err != nil {
		return err
	}
	if evidence <= 0 {
		return fmt.Errorf("%w: evidence count %d", ErrInvalidInput, evidence)
	}
	total := f.EvidenceCount + evidence
	f.Probability = (f.Probability*float64(f.EvidenceCount) + observed*float64(evidence)) / float64(total)
	f.EvidenceCount = total
	f.Interval = intervalFor(f.Probability, total)
	f.UpdatedAt = time.Now()
	return nil
}

// Merge combines another fact about the same proposition into this one.
func (f *ProbabilisticFact) Merge(other *ProbabilisticFact) error {
	if other.Proposition.Name != f.Proposition.Name {
		return fmt.Errorf("%w: cannot merge facts for %q and %q",
			ErrInvalidInput, f.Proposition.Name, other.Proposition.Name)
	}
	if err := f.Update(other.Probability, other.EvidenceCount); err != nil {
		return err
	}
	for k, v := range other.Conditioning {
		if f.Conditioning == nil {
			f.Conditioning = make(map[string]float64)
		}
		f.Conditioning[k] = v
	}
	return nil
}

// intervalFor is a normal-approximation interval that tightens as evidence
// accumulates. It is a heuristic width, not a calibrated guarantee.
func intervalFor(p float64, evidence int) ConfidenceInterval {
	width := 1.0 / float64(evidence+1)
	lower := p - width
	if lower < 0 {
		lower = 0
	}
	upper := p + width
	if upper > 1 {
		upper = 1
	}
	return ConfidenceInterval{Lower: lower, Upper: upper}
}
