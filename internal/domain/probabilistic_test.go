package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbabilisticFact_UpdateWeightsByEvidence(t *testing.T) {
	f, err := NewProbabilisticFact(Prop("storm"), 0.8)
	require.NoError(t, err)
	require.Equal(t, 1, f.EvidenceCount)

	// One observation each side averages evenly.
	require.NoError(t, f.Update(0.4, 1))
	assert.InDelta(t, 0.6, f.Probability, 1e-9)
	assert.Equal(t, 2, f.EvidenceCount)

	// Heavier evidence pulls harder: (0.6*2 + 0.9*6) / 8.
	require.NoError(t, f.Update(0.9, 6))
	assert.InDelta(t, 0.825, f.Probability, 1e-9)
	assert.Equal(t, 8, f.EvidenceCount)
}

func TestProbabilisticFact_UpdateValidation(t *testing.T) {
	f, err := NewProbabilisticFact(Prop("storm"), 0.5)
	require.NoError(t, err)

	assert.ErrorIs(t, f.Update(1.5, 1), ErrInvalidInput)
	assert.ErrorIs(t, f.Update(0.5, 0), ErrInvalidInput)
}

func TestProbabilisticFact_IntervalTightensWithEvidence(t *testing.T) {
	f, err := NewProbabilisticFact(Prop("storm"), 0.5)
	require.NoError(t, err)

	wide := f.Interval.Upper - f.Interval.Lower
	require.NoError(t, f.Update(0.5, 10))
	narrow := f.Interval.Upper - f.Interval.Lower

	assert.Less(t, narrow, wide)
	assert.GreaterOrEqual(t, f.Interval.Lower, 0.0)
	assert.LessOrEqual(t, f.Interval.Upper, 1.0)
}

func TestProbabilisticFact_MergeRejectsDifferentNames(t *testing.T) {
	a, err := NewProbabilisticFact(Prop("storm"), 0.5)
	require.NoError(t, err)
	b, err := NewProbabilisticFact(Prop("flood"), 0.5)
	require.NoError(t, err)

	assert.ErrorIs(t, a.Merge(b), ErrInvalidInput)
}

func TestProbabilisticFact_MergeCombinesConditioning(t *testing.T) {
	a, err := NewProbabilisticFact(Prop("storm"), 0.6)
	require.NoError(t, err)
	b, err := NewProbabilisticFact(Prop("storm"), 0.8)
	require.NoError(t, err)
	b.Conditioning = map[string]float64{"season": 1.2}

	require.NoError(t, a.Merge(b))
	assert.InDelta(t, 0.7, a.Probability, 1e-9)
	assert.Equal(t, 1.2, a.Conditioning["season"])
}
