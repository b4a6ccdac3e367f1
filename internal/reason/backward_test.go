package reason

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/syllog-ai/syllog/internal/domain"
	"github.com/syllog-ai/syllog/internal/kb"
)

func TestBackwardChainer_ProvesChain(t *testing.T) {
	base := testBase(t)
	require.NoError(t, base.AddFact("rain", true))
	require.NoError(t, base.AddRule(domain.MustRule(
		[]domain.Proposition{domain.Prop("rain")}, domain.Prop("wet_ground"), 0.9)))
	require.NoError(t, base.AddRule(domain.MustRule(
		[]domain.Proposition{domain.Prop("wet_ground")}, domain.Prop("slippery"), 0.8)))

	b := NewBackwardChainer(zap.NewNop())
	goal := domain.Prop("slippery")
	result, err := b.Reason(context.Background(), base, &goal)
	require.NoError(t, err)

	assert.True(t, result.Proved)
	assert.NotEmpty(t, result.Trace.ProofTrace)
}

func TestBackwardChainer_UnprovableGoal(t *testing.T) {
	base := testBase(t)
	require.NoError(t, base.AddFact("rain", true))

	b := NewBackwardChainer(zap.NewNop())
	goal := domain.Prop("snow")
	result, err := b.Reason(context.Background(), base, &goal)
	require.NoError(t, err)
	assert.False(t, result.Proved)
}

func TestBackwardChainer_MissingGoal(t *testing.T) {
	b := NewBackwardChainer(zap.NewNop())
	_, err := b.Reason(context.Background(), testBase(t), nil)
	assert.ErrorIs(t, err, domain.ErrMissingGoal)
}

func TestBackwardChainer_MemoizesProof(t *testing.T) {
	base := testBase(t)
	require.NoError(t, base.AddFact("a", true))
	require.NoError(t, base.AddRule(domain.MustRule(
		[]domain.Proposition{domain.Prop("a")}, domain.Prop("b"), 1.0)))

	b := NewBackwardChainer(zap.NewNop())
	goal := domain.Prop("b")

	first, err := b.Reason(context.Background(), base, &goal)
	require.NoError(t, err)
	require.True(t, first.Proved)
	assert.False(t, first.Trace.CacheHit)

	second, err := b.Reason(context.Background(), base, &goal)
	require.NoError(t, err)
	assert.True(t, second.Proved)
	assert.True(t, second.Trace.CacheHit)
}

func TestBackwardChainer_MemoInvalidatedByWrite(t *testing.T) {
	base := testBase(t)
	require.NoError(t, base.AddFact("a", true))
	require.NoError(t, base.AddRule(domain.MustRule(
		[]domain.Proposition{domain.Prop("a")}, domain.Prop("b"), 1.0)))

	b := NewBackwardChainer(zap.NewNop())
	goal := domain.Prop("b")
	_, err := b.Reason(context.Background(), base, &goal)
	require.NoError(t, err)

	require.NoError(t, base.AddFact("unrelated", true))

	result, err := b.Reason(context.Background(), base, &goal)
	require.NoError(t, err)
	assert.True(t, result.Proved)
	assert.False(t, result.Trace.CacheHit, "version bump must key fresh memo entries")
}

func TestBackwardChainer_RecursionLimit(t *testing.T) {
	base := testBase(t)
	require.NoError(t, base.AddRule(domain.MustRule(
		[]domain.Proposition{domain.Prop("x1")}, domain.Prop("x2"), 1.0)))
	require.NoError(t, base.AddRule(domain.MustRule(
		[]domain.Proposition{domain.Prop("x0")}, domain.Prop("x1"), 1.0)))

	b := NewBackwardChainer(zap.NewNop())
	b.MaxRecursionDepth = 1

	goal := domain.Prop("x2")
	_, err := b.Reason(context.Background(), base, &goal)
	var limit *domain.LimitError
	require.ErrorAs(t, err, &limit)
	assert.Equal(t, domain.LimitRecursion, limit.Kind)
}

// Forward and backward chaining must agree on what is derivable.
func TestBackwardChainer_NegatedPremise(t *testing.T) {
	build := func(t *testing.T, closed bool) *kb.KnowledgeBase {
		base := testBase(t)
		require.NoError(t, base.AddFact("door_closed", closed))
		require.NoError(t, base.AddRule(domain.MustRule(
			[]domain.Proposition{{Name: "door_closed", Value: domain.TruthFalse, Confidence: 1.0}},
			domain.Prop("draft"), 1.0)))
		return base
	}

	b := NewBackwardChainer(zap.NewNop())
	goal := domain.Prop("draft")

	result, err := b.Reason(context.Background(), build(t, false), &goal)
	require.NoError(t, err)
	assert.True(t, result.Proved)
	assert.Contains(t, result.Trace.ProofTrace, "fact: ¬door_closed")

	result, err = NewBackwardChainer(zap.NewNop()).Reason(context.Background(), build(t, true), &goal)
	require.NoError(t, err)
	assert.False(t, result.Proved)
}

func TestBackwardChainer_NegatedConclusionRuleNotMisused(t *testing.T) {
	base := testBase(t)
	require.NoError(t, base.AddFact("power_out", true))
	require.NoError(t, base.AddRule(domain.MustRule(
		[]domain.Proposition{domain.Prop("power_out")},
		domain.Proposition{Name: "lights_on", Value: domain.TruthFalse, Confidence: 1.0}, 1.0)))

	b := NewBackwardChainer(zap.NewNop())

	// The rule concludes ¬lights_on, so it must not prove lights_on.
	goal := domain.Prop("lights_on")
	result, err := b.Reason(context.Background(), base, &goal)
	require.NoError(t, err)
	assert.False(t, result.Proved)

	// Seeking the negation succeeds through the same rule.
	negGoal := domain.Proposition{Name: "lights_on", Value: domain.TruthFalse, Confidence: 1.0}
	result, err = b.Reason(context.Background(), base, &negGoal)
	require.NoError(t, err)
	assert.True(t, result.Proved)
}

func TestChaining_ForwardBackwardAgree(t *testing.T) {
	build := func(t *testing.T) *kb.KnowledgeBase {
		base := testBase(t)
		require.NoError(t, base.AddFact("has_fur", true))
		require.NoError(t, base.AddFact("gives_milk", true))
		require.NoError(t, base.AddRule(domain.MustRule(
			[]domain.Proposition{domain.Prop("has_fur"), domain.Prop("gives_milk")},
			domain.Prop("mammal"), 0.95)))
		require.NoError(t, base.AddRule(domain.MustRule(
			[]domain.Proposition{domain.Prop("mammal")}, domain.Prop("vertebrate"), 0.99)))
		return base
	}

	for _, goalName := range []string{"mammal", "vertebrate", "reptile"} {
		goal := domain.Prop(goalName)

		fwd, err := NewForwardChainer(zap.NewNop()).Reason(context.Background(), build(t), &goal)
		require.NoError(t, err)

		bwd, err := NewBackwardChainer(zap.NewNop()).Reason(context.Background(), build(t), &goal)
		require.NoError(t, err)

		assert.Equal(t, fwd.Proved, bwd.Proved, "goal %s", goalName)
	}
}

func TestChaining_NegatedPremiseAgreement(t *testing.T) {
	build := func(t *testing.T) *kb.KnowledgeBase {
		base := testBase(t)
		require.NoError(t, base.AddFact("sheltered", false))
		require.NoError(t, base.AddRule(domain.MustRule(
			[]domain.Proposition{{Name: "sheltered", Value: domain.TruthFalse, Confidence: 1.0}},
			domain.Prop("exposed"), 1.0)))
		return base
	}
	goal := domain.Prop("exposed")

	fwd, err := NewForwardChainer(zap.NewNop()).Reason(context.Background(), build(t), &goal)
	require.NoError(t, err)
	require.True(t, fwd.Proved)

	bwd, err := NewBackwardChainer(zap.NewNop()).Reason(context.Background(), build(t), &goal)
	require.NoError(t, err)
	assert.Equal(t, fwd.Proved, bwd.Proved)

	res, err := NewResolver(zap.NewNop()).Reason(context.Background(), build(t), &goal)
	require.NoError(t, err)
	assert.Equal(t, fwd.Proved, res.Proved)
}
