package reason

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/syllog-ai/syllog/internal/domain"
)

func TestAbducer_RanksSimplerExplanationsFirst(t *testing.T) {
	base := testBase(t)
	require.NoError(t, base.AddRule(domain.MustRule(
		[]domain.Proposition{domain.Prop("rain")}, domain.Prop("wet_ground"), 0.9)))
	require.NoError(t, base.AddRule(domain.MustRule(
		[]domain.Proposition{domain.Prop("sprinkler"), domain.Prop("morning")},
		domain.Prop("wet_ground"), 0.9)))

	a := NewAbducer(zap.NewNop())
	goal := domain.Prop("wet_ground")
	result, err := a.Reason(context.Background(), base, &goal)
	require.NoError(t, err)

	require.Len(t, result.Explanations, 2)
	assert.Equal(t, []string{"rain"}, result.Explanations[0].Propositions)
	assert.Greater(t, result.Explanations[0].Score, result.Explanations[1].Score)
}

func TestAbducer_RejectsContradictedHypothesis(t *testing.T) {
	base := testBase(t)
	require.NoError(t, base.AddFact("rain", false))
	require.NoError(t, base.AddRule(domain.MustRule(
		[]domain.Proposition{domain.Prop("rain")}, domain.Prop("wet_ground"), 0.9)))
	require.NoError(t, base.AddRule(domain.MustRule(
		[]domain.Proposition{domain.Prop("sprinkler")}, domain.Prop("wet_ground"), 0.8)))

	a := NewAbducer(zap.NewNop())
	goal := domain.Prop("wet_ground")
	result, err := a.Reason(context.Background(), base, &goal)
	require.NoError(t, err)

	require.Len(t, result.Explanations, 1)
	assert.Equal(t, []string{"sprinkler"}, result.Explanations[0].Propositions)
}

func TestAbducer_SubsetSubsumesSuperset(t *testing.T) {
	base := testBase(t)
	require.NoError(t, base.AddRule(domain.MustRule(
		[]domain.Proposition{domain.Prop("rain")}, domain.Prop("wet_ground"), 0.9)))
	require.NoError(t, base.AddRule(domain.MustRule(
		[]domain.Proposition{domain.Prop("rain"), domain.Prop("night")},
		domain.Prop("wet_ground"), 0.9)))

	a := NewAbducer(zap.NewNop())
	goal := domain.Prop("wet_ground")
	result, err := a.Reason(context.Background(), base, &goal)
	require.NoError(t, err)

	require.Len(t, result.Explanations, 1)
	assert.Equal(t, []string{"rain"}, result.Explanations[0].Propositions)
}

func TestAbducer_MaxExplanations(t *testing.T) {
	base := testBase(t)
	for _, cause := range []string{"c1", "c2", "c3"} {
		require.NoError(t, base.AddRule(domain.MustRule(
			[]domain.Proposition{domain.Prop(cause)}, domain.Prop("effect"), 0.7)))
	}

	a := NewAbducer(zap.NewNop())
	a.MaxExplanations = 2

	goal := domain.Prop("effect")
	result, err := a.Reason(context.Background(), base, &goal)
	require.NoError(t, err)
	assert.Len(t, result.Explanations, 2)
}

func TestAbducer_CachesByVersion(t *testing.T) {
	base := testBase(t)
	require.NoError(t, base.AddRule(domain.MustRule(
		[]domain.Proposition{domain.Prop("rain")}, domain.Prop("wet_ground"), 0.9)))

	a := NewAbducer(zap.NewNop())
	goal := domain.Prop("wet_ground")

	first, err := a.Reason(context.Background(), base, &goal)
	require.NoError(t, err)
	require.False(t, first.Trace.CacheHit)

	second, err := a.Reason(context.Background(), base, &goal)
	require.NoError(t, err)
	assert.True(t, second.Trace.CacheHit)

	require.NoError(t, base.AddFact("rain", true))
	third, err := a.Reason(context.Background(), base, &goal)
	require.NoError(t, err)
	assert.False(t, third.Trace.CacheHit)
	assert.Empty(t, third.Explanations, "known premise leaves nothing to assume")
}

func TestAbducer_ExcludesKnownPremises(t *testing.T) {
	base := testBase(t)
	require.NoError(t, base.AddFact("smoke", true))
	require.NoError(t, base.AddRule(domain.MustRule(
		[]domain.Proposition{domain.Prop("smoke"), domain.Prop("dry_season")},
		domain.Prop("fire"), 0.9)))

	a := NewAbducer(zap.NewNop())
	goal := domain.Prop("fire")
	result, err := a.Reason(context.Background(), base, &goal)
	require.NoError(t, err)

	require.Len(t, result.Explanations, 1)
	assert.Equal(t, []string{"dry_season"}, result.Explanations[0].Propositions)
}

func TestAbducer_RelevanceIsLexicalOverlap(t *testing.T) {
	base := testBase(t)
	require.NoError(t, base.AddRule(domain.MustRule(
		[]domain.Proposition{domain.Prop("engine_overheat")}, domain.Prop("engine_failure"), 0.8)))
	require.NoError(t, base.AddRule(domain.MustRule(
		[]domain.Proposition{domain.Prop("bird_strike")}, domain.Prop("engine_failure"), 0.8)))

	a := NewAbducer(zap.NewNop())
	goal := domain.Prop("engine_failure")
	result, err := a.Reason(context.Background(), base, &goal)
	require.NoError(t, err)

	require.Len(t, result.Explanations, 2)
	assert.Equal(t, []string{"engine_overheat"}, result.Explanations[0].Propositions)
	assert.Equal(t, 0.5, result.Explanations[0].Relevance)
	assert.Equal(t, 0.0, result.Explanations[1].Relevance)
}

func TestAbducer_ConsistencyCountsContradictedPremises(t *testing.T) {
	base := testBase(t)
	require.NoError(t, base.AddFact("power_on", false))
	require.NoError(t, base.AddRule(domain.MustRule(
		[]domain.Proposition{domain.Prop("power_on"), domain.Prop("lamp_lit")},
		domain.Prop("room_bright"), 0.9)))

	a := NewAbducer(zap.NewNop())
	goal := domain.Prop("room_bright")
	result, err := a.Reason(context.Background(), base, &goal)
	require.NoError(t, err)

	require.Len(t, result.Explanations, 1)
	assert.Equal(t, []string{"lamp_lit"}, result.Explanations[0].Propositions)
	assert.Equal(t, 0.5, result.Explanations[0].Consistency)
}

func TestAbducer_MissingGoal(t *testing.T) {
	a := NewAbducer(zap.NewNop())
	_, err := a.Reason(context.Background(), testBase(t), nil)
	assert.ErrorIs(t, err, domain.ErrMissingGoal)
}
