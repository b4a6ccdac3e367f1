package reason

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/syllog-ai/syllog/internal/domain"
)

func TestResolver_ProvesEntailedGoal(t *testing.T) {
	base := testBase(t)
	require.NoError(t, base.AddFact("a", true))
	require.NoError(t, base.AddRule(domain.MustRule(
		[]domain.Proposition{domain.Prop("a")}, domain.Prop("b"), 1.0)))

	r := NewResolver(zap.NewNop())
	goal := domain.Prop("b")
	result, err := r.Reason(context.Background(), base, &goal)
	require.NoError(t, err)

	assert.True(t, result.Proved)
	assert.NotEmpty(t, result.Trace.ResolutionSteps)
}

func TestResolver_RejectsUnrelatedGoal(t *testing.T) {
	base := testBase(t)
	require.NoError(t, base.AddFact("a", true))
	require.NoError(t, base.AddRule(domain.MustRule(
		[]domain.Proposition{domain.Prop("a")}, domain.Prop("b"), 1.0)))

	r := NewResolver(zap.NewNop())
	goal := domain.Prop("c")
	result, err := r.Reason(context.Background(), base, &goal)
	require.NoError(t, err)
	assert.False(t, result.Proved)
}

func TestResolver_MultiPremise(t *testing.T) {
	base := testBase(t)
	require.NoError(t, base.AddFact("p", true))
	require.NoError(t, base.AddFact("q", true))
	require.NoError(t, base.AddRule(domain.MustRule(
		[]domain.Proposition{domain.Prop("p"), domain.Prop("q")}, domain.Prop("r"), 1.0)))

	res := NewResolver(zap.NewNop())
	goal := domain.Prop("r")
	result, err := res.Reason(context.Background(), base, &goal)
	require.NoError(t, err)
	assert.True(t, result.Proved)
}

func TestResolver_NegatedPremise(t *testing.T) {
	base := testBase(t)
	require.NoError(t, base.AddFact("sheltered", false))
	require.NoError(t, base.AddRule(domain.MustRule(
		[]domain.Proposition{{Name: "sheltered", Value: domain.TruthFalse, Confidence: 1.0}},
		domain.Prop("exposed"), 1.0)))

	r := NewResolver(zap.NewNop())
	goal := domain.Prop("exposed")
	result, err := r.Reason(context.Background(), base, &goal)
	require.NoError(t, err)
	assert.True(t, result.Proved)
}

func TestResolver_NegatedConclusion(t *testing.T) {
	base := testBase(t)
	require.NoError(t, base.AddFact("power_out", true))
	require.NoError(t, base.AddRule(domain.MustRule(
		[]domain.Proposition{domain.Prop("power_out")},
		domain.Proposition{Name: "lights_on", Value: domain.TruthFalse, Confidence: 1.0}, 1.0)))

	r := NewResolver(zap.NewNop())

	negGoal := domain.Proposition{Name: "lights_on", Value: domain.TruthFalse, Confidence: 1.0}
	result, err := r.Reason(context.Background(), base, &negGoal)
	require.NoError(t, err)
	assert.True(t, result.Proved)

	goal := domain.Prop("lights_on")
	result, err = NewResolver(zap.NewNop()).Reason(context.Background(), base, &goal)
	require.NoError(t, err)
	assert.False(t, result.Proved)
}

func TestResolver_MissingGoal(t *testing.T) {
	r := NewResolver(zap.NewNop())
	_, err := r.Reason(context.Background(), testBase(t), nil)
	assert.ErrorIs(t, err, domain.ErrMissingGoal)
}

func TestClause_Resolve(t *testing.T) {
	a := newClause(literal{name: "p"}, literal{name: "q"})
	b := newClause(literal{name: "p", negated: true})

	resolvents := resolve(a, b)
	require.Len(t, resolvents, 1)
	assert.Equal(t, "q", resolvents[0].key())
}

func TestClause_TautologySkipped(t *testing.T) {
	a := newClause(literal{name: "p"}, literal{name: "q"})
	b := newClause(literal{name: "p", negated: true}, literal{name: "q", negated: true})

	// Both resolvents (q ∨ ¬q) and (p ∨ ¬p) are tautologies.
	assert.Empty(t, resolve(a, b))
}

func TestClause_Subsumes(t *testing.T) {
	small := newClause(literal{name: "p"})
	big := newClause(literal{name: "p"}, literal{name: "q"})

	assert.True(t, small.subsumes(big))
	assert.False(t, big.subsumes(small))
}
