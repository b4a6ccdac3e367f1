package reason

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/syllog-ai/syllog/internal/domain"
	"github.com/syllog-ai/syllog/internal/kb"
)

func testBase(t *testing.T) *kb.KnowledgeBase {
	t.Helper()
	return kb.New(zap.NewNop())
}

func TestForwardChainer_DerivesChain(t *testing.T) {
	base := testBase(t)
	require.NoError(t, base.AddFact("rain", true))
	require.NoError(t, base.AddRule(domain.MustRule(
		[]domain.Proposition{domain.Prop("rain")}, domain.Prop("wet_ground"), 0.9)))
	require.NoError(t, base.AddRule(domain.MustRule(
		[]domain.Proposition{domain.Prop("wet_ground")}, domain.Prop("slippery"), 0.8)))

	f := NewForwardChainer(zap.NewNop())
	result, err := f.Reason(context.Background(), base, nil)
	require.NoError(t, err)

	assert.Len(t, result.Derived, 2)
	v, known := base.FactValue("wet_ground")
	assert.True(t, known)
	assert.True(t, v)
	v, known = base.FactValue("slippery")
	assert.True(t, known)
	assert.True(t, v)

	value, confidence := base.Query("wet_ground")
	assert.Equal(t, domain.TruthTrue, value)
	assert.Equal(t, 1.0, confidence)
}

func TestForwardChainer_Idempotent(t *testing.T) {
	base := testBase(t)
	require.NoError(t, base.AddFact("rain", true))
	require.NoError(t, base.AddRule(domain.MustRule(
		[]domain.Proposition{domain.Prop("rain")}, domain.Prop("wet_ground"), 0.9)))

	f := NewForwardChainer(zap.NewNop())
	first, err := f.Reason(context.Background(), base, nil)
	require.NoError(t, err)
	require.Len(t, first.Derived, 1)

	second, err := f.Reason(context.Background(), base, nil)
	require.NoError(t, err)
	assert.Empty(t, second.Derived, "second run must not re-derive")
}

func TestForwardChainer_GoalShortCircuit(t *testing.T) {
	base := testBase(t)
	require.NoError(t, base.AddFact("a", true))
	require.NoError(t, base.AddRule(domain.MustRule(
		[]domain.Proposition{domain.Prop("a")}, domain.Prop("b"), 1.0)))
	require.NoError(t, base.AddRule(domain.MustRule(
		[]domain.Proposition{domain.Prop("b")}, domain.Prop("c"), 1.0)))

	f := NewForwardChainer(zap.NewNop())
	goal := domain.Prop("b")
	result, err := f.Reason(context.Background(), base, &goal)
	require.NoError(t, err)
	assert.True(t, result.Proved)
}

func TestForwardChainer_NegatedConclusion(t *testing.T) {
	base := testBase(t)
	require.NoError(t, base.AddFact("power_out", true))
	r := domain.MustRule([]domain.Proposition{domain.Prop("power_out")},
		domain.Proposition{Name: "lights_on", Value: domain.TruthFalse, Confidence: 1.0}, 1.0)
	require.NoError(t, base.AddRule(r))

	f := NewForwardChainer(zap.NewNop())
	_, err := f.Reason(context.Background(), base, nil)
	require.NoError(t, err)

	v, known := base.FactValue("lights_on")
	assert.True(t, known)
	assert.False(t, v)
}

func TestForwardChainer_IterationLimit(t *testing.T) {
	base := testBase(t)
	require.NoError(t, base.AddFact("p0", true))
	for i := 0; i < 5; i++ {
		require.NoError(t, base.AddRule(domain.MustRule(
			[]domain.Proposition{domain.Prop(fmt.Sprintf("p%d", i))},
			domain.Prop(fmt.Sprintf("p%d", i+1)), 1.0)))
	}

	f := NewForwardChainer(zap.NewNop())
	f.MaxIterations = 1

	_, err := f.Reason(context.Background(), base, nil)
	var limit *domain.LimitError
	require.ErrorAs(t, err, &limit)
	assert.Equal(t, domain.LimitIterations, limit.Kind)
}

func TestForwardChainer_ContextCancel(t *testing.T) {
	base := testBase(t)
	require.NoError(t, base.AddFact("a", true))
	require.NoError(t, base.AddRule(domain.MustRule(
		[]domain.Proposition{domain.Prop("a")}, domain.Prop("b"), 1.0)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewForwardChainer(zap.NewNop())
	_, err := f.Reason(ctx, base, nil)
	assert.True(t, errors.Is(err, context.Canceled))
}
