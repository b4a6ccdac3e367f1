package reason

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/syllog-ai/syllog/internal/domain"
)

func analogyGoal(attrs map[string]any) *domain.Proposition {
	return &domain.Proposition{
		Name:     "target",
		Value:    domain.TruthUnknown,
		Metadata: map[string]any{"attributes": attrs},
	}
}

func mustCase(t *testing.T, name string, attrs map[string]any, outcome string) *domain.Case {
	t.Helper()
	c, err := domain.NewCase(name, attrs)
	require.NoError(t, err)
	c.Outcome = outcome
	return c
}

func TestAnalogizer_RetrievesNearestCase(t *testing.T) {
	base := testBase(t)
	base.AddCase(mustCase(t, "tiger", map[string]any{"legs": 4, "fur": true, "wild": true}, "predator"))
	base.AddCase(mustCase(t, "cow", map[string]any{"legs": 4, "fur": true, "wild": false}, "livestock"))

	a := NewAnalogizer(zap.NewNop())
	goal := analogyGoal(map[string]any{"legs": 4, "fur": true, "wild": true})
	result, err := a.Reason(context.Background(), base, goal)
	require.NoError(t, err)

	assert.Equal(t, "tiger", result.Adapted["source_case"])
	assert.Equal(t, "predator", result.Adapted["outcome"])
	assert.Equal(t, 1.0, result.Adapted["similarity"])
}

func TestAnalogizer_ThresholdYieldsEmpty(t *testing.T) {
	base := testBase(t)
	base.AddCase(mustCase(t, "fish", map[string]any{"fins": true, "gills": true}, "aquatic"))

	a := NewAnalogizer(zap.NewNop())
	goal := analogyGoal(map[string]any{"legs": 4, "fur": true})
	result, err := a.Reason(context.Background(), base, goal)
	require.NoError(t, err)
	assert.Empty(t, result.Adapted)
}

func TestAnalogizer_TieYieldsEmpty(t *testing.T) {
	base := testBase(t)
	base.AddCase(mustCase(t, "first", map[string]any{"a": 1, "b": 2}, "x"))
	base.AddCase(mustCase(t, "second", map[string]any{"a": 1, "c": 3}, "y"))

	a := NewAnalogizer(zap.NewNop())
	goal := analogyGoal(map[string]any{"a": 1})
	result, err := a.Reason(context.Background(), base, goal)
	require.NoError(t, err)
	assert.Empty(t, result.Adapted, "ambiguous retrieval must not guess")
}

func TestAnalogizer_AttributeWeights(t *testing.T) {
	base := testBase(t)
	base.AddCase(mustCase(t, "heavy", map[string]any{"color": "red", "size": "large"}, "a"))
	base.AddCase(mustCase(t, "light", map[string]any{"color": "blue", "size": "large"}, "b"))

	a := NewAnalogizer(zap.NewNop())
	a.AttributeWeights = map[string]float64{"color": 3, "size": 1}

	goal := analogyGoal(map[string]any{"color": "red", "size": "small"})
	result, err := a.Reason(context.Background(), base, goal)
	require.NoError(t, err)
	assert.Equal(t, "heavy", result.Adapted["source_case"], "weighted color match dominates")
}

func TestAnalogizer_TransfersOnlyMissingAttributes(t *testing.T) {
	base := testBase(t)
	base.AddCase(mustCase(t, "tiger",
		map[string]any{"legs": 4, "fur": true, "color": "white", "habitat": "jungle"}, "predator"))

	a := NewAnalogizer(zap.NewNop())
	goal := analogyGoal(map[string]any{"legs": 4, "fur": true, "color": "orange"})
	result, err := a.Reason(context.Background(), base, goal)
	require.NoError(t, err)

	assert.Equal(t, "jungle", result.Adapted["habitat"], "absent attribute transfers from the source")
	assert.Equal(t, "orange", result.Adapted["color"], "target attribute is not overwritten")
	assert.Equal(t, 4, result.Adapted["legs"])
}

func TestAnalogizer_AdapterChain(t *testing.T) {
	base := testBase(t)
	base.AddCase(mustCase(t, "recipe", map[string]any{"servings": 2, "dish": "soup"}, "dinner"))

	a := NewAnalogizer(zap.NewNop())
	a.AddAdapter(func(adapted, target map[string]any) map[string]any {
		if s, ok := target["servings"]; ok {
			adapted["servings"] = s
		}
		return adapted
	})

	goal := analogyGoal(map[string]any{"servings": 4, "dish": "soup"})
	result, err := a.Reason(context.Background(), base, goal)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Adapted["servings"])
}

func TestAnalogizer_NoCases(t *testing.T) {
	a := NewAnalogizer(zap.NewNop())
	result, err := a.Reason(context.Background(), testBase(t), analogyGoal(map[string]any{"a": 1}))
	require.NoError(t, err)
	assert.Empty(t, result.Adapted)
}

func TestAnalogizer_GoalValidation(t *testing.T) {
	a := NewAnalogizer(zap.NewNop())

	_, err := a.Reason(context.Background(), testBase(t), nil)
	assert.ErrorIs(t, err, domain.ErrMissingGoal)

	bare := domain.Prop("no_metadata")
	_, err = a.Reason(context.Background(), testBase(t), &bare)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
