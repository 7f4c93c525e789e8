package components

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseCurve_LinearFalloff(t *testing.T) {
	c := LinearFalloff()
	assert.Equal(t, 1.0, c.Evaluate(0))
	assert.InDelta(t, 0.5, c.Evaluate(0.5), 1e-12)
	assert.Equal(t, 0.0, c.Evaluate(1))

	// Out of domain inputs are clamped.
	assert.Equal(t, 1.0, c.Evaluate(-3))
	assert.Equal(t, 0.0, c.Evaluate(7))
	assert.Equal(t, 0.0, c.Evaluate(math.NaN()))
}

func TestResponseCurve_SmoothIsMonotone(t *testing.T) {
	c, err := NewResponseCurve([]CurveKey{{0, 1}, {0.3, 0.9}, {0.7, 0.4}, {1, 0}}, true)
	require.NoError(t, err)

	prev := c.Evaluate(0)
	for x := 0.01; x <= 1; x += 0.01 {
		y := c.Evaluate(x)
		require.LessOrEqual(t, y, prev+1e-12, "x=%.2f", x)
		require.GreaterOrEqual(t, y, 0.0)
		prev = y
	}
}

func TestNewResponseCurve_Rejects(t *testing.T) {
	tests := []struct {
		name string
		keys []CurveKey
	}{
		{"too few", []CurveKey{{0, 1}}},
		{"x not increasing", []CurveKey{{0, 1}, {0.5, 0.5}, {0.5, 0.2}}},
		{"x outside domain", []CurveKey{{0, 1}, {1.5, 0}}},
		{"y outside range", []CurveKey{{0, 1.2}, {1, 0}}},
		{"y increasing", []CurveKey{{0, 0.2}, {1, 0.8}}},
		{"nan", []CurveKey{{0, math.NaN()}, {1, 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewResponseCurve(tt.keys, false)
			assert.ErrorIs(t, err, ErrMalformedCurve)
		})
	}
}

func TestResponseCurve_KeysCopy(t *testing.T) {
	c := LinearFalloff()
	keys := c.Keys()
	keys[0].Y = 0
	assert.Equal(t, 1.0, c.Evaluate(0))
}

func TestMotorConfig_Validate(t *testing.T) {
	cfg := DefaultMotorConfig()
	require.NoError(t, cfg.Validate())

	cfg.Curve = nil
	assert.ErrorIs(t, cfg.Validate(), ErrMalformedCurve)

	cfg = DefaultMotorConfig()
	cfg.MinGearRatio = 30
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidMotorConfig)
}

func TestMotorConfig_ClampGear(t *testing.T) {
	cfg := DefaultMotorConfig()
	assert.Equal(t, 0.25, cfg.ClampGear(0))
	assert.Equal(t, 20.0, cfg.ClampGear(99))
	assert.Equal(t, 4.0, cfg.ClampGear(4))
}

func TestWheelState_Labels(t *testing.T) {
	for i, name := range WheelStateNames() {
		s, err := ParseWheelState(name)
		require.NoError(t, err)
		assert.Equal(t, WheelState(i), s)
		assert.Equal(t, name, s.String())
	}
	assert.Equal(t, "Operational", StateRetracting.Status())
	assert.Equal(t, "Broken", StateBroken.Status())
	assert.True(t, StateDeployed.CanOutput())
	assert.False(t, StateDeploying.CanOutput())

	_, err := ParseWheelState("Exploded")
	assert.Error(t, err)
}

func TestParseWearMode(t *testing.T) {
	m, err := ParseWearMode(" Advanced ")
	require.NoError(t, err)
	assert.Equal(t, WearAdvanced, m)

	m, err = ParseWearMode("")
	require.NoError(t, err)
	assert.Equal(t, WearNone, m)

	_, err = ParseWearMode("hardcore")
	assert.Error(t, err)

	var mode WearMode
	require.NoError(t, mode.UnmarshalText([]byte("simple")))
	assert.Equal(t, WearSimple, mode)
}
