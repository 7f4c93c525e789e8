package components

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
)

// ErrMalformedCurve is returned when a response curve cannot be built.
var ErrMalformedCurve = errors.New("malformed response curve")

// CurveKey is a single (x, y) control point of a response curve.
type CurveKey struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// ResponseCurve maps a normalized input in [0, 1] to a normalized output in [0, 1].
// Keys must have strictly increasing X and non-increasing Y.
type ResponseCurve struct {
	keys      []CurveKey
	predictor interp.Predictor
}

// LinearFalloff returns the ideal brushless motor curve: full torque at stall,
// none at max rpm.
func LinearFalloff() *ResponseCurve {
	c, err := NewResponseCurve([]CurveKey{{X: 0, Y: 1}, {X: 1, Y: 0}}, false)
	if err != nil {
		panic(fmt.Sprintf("components: default curve: %v", err))
	}
	return c
}

// NewResponseCurve validates keys and fits an interpolator through them.
// smooth selects a monotone cubic (Fritsch-Butland) fit instead of piecewise linear.
func NewResponseCurve(keys []CurveKey, smooth bool) (*ResponseCurve, error) {
	if len(keys) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 keys, got %d", ErrMalformedCurve, len(keys))
	}
	xs := make([]float64, len(keys))
	ys := make([]float64, len(keys))
	for i, k := range keys {
		if math.IsNaN(k.X) || math.IsNaN(k.Y) {
			return nil, fmt.Errorf("%w: key %d is NaN", ErrMalformedCurve, i)
		}
		if k.X < 0 || k.X > 1 {
			return nil, fmt.Errorf("%w: key %d x=%g outside [0,1]", ErrMalformedCurve, i, k.X)
		}
		if k.Y < 0 || k.Y > 1 {
			return nil, fmt.Errorf("%w: key %d y=%g outside [0,1]", ErrMalformedCurve, i, k.Y)
		}
		if i > 0 {
			if k.X <= keys[i-1].X {
				return nil, fmt.Errorf("%w: x not strictly increasing at key %d", ErrMalformedCurve, i)
			}
			if k.Y > keys[i-1].Y {
				return nil, fmt.Errorf("%w: y increases at key %d", ErrMalformedCurve, i)
			}
		}
		xs[i] = k.X
		ys[i] = k.Y
	}

	var fp interp.FittablePredictor
	if smooth && len(keys) > 2 {
		fp = &interp.FritschButland{}
	} else {
		fp = &interp.PiecewiseLinear{}
	}
	if err := fp.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCurve, err)
	}

	return &ResponseCurve{
		keys:      append([]CurveKey(nil), keys...),
		predictor: fp,
	}, nil
}

// Evaluate returns the curve value at x. Input is clamped to the curve domain,
// non-finite inputs and outputs evaluate to 0.
func (c *ResponseCurve) Evaluate(x float64) float64 {
	if c == nil || c.predictor == nil || math.IsNaN(x) {
		return 0
	}
	lo, hi := c.keys[0].X, c.keys[len(c.keys)-1].X
	if x < lo {
		x = lo
	} else if x > hi {
		x = hi
	}
	y := c.predictor.Predict(x)
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return 0
	}
	return min(max(y, 0), 1)
}

// Keys returns a copy of the curve's control points.
func (c *ResponseCurve) Keys() []CurveKey {
	if c == nil {
		return nil
	}
	return append([]CurveKey(nil), c.keys...)
}
