package main

import (
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/pthm-cable/wheels/components"
	"github.com/pthm-cable/wheels/config"
	"github.com/pthm-cable/wheels/vehicle"
)

// breakPenalty is the fitness cost of one unit breaking, in metres.
const breakPenalty = 500.0

// FitnessEvaluator runs headless drives and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   int32
	payloads   []float64
	configPath string
	logger     *slog.Logger

	mu           sync.Mutex
	lastDistance float64
	lastBreaks   int
}

// NewFitnessEvaluator creates a new evaluator. Each evaluation drives the
// vehicle once per payload.
func NewFitnessEvaluator(params *ParamVector, maxTicks int32, payloads []float64, configPath string) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		maxTicks:   maxTicks,
		payloads:   payloads,
		configPath: configPath,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// LastResult returns the mean distance and total breaks of the most recent evaluation.
func (fe *FitnessEvaluator) LastResult() (distance float64, breaks int) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastDistance, fe.lastBreaks
}

// runResult holds the results from a single drive.
type runResult struct {
	distance float64 // metres covered, averaged across units
	breaks   int
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is the negative distance covered at full throttle, plus a
// penalty per broken unit.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]runResult, len(fe.payloads))
	var wg sync.WaitGroup

	for i, payload := range fe.payloads {
		wg.Add(1)
		go func(idx int, p float64) {
			defer wg.Done()
			results[idx] = fe.runDrive(x, p)
		}(i, payload)
	}
	wg.Wait()

	var distance float64
	var breaks int
	for _, r := range results {
		distance += r.distance
		breaks += r.breaks
	}
	n := float64(max(len(results), 1))
	distance /= n

	fe.mu.Lock()
	fe.lastDistance = distance
	fe.lastBreaks = breaks
	fe.mu.Unlock()

	return fitness(distance, breaks)
}

// fitness combines distance and breaks into a single score.
func fitness(distance float64, breaks int) float64 {
	f := -distance + breakPenalty*float64(breaks)
	if math.IsNaN(f) {
		return math.Inf(1)
	}
	return f
}

// runDrive drives a fresh vehicle at full throttle carrying payload.
func (fe *FitnessEvaluator) runDrive(x []float64, payload float64) runResult {
	cfg, err := config.Load(fe.configPath)
	if err != nil {
		return runResult{distance: math.Inf(-1)}
	}
	fe.params.ApplyToConfig(cfg, x)

	v, err := vehicle.New(cfg, vehicle.WithLogger(fe.logger))
	if err != nil {
		return runResult{distance: math.Inf(-1)}
	}
	v.SetPayload(payload)

	var res runResult
	in := components.DriverInput{Throttle: 1, MainThrottle: 1}
	dt := cfg.Sim.DT
	for range fe.maxTicks {
		rep := v.Step(in)
		res.breaks += len(rep.Breaks)

		snaps := v.Snapshots()
		broken := 0
		var speed float64
		for _, s := range snaps {
			speed += math.Abs(s.Speed)
			if s.State == components.StateBroken.String() {
				broken++
			}
		}
		res.distance += speed / float64(len(snaps)) * dt
		if broken == len(snaps) {
			break
		}
	}
	return res
}
