package main

import (
	"fmt"
	"slices"

	"github.com/pthm-cable/wheels/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Group   int     // Unit group whose gear ratio this drives
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates one gear-ratio parameter per unit group found in
// cfg. Bounds are the tightest gear limits across the group's motors.
func NewParamVector(cfg *config.Config) *ParamVector {
	byGroup := make(map[int]*ParamSpec)
	var groups []int
	for _, u := range cfg.Vehicle.Units {
		spec, ok := byGroup[u.Group]
		if !ok {
			spec = &ParamSpec{
				Name:    fmt.Sprintf("gear_group_%d", u.Group),
				Group:   u.Group,
				Min:     u.Motor.MinGearRatio,
				Max:     u.Motor.MaxGearRatio,
				Default: u.Motor.GearRatio,
			}
			byGroup[u.Group] = spec
			groups = append(groups, u.Group)
			continue
		}
		spec.Min = max(spec.Min, u.Motor.MinGearRatio)
		spec.Max = min(spec.Max, u.Motor.MaxGearRatio)
	}
	slices.Sort(groups)

	pv := &ParamVector{}
	for _, g := range groups {
		pv.Specs = append(pv.Specs, *byGroup[g])
	}
	return pv
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig sets the gear ratio of every unit from its group's value.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)
	for i, spec := range pv.Specs {
		for j := range cfg.Vehicle.Units {
			if cfg.Vehicle.Units[j].Group == spec.Group {
				cfg.Vehicle.Units[j].Motor.GearRatio = clamped[i]
			}
		}
	}
}

// ExtractFromConfig reads each group's gear ratio from its first unit.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	values := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		for _, u := range cfg.Vehicle.Units {
			if u.Group == spec.Group {
				values[i] = u.Motor.GearRatio
				break
			}
		}
	}
	return values
}
