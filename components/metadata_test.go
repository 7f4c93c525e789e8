package components

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldDescriptors_ResolveValues(t *testing.T) {
	m := &Motor{MaxDrivenSpeed: 1, RPM: 2, TorqueOut: 3, PowerOutKW: 4, PowerInKW: 5, EfficiencyPct: 6, ResourceUse: 7, MaxECDraw: 8}
	for i, d := range MotorFieldDescriptors() {
		assert.Equal(t, float64(i+1), GetMotorValue(m, d.ID), d.ID)
	}
	assert.Zero(t, GetMotorValue(m, "unknown"))

	w := &Wear{LoadStress: 1, StressTime: 2, WheelWear: 3, MotorWear: 4, SuspensionWear: 5}
	for i, d := range WearFieldDescriptors() {
		assert.Equal(t, float64(i+1), GetWearValue(w, d.ID), d.ID)
	}
	assert.Zero(t, GetWearValue(w, "unknown"))
}
