package systems

import "github.com/pthm-cable/wheels/components"

// StepThermal integrates queued heat flux into the part temperature and sheds
// heat toward ambient. Temperature never drops below absolute zero.
func StepThermal(t *components.Thermal, dt float64) {
	flux := t.TakeFlux()
	if t.HeatCapacity > 0 {
		t.Temperature += finite(flux * dt / t.HeatCapacity)
	}
	t.Temperature -= finite(t.Dissipation * (t.Temperature - t.Ambient) * dt)
	t.Temperature = max(finite(t.Temperature), 0)
}
