package components

// Generator is an auxiliary power unit that burns fuel to recharge the battery.
type Generator struct {
	MaxOutput   float64 // EC/s at 100% throttle
	ClosedRatio float64 // fuel per EC in closed cycle
	OpenRatio   float64 // fuel per EC in open cycle
	Fuel        float64

	// Persisted settings.
	Throttle     float64 // percent
	Target       float64 // percent charge held by auto throttle
	AutoThrottle bool
	Linked       bool
	ClosedCycle  bool
	Active       bool

	EnergyOutput float64 // EC/s produced last tick
}

// Mode returns the display label for the current cycle.
func (g *Generator) Mode() string {
	if g.ClosedCycle {
		return "Closed Cycle"
	}
	return "Open Cycle"
}

// ToggleMode switches between closed and open cycle.
func (g *Generator) ToggleMode() {
	g.ClosedCycle = !g.ClosedCycle
}

// FuelRatio returns fuel consumed per EC for the current cycle.
func (g *Generator) FuelRatio() float64 {
	if g.ClosedCycle {
		return g.ClosedRatio
	}
	return g.OpenRatio
}
