package systems

import "github.com/pthm-cable/wheels/components"

// throttleRate is how fast the generator throttle moves, in percent per second.
const throttleRate = 100.0

// UpdateGenerator advances the generator throttle and stores its output in
// the battery. Returns the EC stored this tick.
func UpdateGenerator(g *components.Generator, bat *Battery, mainThrottle, dt float64) float64 {
	g.EnergyOutput = 0
	if !g.Active || bat == nil {
		return 0
	}

	switch {
	case g.AutoThrottle:
		target := 0.0
		charge := 1.0
		if bat.Capacity > 0 {
			charge = bat.Amount / bat.Capacity
		}
		if charge < g.Target*0.01 {
			target = 100
		}
		g.Throttle = moveTowards(g.Throttle, target, dt*throttleRate)
	case g.Linked:
		g.Throttle = moveTowards(g.Throttle, clamp01(mainThrottle)*100, dt*throttleRate)
	}
	g.Throttle = clamp(g.Throttle, 0, 100)

	produce := g.MaxOutput * g.Throttle * 0.01 * dt
	if ratio := g.FuelRatio(); ratio > 0 {
		produce = min(produce, g.Fuel/ratio)
	}
	if !(produce > 0) {
		return 0
	}
	stored := bat.Store(produce)
	if ratio := g.FuelRatio(); ratio > 0 {
		g.Fuel = max(0, g.Fuel-stored*ratio)
	}
	if dt > 0 {
		g.EnergyOutput = stored / dt
	}
	return stored
}
