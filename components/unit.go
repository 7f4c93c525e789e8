// Package components defines the plain data carried by each wheel unit.
package components

// WheelState is the operational state shared by every subsystem of a wheel unit.
type WheelState uint8

const (
	StateRetracted WheelState = iota
	StateRetracting
	StateDeployed
	StateDeploying
	StateBroken
)

// CanOutput reports whether motor, brake and steering output are permitted.
func (s WheelState) CanOutput() bool {
	return s == StateDeployed
}

// Unit holds the per-unit state shared between subsystems.
type Unit struct {
	ID    string
	Group int
	State WheelState

	// Safe operating limits after scaling.
	MaxSafeSpeed float64 // m/s
	MaxSafeLoad  float64 // t

	// Scale factors supplied by the part-scale system.
	TorqueScale float64
	RPMScale    float64

	// RepairTimer is exposed for external consumers; 1 means fully ready.
	RepairTimer float64
}

// Wear holds damage accumulators for a unit.
type Wear struct {
	StressTime     float64 // [0,1], not persisted
	LoadStress     float64 // load / safe load, display only
	MotorWear      float64 // [0,1]
	WheelWear      float64 // [0,1]
	SuspensionWear float64 // [0,1]

	Invulnerable float64 // seconds remaining after a repair

	// Undamaged baselines captured at spawn.
	DefaultRollingResistance []float64 // per wheel
	DefaultEfficiency        float64

	// Aggregates from the last update.
	Load  float64
	Speed float64
}

// Wheel is the physics-engine side of one wheel collider. The engine writes
// the telemetry fields; subsystems write the command fields.
type Wheel struct {
	Radius float64 // m
	Mass   float64 // effective rotating mass used for rpm integration

	// Telemetry from the physics engine.
	RPM             float64
	SpringForce     float64 // kN
	LinearVelocity  float64 // m/s at the contact patch
	ForwardVelocity float64 // m/s along the wheel's forward axis

	// Commands to the physics engine.
	MotorTorque       float64
	BrakeTorque       float64
	SteeringAngle     float64 // degrees
	RollingResistance float64
	AngularVelocity   float64 // rad/s; the engine's own state, zeroed on break
}

// Brakes holds brake configuration and state.
type Brakes struct {
	MaxTorque float64
	Response  float64 // 0 = instant
	Locked    bool    // parking brake style: always engaged
	Limit     float64 // percent, persisted

	Input  float64
	Torque float64
}

// Steering holds steering configuration and state.
type Steering struct {
	MaxAngle float64 // degrees
	UseCurve bool
	Curve    *ResponseCurve

	Locked    bool
	Inverted  bool
	LimitLow  float64 // [0,1] limit at standstill
	LimitHigh float64 // [0,1] limit at safe speed
	Response  float64 // max input change per tick
	Bias      float64 // [-1,1]

	Input float64
}

// Thermal is a lumped-capacity heat model for the part carrying the unit.
type Thermal struct {
	Temperature  float64 // K
	Ambient      float64 // K
	HeatCapacity float64 // kJ/K
	Dissipation  float64 // 1/s, fraction of excess heat shed per second

	flux float64 // kW accumulated this tick
}

// AddFlux queues heat (kW) to be integrated on the next thermal step.
func (t *Thermal) AddFlux(kw float64) {
	t.flux += kw
}

// TakeFlux returns and clears the queued flux.
func (t *Thermal) TakeFlux() float64 {
	f := t.flux
	t.flux = 0
	return f
}

// DriverInput is the vessel-wide control state for one tick.
type DriverInput struct {
	Throttle     float64 // [-1,1]
	ThrottleTrim float64
	Steer        float64 // [-1,1]
	SteerTrim    float64
	Brakes       bool
	MainThrottle float64 // [0,1], used by linked generators
}
