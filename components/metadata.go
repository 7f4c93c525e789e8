package components

import "fmt"

// FieldDescriptor describes a component field for a display collaborator.
type FieldDescriptor struct {
	ID           string  // Unique identifier
	Label        string  // Display name
	Format       string  // Printf format (e.g., "%.2f")
	Units        string  // Display units
	Min          float64 // Minimum value (for bars)
	Max          float64 // Maximum value (for bars)
	IsBar        bool    // True to render as progress bar
	ShowWhenZero bool    // Show even when value is zero
	Group        string  // Logical grouping
}

// String returns the name of a WheelState.
func (s WheelState) String() string {
	names := WheelStateNames()
	if int(s) < len(names) {
		return names[s]
	}
	return "Unknown"
}

// Status returns the user-facing status label. Every non-broken state is
// reported as operational.
func (s WheelState) Status() string {
	if s == StateBroken {
		return "Broken"
	}
	return "Operational"
}

// WheelStateNames returns the names for all wheel states.
// The order matches the WheelState constants.
func WheelStateNames() []string {
	return []string{"Retracted", "Retracting", "Deployed", "Deploying", "Broken"}
}

// ParseWheelState converts a name produced by String back to a WheelState.
func ParseWheelState(name string) (WheelState, error) {
	for i, n := range WheelStateNames() {
		if n == name {
			return WheelState(i), nil
		}
	}
	return 0, fmt.Errorf("unknown wheel state %q", name)
}

// MotorFieldDescriptors returns metadata for Motor telemetry fields.
func MotorFieldDescriptors() []FieldDescriptor {
	return []FieldDescriptor{
		{ID: "max_driven_speed", Label: "Max Drive Speed", Format: "%.2f", Units: "m/s", Group: "motor"},
		{ID: "rpm", Label: "Motor RPM", Format: "%.0f", Group: "motor"},
		{ID: "torque", Label: "Torque To Wheel", Format: "%.2f", Units: "kN/M", Group: "motor"},
		{ID: "power_out", Label: "Mech. Output", Format: "%.2f", Units: "kW", Group: "motor"},
		{ID: "power_in", Label: "Elec. Input", Format: "%.2f", Units: "kW", Group: "motor"},
		{ID: "efficiency", Label: "Efficiency", Format: "%.1f", Units: "%", Min: 0, Max: 100, IsBar: true, Group: "motor"},
		{ID: "resource_use", Label: "Motor EC Use", Format: "%.2f", Units: "ec/s", Group: "motor"},
		{ID: "max_ec", Label: "Max EC/s", Format: "%.2f", Units: "ec/s", ShowWhenZero: true, Group: "motor"},
	}
}

// WearFieldDescriptors returns metadata for Wear fields.
func WearFieldDescriptors() []FieldDescriptor {
	return []FieldDescriptor{
		{ID: "load_stress", Label: "Wheel Stress", Format: "%.2f", Min: 0, Max: 1.5, IsBar: true, ShowWhenZero: true, Group: "wear"},
		{ID: "stress_time", Label: "Failure Time", Format: "%.2f", Min: 0, Max: 1, IsBar: true, ShowWhenZero: true, Group: "wear"},
		{ID: "wheel_wear", Label: "Wheel Wear", Format: "%.2f", Min: 0, Max: 1, IsBar: true, Group: "advanced"},
		{ID: "motor_wear", Label: "Motor Wear", Format: "%.2f", Min: 0, Max: 1, IsBar: true, Group: "advanced"},
		{ID: "suspension_wear", Label: "Suspension Wear", Format: "%.2f", Min: 0, Max: 1, IsBar: true, Group: "advanced"},
	}
}

// GetMotorValue extracts a motor field value by ID.
func GetMotorValue(m *Motor, fieldID string) float64 {
	switch fieldID {
	case "max_driven_speed":
		return m.MaxDrivenSpeed
	case "rpm":
		return m.RPM
	case "torque":
		return m.TorqueOut
	case "power_out":
		return m.PowerOutKW
	case "power_in":
		return m.PowerInKW
	case "efficiency":
		return m.EfficiencyPct
	case "resource_use":
		return m.ResourceUse
	case "max_ec":
		return m.MaxECDraw
	default:
		return 0
	}
}

// GetWearValue extracts a wear field value by ID.
func GetWearValue(w *Wear, fieldID string) float64 {
	switch fieldID {
	case "load_stress":
		return w.LoadStress
	case "stress_time":
		return w.StressTime
	case "wheel_wear":
		return w.WheelWear
	case "motor_wear":
		return w.MotorWear
	case "suspension_wear":
		return w.SuspensionWear
	default:
		return 0
	}
}
