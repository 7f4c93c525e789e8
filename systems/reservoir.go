package systems

// Reservoir is the shared energy store a motor draws from. Request returns the
// amount actually granted, which never exceeds amount.
type Reservoir interface {
	Request(amount float64) float64
}

// Battery is a finite reservoir shared by every unit on a vehicle.
type Battery struct {
	Capacity float64
	Amount   float64
}

// NewBattery returns a battery holding initial EC, clamped to capacity.
func NewBattery(capacity, initial float64) *Battery {
	return &Battery{Capacity: capacity, Amount: clamp(initial, 0, capacity)}
}

// Request grants up to amount from the stored charge.
func (b *Battery) Request(amount float64) float64 {
	if !(amount > 0) {
		return 0
	}
	granted := min(amount, b.Amount)
	b.Amount -= granted
	return granted
}

// Store adds up to amount, returning what fit.
func (b *Battery) Store(amount float64) float64 {
	if !(amount > 0) {
		return 0
	}
	stored := min(amount, b.Capacity-b.Amount)
	b.Amount += stored
	return stored
}

// Percent returns the charge level in [0,100].
func (b *Battery) Percent() float64 {
	if !(b.Capacity > 0) {
		return 0
	}
	return b.Amount / b.Capacity * 100
}

// Unlimited grants every request in full.
type Unlimited struct{}

// Request returns amount unchanged.
func (Unlimited) Request(amount float64) float64 {
	return max(amount, 0)
}

var (
	_ Reservoir = (*Battery)(nil)
	_ Reservoir = Unlimited{}
)
