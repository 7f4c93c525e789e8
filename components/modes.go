package components

import (
	"fmt"
	"strings"
)

// WearMode selects the damage model. Advanced always runs Simple's checks first.
type WearMode uint8

const (
	WearNone WearMode = iota
	WearSimple
	WearAdvanced
)

func (m WearMode) String() string {
	switch m {
	case WearNone:
		return "none"
	case WearSimple:
		return "simple"
	case WearAdvanced:
		return "advanced"
	default:
		return fmt.Sprintf("WearMode(%d)", uint8(m))
	}
}

// ParseWearMode accepts none, simple or advanced (case-insensitive).
func ParseWearMode(s string) (WearMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return WearNone, nil
	case "simple":
		return WearSimple, nil
	case "advanced":
		return WearAdvanced, nil
	default:
		return WearNone, fmt.Errorf("unknown wear mode %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m WearMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *WearMode) UnmarshalText(b []byte) error {
	mode, err := ParseWearMode(string(b))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}
