package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/wheels/config"
)

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir         string
	unitsFile   *os.File
	windowsFile *os.File

	// Track if headers have been written
	unitsHeaderWritten   bool
	windowsHeaderWritten bool
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	// Create output directory
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	// Open units.csv
	f, err := os.Create(filepath.Join(dir, "units.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating units.csv: %w", err)
	}
	om.unitsFile = f

	// Open windows.csv
	f, err = os.Create(filepath.Join(dir, "windows.csv"))
	if err != nil {
		om.unitsFile.Close()
		return nil, fmt.Errorf("creating windows.csv: %w", err)
	}
	om.windowsFile = f

	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteUnits writes one row per unit snapshot to units.csv.
func (om *OutputManager) WriteUnits(snaps []UnitSnapshot) error {
	if om == nil || len(snaps) == 0 {
		return nil
	}

	if !om.unitsHeaderWritten {
		// First write includes headers
		if err := gocsv.Marshal(snaps, om.unitsFile); err != nil {
			return fmt.Errorf("writing units: %w", err)
		}
		om.unitsHeaderWritten = true
		return nil
	}
	// Subsequent writes skip headers
	if err := gocsv.MarshalWithoutHeaders(snaps, om.unitsFile); err != nil {
		return fmt.Errorf("writing units: %w", err)
	}
	return nil
}

// WriteWindow writes a window stats record to windows.csv.
func (om *OutputManager) WriteWindow(stats WindowStats) error {
	if om == nil {
		return nil
	}

	records := []WindowStats{stats}

	if !om.windowsHeaderWritten {
		if err := gocsv.Marshal(records, om.windowsFile); err != nil {
			return fmt.Errorf("writing window: %w", err)
		}
		om.windowsHeaderWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, om.windowsFile); err != nil {
		return fmt.Errorf("writing window: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error

	if om.unitsFile != nil {
		if err := om.unitsFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if om.windowsFile != nil {
		if err := om.windowsFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
