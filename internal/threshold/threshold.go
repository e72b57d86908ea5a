package threshold

import (
	"errors"
	"fmt"

	"github.com/oshokin/pump-alarm-gateway/internal/domain/machine"
)

// Config holds the three ascending boundaries separating severity grades for
// one channel type. A value below Level1 is normal; boundaries are inclusive.
type Config struct {
	// Level1 is the boundary between normal and warning.
	Level1 float64 `yaml:"level1"`
	// Level2 is the boundary between warning and critical.
	Level2 float64 `yaml:"level2"`
	// Level3 is the boundary between critical and severe.
	Level3 float64 `yaml:"level3"`
}

var (
	// errNegativeBoundary is returned when a threshold boundary is below zero.
	errNegativeBoundary = errors.New("threshold boundaries must be non-negative")
	// errNonMonotonic is returned when boundaries are not in ascending order.
	errNonMonotonic = errors.New("threshold boundaries must be ascending")
)

// Validate checks the invariant 0 <= Level1 <= Level2 <= Level3.
// A violation is a configuration error and must abort startup.
func (c Config) Validate() error {
	if c.Level1 < 0 || c.Level2 < 0 || c.Level3 < 0 {
		return fmt.Errorf("%w: got %v/%v/%v", errNegativeBoundary, c.Level1, c.Level2, c.Level3)
	}

	if c.Level1 > c.Level2 || c.Level2 > c.Level3 {
		return fmt.Errorf("%w: got %v/%v/%v", errNonMonotonic, c.Level1, c.Level2, c.Level3)
	}

	return nil
}

// Classify maps a measurement to a severity grade. It is total over finite
// inputs: any value below Level1, including a negative one, is normal.
// Reaching a boundary exactly counts as that grade.
func Classify(value float64, cfg Config) machine.Severity {
	switch {
	case value >= cfg.Level3:
		return machine.SeveritySevere
	case value >= cfg.Level2:
		return machine.SeverityCritical
	case value >= cfg.Level1:
		return machine.SeverityWarning
	default:
		return machine.SeverityNormal
	}
}

// ClassifyMax folds a multi-axis reading into a single grade by taking the
// worst axis. A single degraded axis must not be masked by healthy ones.
func ClassifyMax(values []float64, cfg Config) machine.Severity {
	level := machine.SeverityNormal
	for _, v := range values {
		if l := Classify(v, cfg); l > level {
			level = l
		}
	}

	return level
}
