package scoring

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DedupWindowClass buckets signal types by how long a repeated
// (entity, type, discriminator) tuple counts as the same underlying event.
type DedupWindowClass string

const (
	// WindowOperational covers high-frequency hygiene events such as
	// contact or email verification.
	WindowOperational DedupWindowClass = "operational"
	// WindowEvent covers discrete business events such as funding rounds,
	// news mentions, or broker changes.
	WindowEvent DedupWindowClass = "event"
	// WindowStructural covers slow-moving facts such as annual filings and
	// role changes.
	WindowStructural DedupWindowClass = "structural"
)

// Duration returns the dedup window length for the class.
func (c DedupWindowClass) Duration() time.Duration {
	switch c {
	case WindowOperational:
		return 24 * time.Hour
	case WindowEvent:
		return 90 * 24 * time.Hour
	case WindowStructural:
		return 365 * 24 * time.Hour
	}
	return 0
}

func (c DedupWindowClass) valid() bool {
	return c == WindowOperational || c == WindowEvent || c == WindowStructural
}

// WeightEntry is the scoring configuration for one signal type.
type WeightEntry struct {
	BaseWeight      float64          `yaml:"base_weight"`
	DecayPeriodDays float64          `yaml:"decay_period_days"`
	DedupWindow     DedupWindowClass `yaml:"dedup_window"`
}

// WeightTable is an immutable snapshot of the versioned weight registry.
// It is loaded once at process start; changing weights is a deployment
// event, never a runtime mutation, so scores computed under different rules
// never mix silently.
type WeightTable struct {
	version int
	entries map[string]WeightEntry
}

type weightFile struct {
	Version     int                    `yaml:"version"`
	SignalTypes map[string]WeightEntry `yaml:"signal_types"`
}

// LoadWeightTable reads and validates the weight artifact at path.
func LoadWeightTable(path string) (*WeightTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read weight table %s: %w", path, err)
	}
	return ParseWeightTable(data)
}

// ParseWeightTable decodes and validates a weight artifact.
func ParseWeightTable(data []byte) (*WeightTable, error) {
	var file weightFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse weight table: %w", err)
	}

	if file.Version <= 0 {
		return nil, fmt.Errorf("weight table missing positive version, got %d", file.Version)
	}
	if len(file.SignalTypes) == 0 {
		return nil, fmt.Errorf("weight table version %d defines no signal types", file.Version)
	}

	for signalType, entry := range file.SignalTypes {
		if entry.DecayPeriodDays <= 0 {
			return nil, fmt.Errorf("signal type %q has non-positive decay period %g", signalType, entry.DecayPeriodDays)
		}
		if !entry.DedupWindow.valid() {
			return nil, fmt.Errorf("signal type %q has unknown dedup window class %q", signalType, entry.DedupWindow)
		}
	}

	return &WeightTable{version: file.Version, entries: file.SignalTypes}, nil
}

// Version returns the artifact version this table was loaded from.
func (t *WeightTable) Version() int { return t.version }

// Len returns the number of signal types in the closed enumeration.
func (t *WeightTable) Len() int { return len(t.entries) }

// Lookup returns the entry for signalType, or ok=false when the type is not
// part of the closed enumeration.
func (t *WeightTable) Lookup(signalType string) (WeightEntry, bool) {
	entry, ok := t.entries[signalType]
	return entry, ok
}
