package drc

import (
	"fmt"
	"runtime"
	"slices"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/collide"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/spatial"
)

// Default clearances, all in millimeters
const (
	DefaultTraceMargin           = 0.1
	DefaultSameNetViaMargin      = 0.2
	DefaultDifferentNetViaMargin = 0.3
	DefaultViaBoardMargin        = 0.3
	DefaultBoardMargin           = 0.2
	DefaultBoardTraceWidth       = 0.1
)

// Config controls which checks run and the clearances they enforce.
type Config struct {
	// Clearances (mm)
	TraceMargin           float64 // trace to anything (default: 0.1)
	SameNetViaMargin      float64 // via to via on one net (default: 0.2)
	DifferentNetViaMargin float64 // via to via across nets (default: 0.3)
	ViaBoardMargin        float64 // via to board edge (default: 0.3)
	BoardMargin           float64 // trace to board edge (default: 0.2)

	// Geometry defaults for records that leave them out
	DefaultTraceThickness float64 // overlap checks (default: 0.15)
	BoardTraceWidth       float64 // board edge checks (default: 0.1)

	// Broad phase
	Index    spatial.Backend // "hash" or "rtree" (default: hash)
	CellSize float64         // hash cell side (default: 0.4)

	// Workers is the number of goroutines scanning trace segments.
	// Values below 2 scan serially.
	Workers int

	// Disabled lists check names that RunAll skips
	Disabled []string
}

// DefaultConfig returns a Config with the standard clearances.
func DefaultConfig() *Config {
	return &Config{
		TraceMargin:           DefaultTraceMargin,
		SameNetViaMargin:      DefaultSameNetViaMargin,
		DifferentNetViaMargin: DefaultDifferentNetViaMargin,
		ViaBoardMargin:        DefaultViaBoardMargin,
		BoardMargin:           DefaultBoardMargin,
		DefaultTraceThickness: collide.DefaultTraceThickness,
		BoardTraceWidth:       DefaultBoardTraceWidth,
		Index:                 spatial.BackendHash,
		CellSize:              spatial.DefaultCellSize,
		Workers:               1,
	}
}

// Validate rejects negative clearances and unknown names, and fills in
// defaults for zero-valued sizes. A zero clearance is allowed.
func (c *Config) Validate() error {
	margins := []struct {
		name  string
		value float64
	}{
		{"trace margin", c.TraceMargin},
		{"same-net via margin", c.SameNetViaMargin},
		{"different-net via margin", c.DifferentNetViaMargin},
		{"via board margin", c.ViaBoardMargin},
		{"board margin", c.BoardMargin},
	}
	for _, m := range margins {
		if m.value < 0 {
			return fmt.Errorf("%s must not be negative, got %v", m.name, m.value)
		}
	}

	if c.DefaultTraceThickness <= 0 {
		c.DefaultTraceThickness = collide.DefaultTraceThickness
	}
	if c.BoardTraceWidth <= 0 {
		c.BoardTraceWidth = DefaultBoardTraceWidth
	}
	if c.CellSize <= 0 {
		c.CellSize = spatial.DefaultCellSize
	}

	switch c.Index {
	case "":
		c.Index = spatial.BackendHash
	case spatial.BackendHash, spatial.BackendRTree:
	default:
		return fmt.Errorf("unknown index backend %q", c.Index)
	}

	if c.Workers < 1 {
		c.Workers = 1
	}
	if limit := runtime.GOMAXPROCS(0) * 4; c.Workers > limit {
		c.Workers = limit
	}

	for _, name := range c.Disabled {
		if !slices.Contains(CheckNames(), name) {
			return fmt.Errorf("unknown check %q", name)
		}
	}
	return nil
}

// Enabled reports whether RunAll should run the named check
func (c *Config) Enabled(name string) bool {
	return !slices.Contains(c.Disabled, name)
}
