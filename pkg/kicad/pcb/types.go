// Package pcb reads KiCad board files (.kicad_pcb, format version 6 and
// later) and converts them into layouts the checker can run on.
package pcb

import "github.com/OpenTraceLab/OpenTraceDRC/pkg/geom"

// MinSupportedVersion is the oldest board format accepted (KiCad 6.0)
const MinSupportedVersion = 20211014

// Board is the copper-relevant content of a KiCad board file. Coordinates
// are millimetres in KiCad's frame, with y growing downwards.
type Board struct {
	Version   int
	Generator string

	// CopperLayers lists the copper layers declared in the layer table, in
	// stack order, using KiCad names.
	CopperLayers []string

	Nets       []Net
	Tracks     []Track
	Vias       []Via
	Footprints []Footprint
	Edges      []Edge
	Keepouts   []Keepout
}

// Net is a numbered net. Net 0 is the unconnected net.
type Net struct {
	Number int
	Name   string
}

// Track is a copper segment or arc. Arcs carry their midpoint.
type Track struct {
	Start, End geom.Point
	Mid        *geom.Point
	Width      float64
	Layer      string
	Net        int
}

// Via is a drilled connection between copper layers
type Via struct {
	At     geom.Point
	Size   float64
	Drill  float64
	Layers []string
	Net    int
}

// Footprint is a placed component
type Footprint struct {
	Library   string
	Reference string
	Value     string
	Layer     string
	At        geom.Point
	Angle     float64 // degrees, clockwise on screen

	Pads []Pad

	// Courtyard holds the courtyard outline segments relative to At,
	// before rotation.
	Courtyard []Edge
}

// Pad types
const (
	PadSMD      = "smd"
	PadThruHole = "thru_hole"
	PadNPThru   = "np_thru_hole"
	PadConnect  = "connect"
)

// Pad is a footprint pad. At is relative to the footprint; Angle is the
// absolute pad orientation as KiCad stores it.
type Pad struct {
	Number string
	Type   string
	Shape  string
	At     geom.Point
	Angle  float64
	Width  float64
	Height float64

	DrillOval   bool
	DrillWidth  float64
	DrillHeight float64

	Layers []string
	Net    int
}

// Edge is a straight piece of the board edge or of a courtyard
type Edge struct {
	Start, End geom.Point
}

// Keepout is a rule area that forbids tracks or vias
type Keepout struct {
	Outline []geom.Point
	Layers  []string
}

// NetName returns the name of net number n, or "" when unknown
func (b *Board) NetName(n int) string {
	for _, net := range b.Nets {
		if net.Number == n {
			return net.Name
		}
	}
	return ""
}
