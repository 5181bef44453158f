// Package layout defines the flat record collection a board is checked from.
// Records keep the field names of the circuit JSON interchange format so a
// layout can be decoded directly; the engine never mutates them.
package layout

import "github.com/OpenTraceLab/OpenTraceDRC/pkg/geom"

// Layers is the ordered set of physical copper layers. Elements that carry no
// explicit layer list and are drilled through the board are on all of them.
var Layers = [...]string{"top", "inner1", "inner2", "inner3", "inner4", "inner5", "inner6", "bottom"}

// AllLayers returns a fresh slice of every physical layer name
func AllLayers() []string {
	out := make([]string, len(Layers))
	copy(out, Layers[:])
	return out
}

// Element type discriminants
const (
	TypePcbTrace        = "pcb_trace"
	TypePcbSMTPad       = "pcb_smtpad"
	TypePcbPlatedHole   = "pcb_plated_hole"
	TypePcbHole         = "pcb_hole"
	TypePcbVia          = "pcb_via"
	TypePcbKeepout      = "pcb_keepout"
	TypePcbBoard        = "pcb_board"
	TypePcbPort         = "pcb_port"
	TypePcbComponent    = "pcb_component"
	TypeSourceTrace     = "source_trace"
	TypeSourcePort      = "source_port"
	TypeSourceComponent = "source_component"
	TypeSourceNet       = "source_net"
)

// Route point kinds
const (
	RouteWire = "wire"
	RouteVia  = "via"
)

// Element is one record of a layout. The set of implementations is closed.
type Element interface {
	ElementType() string
	PrimaryID() string
	element()
}

// RoutePoint is one step of a trace route
type RoutePoint struct {
	RouteType      string  `json:"route_type"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Width          float64 `json:"width,omitempty"` // 0 when the point carries no width
	Layer          string  `json:"layer,omitempty"`
	FromLayer      string  `json:"from_layer,omitempty"`
	ToLayer        string  `json:"to_layer,omitempty"`
	StartPcbPortID string  `json:"start_pcb_port_id,omitempty"`
	EndPcbPortID   string  `json:"end_pcb_port_id,omitempty"`
}

// Point returns the position of the route point
func (p RoutePoint) Point() geom.Point {
	return geom.Point{X: p.X, Y: p.Y}
}

// PcbTrace is a routed copper path
type PcbTrace struct {
	PcbTraceID     string       `json:"pcb_trace_id"`
	SourceTraceID  string       `json:"source_trace_id,omitempty"`
	PcbComponentID string       `json:"pcb_component_id,omitempty"`
	Route          []RoutePoint `json:"route"`
}

// PcbSMTPad is a surface mount pad. Shape is one of circle, rect,
// rotated_rect or pill.
type PcbSMTPad struct {
	PcbSMTPadID    string  `json:"pcb_smtpad_id"`
	PcbComponentID string  `json:"pcb_component_id,omitempty"`
	PcbPortID      string  `json:"pcb_port_id,omitempty"`
	Shape          string  `json:"shape"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Width          float64 `json:"width,omitempty"`
	Height         float64 `json:"height,omitempty"`
	Radius         float64 `json:"radius,omitempty"`
	CCWRotation    float64 `json:"ccw_rotation,omitempty"` // degrees
	Layer          string  `json:"layer"`
}

// PcbPlatedHole is a through-hole pad. Shape is one of circle, oval, pill,
// circular_hole_with_rect_pad or pill_hole_with_rect_pad.
type PcbPlatedHole struct {
	PcbPlatedHoleID string   `json:"pcb_plated_hole_id"`
	PcbComponentID  string   `json:"pcb_component_id,omitempty"`
	PcbPortID       string   `json:"pcb_port_id,omitempty"`
	Shape           string   `json:"shape"`
	X               float64  `json:"x"`
	Y               float64  `json:"y"`
	HoleDiameter    float64  `json:"hole_diameter,omitempty"`
	OuterDiameter   float64  `json:"outer_diameter,omitempty"`
	HoleWidth       float64  `json:"hole_width,omitempty"`
	HoleHeight      float64  `json:"hole_height,omitempty"`
	OuterWidth      float64  `json:"outer_width,omitempty"`
	OuterHeight     float64  `json:"outer_height,omitempty"`
	RectPadWidth    float64  `json:"rect_pad_width,omitempty"`
	RectPadHeight   float64  `json:"rect_pad_height,omitempty"`
	Layers          []string `json:"layers,omitempty"`
}

// PcbHole is an unplated mechanical hole
type PcbHole struct {
	PcbHoleID    string  `json:"pcb_hole_id"`
	HoleShape    string  `json:"hole_shape"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	HoleDiameter float64 `json:"hole_diameter,omitempty"`
	HoleWidth    float64 `json:"hole_width,omitempty"`
	HoleHeight   float64 `json:"hole_height,omitempty"`
}

// PcbVia is a plated hole joining trace layers
type PcbVia struct {
	PcbViaID      string   `json:"pcb_via_id"`
	PcbTraceID    string   `json:"pcb_trace_id,omitempty"`
	X             float64  `json:"x"`
	Y             float64  `json:"y"`
	OuterDiameter float64  `json:"outer_diameter"`
	HoleDiameter  float64  `json:"hole_diameter,omitempty"`
	Layers        []string `json:"layers,omitempty"`
}

// PcbKeepout is a region that must stay free of copper. Shape is rect or circle.
type PcbKeepout struct {
	PcbKeepoutID string     `json:"pcb_keepout_id"`
	Shape        string     `json:"shape"`
	Center       geom.Point `json:"center"`
	Width        float64    `json:"width,omitempty"`
	Height       float64    `json:"height,omitempty"`
	Radius       float64    `json:"radius,omitempty"`
	Layers       []string   `json:"layers,omitempty"`
}

// PcbBoard is the board substrate. When Outline has at least three points it
// takes precedence over the centered width × height rectangle.
type PcbBoard struct {
	PcbBoardID string       `json:"pcb_board_id"`
	Center     geom.Point   `json:"center"`
	Width      float64      `json:"width"`
	Height     float64      `json:"height"`
	Outline    []geom.Point `json:"outline,omitempty"`
}

// PcbPort is the physical location of a component pin
type PcbPort struct {
	PcbPortID      string   `json:"pcb_port_id"`
	SourcePortID   string   `json:"source_port_id,omitempty"`
	PcbComponentID string   `json:"pcb_component_id,omitempty"`
	X              float64  `json:"x"`
	Y              float64  `json:"y"`
	Layers         []string `json:"layers,omitempty"`
}

// PcbComponent is the placed footprint of a component
type PcbComponent struct {
	PcbComponentID    string     `json:"pcb_component_id"`
	SourceComponentID string     `json:"source_component_id,omitempty"`
	Center            geom.Point `json:"center"`
	Width             float64    `json:"width"`
	Height            float64    `json:"height"`
	Rotation          float64    `json:"rotation,omitempty"`
	Layer             string     `json:"layer,omitempty"`
}

// SourceTrace is a logical connection requested by the schematic
type SourceTrace struct {
	SourceTraceID          string   `json:"source_trace_id"`
	ConnectedSourcePortIDs []string `json:"connected_source_port_ids,omitempty"`
	ConnectedSourceNetIDs  []string `json:"connected_source_net_ids,omitempty"`
	DisplayName            string   `json:"display_name,omitempty"`
}

// SourcePort is a logical component pin
type SourcePort struct {
	SourcePortID      string   `json:"source_port_id"`
	SourceComponentID string   `json:"source_component_id,omitempty"`
	Name              string   `json:"name,omitempty"`
	PinNumber         int      `json:"pin_number,omitempty"`
	PortHints         []string `json:"port_hints,omitempty"`
}

// SourceComponent is a logical component
type SourceComponent struct {
	SourceComponentID string `json:"source_component_id"`
	Name              string `json:"name,omitempty"`
}

// SourceNet is a named net
type SourceNet struct {
	SourceNetID string `json:"source_net_id"`
	Name        string `json:"name,omitempty"`
}

func (*PcbTrace) ElementType() string        { return TypePcbTrace }
func (*PcbSMTPad) ElementType() string       { return TypePcbSMTPad }
func (*PcbPlatedHole) ElementType() string   { return TypePcbPlatedHole }
func (*PcbHole) ElementType() string         { return TypePcbHole }
func (*PcbVia) ElementType() string          { return TypePcbVia }
func (*PcbKeepout) ElementType() string      { return TypePcbKeepout }
func (*PcbBoard) ElementType() string        { return TypePcbBoard }
func (*PcbPort) ElementType() string         { return TypePcbPort }
func (*PcbComponent) ElementType() string    { return TypePcbComponent }
func (*SourceTrace) ElementType() string     { return TypeSourceTrace }
func (*SourcePort) ElementType() string      { return TypeSourcePort }
func (*SourceComponent) ElementType() string { return TypeSourceComponent }
func (*SourceNet) ElementType() string       { return TypeSourceNet }

func (e *PcbTrace) PrimaryID() string        { return e.PcbTraceID }
func (e *PcbSMTPad) PrimaryID() string       { return e.PcbSMTPadID }
func (e *PcbPlatedHole) PrimaryID() string   { return e.PcbPlatedHoleID }
func (e *PcbHole) PrimaryID() string         { return e.PcbHoleID }
func (e *PcbVia) PrimaryID() string          { return e.PcbViaID }
func (e *PcbKeepout) PrimaryID() string      { return e.PcbKeepoutID }
func (e *PcbBoard) PrimaryID() string        { return e.PcbBoardID }
func (e *PcbPort) PrimaryID() string         { return e.PcbPortID }
func (e *PcbComponent) PrimaryID() string    { return e.PcbComponentID }
func (e *SourceTrace) PrimaryID() string     { return e.SourceTraceID }
func (e *SourcePort) PrimaryID() string      { return e.SourcePortID }
func (e *SourceComponent) PrimaryID() string { return e.SourceComponentID }
func (e *SourceNet) PrimaryID() string       { return e.SourceNetID }

func (*PcbTrace) element()        {}
func (*PcbSMTPad) element()       {}
func (*PcbPlatedHole) element()   {}
func (*PcbHole) element()         {}
func (*PcbVia) element()          {}
func (*PcbKeepout) element()      {}
func (*PcbBoard) element()        {}
func (*PcbPort) element()         {}
func (*PcbComponent) element()    {}
func (*SourceTrace) element()     {}
func (*SourcePort) element()      {}
func (*SourceComponent) element() {}
func (*SourceNet) element()       {}
