package pcb

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/layout"
)

// Import parses a board from r and converts it into a layout
func Import(r io.Reader) (*layout.Layout, error) {
	b, err := Parse(r)
	if err != nil {
		return nil, err
	}
	return b.Layout(), nil
}

// ImportFile is Import over a file
func ImportFile(filename string) (*layout.Layout, error) {
	b, err := ParseFile(filename)
	if err != nil {
		return nil, err
	}
	return b.Layout(), nil
}

// converter accumulates layout records for one board
type converter struct {
	b   *Board
	out []layout.Element

	netPorts  map[int][]string // net -> source port ids
	netSource map[int]string   // net -> source trace id
	netTrace  map[int]string   // net -> first pcb trace id
}

// Layout converts the board into layout records. Ids are derived from the
// order of elements in the file so importing the same file twice yields the
// same ids. Each net with two or more pads becomes one source trace joining
// their ports; KiCad angles are clockwise on screen and are negated into
// counter-clockwise rotations.
func (b *Board) Layout() *layout.Layout {
	c := &converter{
		b:         b,
		netPorts:  make(map[int][]string),
		netSource: make(map[int]string),
		netTrace:  make(map[int]string),
	}

	for i, fp := range b.Footprints {
		for j, pad := range fp.Pads {
			if pad.Net > 0 && c.hasPort(pad) {
				c.netPorts[pad.Net] = append(c.netPorts[pad.Net], sourcePortID(i, j))
			}
		}
	}

	c.nets()
	c.board()
	for i := range b.Footprints {
		c.footprint(i)
	}
	for i, tr := range b.Tracks {
		c.track(i, tr)
	}
	for i, v := range b.Vias {
		c.via(i, v)
	}
	for i, k := range b.Keepouts {
		c.keepout(i, k)
	}

	return layout.New(c.out...)
}

func sourcePortID(fp, pad int) string { return fmt.Sprintf("source_port_%d_%d", fp, pad) }

func (c *converter) add(e ...layout.Element) {
	c.out = append(c.out, e...)
}

func (c *converter) hasPort(pad Pad) bool {
	return pad.Number != "" && pad.Type != PadNPThru && len(c.b.copperLayers(pad.Layers)) > 0
}

func (c *converter) nets() {
	for _, n := range c.b.Nets {
		if n.Number <= 0 {
			continue
		}
		netID := fmt.Sprintf("source_net_%d", n.Number)
		c.add(&layout.SourceNet{SourceNetID: netID, Name: n.Name})

		ports := c.netPorts[n.Number]
		if len(ports) < 2 {
			continue
		}
		id := fmt.Sprintf("source_trace_%d", n.Number)
		c.netSource[n.Number] = id
		c.add(&layout.SourceTrace{
			SourceTraceID:          id,
			ConnectedSourcePortIDs: ports,
			ConnectedSourceNetIDs:  []string{netID},
			DisplayName:            n.Name,
		})
	}
}

func (c *converter) board() {
	outline, ok := c.b.Outline()
	if !ok {
		return
	}
	bb := geom.BoundsOfPoints(outline...)
	c.add(&layout.PcbBoard{
		PcbBoardID: "pcb_board_0",
		Center:     bb.Center(),
		Width:      bb.Width(),
		Height:     bb.Height(),
		Outline:    outline,
	})
}

func (c *converter) footprint(i int) {
	fp := c.b.Footprints[i]
	componentID := fmt.Sprintf("pcb_component_%d", i)
	sourceID := fmt.Sprintf("source_component_%d", i)

	local := footprintBounds(fp)
	layer := "top"
	if strings.HasPrefix(fp.Layer, "B.") {
		layer = "bottom"
	}
	c.add(
		&layout.SourceComponent{SourceComponentID: sourceID, Name: fp.Reference},
		&layout.PcbComponent{
			PcbComponentID:    componentID,
			SourceComponentID: sourceID,
			Center:            toBoard(fp, local.Center()),
			Width:             local.Width(),
			Height:            local.Height(),
			Rotation:          -fp.Angle,
			Layer:             layer,
		},
	)

	for j, pad := range fp.Pads {
		c.pad(fp, i, j, pad, componentID, sourceID)
	}
}

// toBoard maps a point relative to the footprint onto the board
func toBoard(fp Footprint, p geom.Point) geom.Point {
	r := p.Rotate(-fp.Angle)
	return geom.Pt(fp.At.X+r.X, fp.At.Y+r.Y)
}

// footprintBounds returns the footprint extent in its own unrotated frame,
// taken from the courtyard when there is one and from the pads otherwise
func footprintBounds(fp Footprint) geom.Bounds {
	var pts []geom.Point
	for _, e := range fp.Courtyard {
		pts = append(pts, e.Start, e.End)
	}
	if len(pts) > 0 {
		return geom.BoundsOfPoints(pts...)
	}

	if len(fp.Pads) == 0 {
		return geom.Bounds{}
	}
	var bb geom.Bounds
	for j, pad := range fp.Pads {
		w, h := orientedSize(pad.Width, pad.Height, pad.Angle-fp.Angle)
		pb := geom.BoundsAround(pad.At, w/2, h/2)
		if j == 0 {
			bb = pb
		} else {
			bb = bb.Union(pb)
		}
	}
	return bb
}

func (c *converter) pad(fp Footprint, i, j int, pad Pad, componentID, sourceComponentID string) {
	at := toBoard(fp, pad.At)
	copper := c.b.copperLayers(pad.Layers)

	if pad.Type == PadNPThru {
		h := &layout.PcbHole{
			PcbHoleID:    fmt.Sprintf("pcb_hole_%d_%d", i, j),
			HoleShape:    "circle",
			X:            at.X,
			Y:            at.Y,
			HoleDiameter: pad.DrillWidth,
		}
		if pad.DrillOval {
			h.HoleShape = "oval"
			h.HoleWidth, h.HoleHeight = orientedSize(pad.DrillWidth, pad.DrillHeight, pad.Angle)
		}
		c.add(h)
		return
	}
	if len(copper) == 0 {
		return
	}

	portID := ""
	if c.hasPort(pad) {
		portID = fmt.Sprintf("pcb_port_%d_%d", i, j)
		sp := &layout.SourcePort{SourcePortID: sourcePortID(i, j), SourceComponentID: sourceComponentID}
		if n, err := strconv.Atoi(pad.Number); err == nil && n > 0 {
			sp.PinNumber = n
		} else {
			sp.Name = pad.Number
		}
		c.add(sp, &layout.PcbPort{
			PcbPortID:      portID,
			SourcePortID:   sp.SourcePortID,
			PcbComponentID: componentID,
			X:              at.X,
			Y:              at.Y,
			Layers:         copper,
		})
	}

	switch pad.Type {
	case PadThruHole:
		c.add(platedHole(fmt.Sprintf("pcb_plated_hole_%d_%d", i, j), componentID, portID, at, pad, copper))
	default:
		c.add(smtPad(fmt.Sprintf("pcb_smtpad_%d_%d", i, j), componentID, portID, at, pad, copper[0]))
	}
}

func smtPad(id, componentID, portID string, at geom.Point, pad Pad, layer string) *layout.PcbSMTPad {
	sp := &layout.PcbSMTPad{
		PcbSMTPadID:    id,
		PcbComponentID: componentID,
		PcbPortID:      portID,
		X:              at.X,
		Y:              at.Y,
		Layer:          layer,
	}
	w, h := orientedSize(pad.Width, pad.Height, pad.Angle)

	switch {
	case pad.Shape == "circle":
		sp.Shape = "circle"
		sp.Radius = pad.Width / 2
	case !rightAngle(pad.Angle):
		sp.Shape = "rotated_rect"
		sp.Width, sp.Height = pad.Width, pad.Height
		sp.CCWRotation = -pad.Angle
	case pad.Shape == "oval":
		sp.Shape = "pill"
		sp.Width, sp.Height = w, h
	default:
		sp.Shape = "rect"
		sp.Width, sp.Height = w, h
	}
	return sp
}

// platedHole converts a through-hole pad. Pads at odd angles fall back to
// their axis-aligned bounding size.
func platedHole(id, componentID, portID string, at geom.Point, pad Pad, layers []string) *layout.PcbPlatedHole {
	ph := &layout.PcbPlatedHole{
		PcbPlatedHoleID: id,
		PcbComponentID:  componentID,
		PcbPortID:       portID,
		X:               at.X,
		Y:               at.Y,
		HoleDiameter:    pad.DrillWidth,
		Layers:          layers,
	}
	w, h := orientedSize(pad.Width, pad.Height, pad.Angle)
	hw, hh := orientedSize(pad.DrillWidth, pad.DrillHeight, pad.Angle)

	switch {
	case pad.Shape == "circle":
		ph.Shape = "circle"
		ph.OuterDiameter = pad.Width
	case pad.Shape == "oval":
		ph.Shape = "pill"
		ph.OuterWidth, ph.OuterHeight = w, h
		ph.HoleWidth, ph.HoleHeight = hw, hh
	case pad.DrillOval:
		ph.Shape = "pill_hole_with_rect_pad"
		ph.RectPadWidth, ph.RectPadHeight = w, h
		ph.HoleWidth, ph.HoleHeight = hw, hh
	default:
		ph.Shape = "circular_hole_with_rect_pad"
		ph.RectPadWidth, ph.RectPadHeight = w, h
	}
	return ph
}

func (c *converter) track(i int, tr Track) {
	layer, ok := CopperLayer(tr.Layer)
	if !ok {
		return
	}
	id := fmt.Sprintf("pcb_trace_%d", i)
	if _, seen := c.netTrace[tr.Net]; !seen && tr.Net > 0 {
		c.netTrace[tr.Net] = id
	}

	pts := []geom.Point{tr.Start}
	if tr.Mid != nil {
		pts = append(pts, *tr.Mid)
	}
	pts = append(pts, tr.End)

	route := make([]layout.RoutePoint, len(pts))
	for k, p := range pts {
		route[k] = layout.RoutePoint{RouteType: layout.RouteWire, X: p.X, Y: p.Y, Width: tr.Width, Layer: layer}
	}
	c.add(&layout.PcbTrace{PcbTraceID: id, SourceTraceID: c.netSource[tr.Net], Route: route})
}

// via attaches each via to the first trace of its net so that it joins the
// net in connectivity
func (c *converter) via(i int, v Via) {
	c.add(&layout.PcbVia{
		PcbViaID:      fmt.Sprintf("pcb_via_%d", i),
		PcbTraceID:    c.netTrace[v.Net],
		X:             v.At.X,
		Y:             v.At.Y,
		OuterDiameter: v.Size,
		HoleDiameter:  v.Drill,
		Layers:        c.b.viaLayers(v.Layers),
	})
}

// keepout converts a rule area into the rectangle enclosing its polygon
func (c *converter) keepout(i int, k Keepout) {
	layers := c.b.copperLayers(k.Layers)
	if len(layers) == 0 {
		return
	}
	bb := geom.BoundsOfPoints(k.Outline...)
	c.add(&layout.PcbKeepout{
		PcbKeepoutID: fmt.Sprintf("pcb_keepout_%d", i),
		Shape:        "rect",
		Center:       bb.Center(),
		Width:        bb.Width(),
		Height:       bb.Height(),
		Layers:       layers,
	})
}

func rightAngle(deg float64) bool {
	r := math.Mod(math.Abs(deg), 90)
	return r < 1e-6 || 90-r < 1e-6
}

// orientedSize returns the axis-aligned extent of a w × h box turned by deg
func orientedSize(w, h, deg float64) (float64, float64) {
	r := math.Mod(math.Abs(deg), 180)
	switch {
	case r < 1e-6 || 180-r < 1e-6:
		return w, h
	case math.Abs(r-90) < 1e-6:
		return h, w
	}
	rad := deg * math.Pi / 180
	cos, sin := math.Abs(math.Cos(rad)), math.Abs(math.Sin(rad))
	return w*cos + h*sin, w*sin + h*cos
}
