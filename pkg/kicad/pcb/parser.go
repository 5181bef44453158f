package pcb

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/kicad/sexp"
)

// defaultTrackWidth applies to segments that omit (width)
const defaultTrackWidth = 0.15

// ParseFile parses a .kicad_pcb file
func ParseFile(filename string) (*Board, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads a board from r
func Parse(r io.Reader) (*Board, error) {
	root, err := sexp.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse s-expression: %w", err)
	}

	if root.Head() != "kicad_pcb" {
		return nil, fmt.Errorf("not a KiCad PCB file: expected 'kicad_pcb', got '%s'", root.Head())
	}

	version, generator, err := parseHeader(root)
	if err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}
	board := &Board{Version: version, Generator: generator}

	if layers, ok := root.Find("layers"); ok {
		board.CopperLayers = parseLayerTable(layers)
	}
	if len(board.CopperLayers) == 0 {
		board.CopperLayers = []string{"F.Cu", "B.Cu"}
	}

	if board.Nets, err = parseNets(root); err != nil {
		return nil, fmt.Errorf("failed to parse nets: %w", err)
	}
	if board.Tracks, err = parseTracks(root); err != nil {
		return nil, fmt.Errorf("failed to parse tracks: %w", err)
	}
	if board.Vias, err = parseVias(root); err != nil {
		return nil, fmt.Errorf("failed to parse vias: %w", err)
	}
	if board.Footprints, err = parseFootprints(root); err != nil {
		return nil, fmt.Errorf("failed to parse footprints: %w", err)
	}
	if board.Edges, err = parseEdges(root, "Edge.Cuts", "gr_"); err != nil {
		return nil, fmt.Errorf("failed to parse board edges: %w", err)
	}
	if board.Keepouts, err = parseKeepouts(root); err != nil {
		return nil, fmt.Errorf("failed to parse keepouts: %w", err)
	}

	return board, nil
}

// parseHeader extracts (version N) and (generator X) or the older (host X)
func parseHeader(root *sexp.List) (int, string, error) {
	node, ok := root.Find("version")
	if !ok {
		return 0, "", fmt.Errorf("missing required 'version' field")
	}
	version, err := node.Int(1)
	if err != nil {
		return 0, "", fmt.Errorf("failed to parse version: %w", err)
	}
	if version < MinSupportedVersion {
		return 0, "", fmt.Errorf("unsupported KiCad version: %d (minimum required: %d / KiCad 6.0)", version, MinSupportedVersion)
	}

	generator := "unknown"
	if g, ok := root.Value("generator"); ok {
		generator = g
	} else if h, ok := root.Value("host"); ok {
		generator = h
	}
	return version, generator, nil
}

// parseLayerTable returns the copper layer names of
// (layers (0 "F.Cu" signal) (31 "B.Cu" signal) ...)
func parseLayerTable(node *sexp.List) []string {
	var out []string
	for _, item := range node.Items[1:] {
		l, ok := item.(*sexp.List)
		if !ok {
			continue
		}
		name, err := l.Atom(1)
		if err != nil {
			continue
		}
		if _, copper := CopperLayer(name); copper {
			out = append(out, name)
		}
	}
	return out
}

// parseNets reads the (net N "name") declarations at board level
func parseNets(root *sexp.List) ([]Net, error) {
	nodes := root.FindAll("net")
	nets := make([]Net, 0, len(nodes))
	for _, n := range nodes {
		number, err := n.Int(1)
		if err != nil {
			return nil, fmt.Errorf("failed to parse net number: %w", err)
		}
		name, _ := n.Atom(2)
		nets = append(nets, Net{Number: number, Name: name})
	}
	return nets, nil
}

// netRef resolves (net N) or (net N "name") or the name-only (net "name")
func netRef(node *sexp.List, nets map[string]int) int {
	n, ok := node.Find("net")
	if !ok {
		return 0
	}
	s, err := n.Atom(1)
	if err != nil {
		return 0
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return nets[s]
}

func netsByName(root *sexp.List) map[string]int {
	out := make(map[string]int)
	for _, n := range root.FindAll("net") {
		number, err := n.Int(1)
		if err != nil {
			continue
		}
		if name, err := n.Atom(2); err == nil {
			out[name] = number
		}
	}
	return out
}

// point reads (key x y) from node
func point(node *sexp.List, key string) (geom.Point, error) {
	n, ok := node.Find(key)
	if !ok {
		return geom.Point{}, fmt.Errorf("missing required '%s' position", key)
	}
	x, err := n.Float(1)
	if err != nil {
		return geom.Point{}, fmt.Errorf("failed to parse X coordinate: %w", err)
	}
	y, err := n.Float(2)
	if err != nil {
		return geom.Point{}, fmt.Errorf("failed to parse Y coordinate: %w", err)
	}
	return geom.Pt(x, y), nil
}

// placement reads (at x y [angle])
func placement(node *sexp.List) (geom.Point, float64, error) {
	at, err := point(node, "at")
	if err != nil {
		return geom.Point{}, 0, err
	}
	n, _ := node.Find("at")
	angle := 0.0
	if len(n.Items) > 3 {
		if angle, err = n.Float(3); err != nil {
			return geom.Point{}, 0, fmt.Errorf("failed to parse angle: %w", err)
		}
	}
	return at, angle, nil
}

func floatValue(node *sexp.List, key string, def float64) (float64, error) {
	n, ok := node.Find(key)
	if !ok {
		return def, nil
	}
	return n.Float(1)
}

func parseTracks(root *sexp.List) ([]Track, error) {
	nets := netsByName(root)
	var tracks []Track
	for _, n := range root.Items[1:] {
		l, ok := n.(*sexp.List)
		if !ok || (l.Head() != "segment" && l.Head() != "arc") {
			continue
		}
		tr, err := parseTrack(l, nets)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", l.Line, err)
		}
		tracks = append(tracks, tr)
	}
	return tracks, nil
}

// parseTrack reads (segment (start x y) (end x y) (width w) (layer L) (net n))
// or the same with an additional (mid x y) for arcs
func parseTrack(node *sexp.List, nets map[string]int) (Track, error) {
	tr := Track{Net: netRef(node, nets)}
	var err error
	if tr.Start, err = point(node, "start"); err != nil {
		return Track{}, err
	}
	if tr.End, err = point(node, "end"); err != nil {
		return Track{}, err
	}
	if node.Head() == "arc" {
		mid, err := point(node, "mid")
		if err != nil {
			return Track{}, err
		}
		tr.Mid = &mid
	}
	if tr.Width, err = floatValue(node, "width", defaultTrackWidth); err != nil {
		return Track{}, fmt.Errorf("failed to parse width: %w", err)
	}
	layer, ok := node.Value("layer")
	if !ok {
		return Track{}, fmt.Errorf("missing required 'layer' field")
	}
	tr.Layer = layer
	return tr, nil
}

// parseVias reads (via (at x y) (size s) (drill d) (layers A B) (net n))
func parseVias(root *sexp.List) ([]Via, error) {
	nets := netsByName(root)
	var vias []Via
	for _, n := range root.FindAll("via") {
		at, err := point(n, "at")
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		size, err := floatValue(n, "size", 0)
		if err != nil {
			return nil, fmt.Errorf("line %d: failed to parse size: %w", n.Line, err)
		}
		drill, err := floatValue(n, "drill", 0)
		if err != nil {
			return nil, fmt.Errorf("line %d: failed to parse drill: %w", n.Line, err)
		}
		v := Via{At: at, Size: size, Drill: drill, Net: netRef(n, nets)}
		if layers, ok := n.Find("layers"); ok {
			v.Layers = layers.Strings()
		}
		vias = append(vias, v)
	}
	return vias, nil
}

// parseEdges collects straight pieces of every graphic on layer. Graphics
// are the children named prefix+line, prefix+rect, prefix+poly, prefix+arc
// and prefix+circle; arcs and circles are flattened into chords.
func parseEdges(node *sexp.List, layer, prefix string) ([]Edge, error) {
	var edges []Edge
	for _, item := range node.Items[1:] {
		l, ok := item.(*sexp.List)
		if !ok {
			continue
		}
		if lay, _ := l.Value("layer"); lay != layer {
			continue
		}

		var err error
		var pieces []Edge
		switch l.Head() {
		case prefix + "line":
			pieces, err = lineEdges(l)
		case prefix + "rect":
			pieces, err = rectEdges(l)
		case prefix + "poly":
			pieces, err = polyEdges(l)
		case prefix + "arc":
			pieces, err = arcEdges(l)
		case prefix + "circle":
			pieces, err = circleEdges(l)
		default:
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", l.Line, err)
		}
		edges = append(edges, pieces...)
	}
	return edges, nil
}

func lineEdges(l *sexp.List) ([]Edge, error) {
	start, err := point(l, "start")
	if err != nil {
		return nil, err
	}
	end, err := point(l, "end")
	if err != nil {
		return nil, err
	}
	return []Edge{{start, end}}, nil
}

func rectEdges(l *sexp.List) ([]Edge, error) {
	a, err := point(l, "start")
	if err != nil {
		return nil, err
	}
	c, err := point(l, "end")
	if err != nil {
		return nil, err
	}
	b, d := geom.Pt(c.X, a.Y), geom.Pt(a.X, c.Y)
	return []Edge{{a, b}, {b, c}, {c, d}, {d, a}}, nil
}

func polyEdges(l *sexp.List) ([]Edge, error) {
	pts, err := points(l)
	if err != nil {
		return nil, err
	}
	return closedEdges(pts), nil
}

// points reads (pts (xy x y) ...)
func points(l *sexp.List) ([]geom.Point, error) {
	node, ok := l.Find("pts")
	if !ok {
		return nil, fmt.Errorf("missing required 'pts' field")
	}
	var out []geom.Point
	for _, xy := range node.FindAll("xy") {
		x, err := xy.Float(1)
		if err != nil {
			return nil, err
		}
		y, err := xy.Float(2)
		if err != nil {
			return nil, err
		}
		out = append(out, geom.Pt(x, y))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no points defined in polygon")
	}
	return out, nil
}

func closedEdges(pts []geom.Point) []Edge {
	if len(pts) < 2 {
		return nil
	}
	edges := make([]Edge, 0, len(pts))
	for i := range pts {
		edges = append(edges, Edge{pts[i], pts[(i+1)%len(pts)]})
	}
	return edges
}

// arcEdges approximates (gr_arc (start) (mid) (end)) by the two chords
// through its midpoint
func arcEdges(l *sexp.List) ([]Edge, error) {
	start, err := point(l, "start")
	if err != nil {
		return nil, err
	}
	end, err := point(l, "end")
	if err != nil {
		return nil, err
	}
	mid, err := point(l, "mid")
	if err != nil {
		return nil, err
	}
	return []Edge{{start, mid}, {mid, end}}, nil
}

// circleSides is the number of chords a circle is flattened into
const circleSides = 32

func circleEdges(l *sexp.List) ([]Edge, error) {
	center, err := point(l, "center")
	if err != nil {
		return nil, err
	}
	rim, err := point(l, "end")
	if err != nil {
		return nil, err
	}
	r := center.Distance(rim)
	pts := make([]geom.Point, circleSides)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / circleSides
		pts[i] = geom.Pt(center.X+r*math.Cos(a), center.Y+r*math.Sin(a))
	}
	return closedEdges(pts), nil
}

// parseKeepouts reads zones that forbid tracks or vias. KiCad 6 and later
// write them as (zone ... (keepout (tracks not_allowed) ...) (polygon (pts ...))).
func parseKeepouts(root *sexp.List) ([]Keepout, error) {
	var out []Keepout
	for _, z := range root.FindAll("zone") {
		ko, ok := z.Find("keepout")
		if !ok || !forbids(ko, "tracks", "vias") {
			continue
		}
		poly, ok := z.Find("polygon")
		if !ok {
			continue
		}
		pts, err := points(poly)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", z.Line, err)
		}

		k := Keepout{Outline: pts}
		if l, ok := z.Find("layers"); ok {
			k.Layers = l.Strings()
		} else if l, ok := z.Value("layer"); ok {
			k.Layers = []string{l}
		}
		out = append(out, k)
	}
	return out, nil
}

func forbids(keepout *sexp.List, kinds ...string) bool {
	for _, k := range kinds {
		if v, ok := keepout.Value(k); ok && v == "not_allowed" {
			return true
		}
	}
	return false
}
