package pcb

import (
	"fmt"
	"strings"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/kicad/sexp"
)

func parseFootprints(root *sexp.List) ([]Footprint, error) {
	nets := netsByName(root)
	var out []Footprint
	for _, n := range root.FindAll("footprint") {
		fp, err := parseFootprint(n, nets)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		out = append(out, fp)
	}
	return out, nil
}

// parseFootprint reads
// (footprint "Lib:Name" (layer "F.Cu") (at x y [angle])
//
//	(property "Reference" "R1") (pad ...) (fp_line ...) ...)
func parseFootprint(node *sexp.List, nets map[string]int) (Footprint, error) {
	fp := Footprint{}
	fp.Library, _ = node.Atom(1)
	fp.Layer, _ = node.Value("layer")

	var err error
	if fp.At, fp.Angle, err = placement(node); err != nil {
		return Footprint{}, err
	}

	// KiCad 6 and later use properties, older files fp_text
	for _, p := range node.FindAll("property") {
		key, _ := p.Atom(1)
		value, _ := p.Atom(2)
		switch key {
		case "Reference":
			fp.Reference = value
		case "Value":
			fp.Value = value
		}
	}
	for _, t := range node.FindAll("fp_text") {
		kind, _ := t.Atom(1)
		text, _ := t.Atom(2)
		switch {
		case kind == "reference" && fp.Reference == "":
			fp.Reference = text
		case kind == "value" && fp.Value == "":
			fp.Value = text
		}
	}

	for _, p := range node.FindAll("pad") {
		pad, err := parsePad(p, nets)
		if err != nil {
			return Footprint{}, fmt.Errorf("failed to parse pad: line %d: %w", p.Line, err)
		}
		fp.Pads = append(fp.Pads, pad)
	}

	courtyard := "F.CrtYd"
	if strings.HasPrefix(fp.Layer, "B.") {
		courtyard = "B.CrtYd"
	}
	if fp.Courtyard, err = parseEdges(node, courtyard, "fp_"); err != nil {
		return Footprint{}, fmt.Errorf("failed to parse courtyard: %w", err)
	}

	return fp, nil
}

// parsePad reads (pad "1" smd rect (at x y [angle]) (size w h)
// (drill [oval] d [d2]) (layers ...) (net n "name"))
func parsePad(node *sexp.List, nets map[string]int) (Pad, error) {
	pad := Pad{Net: netRef(node, nets)}
	var err error
	if pad.Number, err = node.Atom(1); err != nil {
		return Pad{}, err
	}
	if pad.Type, err = node.Atom(2); err != nil {
		return Pad{}, err
	}
	if pad.Shape, err = node.Atom(3); err != nil {
		return Pad{}, err
	}
	if pad.At, pad.Angle, err = placement(node); err != nil {
		return Pad{}, err
	}

	size, ok := node.Find("size")
	if !ok {
		return Pad{}, fmt.Errorf("missing required 'size' field")
	}
	if pad.Width, err = size.Float(1); err != nil {
		return Pad{}, err
	}
	if pad.Height, err = size.Float(2); err != nil {
		return Pad{}, err
	}

	if drill, ok := node.Find("drill"); ok {
		if err := parseDrill(drill, &pad); err != nil {
			return Pad{}, fmt.Errorf("failed to parse drill: %w", err)
		}
	}
	if layers, ok := node.Find("layers"); ok {
		pad.Layers = layers.Strings()
	}
	return pad, nil
}

// parseDrill handles (drill d), (drill oval w h) and an optional trailing
// (offset x y) which is ignored
func parseDrill(node *sexp.List, pad *Pad) error {
	i := 1
	if node.Has("oval") {
		pad.DrillOval = true
		i = 2
	}
	w, err := node.Float(i)
	if err != nil {
		return err
	}
	pad.DrillWidth, pad.DrillHeight = w, w
	if pad.DrillOval {
		if h, err := node.Float(i + 1); err == nil {
			pad.DrillHeight = h
		}
	}
	return nil
}
