package pcb

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/layout"
)

// CopperLayer maps a KiCad copper layer name to a layout layer:
// F.Cu is top, B.Cu is bottom and In<n>.Cu is inner<n>.
func CopperLayer(name string) (string, bool) {
	switch name {
	case "F.Cu":
		return "top", true
	case "B.Cu":
		return "bottom", true
	}
	if !strings.HasPrefix(name, "In") || !strings.HasSuffix(name, ".Cu") {
		return "", false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "In"), ".Cu"))
	if err != nil || n < 1 {
		return "", false
	}
	inner := fmt.Sprintf("inner%d", n)
	if !slices.Contains(layout.Layers[:], inner) {
		return "", false
	}
	return inner, true
}

// copperLayers maps a KiCad layer list to layout layers in stack order.
// Wildcards such as "*.Cu" expand to every copper layer of the board and
// "F&B.Cu" to the two outer layers; non-copper layers are dropped.
func (b *Board) copperLayers(names []string) []string {
	set := make(map[string]bool)
	for _, name := range names {
		switch name {
		case "*.Cu":
			for _, l := range b.CopperLayers {
				if ll, ok := CopperLayer(l); ok {
					set[ll] = true
				}
			}
		case "F&B.Cu":
			set["top"], set["bottom"] = true, true
		default:
			if ll, ok := CopperLayer(name); ok {
				set[ll] = true
			}
		}
	}
	return stackOrder(set)
}

// viaLayers returns every board layer a via passes through. KiCad lists only
// the two end layers of the span.
func (b *Board) viaLayers(names []string) []string {
	ends := b.copperLayers(names)
	if len(ends) < 2 {
		return ends
	}
	from := slices.Index(layout.Layers[:], ends[0])
	to := slices.Index(layout.Layers[:], ends[len(ends)-1])

	set := make(map[string]bool)
	for _, l := range b.copperLayers(b.CopperLayers) {
		if i := slices.Index(layout.Layers[:], l); i >= from && i <= to {
			set[l] = true
		}
	}
	set[ends[0]], set[ends[len(ends)-1]] = true, true
	return stackOrder(set)
}

func stackOrder(set map[string]bool) []string {
	var out []string
	for _, l := range layout.Layers {
		if set[l] {
			out = append(out, l)
		}
	}
	return out
}
