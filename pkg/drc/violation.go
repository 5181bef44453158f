package drc

import (
	"slices"
	"strings"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geom"
)

// Violation kinds
const (
	KindTrace            = "pcb_trace_error"
	KindViaClearance     = "pcb_via_clearance_error"
	KindFootprintOverlap = "pcb_footprint_overlap_error"
	KindPlacement        = "pcb_placement_error"
	KindComponentOutside = "pcb_component_outside_board_error"
	KindPortNotConnected = "pcb_port_not_connected_error"
	KindMissingPcbTrace  = "source_trace_not_connected_error"
)

// Violation is one reported rule failure. ActualClearance is negative when
// the participants physically overlap. Clearances are zero for checks that
// do not measure a gap.
type Violation struct {
	Kind              string     `json:"kind"`
	Check             string     `json:"check"`
	ID                string     `json:"id"`
	Message           string     `json:"message"`
	ParticipantIDs    []string   `json:"participant_ids"`
	Center            geom.Point `json:"center"`
	RequiredClearance float64    `json:"required_clearance"`
	ActualClearance   float64    `json:"actual_clearance"`
}

// violationID joins sorted ids behind a check specific prefix
func violationID(prefix string, ids ...string) string {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	return prefix + "_" + strings.Join(sorted, "_")
}

// dedup collects violations, keeping the first of each id
type dedup struct {
	seen map[string]struct{}
	out  []Violation
}

func newDedup() *dedup {
	return &dedup{seen: make(map[string]struct{})}
}

func (d *dedup) has(id string) bool {
	_, ok := d.seen[id]
	return ok
}

// add records v unless its id was already emitted
func (d *dedup) add(v Violation) bool {
	if d.has(v.ID) {
		return false
	}
	d.seen[v.ID] = struct{}{}
	d.out = append(d.out, v)
	return true
}

func (d *dedup) violations() []Violation {
	if d.out == nil {
		return []Violation{}
	}
	return d.out
}
