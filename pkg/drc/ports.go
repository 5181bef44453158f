package drc

import (
	"context"
	"fmt"
	"slices"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/layout"
)

// CheckPortsConnected reports pcb ports that no route reaches and that no
// source trace joins to a net or another port
func (c *Checker) CheckPortsConnected(ctx context.Context) ([]Violation, error) {
	routed := make(map[string]bool)
	for _, tr := range c.layout.Traces() {
		for _, id := range c.ports.PortIDs(tr) {
			routed[id] = true
		}
	}

	d := newDedup()
	for _, port := range c.layout.Ports() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if routed[port.PcbPortID] || c.joinedBySource(port.SourcePortID) {
			continue
		}
		d.add(Violation{
			Kind:           KindPortNotConnected,
			ID:             "pcb_port_not_connected_" + port.PcbPortID,
			Message:        fmt.Sprintf("PCB port %s is not connected to any net or other source ports", port.PcbPortID),
			ParticipantIDs: []string{port.PcbPortID},
			Center:         geom.Pt(port.X, port.Y),
		})
	}
	return d.violations(), nil
}

func (c *Checker) joinedBySource(sourcePortID string) bool {
	if sourcePortID == "" {
		return false
	}
	for _, st := range c.layout.SourceTraces() {
		if !slices.Contains(st.ConnectedSourcePortIDs, sourcePortID) {
			continue
		}
		if len(st.ConnectedSourcePortIDs) > 1 || len(st.ConnectedSourceNetIDs) > 0 {
			return true
		}
	}
	return false
}

// CheckSourceTracesHavePcbTraces reports source traces joining ports that
// no pcb trace implements
func (c *Checker) CheckSourceTracesHavePcbTraces(ctx context.Context) ([]Violation, error) {
	implemented := make(map[string]bool)
	for _, tr := range c.layout.Traces() {
		implemented[tr.SourceTraceID] = true
	}

	d := newDedup()
	for _, st := range c.layout.SourceTraces() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(st.ConnectedSourcePortIDs) == 0 || implemented[st.SourceTraceID] {
			continue
		}
		d.add(Violation{
			Kind:           KindMissingPcbTrace,
			ID:             "source_trace_missing_pcb_trace_" + st.SourceTraceID,
			Message:        fmt.Sprintf("Trace [%s] has no PCB traces", sourceTraceName(st)),
			ParticipantIDs: append([]string{st.SourceTraceID}, st.ConnectedSourcePortIDs...),
		})
	}
	return d.violations(), nil
}

func sourceTraceName(st *layout.SourceTrace) string {
	if st.DisplayName != "" {
		return st.DisplayName
	}
	return st.SourceTraceID
}
