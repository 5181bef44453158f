package drc

import (
	"context"
	"fmt"
)

// Check names accepted by Run, Config.Disabled and rule files
const (
	CheckPortsConnected            = "ports_connected"
	CheckTraceOverlap              = "trace_overlap"
	CheckSameNetViaSpacing         = "same_net_via_spacing"
	CheckViasOffBoard              = "vias_off_board"
	CheckComponentsOutOfBoard      = "components_out_of_board"
	CheckTracesContiguous          = "traces_contiguous"
	CheckSourceTracesHavePcbTraces = "source_traces_have_pcb_traces"
	CheckDifferentNetViaSpacing    = "different_net_via_spacing"
	CheckPadOverlap                = "pad_overlap"
	CheckTracesOutOfBoard          = "traces_out_of_board"
	CheckHangingTraces             = "hanging_traces"
)

// CheckInfo describes a registered check
type CheckInfo struct {
	Name        string
	Description string
}

type check struct {
	CheckInfo
	run func(*Checker, context.Context) ([]Violation, error)
}

// checks in RunAll order
var checks = []check{
	{CheckInfo{CheckPortsConnected, "pcb ports reached by a route or joined by a source trace"}, (*Checker).CheckPortsConnected},
	{CheckInfo{CheckTraceOverlap, "trace clearance to traces, pads, holes, vias and keepouts"}, (*Checker).CheckTraceOverlap},
	{CheckInfo{CheckSameNetViaSpacing, "spacing between vias on one net"}, (*Checker).CheckSameNetViaSpacing},
	{CheckInfo{CheckViasOffBoard, "vias inside the board edge"}, (*Checker).CheckViasOffBoard},
	{CheckInfo{CheckComponentsOutOfBoard, "component footprints inside the board"}, (*Checker).CheckComponentsOutOfBoard},
	{CheckInfo{CheckTracesContiguous, "routes reach the pads of their source trace"}, (*Checker).CheckTracesContiguous},
	{CheckInfo{CheckSourceTracesHavePcbTraces, "source traces are routed"}, (*Checker).CheckSourceTracesHavePcbTraces},
	{CheckInfo{CheckDifferentNetViaSpacing, "spacing between vias on different nets"}, (*Checker).CheckDifferentNetViaSpacing},
	{CheckInfo{CheckPadOverlap, "pads of different footprints do not overlap"}, (*Checker).CheckPadOverlap},
	{CheckInfo{CheckTracesOutOfBoard, "traces inside the board and clear of its edge"}, (*Checker).CheckTracesOutOfBoard},
	{CheckInfo{CheckHangingTraces, "route ends connect to something"}, (*Checker).CheckHangingTraces},
}

// Checks lists every check in RunAll order
func Checks() []CheckInfo {
	out := make([]CheckInfo, len(checks))
	for i, ch := range checks {
		out[i] = ch.CheckInfo
	}
	return out
}

// CheckNames lists every check name in RunAll order
func CheckNames() []string {
	out := make([]string, len(checks))
	for i, ch := range checks {
		out[i] = ch.Name
	}
	return out
}

func lookupCheck(name string) (check, bool) {
	for _, ch := range checks {
		if ch.Name == name {
			return ch, true
		}
	}
	return check{}, false
}

// Run runs one check by name, regardless of Config.Disabled
func (c *Checker) Run(ctx context.Context, name string) ([]Violation, error) {
	ch, ok := lookupCheck(name)
	if !ok {
		return nil, fmt.Errorf("unknown check %q", name)
	}
	return c.run(ctx, ch)
}

func (c *Checker) run(ctx context.Context, ch check) ([]Violation, error) {
	vs, err := ch.run(c, ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ch.Name, err)
	}
	for i := range vs {
		vs[i].Check = ch.Name
	}
	c.log.Debug("check finished", "check", ch.Name, "violations", len(vs))
	return vs, nil
}

// RunAll runs every enabled check in order and concatenates the results
func (c *Checker) RunAll(ctx context.Context) ([]Violation, error) {
	out := []Violation{}
	for _, ch := range checks {
		if !c.cfg.Enabled(ch.Name) {
			c.log.Debug("check disabled", "check", ch.Name)
			continue
		}
		vs, err := c.run(ctx, ch)
		if err != nil {
			return nil, err
		}
		out = append(out, vs...)
	}
	return out, nil
}
