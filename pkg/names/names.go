// Package names turns element ids into the labels used in violation messages.
// Names never influence which violations are reported.
package names

import (
	"fmt"
	"strconv"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/layout"
)

// Resolver produces a readable label for an element id
type Resolver interface {
	ReadableName(id string) string
}

// IDs resolves every id to itself
type IDs struct{}

func (IDs) ReadableName(id string) string { return id }

// LayoutResolver names elements from the records of one layout
type LayoutResolver struct {
	l *layout.Layout
}

// FromLayout returns a resolver over l
func FromLayout(l *layout.Layout) *LayoutResolver {
	return &LayoutResolver{l: l}
}

// ReadableName returns labels such as trace[GND], pcb_smtpad[.U1 > .pin3]
// or pcb_via[#pcb_via_0]. Unknown ids are returned unchanged.
func (r *LayoutResolver) ReadableName(id string) string {
	e, ok := r.l.Lookup(id)
	if !ok {
		return id
	}

	switch v := e.(type) {
	case *layout.PcbTrace:
		if st, ok := r.l.SourceTrace(v.SourceTraceID); ok && st.DisplayName != "" {
			return fmt.Sprintf("trace[%s]", st.DisplayName)
		}
		return fmt.Sprintf("trace[#%s]", v.PcbTraceID)
	case *layout.PcbSMTPad:
		return r.portLabel(layout.TypePcbSMTPad, v.PcbPortID, v.PcbSMTPadID)
	case *layout.PcbPlatedHole:
		return r.portLabel(layout.TypePcbPlatedHole, v.PcbPortID, v.PcbPlatedHoleID)
	case *layout.PcbPort:
		return r.portLabel(layout.TypePcbPort, v.PcbPortID, v.PcbPortID)
	case *layout.PcbComponent:
		if name := r.ComponentName(v.PcbComponentID); name != "" {
			return fmt.Sprintf("pcb_component[.%s]", name)
		}
	case *layout.SourceTrace:
		if v.DisplayName != "" {
			return v.DisplayName
		}
	}
	return fmt.Sprintf("%s[#%s]", e.ElementType(), id)
}

// portLabel names a pad or port after the component and pin it belongs to
func (r *LayoutResolver) portLabel(typ, portID, id string) string {
	if component, pin := r.pinName(portID); pin != "" {
		if component != "" {
			return fmt.Sprintf("%s[.%s > .%s]", typ, component, pin)
		}
		return fmt.Sprintf("%s[.%s]", typ, pin)
	}
	return fmt.Sprintf("%s[#%s]", typ, id)
}

func (r *LayoutResolver) pinName(portID string) (component, pin string) {
	port, ok := r.l.Port(portID)
	if !ok {
		return "", ""
	}
	sp, ok := r.l.SourcePort(port.SourcePortID)
	if !ok {
		return "", ""
	}

	switch {
	case sp.Name != "":
		pin = sp.Name
	case sp.PinNumber != 0:
		pin = "pin" + strconv.Itoa(sp.PinNumber)
	case len(sp.PortHints) > 0:
		pin = sp.PortHints[0]
	}
	if sc, ok := r.l.SourceComponent(sp.SourceComponentID); ok {
		component = sc.Name
	}
	return component, pin
}

// PortName returns "U1.pin3" style names for a pcb port, or the port id
func (r *LayoutResolver) PortName(portID string) string {
	component, pin := r.pinName(portID)
	switch {
	case component != "" && pin != "":
		return component + "." + pin
	case pin != "":
		return pin
	}
	return portID
}

// ComponentName returns the schematic name of a pcb component, or ""
func (r *LayoutResolver) ComponentName(pcbComponentID string) string {
	pc, ok := r.l.Component(pcbComponentID)
	if !ok {
		return ""
	}
	if sc, ok := r.l.SourceComponent(pc.SourceComponentID); ok {
		return sc.Name
	}
	return ""
}
