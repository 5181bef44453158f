package layout

// Layout is an ordered, read-only collection of records
type Layout struct {
	Elements []Element
	byID     map[string]Element
}

// New builds a layout over the given elements, preserving their order
func New(elements ...Element) *Layout {
	l := &Layout{
		Elements: elements,
		byID:     make(map[string]Element, len(elements)),
	}
	for _, e := range elements {
		if id := e.PrimaryID(); id != "" {
			if _, exists := l.byID[id]; !exists {
				l.byID[id] = e
			}
		}
	}
	return l
}

// Len returns the number of records
func (l *Layout) Len() int {
	return len(l.Elements)
}

// Lookup returns the first record with the given primary id
func (l *Layout) Lookup(id string) (Element, bool) {
	e, ok := l.byID[id]
	return e, ok
}

func ofType[T Element](l *Layout) []T {
	var out []T
	for _, e := range l.Elements {
		if v, ok := e.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func (l *Layout) Traces() []*PcbTrace               { return ofType[*PcbTrace](l) }
func (l *Layout) SMTPads() []*PcbSMTPad             { return ofType[*PcbSMTPad](l) }
func (l *Layout) PlatedHoles() []*PcbPlatedHole     { return ofType[*PcbPlatedHole](l) }
func (l *Layout) Holes() []*PcbHole                 { return ofType[*PcbHole](l) }
func (l *Layout) Vias() []*PcbVia                   { return ofType[*PcbVia](l) }
func (l *Layout) Keepouts() []*PcbKeepout           { return ofType[*PcbKeepout](l) }
func (l *Layout) Boards() []*PcbBoard               { return ofType[*PcbBoard](l) }
func (l *Layout) Ports() []*PcbPort                 { return ofType[*PcbPort](l) }
func (l *Layout) Components() []*PcbComponent       { return ofType[*PcbComponent](l) }
func (l *Layout) SourceTraces() []*SourceTrace      { return ofType[*SourceTrace](l) }
func (l *Layout) SourcePorts() []*SourcePort        { return ofType[*SourcePort](l) }
func (l *Layout) SourceComponents() []*SourceComponent {
	return ofType[*SourceComponent](l)
}
func (l *Layout) SourceNets() []*SourceNet { return ofType[*SourceNet](l) }

// Board returns the first board of the layout. Panels with several boards are
// checked against the first one only.
func (l *Layout) Board() (*PcbBoard, bool) {
	boards := l.Boards()
	if len(boards) == 0 {
		return nil, false
	}
	return boards[0], true
}

// Port returns the pcb port with the given id
func (l *Layout) Port(id string) (*PcbPort, bool) {
	p, ok := l.byID[id].(*PcbPort)
	return p, ok
}

// SourcePort returns the source port with the given id
func (l *Layout) SourcePort(id string) (*SourcePort, bool) {
	p, ok := l.byID[id].(*SourcePort)
	return p, ok
}

// SourceTrace returns the source trace with the given id
func (l *Layout) SourceTrace(id string) (*SourceTrace, bool) {
	t, ok := l.byID[id].(*SourceTrace)
	return t, ok
}

// SourceComponent returns the source component with the given id
func (l *Layout) SourceComponent(id string) (*SourceComponent, bool) {
	c, ok := l.byID[id].(*SourceComponent)
	return c, ok
}

// Component returns the pcb component with the given id
func (l *Layout) Component(id string) (*PcbComponent, bool) {
	c, ok := l.byID[id].(*PcbComponent)
	return c, ok
}
