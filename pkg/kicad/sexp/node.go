// Package sexp reads the s-expression syntax of KiCad board files.
package sexp

import (
	"fmt"
	"strconv"
	"strings"
)

// Node is an Atom or a *List
type Node interface {
	String() string
	node()
}

// Atom is a bare symbol, number or unquoted string
type Atom string

func (a Atom) String() string { return string(a) }
func (Atom) node()            {}

// List is a parenthesised expression. By convention the first item names it.
type List struct {
	Items []Node
	Line  int
}

func (*List) node() {}

func (l *List) String() string {
	parts := make([]string, len(l.Items))
	for i, n := range l.Items {
		parts[i] = n.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// Head returns the leading atom, or "" when the list has none
func (l *List) Head() string {
	if len(l.Items) == 0 {
		return ""
	}
	if a, ok := l.Items[0].(Atom); ok {
		return string(a)
	}
	return ""
}

// Find returns the first child list named key
func (l *List) Find(key string) (*List, bool) {
	for _, n := range l.Items {
		if c, ok := n.(*List); ok && c.Head() == key {
			return c, true
		}
	}
	return nil, false
}

// FindAll returns every child list named key in order
func (l *List) FindAll(key string) []*List {
	var out []*List
	for _, n := range l.Items {
		if c, ok := n.(*List); ok && c.Head() == key {
			out = append(out, c)
		}
	}
	return out
}

// Has reports whether sym appears as a bare atom among the items
func (l *List) Has(sym string) bool {
	for _, n := range l.Items[min(1, len(l.Items)):] {
		if a, ok := n.(Atom); ok && string(a) == sym {
			return true
		}
	}
	return false
}

// Atom returns item i as an atom. Index 0 is the head.
func (l *List) Atom(i int) (string, error) {
	if i < 0 || i >= len(l.Items) {
		return "", fmt.Errorf("(%s) line %d: missing item %d", l.Head(), l.Line, i)
	}
	a, ok := l.Items[i].(Atom)
	if !ok {
		return "", fmt.Errorf("(%s) line %d: item %d is a list", l.Head(), l.Line, i)
	}
	return string(a), nil
}

// Float returns item i parsed as a number
func (l *List) Float(i int) (float64, error) {
	s, err := l.Atom(i)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("(%s) line %d: %q is not a number", l.Head(), l.Line, s)
	}
	return v, nil
}

// Int returns item i parsed as an integer
func (l *List) Int(i int) (int, error) {
	s, err := l.Atom(i)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("(%s) line %d: %q is not an integer", l.Head(), l.Line, s)
	}
	return v, nil
}

// Strings returns every atom after the head, skipping nested lists
func (l *List) Strings() []string {
	var out []string
	for _, n := range l.Items[min(1, len(l.Items)):] {
		if a, ok := n.(Atom); ok {
			out = append(out, string(a))
		}
	}
	return out
}

// Value returns the first argument of the child list named key
func (l *List) Value(key string) (string, bool) {
	c, ok := l.Find(key)
	if !ok {
		return "", false
	}
	s, err := c.Atom(1)
	return s, err == nil
}
