package rules

import (
	"fmt"
	"math"
	"slices"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/drc"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/spatial"
	"github.com/alecthomas/participle/v2/lexer"
)

// Length units in millimeters
var units = map[string]float64{
	"":    1,
	"mm":  1,
	"um":  0.001,
	"mil": 0.0254,
	"in":  25.4,
}

// UnknownRuleError reports a rule key the engine does not know
type UnknownRuleError struct {
	Pos       lexer.Position
	Key       string
	Qualifier string
}

func (e *UnknownRuleError) Error() string {
	key := e.Key
	if e.Qualifier != "" {
		key += "[" + e.Qualifier + "]"
	}
	return fmt.Sprintf("%s: unknown rule %q", e.Pos, key)
}

// lengthRules map plain length keys to the config field they set
var lengthRules = map[string]func(*drc.Config) *float64{
	"trace_clearance":     func(c *drc.Config) *float64 { return &c.TraceMargin },
	"trace_thickness":     func(c *drc.Config) *float64 { return &c.DefaultTraceThickness },
	"via_board_clearance": func(c *drc.Config) *float64 { return &c.ViaBoardMargin },
	"board_clearance":     func(c *drc.Config) *float64 { return &c.BoardMargin },
	"board_trace_width":   func(c *drc.Config) *float64 { return &c.BoardTraceWidth },
	"cell_size":           func(c *drc.Config) *float64 { return &c.CellSize },
}

// Apply writes every rule onto cfg in file order and validates the result.
// Later rules override earlier ones.
func (f *File) Apply(cfg *drc.Config) error {
	for _, r := range f.Rules {
		if err := r.apply(cfg); err != nil {
			return err
		}
	}
	return cfg.Validate()
}

func (r *Rule) apply(cfg *drc.Config) error {
	unknown := &UnknownRuleError{Pos: r.Pos, Key: r.Key, Qualifier: r.Qualifier}

	if field, ok := lengthRules[r.Key]; ok {
		if r.Qualifier != "" {
			return unknown
		}
		mm, err := r.length()
		if err != nil {
			return err
		}
		*field(cfg) = mm
		return nil
	}

	switch r.Key {
	case "via_clearance":
		mm, err := r.length()
		if err != nil {
			return err
		}
		switch r.Qualifier {
		case "same_net":
			cfg.SameNetViaMargin = mm
		case "different_net":
			cfg.DifferentNetViaMargin = mm
		case "":
			cfg.SameNetViaMargin, cfg.DifferentNetViaMargin = mm, mm
		default:
			return unknown
		}

	case "index":
		if r.Value.Word == "" {
			return r.errorf("expected %s or %s", spatial.BackendHash, spatial.BackendRTree)
		}
		cfg.Index = spatial.Backend(r.Value.Word)

	case "workers":
		q := r.Value.Quantity
		if q == nil || q.Unit != "" || q.Number != math.Trunc(q.Number) || q.Number < 1 {
			return r.errorf("expected a positive whole number")
		}
		cfg.Workers = int(q.Number)

	case "disable":
		names, err := r.checkNames()
		if err != nil {
			return err
		}
		for _, name := range names {
			if !slices.Contains(cfg.Disabled, name) {
				cfg.Disabled = append(cfg.Disabled, name)
			}
		}

	case "enable":
		names, err := r.checkNames()
		if err != nil {
			return err
		}
		cfg.Disabled = slices.DeleteFunc(cfg.Disabled, func(name string) bool {
			return slices.Contains(names, name)
		})

	default:
		return unknown
	}
	return nil
}

// length converts a quantity to millimeters. A bare number is in mm.
func (r *Rule) length() (float64, error) {
	q := r.Value.Quantity
	if q == nil {
		return 0, r.errorf("expected a length")
	}
	scale, ok := units[q.Unit]
	if !ok {
		return 0, r.errorf("unknown unit %q", q.Unit)
	}
	return q.Number * scale, nil
}

// checkNames returns the check names of a list value. A single name may be
// written without brackets.
func (r *Rule) checkNames() ([]string, error) {
	names := r.Value.List
	if r.Value.Word != "" {
		names = []string{r.Value.Word}
	}
	if r.Value.Quantity != nil {
		return nil, r.errorf("expected a list of checks")
	}
	for _, name := range names {
		if !slices.Contains(drc.CheckNames(), name) {
			return nil, r.errorf("unknown check %q", name)
		}
	}
	return names, nil
}

func (r *Rule) errorf(format string, args ...any) error {
	return fmt.Errorf("%s: %s: %s", r.Pos, r.Key, fmt.Sprintf(format, args...))
}

// Load parses the rule file at path and applies it onto cfg
func Load(path string, cfg *drc.Config) error {
	p, err := NewParser()
	if err != nil {
		return err
	}
	f, err := p.ParseFile(path)
	if err != nil {
		return err
	}
	if err := f.Apply(cfg); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
