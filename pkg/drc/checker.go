package drc

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/collide"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/layout"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/names"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/netmap"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/spatial"
)

// Checker runs design rule checks over one layout. The layout is never
// modified. A Checker is safe for concurrent use once New returns.
type Checker struct {
	layout *layout.Layout
	cfg    Config
	conn   netmap.Map
	names  names.Resolver
	log    *slog.Logger
	ports  PortIDTable
}

// Option configures a Checker
type Option func(*Checker)

// WithConfig replaces the default configuration. The config is copied.
func WithConfig(cfg *Config) Option {
	return func(c *Checker) {
		if cfg != nil {
			c.cfg = *cfg
		}
	}
}

// WithConnectivity supplies the connectivity map. By default it is derived
// from the layout with netmap.FromLayout.
func WithConnectivity(m netmap.Map) Option {
	return func(c *Checker) { c.conn = m }
}

// WithNames supplies the resolver used for message text
func WithNames(r names.Resolver) Option {
	return func(c *Checker) { c.names = r }
}

// WithLogger sets the logger for debug output. nil restores the silent
// default.
func WithLogger(l *slog.Logger) Option {
	return func(c *Checker) {
		if l == nil {
			l = newNopLogger()
		}
		c.log = l
	}
}

// New prepares a Checker. The connectivity map and inferred port ids are
// computed once here and shared by every check.
func New(l *layout.Layout, opts ...Option) (*Checker, error) {
	if l == nil {
		l = layout.New()
	}
	c := &Checker{
		layout: l,
		cfg:    *DefaultConfig(),
		log:    newNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cfg.Disabled = append([]string(nil), c.cfg.Disabled...)

	if err := c.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if c.conn == nil {
		c.conn = netmap.FromLayout(l)
	}
	if c.names == nil {
		c.names = names.FromLayout(l)
	}
	c.ports = InferPortIDs(l, c.cfg.DefaultTraceThickness)

	c.log.Debug("checker ready",
		"elements", l.Len(),
		"index", c.cfg.Index,
		"workers", c.cfg.Workers,
		"inferred_ports", len(c.ports))
	return c, nil
}

// Config returns a copy of the effective configuration
func (c *Checker) Config() Config {
	cfg := c.cfg
	cfg.Disabled = append([]string(nil), c.cfg.Disabled...)
	return cfg
}

// PortIDs returns the inferred port table used by the checks
func (c *Checker) PortIDs() PortIDTable {
	return c.ports
}

func (c *Checker) extract(defaultThickness float64) (*collide.Set, error) {
	return collide.Extract(c.layout, collide.Options{DefaultThickness: defaultThickness})
}

// indexBounds is the box an item occupies in the index. Segments are grown
// by half their thickness so their copper edge is covered.
func indexBounds(item collide.Collidable) geom.Bounds {
	if s, ok := item.(*collide.TraceSegment); ok {
		return s.Bounds().Expand(s.Thickness / 2)
	}
	return item.Bounds()
}

// buildIndex bulk-loads items into a fresh index of the configured backend
func (c *Checker) buildIndex(items []collide.Collidable) (spatial.Index[collide.Collidable], error) {
	idx, err := spatial.New[collide.Collidable](c.cfg.Index, c.cfg.CellSize)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		idx.Insert(item, indexBounds(item))
	}
	return idx, nil
}

// scan calls fn for 0..n-1 and returns the results in index order. With more
// than one worker the calls run concurrently. Cancellation is checked before
// every call.
func (c *Checker) scan(ctx context.Context, n int, fn func(i int) []Violation) ([][]Violation, error) {
	results := make([][]Violation, n)

	if c.cfg.Workers <= 1 || n < 2 {
		for i := range n {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = fn(i)
		}
		return results, nil
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for range min(c.cfg.Workers, n) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				results[i] = fn(i)
			}
		}()
	}

feed:
	for i := range n {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// merge folds per-item results through one dedup set in item order
func merge(results [][]Violation) []Violation {
	d := newDedup()
	for _, vs := range results {
		for _, v := range vs {
			d.add(v)
		}
	}
	return d.violations()
}
