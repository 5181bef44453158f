package drc

import (
	"context"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/collide"
)

// pairTest inspects one unordered pair and reports a violation for it. The
// caller fills in the id.
type pairTest func(a, b collide.Collidable) (Violation, bool)

// scanPairs runs test over every pair of items whose boxes lie within
// margin of each other. Each unordered pair is tested once, in the order its
// first member appears in items.
func (c *Checker) scanPairs(ctx context.Context, items []collide.Collidable, margin float64, prefix string, test pairTest) ([]Violation, error) {
	if len(items) < 2 {
		return []Violation{}, nil
	}
	idx, err := c.buildIndex(items)
	if err != nil {
		return nil, err
	}

	d := newDedup()
	candidates := 0
	for _, a := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, b := range idx.Query(a.Bounds(), margin) {
			if a == b || a.ID() == b.ID() {
				continue
			}
			candidates++
			id := violationID(prefix, a.ID(), b.ID())
			if d.has(id) {
				continue
			}
			v, ok := test(a, b)
			if !ok {
				continue
			}
			v.ID = id
			d.add(v)
		}
	}

	c.log.Debug("pair scan done",
		"prefix", prefix,
		"items", len(items),
		"candidates", candidates,
		"violations", len(d.out))
	return d.violations(), nil
}
