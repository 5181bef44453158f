// Package drc runs design rule checks over a PCB layout.
//
// A Checker owns one read-only layout. Each check builds the collidables it
// needs, bulk-loads them into a spatial index and scans them against each
// other, consulting the connectivity map so that copper on the same net is
// never reported as a conflict.
//
// # Usage
//
//	l, err := layout.Decode(f)
//	if err != nil {
//		return err
//	}
//
//	cfg := drc.DefaultConfig()
//	cfg.TraceMargin = 0.15
//
//	c, err := drc.New(l, drc.WithConfig(cfg))
//	if err != nil {
//		return err
//	}
//	violations, err := c.RunAll(ctx)
//
// # Checks
//
// Every check returns its violations in first-detected order. The id of a
// violation is a check specific prefix followed by the sorted participant
// ids, so two objects are reported at most once per check no matter which
// of them is scanned first.
//
// Violations are data. A check only fails when a record cannot be converted
// to geometry (see collide.ShapeError) or when its context is cancelled.
package drc
