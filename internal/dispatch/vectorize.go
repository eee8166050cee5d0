package dispatch

import (
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/attachments/internal/domain/unit"
)

// forEach runs fn on every unit, concurrently up to the worker limit.
// fn must only touch its own unit.
func (d *Dispatcher) forEach(units []*unit.Unit, fn func(*unit.Unit)) {
	d.forEachIndex(len(units), func(i int) { fn(units[i]) })
}

// forEachIndex runs fn for 0..n-1 and waits for all of them. A failure inside
// fn is the callee's to record, so siblings always complete.
func (d *Dispatcher) forEachIndex(n int, fn func(i int)) {
	if n == 1 || d.workers == 1 {
		for i := range n {
			fn(i)
		}
		return
	}
	var g errgroup.Group
	g.SetLimit(d.workers)
	for i := range n {
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}
