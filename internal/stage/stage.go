// Package stage drives the three-pass routing schedule: an initial sweep
// over every net, a rip-up-and-reroute pass over whatever failed, and a
// final cleanup rip-up pass over every net. Grounded on qrouter.c's
// dofirststage/dosecondstage/dothirdstage. A generic hierarchical or
// event-driven state machine doesn't fit here: a net only ever moves
// forward through these three sequential batch passes, so a flat
// design.NetStatus enum plus plain Go control flow covers it without
// that machinery.
package stage

import (
	"fmt"

	"github.com/lixenwraith/qrouter/internal/design"
)

// RouteNetFunc attempts to route net, treating already-routed nets as
// either hard blockages (onlyBreak == false) or as rip-up-able costs
// (onlyBreak == true). It returns nil on success.
type RouteNetFunc func(net *design.Net, onlyBreak bool) error

// CollidingFunc returns the set of already-routed nets whose geometry
// collides with a hypothetical route for net, so the second stage can
// rip them up and requeue them.
type CollidingFunc func(net *design.Net) []*design.Net

// RipupFunc removes net's current route from the grid, leaving it
// unrouted.
type RipupFunc func(net *design.Net) error

// RestoreFunc re-commits a previously saved route list for net exactly as
// it was, used by the third stage to put routes back after a cleanup
// rip-up's retry fails.
type RestoreFunc func(net *design.Net, routes []*design.Route) error

// Orchestrator runs the three-stage schedule over one design.
type Orchestrator struct {
	Design    *design.Design
	Route     RouteNetFunc
	Colliding CollidingFunc
	Ripup     RipupFunc
	Restore   RestoreFunc

	// RipLimit bounds how many colliding nets a single rip-up may remove
	// at once; beyond this the rip-up is abandoned rather than cascading
	// through the whole design.
	RipLimit int

	// Effort spaces the second stage's progress samples: every Effort
	// net-rounds, the current remaining-failed count is added to a
	// three-sample sliding window, and the stage stops once the oldest
	// sample is no larger than the newest. Zero is treated as 1 (sample
	// every round).
	Effort int

	failed []*design.Net
	// lastRipped holds the nets ripped up by the most recent
	// ripupColliding call, read back by SecondStage in the same iteration.
	lastRipped []*design.Net
}

func netsToRoute(d *design.Design) []*design.Net {
	var out []*design.Net
	for _, net := range d.Nets {
		if net.HasFlag(design.NetIgnored) || net.Status == design.NetStatusAbandoned {
			continue
		}
		if len(net.Nodes) >= 2 {
			out = append(out, net)
			continue
		}
		if len(net.Nodes) == 1 && (net.Use == design.UsePower || net.Use == design.UseGround) {
			out = append(out, net)
		}
	}
	return out
}

// FirstStage routes every routable net once, treating already-routed nets
// as hard blockages. Nets that fail are appended to the orchestrator's
// failed list for the second stage to pick up. Returns the number of
// nets that failed. Grounded on qrouter.c's dofirststage.
func (o *Orchestrator) FirstStage() int {
	o.failed = nil
	for _, net := range o.Design.Nets {
		if net.Status == design.NetStatusAbandoned {
			o.failed = append(o.failed, net)
		}
	}
	for _, net := range netsToRoute(o.Design) {
		if err := o.Route(net, false); err != nil {
			net.Status = design.NetStatusFailed
			o.failed = append(o.failed, net)
			continue
		}
		net.Status = design.NetStatusRouted
	}
	return len(o.failed)
}

// SecondStage repeatedly rip-up-and-reroutes the failed list: each net is
// first retried with crossing of other nets' cells allowed (onlyBreak), and
// if that fails its colliding nets are ripped up and requeued with it. Progress is sampled every Effort
// net-rounds into a three-entry sliding window; once the oldest sample is
// no larger than the newest, the remaining-count has stopped shrinking and
// the stage stops rather than cycling the same nets forever. Grounded on
// qrouter.c's dosecondstage/route_net_ripup/ripup_colliding.
func (o *Orchestrator) SecondStage() int {
	effort := o.Effort
	if effort <= 0 {
		effort = 1
	}
	var samples []int
	round := 0

	for {
		if len(o.failed) == 0 {
			return 0
		}

		current := o.failed
		var next []*design.Net
		changed := false

		for _, net := range current {
			if err := o.Route(net, true); err == nil {
				net.Status = design.NetStatusRouted
				changed = true
				continue
			}

			ripped, err := o.ripupColliding(net)
			if err != nil || ripped == 0 {
				next = append(next, net)
				continue
			}
			changed = true
			next = append(next, net)
			next = append(next, o.lastRipped...)
		}

		o.failed = dedupeNets(next)
		round++

		if !changed {
			return len(o.failed)
		}

		if round%effort == 0 {
			samples = append(samples, len(o.failed))
			if len(samples) > 3 {
				samples = samples[len(samples)-3:]
			}
			if len(samples) == 3 && samples[0] <= samples[2] {
				return len(o.failed)
			}
		}
	}
}

func dedupeNets(nets []*design.Net) []*design.Net {
	seen := make(map[int]bool, len(nets))
	out := nets[:0]
	for _, n := range nets {
		if seen[n.NetNum] {
			continue
		}
		seen[n.NetNum] = true
		out = append(out, n)
	}
	return out
}

// ripupColliding finds the nets colliding with a hypothetical route for
// net, rips them up (unless that would exceed RipLimit), and adds each
// victim to net's own no-ripup exception list so later passes don't bounce
// the same pair back and forth forever.
func (o *Orchestrator) ripupColliding(net *design.Net) (int, error) {
	if o.Colliding == nil || o.Ripup == nil {
		return 0, nil
	}
	victims := o.Colliding(net)
	if o.RipLimit > 0 && len(victims) > o.RipLimit {
		return 0, fmt.Errorf("stage: %d colliding nets exceeds rip limit %d", len(victims), o.RipLimit)
	}
	o.lastRipped = o.lastRipped[:0]
	for _, victim := range victims {
		if err := o.Ripup(victim); err != nil {
			continue
		}
		victim.Status = design.NetStatusPending
		net.Forbid(victim.NetNum)
		o.lastRipped = append(o.lastRipped, victim)
	}
	return len(o.lastRipped), nil
}

// shortRouteLimit is the segment count at or below which an existing route
// is considered already minimal: cleanup rip-up has nothing to gain by
// tearing it up and trying again.
const shortRouteLimit = 3

// allRoutesShort reports whether every one of routes has shortRouteLimit
// segments or fewer. A net with no existing routes at all (never
// successfully routed) is not "short" — it still has everything to gain
// from an attempt.
func allRoutesShort(routes []*design.Route) bool {
	if len(routes) == 0 {
		return false
	}
	for _, rt := range routes {
		if len(rt.Segments) > shortRouteLimit {
			return false
		}
	}
	return true
}

// ThirdStage makes a final cleanup rip-up pass over every net in the
// design: save its existing routes aside, rip it up, and try a fresh
// route with relaxed blockage handling. A successful retry discards the
// saved routes; a failed one restores them exactly, on the reasoning that
// a working (if imperfect) route beats none. Nets with no existing
// routes have nothing to restore, so a failed retry there just leaves
// them failed. Nets whose existing routes are already short are skipped
// outright — there is nothing a rip-up-and-retry could improve. Grounded
// on qrouter.c's dothirdstage.
func (o *Orchestrator) ThirdStage() int {
	failedSet := make(map[int]bool, len(o.failed))
	for _, net := range o.failed {
		failedSet[net.NetNum] = true
	}

	for _, net := range o.Design.Nets {
		if net.HasFlag(design.NetIgnored) || allRoutesShort(net.Routes) {
			continue
		}

		saved := net.Routes
		if len(saved) > 0 {
			if err := o.Ripup(net); err != nil {
				continue
			}
		}

		if err := o.Route(net, true); err == nil {
			net.Status = design.NetStatusRouted
			delete(failedSet, net.NetNum)
			continue
		}

		if len(saved) > 0 && o.Restore != nil {
			o.Restore(net, saved)
			delete(failedSet, net.NetNum)
			continue
		}

		net.Status = design.NetStatusAbandoned
		failedSet[net.NetNum] = true
	}

	var stillFailed []*design.Net
	for _, net := range o.Design.Nets {
		if failedSet[net.NetNum] {
			stillFailed = append(stillFailed, net)
		}
	}
	o.failed = stillFailed
	return len(o.failed)
}

// Failed returns the current failed-net list.
func (o *Orchestrator) Failed() []*design.Net { return o.failed }
