// Package route turns a Searcher's traced-back path into a committed
// design.Route, and undoes that commitment on rip-up. It is the concrete
// implementation behind stage.RouteNetFunc/CollidingFunc/RipupFunc: the
// stage package only knows about those three function signatures, and this
// package is what stage.Orchestrator is wired to in practice.
package route

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/lixenwraith/qrouter/internal/design"
	"github.com/lixenwraith/qrouter/internal/grid"
	"github.com/lixenwraith/qrouter/internal/search"
	"github.com/lixenwraith/qrouter/internal/tech"
)

// Router owns the grid, technology and design a design routes against.
type Router struct {
	Model  *grid.Model
	Tech   *tech.Technology
	Design *design.Design

	// SegmentCost, ViaCost, OffsetCost and BlockCost, when nonzero, are
	// propagated onto every Searcher this Router creates. Set from
	// internal/config's "cost" command via internal/router.Context.
	SegmentCost int
	ViaCost     int
	OffsetCost  int
	BlockCost   int

	// ViaStack caps the number of consecutive via layers a search may
	// stack at the same (x,y), set from internal/config's "via stack N"
	// command. Zero means unbounded.
	ViaStack int
}

func (r *Router) newSearcher() *search.Searcher {
	s := search.NewSearcher(r.Model, r.Tech)
	s.SegmentCost = r.SegmentCost
	s.ViaCost = r.ViaCost
	s.OffsetCost = r.OffsetCost
	s.BlockCost = r.BlockCost
	s.ViaStack = r.ViaStack
	return s
}

// NewRouter returns a Router over m and d using t for layer preference and
// cost.
func NewRouter(m *grid.Model, t *tech.Technology, d *design.Design) *Router {
	return &Router{Model: m, Tech: t, Design: d}
}

// RouteNet connects every node of net with a sequence of two-point maze
// searches, growing the connected set one node at a time in node order:
// each pass seeds the search from every node already reachable (its own
// taps, plus every cell of every route committed so far) and searches for
// the next node in the net's node list. onlyBreak allows the search to
// cross cells owned by other nets, at a steep cost, instead of treating
// them as a hard wall — used by the stage package's second and third
// passes.
//
// A net with fewer than two nodes (a single power/ground tap) needs no
// wire and returns immediately. Grounded on qrouter.c's doroute/route_setup/
// route_segs/commit_proute/route_set_connections sequence.
func (r *Router) RouteNet(net *design.Net, onlyBreak bool) error {
	if len(net.Nodes) < 2 {
		return nil
	}
	if len(net.Routes) > 0 {
		r.Ripup(net)
	}

	connected := bitset.New(uint(len(net.Nodes)))
	connected.Set(0)
	var remaining []int
	for i := 1; i < len(net.Nodes); i++ {
		remaining = append(remaining, i)
	}

	for len(remaining) > 0 {
		targetIdx := remaining[0]
		remaining = remaining[1:]

		s := r.newSearcher()
		s.ForceRoutable = onlyBreak
		s.NetNum = net.NetNum

		for idx, e := connected.NextSet(0); e; idx, e = connected.NextSet(idx + 1) {
			seedNodeTaps(s, net.Nodes[idx], true)
		}
		for _, rt := range net.Routes {
			seedRouteCells(s, rt)
		}
		seedNodeTaps(s, net.Nodes[targetIdx], false)

		res := s.Run()
		if !res.OK {
			s.Reset()
			return fmt.Errorf("route: no path found to node %d of net %s", targetIdx, net.Name)
		}
		path, srcX, srcY, srcLayer := s.TraceBack(res.X, res.Y, res.Layer)
		s.Reset()

		rt := &design.Route{
			NetNum:   net.NetNum,
			Segments: buildSegments(r.Model, srcX, srcY, srcLayer, path),
		}
		commitRoute(r.Model, net, rt)
		net.Routes = append(net.Routes, rt)
		SetConnections(net, rt, r.Model)

		connected.Set(uint(targetIdx))
	}
	return nil
}

// Ripup removes every committed route of net from the grid, clearing its
// route list and returning it to pending. Grounded on qrouter.c's
// ripup_net.
func (r *Router) Ripup(net *design.Net) error {
	for _, rt := range net.Routes {
		uncommitRoute(r.Model, rt)
	}
	net.Routes = nil
	net.Status = design.NetStatusPending
	return nil
}

// Restore re-commits routes onto the grid as net's route list, exactly as
// they were before a cleanup rip-up whose retry didn't pan out. Grounded
// on qrouter.c's dothirdstage restoring the saved ROUTE list when a retry
// fails.
func (r *Router) Restore(net *design.Net, routes []*design.Route) error {
	net.Routes = routes
	for _, rt := range routes {
		commitRoute(r.Model, net, rt)
	}
	net.Status = design.NetStatusRouted
	return nil
}

// Colliding reports which other nets would have to be ripped up for net to
// route cleanly: it runs the same search RouteNet would, with crossing
// other nets' geometry allowed at the steepest cost tier, and collects the
// distinct nets whose cells the winning path actually crosses. Nets net has
// already agreed not to rip up again are excluded. Grounded on qrouter.c's
// find_colliding, called from ripup_colliding.
func (r *Router) Colliding(net *design.Net) []*design.Net {
	if len(net.Nodes) < 2 {
		return nil
	}
	s := r.newSearcher()
	s.ForceRoutable = true
	s.NetNum = net.NetNum

	seedNodeTaps(s, net.Nodes[0], true)
	for i := 1; i < len(net.Nodes); i++ {
		seedNodeTaps(s, net.Nodes[i], false)
	}
	for _, rt := range net.Routes {
		seedRouteCells(s, rt)
	}

	res := s.Run()
	if !res.OK {
		s.Reset()
		return nil
	}
	path, srcX, srcY, srcLayer := s.TraceBack(res.X, res.Y, res.Layer)

	seen := make(map[int32]bool)
	var out []*design.Net
	x, y, layer := srcX, srcY, srcLayer
	for i := 0; ; i++ {
		if spoiler := s.Model.Search(x, y, layer).SpoilerNet; spoiler != 0 && !seen[spoiler] {
			seen[spoiler] = true
			if victim := r.Design.NetByNum[int(spoiler)]; victim != nil && !net.Forbids(victim.NetNum) {
				out = append(out, victim)
			}
		}
		if i >= len(path) {
			break
		}
		dx, dy, dl := dirVector(path[i])
		x, y, layer = x+dx, y+dy, layer+dl
	}
	s.Reset()
	return out
}

func seedNodeTaps(s *search.Searcher, node *design.Node, isSource bool) {
	for _, tap := range node.Taps {
		if isSource {
			s.SeedSource(tap.GridX, tap.GridY, tap.Layer)
		} else {
			s.SeedTarget(tap.GridX, tap.GridY, tap.Layer)
		}
	}
}

func seedRouteCells(s *search.Searcher, rt *design.Route) {
	for _, seg := range rt.Segments {
		walkSegment(seg, func(x, y, layer int) {
			s.SeedSource(x, y, layer)
		})
	}
}

