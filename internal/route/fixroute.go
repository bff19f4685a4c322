package route

import (
	"github.com/lixenwraith/qrouter/internal/design"
	"github.com/lixenwraith/qrouter/internal/grid"
)

// CommitFix builds, commits and records a route from a traced-back search
// path whose source/target seeding didn't come from RouteNet's own
// node-by-node walk — currently only antenna repair, which seeds from a
// violation's whole node subgraph and a set of free antenna taps rather
// than net.Nodes. Shares RouteNet's build/commit/SetConnections sequence
// so a fix route looks indistinguishable from one RouteNet committed.
func CommitFix(m *grid.Model, net *design.Net, srcX, srcY, srcLayer int, path []grid.Direction) *design.Route {
	rt := &design.Route{
		NetNum:   net.NetNum,
		Segments: buildSegments(m, srcX, srcY, srcLayer, path),
	}
	commitRoute(m, net, rt)
	net.Routes = append(net.Routes, rt)
	SetConnections(net, rt, m)
	return rt
}
