package stage

import (
	"errors"
	"testing"

	"github.com/lixenwraith/qrouter/internal/design"
)

func twoNodeNet(num int, name string) *design.Net {
	return &design.Net{NetNum: num, Name: name, Nodes: []*design.Node{{}, {}}}
}

func TestFirstStageRoutesEverySuccessfulNet(t *testing.T) {
	d := design.NewDesign("t")
	n1, n2 := twoNodeNet(1, "a"), twoNodeNet(2, "b")
	d.AddNet(n1)
	d.AddNet(n2)

	o := &Orchestrator{
		Design: d,
		Route:  func(net *design.Net, onlyBreak bool) error { return nil },
	}

	if failed := o.FirstStage(); failed != 0 {
		t.Errorf("FirstStage() failed count = %d, want 0", failed)
	}
	if n1.Status != design.NetStatusRouted || n2.Status != design.NetStatusRouted {
		t.Error("expected both nets marked routed")
	}
}

func TestFirstStageSkipsSingleNodeSignalNets(t *testing.T) {
	d := design.NewDesign("t")
	stub := &design.Net{NetNum: 1, Name: "stub", Nodes: []*design.Node{{}}}
	d.AddNet(stub)

	calls := 0
	o := &Orchestrator{
		Design: d,
		Route:  func(net *design.Net, onlyBreak bool) error { calls++; return nil },
	}
	o.FirstStage()
	if calls != 0 {
		t.Errorf("Route called %d times, want 0 for a single-node signal net", calls)
	}
}

func TestSecondStageRipsUpAndRetries(t *testing.T) {
	d := design.NewDesign("t")
	failing := twoNodeNet(1, "failing")
	blocker := twoNodeNet(2, "blocker")
	d.AddNet(failing)
	d.AddNet(blocker)

	failingAttempts := 0
	o := &Orchestrator{
		Design:   d,
		RipLimit: 10,
		Route: func(net *design.Net, onlyBreak bool) error {
			switch net.NetNum {
			case 1:
				failingAttempts++
				if failingAttempts <= 2 {
					return errors.New("blocked")
				}
				return nil
			case 2:
				// The blocker never successfully reroutes once ripped up,
				// so its Pending status from the rip-up survives.
				if onlyBreak {
					return errors.New("still blocked")
				}
				return nil
			}
			return nil
		},
		Colliding: func(net *design.Net) []*design.Net {
			if net.NetNum == 1 {
				return []*design.Net{blocker}
			}
			return nil
		},
		Ripup: func(net *design.Net) error { return nil },
	}
	o.FirstStage()
	if got := o.SecondStage(); got != 1 {
		t.Errorf("SecondStage() remaining = %d, want 1 (the unrouted blocker)", got)
	}
	if failing.Status != design.NetStatusRouted {
		t.Error("expected the failing net to route after ripping up its blocker")
	}
	if blocker.Status != design.NetStatusPending {
		t.Error("expected the blocker to be marked pending after rip-up")
	}
}

func TestSecondStageEffortWindowStopsOnNoShrinkage(t *testing.T) {
	d := design.NewDesign("t")
	a := twoNodeNet(1, "a")
	b := twoNodeNet(2, "b")
	d.AddNet(a)
	d.AddNet(b)

	o := &Orchestrator{
		Design:   d,
		Effort:   1,
		RipLimit: 10,
		Route:    func(net *design.Net, onlyBreak bool) error { return errors.New("blocked") },
		Colliding: func(net *design.Net) []*design.Net {
			if net.NetNum == 1 {
				return []*design.Net{b}
			}
			return []*design.Net{a}
		},
		Ripup: func(net *design.Net) error { return nil },
	}
	o.FirstStage()
	if got := o.SecondStage(); got != 2 {
		t.Errorf("SecondStage() remaining = %d, want 2 (stalled at a constant remaining count)", got)
	}
}

func TestThirdStageSkipsAlreadyShortRoutes(t *testing.T) {
	d := design.NewDesign("t")
	net := twoNodeNet(1, "short")
	net.Routes = []*design.Route{{Segments: make([]design.Segment, 2)}}
	net.Status = design.NetStatusRouted
	d.AddNet(net)

	calls := 0
	o := &Orchestrator{
		Design: d,
		Route:  func(net *design.Net, onlyBreak bool) error { calls++; return nil },
	}
	if got := o.ThirdStage(); got != 0 {
		t.Errorf("ThirdStage() remaining = %d, want 0", got)
	}
	if calls != 0 {
		t.Errorf("Route called %d times, want 0 for a net whose routes are already short", calls)
	}
}

func TestThirdStageRestoresSavedRoutesOnFailedRetry(t *testing.T) {
	d := design.NewDesign("t")
	net := twoNodeNet(1, "long")
	saved := []*design.Route{{Segments: make([]design.Segment, 5)}}
	net.Routes = saved
	net.Status = design.NetStatusRouted
	d.AddNet(net)

	ripped, restored := false, false
	o := &Orchestrator{
		Design: d,
		Ripup: func(net *design.Net) error {
			ripped = true
			net.Routes = nil
			return nil
		},
		Route: func(net *design.Net, onlyBreak bool) error {
			return errors.New("no improvement found")
		},
		Restore: func(net *design.Net, routes []*design.Route) error {
			restored = true
			net.Routes = routes
			net.Status = design.NetStatusRouted
			return nil
		},
	}
	if got := o.ThirdStage(); got != 0 {
		t.Errorf("ThirdStage() remaining = %d, want 0 (restoring keeps the net off the failed list)", got)
	}
	if !ripped || !restored {
		t.Errorf("ripped=%v restored=%v, want both true", ripped, restored)
	}
	if len(net.Routes) != 1 || net.Status != design.NetStatusRouted {
		t.Errorf("net.Routes=%v net.Status=%v, want the saved route restored and status Routed", net.Routes, net.Status)
	}
}

func TestThirdStageAbandonsPersistentFailures(t *testing.T) {
	d := design.NewDesign("t")
	net := twoNodeNet(1, "stuck")
	d.AddNet(net)

	o := &Orchestrator{
		Design: d,
		Route:  func(net *design.Net, onlyBreak bool) error { return errors.New("no path") },
	}
	o.FirstStage()
	o.SecondStage()
	if got := o.ThirdStage(); got != 1 {
		t.Errorf("ThirdStage() remaining = %d, want 1", got)
	}
	if net.Status != design.NetStatusAbandoned {
		t.Error("expected the persistently failing net to be marked abandoned")
	}
}
