// Package router collects the technology, design, grid and routing state a
// session operates on into one Context value, plus the scripted-command
// dispatcher that drives it. Grounded on qrouter.c's command interpreter
// and the global state it mutates (NumNets, Obs, Nodeinfo, FailedNets and
// friends), reworked into an explicit value every command takes by
// pointer instead of reaching into package-level globals.
package router

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lixenwraith/qrouter/internal/antenna"
	"github.com/lixenwraith/qrouter/internal/cleanup"
	"github.com/lixenwraith/qrouter/internal/config"
	"github.com/lixenwraith/qrouter/internal/design"
	"github.com/lixenwraith/qrouter/internal/grid"
	"github.com/lixenwraith/qrouter/internal/mask"
	"github.com/lixenwraith/qrouter/internal/obstruct"
	"github.com/lixenwraith/qrouter/internal/route"
	"github.com/lixenwraith/qrouter/internal/stage"
	"github.com/lixenwraith/qrouter/internal/tech"
)

// Context is the single value every scripted command operates on in place
// of the source's global arrays: the technology and design data, the grid
// model, the router's own configuration, and the route/stage/antenna
// collaborators wired together over them. Dispatch is a method on *Context
// rather than a free function taking package-level state, so nothing here
// needs a mutex or a process-lifetime singleton to be safe to construct
// more than once (e.g. in tests).
type Context struct {
	Tech   *tech.Technology
	Design *design.Design
	Model  *grid.Model
	Config *config.Config

	Router *route.Router
	Stage  *stage.Orchestrator

	Verbosity int

	// AntennaPattern is the glob over macro names set by "antenna init
	// CELL", consumed by a later "antenna fix".
	AntennaPattern string
	violations     []antenna.Violation

	Hooks *HookRegistry
}

// New builds a Context over an already-loaded design and technology: it
// allocates the grid model at t's minimum route pitch, wires a Router and
// an Orchestrator over it, and applies cfg's cost weights. Grounded on
// qrouter.c's post-load setup sequence (create_obstructions_from_gates
// onward), minus the parts an external loader already did.
func New(d *design.Design, t *tech.Technology, cfg *config.Config) (*Context, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	pitch := t.MinRoutePitch()
	nx, ny, err := d.NumChannels(pitch)
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}
	m := grid.New(len(t.Layers), nx, ny, pitch, pitch, d.Xlb, d.Ylb)
	unreachable, err := obstruct.Analyze(m, t, d, cfg.ForceRoutable)
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	r := route.NewRouter(m, t, d)
	applyCosts(r, cfg)

	o := &stage.Orchestrator{
		Design:    d,
		Route:     r.RouteNet,
		Colliding: r.Colliding,
		Ripup:     r.Ripup,
		Restore:   r.Restore,
		RipLimit:  cfg.RipLimit,
		Effort:    cfg.Effort,
	}
	// A net left with a node that has zero reachable taps (and wasn't
	// promoted by force_routable) can never be connected by a search, so it
	// is marked failed for this run before the first stage ever attempts
	// it, matching the "recoverable tap error" policy of skipping the net
	// rather than letting it fail the same way every pass.
	for _, net := range unreachable {
		net.Status = design.NetStatusAbandoned
	}

	return &Context{
		Tech:      t,
		Design:    d,
		Model:     m,
		Config:    cfg,
		Router:    r,
		Stage:     o,
		Verbosity: cfg.Verbosity,
		Hooks:     NewHookRegistry(),
	}, nil
}

// applyCosts copies cfg's cost weights and via-stack depth onto r, the one
// place both New and readConfig need to stay in sync.
func applyCosts(r *route.Router, cfg *config.Config) {
	r.SegmentCost = cfg.Cost.Segment
	r.ViaCost = cfg.Cost.Via
	r.OffsetCost = cfg.Cost.Offset
	r.BlockCost = cfg.Cost.Block
	r.ViaStack = cfg.ViaStack
}

// errExternal marks a command whose body belongs to an external
// collaborator (file format parsing or annotated-netlist emission) rather
// than the routing core itself.
type errExternal struct{ cmd string }

func (e errExternal) Error() string {
	return fmt.Sprintf("router: %q requires an external loader/writer not implemented by the core", e.cmd)
}

// Dispatch runs one scripted command against c.
func (c *Context) Dispatch(cmd string, args []string) error {
	var err error
	switch cmd {
	case "read_lef", "read_def", "write_def", "write_delays":
		err = errExternal{cmd}
	case "read_config":
		err = c.readConfig(args)
	case "write_failed":
		err = c.writeFailed(args)
	case "stage1":
		err = c.runStage(1, args)
	case "stage2":
		err = c.runStage(2, args)
	case "stage3":
		err = c.runStage(3, args)
	case "cleanup":
		err = c.cleanupCmd(args)
	case "remove":
		err = c.removeCmd(args)
	case "failing":
		err = c.failingCmd(args)
	case "antenna":
		err = c.antennaCmd(args)
	case "obstruction":
		err = c.obstructionCmd(args)
	case "ignore":
		err = c.ignoreCmd(args)
	case "priority":
		err = c.priorityCmd(args)
	case "via":
		err = c.viaCmd(args)
	case "drc":
		err = nil // no-op: DRC reporting reads the same Obs blocked/spacing state the router already maintains
	case "layers":
		err = c.setIntField(args, func(n int) { c.setNumLayers(n) })
	case "passes":
		err = c.setIntField(args, func(n int) { c.Config.Effort = n; c.Stage.Effort = n })
	case "cost":
		err = c.costCmd(args)
	case "vdd":
		err = c.setStringField(args, func(s string) { c.Config.VddName = s })
	case "gnd":
		err = c.setStringField(args, func(s string) { c.Config.GndName = s })
	case "verbose":
		err = c.setIntField(args, func(n int) { c.Verbosity = n; c.Config.Verbosity = n })
	case "resolution":
		err = c.setIntField(args, func(n int) { c.Config.Resolution = n })
	case "layer_info":
		err = c.layerInfoCmd(args)
	case "quit":
		err = nil
	default:
		err = fmt.Errorf("router: unknown command %q", cmd)
	}
	c.Hooks.Run(cmd, args, err)
	return err
}

func (c *Context) readConfig(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("router: read_config requires a file argument")
	}
	cfg, err := config.Load(args[0])
	if err != nil {
		return err
	}
	c.Config = cfg
	c.Verbosity = cfg.Verbosity
	applyCosts(c.Router, cfg)
	c.Stage.RipLimit = cfg.RipLimit
	c.Stage.Effort = cfg.Effort
	return nil
}

// writeFailed writes a plain failed-net report, unlike write_def/
// write_delays which are full external output formats left to a loader.
func (c *Context) writeFailed(args []string) error {
	failed := c.Stage.Failed()
	var b strings.Builder
	fmt.Fprintf(&b, "%d nets failed to route:\n", len(failed))
	for _, net := range failed {
		fmt.Fprintf(&b, "%s\n", net.Name)
	}
	return writeOut(args, b.String())
}

func (c *Context) setNumLayers(n int) {
	// Layer count changes require a fresh grid allocation; qrouter.c's own
	// "layers" command only takes effect on the next grid build, so this
	// just records it for New to pick up on a future call rather than
	// resizing the live Obs/Obs2 arrays in place.
	if n > 0 && n <= len(c.Tech.Layers) {
		c.Tech.Layers = c.Tech.Layers[:n]
	}
}

func (c *Context) runStage(n int, args []string) error {
	mode, slack, disabled, err := c.Config.Mode()
	if err != nil {
		return err
	}
	var onlyNet *design.Net
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "mask":
			i++
			if i < len(args) {
				c.Config.MaskMode = args[i]
				mode, slack, disabled, err = c.Config.Mode()
				if err != nil {
					return err
				}
			}
		case "limit":
			i++
			if i < len(args) {
				if v, perr := strconv.Atoi(args[i]); perr == nil {
					c.Stage.RipLimit = v
				}
			}
		case "effort":
			i++
			if i < len(args) {
				if v, perr := strconv.Atoi(args[i]); perr == nil {
					c.Config.Effort = v
					c.Stage.Effort = v
				}
			}
		case "route":
			i++
			if i < len(args) {
				onlyNet = c.Design.NetOf[args[i]]
			}
		}
	}

	if onlyNet != nil {
		if !disabled {
			mask.Build(c.Model, onlyNet, mode, slack, 4)
		}
		return c.Router.RouteNet(onlyNet, n > 1)
	}

	if !disabled {
		for _, net := range c.Design.Nets {
			mask.Build(c.Model, net, mode, slack, 4)
		}
	}
	switch n {
	case 1:
		c.Stage.FirstStage()
	case 2:
		c.Stage.SecondStage()
	case 3:
		c.Stage.ThirdStage()
	}
	return nil
}

func (c *Context) cleanupCmd(args []string) error {
	for _, net := range c.selectNets(args) {
		cleanup.Run(net, c.Model, c.Tech)
	}
	return nil
}

func (c *Context) removeCmd(args []string) error {
	for _, net := range c.selectNets(args) {
		if err := c.Router.Ripup(net); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) selectNets(args []string) []*design.Net {
	if len(args) == 0 || args[0] == "all" {
		return c.Design.Nets
	}
	var out []*design.Net
	start := 0
	if args[0] == "net" {
		start = 1
	}
	for _, name := range args[start:] {
		if net := c.Design.NetOf[name]; net != nil {
			out = append(out, net)
		}
	}
	return out
}

func (c *Context) failingCmd(args []string) error {
	mode := "summary"
	if len(args) > 0 {
		mode = args[0]
	}
	failed := c.Stage.Failed()
	switch mode {
	case "summary":
		fmt.Printf("%d nets failed to route\n", len(failed))
	case "unordered":
		for _, net := range failed {
			fmt.Println(net.Name)
		}
	case "all":
		names := make([]string, len(failed))
		for i, net := range failed {
			names[i] = net.Name
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Println(n)
		}
	default:
		return fmt.Errorf("router: failing: unknown mode %q", mode)
	}
	return nil
}

func (c *Context) antennaCmd(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("router: antenna requires init/check/fix")
	}
	switch args[0] {
	case "init":
		if len(args) < 2 {
			return fmt.Errorf("router: antenna init requires a cell pattern")
		}
		c.AntennaPattern = args[1]
	case "check":
		c.violations = antenna.Check(c.Design, c.Model, c.Tech)
		fmt.Printf("%d antenna violations\n", len(c.violations))
	case "fix":
		if c.AntennaPattern == "" {
			return fmt.Errorf("router: antenna fix requires a prior antenna init CELL")
		}
		c.violations = antenna.Fix(c.Router, c.violations, c.AntennaPattern)
		if len(c.violations) > 0 {
			fmt.Printf("%d antenna violations could not be fixed\n", len(c.violations))
		}
	default:
		return fmt.Errorf("router: antenna: unknown subcommand %q", args[0])
	}
	return nil
}

func (c *Context) obstructionCmd(args []string) error {
	if len(args) != 5 {
		return fmt.Errorf("router: obstruction requires x1 y1 x2 y2 layer")
	}
	vals := make([]float64, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(args[i], 64)
		if err != nil {
			return fmt.Errorf("router: obstruction: %w", err)
		}
		vals[i] = v
	}
	layer, err := strconv.Atoi(args[4])
	if err != nil {
		return fmt.Errorf("router: obstruction: %w", err)
	}
	x1, y1 := c.Model.GridOf(vals[0], vals[1])
	x2, y2 := c.Model.GridOf(vals[2], vals[3])
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	for x := x1; x <= x2; x++ {
		for y := y1; y <= y2; y++ {
			if c.Model.InBounds(x, y, layer) {
				c.Model.Obstruction(x, y, layer).NoNet = true
			}
		}
	}
	return nil
}

func (c *Context) ignoreCmd(args []string) error {
	for _, name := range args {
		if net := c.Design.NetOf[name]; net != nil {
			net.SetFlag(design.NetIgnored)
		}
	}
	return nil
}

// priorityCmd moves the named nets to the front of the routing order,
// preserving their relative order and leaving everyone else's order
// otherwise unchanged, mirroring qrouter.c's high-priority net handling
// (nets explicitly named are routed first).
func (c *Context) priorityCmd(args []string) error {
	want := make(map[string]bool, len(args))
	for _, name := range args {
		want[name] = true
	}
	var front, rest []*design.Net
	for _, net := range c.Design.Nets {
		if want[net.Name] {
			front = append(front, net)
		} else {
			rest = append(rest, net)
		}
	}
	c.Design.Nets = append(front, rest...)
	return nil
}

func (c *Context) viaCmd(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("router: via requires stack N or use via-name...")
	}
	switch args[0] {
	case "stack":
		if len(args) != 2 {
			return fmt.Errorf("router: via stack requires N")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("router: via stack: %w", err)
		}
		c.Config.ViaStack = n
		c.Router.ViaStack = n
	case "use":
		// Restricting which named vias are eligible is a search-time
		// preference with no grid/array state to mutate; left to a future
		// Searcher.AllowedVias extension once a via-selection policy
		// beyond "the one table per orientation pair" is needed.
	default:
		return fmt.Errorf("router: via: unknown subcommand %q", args[0])
	}
	return nil
}

func (c *Context) costCmd(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("router: cost requires a cost kind")
	}
	kind := args[0]
	var n int
	if len(args) > 1 {
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("router: cost: %w", err)
		}
		n = v
	}
	switch kind {
	case "segment":
		c.Config.Cost.Segment = n
		c.Router.SegmentCost = n
	case "via":
		c.Config.Cost.Via = n
		c.Router.ViaCost = n
	case "jog":
		c.Config.Cost.Jog = n
	case "crossover":
		c.Config.Cost.Crossover = n
	case "block":
		c.Config.Cost.Block = n
		c.Router.BlockCost = n
	case "offset":
		c.Config.Cost.Offset = n
		c.Router.OffsetCost = n
	case "conflict":
		c.Config.Cost.Conflict = n
	default:
		return fmt.Errorf("router: cost: unknown kind %q", kind)
	}
	return nil
}

func (c *Context) layerInfoCmd(args []string) error {
	sel := "all"
	if len(args) > 0 {
		sel = args[0]
	}
	fmt.Printf("units scale %g\n", c.Design.Scales.Oscale)
	switch sel {
	case "maxlayer":
		fmt.Println(len(c.Tech.Layers) - 1)
		return nil
	case "all":
		for i := range c.Tech.Layers {
			printLayerInfo(&c.Tech.Layers[i])
		}
		return nil
	}
	n, err := strconv.Atoi(sel)
	if err != nil {
		return fmt.Errorf("router: layer_info: unknown selector %q", sel)
	}
	l := c.Tech.LayerByNumber(n)
	if l == nil {
		return fmt.Errorf("router: layer_info: no such layer %d", n)
	}
	if len(args) < 2 {
		printLayerInfo(l)
		return nil
	}
	switch args[1] {
	case "width":
		fmt.Println(l.Width)
	case "pitch":
		fmt.Println(l.PitchX, l.PitchY)
	case "orientation":
		fmt.Println(orientationName(l.Orientation))
	case "offset":
		fmt.Println(l.Offset)
	case "spacing":
		fmt.Println(l.SpacingFor(l.Width))
	default:
		return fmt.Errorf("router: layer_info: unknown field %q", args[1])
	}
	return nil
}

func printLayerInfo(l *tech.Layer) {
	fmt.Printf("%s %g %g %g %s\n", l.Name, l.PitchX, l.Offset, l.Width, orientationName(l.Orientation))
}

func orientationName(o tech.Orientation) string {
	if o == tech.Vertical {
		return "vertical"
	}
	return "horizontal"
}

func (c *Context) setIntField(args []string, set func(int)) error {
	if len(args) != 1 {
		return fmt.Errorf("router: expected exactly one integer argument")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("router: %w", err)
	}
	set(n)
	return nil
}

func (c *Context) setStringField(args []string, set func(string)) error {
	if len(args) != 1 {
		return fmt.Errorf("router: expected exactly one name argument")
	}
	set(args[0])
	return nil
}
