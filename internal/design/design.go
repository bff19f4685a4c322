package design

// Scales holds the integer/real unit multipliers needed to go between DEF
// user units, internal output units, and manufacturing-grid units
// (qrouter.h's ScaleRec).
type Scales struct {
	Iscale int     // input (DEF) units per micron
	Mscale int     // manufacturing-grid units per micron
	Oscale float64 // output scale factor
}

// Design is the placed netlist: every gate instance and every net, plus the
// die geometry needed to size the routing grid.
type Design struct {
	Name       string
	Scales     Scales
	Xlb, Ylb   float64 // die lower-left bound, microns
	Xub, Yub   float64 // die upper-right bound, microns
	Instances  []*GateInstance
	InstanceOf map[string]*GateInstance
	Nets       []*Net
	NetOf      map[string]*Net
	NetByNum   map[int]*Net
}

// NewDesign returns an empty Design ready for population by an external
// loader; callers and tests construct Design values directly.
func NewDesign(name string) *Design {
	return &Design{
		Name:       name,
		InstanceOf: make(map[string]*GateInstance),
		NetOf:      make(map[string]*Net),
		NetByNum:   make(map[int]*Net),
	}
}

// AddInstance registers a placed gate instance.
func (d *Design) AddInstance(gi *GateInstance) {
	d.Instances = append(d.Instances, gi)
	d.InstanceOf[gi.Name] = gi
}

// AddNet registers a net, keyed by both name and number.
func (d *Design) AddNet(n *Net) {
	d.Nets = append(d.Nets, n)
	d.NetOf[n.Name] = n
	d.NetByNum[n.NetNum] = n
}

// NumChannels computes the grid dimensions for the given minimum route
// pitch: the grid step is always the minimum route pitch over all routing
// layers, so coarser-pitch layers use a subset of the finer grid's lines.
func (d *Design) NumChannels(pitch float64) (nx, ny int, err error) {
	if pitch <= 0 {
		return 0, 0, errZeroPitch
	}
	width := d.Xub - d.Xlb
	height := d.Yub - d.Ylb
	nx = int(width/pitch) + 1
	ny = int(height/pitch) + 1
	if nx <= 0 || ny <= 0 {
		return 0, 0, errZeroChannels
	}
	return nx, ny, nil
}
