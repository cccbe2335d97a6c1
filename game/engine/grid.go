package engine

import "fmt"

// Grid is an N×N board. Topology is fixed after loading; switch states are
// the only content that changes during play.
type Grid struct {
	size      int
	cells     []Cell
	teleports []Teleport
	switches  []*Switch
	gates     []Gate
}

// NewGrid creates an empty grid with no walls or mechanisms
func NewGrid(size int) (*Grid, error) {
	if size < MinGridSize || size > MaxGridSize {
		return nil, fmt.Errorf("%w: grid size must be between %d and %d, got %d", ErrInvalidLevel, MinGridSize, MaxGridSize, size)
	}
	g := &Grid{size: size, cells: make([]Cell, size*size)}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			g.cells[y*size+x] = Cell{
				Pos:      Position{X: x, Y: y},
				teleport: noMechanism,
				switchID: noMechanism,
				gate:     noMechanism,
			}
		}
	}
	return g, nil
}

// Size returns N
func (g *Grid) Size() int {
	return g.size
}

// InBounds reports whether p lies in [0,N)²
func (g *Grid) InBounds(p Position) bool {
	return p.X >= 0 && p.X < g.size && p.Y >= 0 && p.Y < g.size
}

// CellAt returns the cell at (x, y)
func (g *Grid) CellAt(x, y int) (*Cell, error) {
	p := Position{X: x, Y: y}
	if !g.InBounds(p) {
		return nil, fmt.Errorf("%w: %s on %dx%d grid", ErrOutOfBounds, p, g.size, g.size)
	}
	return g.cell(p), nil
}

func (g *Grid) cell(p Position) *Cell {
	return &g.cells[p.Y*g.size+p.X]
}

// Neighbor returns the adjacent position in direction d, or false past the edge
func (g *Grid) Neighbor(p Position, d Direction) (Position, bool) {
	n := p.Step(d)
	if !g.InBounds(n) {
		return Position{}, false
	}
	return n, true
}

// HasWall reports a permanent wall on side d of p. Out of range cells are solid.
func (g *Grid) HasWall(p Position, d Direction) bool {
	if !g.InBounds(p) {
		return true
	}
	return g.cell(p).Walls.Has(d)
}

// SetWall places or removes a single wall side. The mirrored side on the
// neighbour is left alone; use SetWallPair for symmetric walls.
func (g *Grid) SetWall(p Position, d Direction, on bool) error {
	c, err := g.CellAt(p.X, p.Y)
	if err != nil {
		return err
	}
	if on && c.HasGate() && g.gates[c.gate].Orientation == d {
		return fmt.Errorf("%w: wall %s at %s conflicts with gate", ErrInvalidLevel, d, p)
	}
	c.Walls.Set(d, on)
	return nil
}

// SetWallPair sets the wall between p and its neighbour in d on both sides
func (g *Grid) SetWallPair(p Position, d Direction, on bool) error {
	if err := g.SetWall(p, d, on); err != nil {
		return err
	}
	if n, ok := g.Neighbor(p, d); ok {
		return g.SetWall(n, d.Opposite(), on)
	}
	return nil
}

// AddTeleportPair links a and b
func (g *Grid) AddTeleportPair(a, b Position) error {
	if !g.InBounds(a) || !g.InBounds(b) {
		return fmt.Errorf("%w: teleport %s-%s out of range", ErrInvalidLevel, a, b)
	}
	if a == b {
		return fmt.Errorf("%w: teleport endpoints must differ, got %s twice", ErrInvalidLevel, a)
	}
	if g.cell(a).HasTeleport() || g.cell(b).HasTeleport() {
		return fmt.Errorf("%w: cell already holds a teleport endpoint", ErrInvalidLevel)
	}
	id := len(g.teleports)
	g.teleports = append(g.teleports, Teleport{A: a, B: b})
	g.cell(a).teleport = id
	g.cell(b).teleport = id
	return nil
}

// AddSwitch places a switch at p and returns its id
func (g *Grid) AddSwitch(p Position) (int, error) {
	if !g.InBounds(p) {
		return 0, fmt.Errorf("%w: switch %s out of range", ErrInvalidLevel, p)
	}
	c := g.cell(p)
	if c.HasSwitch() {
		return 0, fmt.Errorf("%w: duplicate switch at %s", ErrInvalidLevel, p)
	}
	id := len(g.switches)
	g.switches = append(g.switches, &Switch{Pos: p})
	c.switchID = id
	return id, nil
}

// AddGate places a gate at p bound to switch switchID
func (g *Grid) AddGate(p Position, orientation Direction, switchID int) error {
	if !g.InBounds(p) {
		return fmt.Errorf("%w: gate %s out of range", ErrInvalidLevel, p)
	}
	if !orientation.Valid() {
		return fmt.Errorf("%w: gate at %s has orientation %q", ErrInvalidLevel, p, orientation)
	}
	if switchID < 0 || switchID >= len(g.switches) {
		return fmt.Errorf("%w: gate at %s references unknown switch %d", ErrInvalidLevel, p, switchID)
	}
	c := g.cell(p)
	if c.HasGate() {
		return fmt.Errorf("%w: duplicate gate at %s", ErrInvalidLevel, p)
	}
	if c.Walls.Has(orientation) {
		return fmt.Errorf("%w: gate %s at %s overlaps a wall", ErrInvalidLevel, orientation, p)
	}
	c.gate = len(g.gates)
	g.gates = append(g.gates, Gate{Pos: p, Orientation: orientation, SwitchID: switchID})
	return nil
}

// TeleportDestination returns the partner endpoint when p is a teleport cell
func (g *Grid) TeleportDestination(p Position) (Position, bool) {
	if !g.InBounds(p) {
		return Position{}, false
	}
	c := g.cell(p)
	if !c.HasTeleport() {
		return Position{}, false
	}
	return g.teleports[c.teleport].OtherEnd(p)
}

// SwitchAt returns the switch at p, or nil
func (g *Grid) SwitchAt(p Position) *Switch {
	if !g.InBounds(p) {
		return nil
	}
	c := g.cell(p)
	if !c.HasSwitch() {
		return nil
	}
	return g.switches[c.switchID]
}

// GateAt returns the gate at p
func (g *Grid) GateAt(p Position) (Gate, bool) {
	if !g.InBounds(p) {
		return Gate{}, false
	}
	c := g.cell(p)
	if !c.HasGate() {
		return Gate{}, false
	}
	return g.gates[c.gate], true
}

// GateBlock returns the direction currently blocked by a gate at p
func (g *Grid) GateBlock(p Position) (Direction, bool) {
	gate, ok := g.GateAt(p)
	if !ok {
		return "", false
	}
	return gate.BlockedDirection(g.switches[gate.SwitchID])
}

// Teleports returns the teleport pairs
func (g *Grid) Teleports() []Teleport {
	return g.teleports
}

// Switches returns the switches in id order
func (g *Grid) Switches() []*Switch {
	return g.switches
}

// Gates returns the gates in placement order
func (g *Grid) Gates() []Gate {
	return g.gates
}

// switchStates packs switch states into a comparable key
func (g *Grid) switchStates() uint64 {
	var bits uint64
	for i, sw := range g.switches {
		if sw.On && i < 64 {
			bits |= 1 << uint(i)
		}
	}
	return bits
}

// Clone returns a deep copy; switch states are not shared
func (g *Grid) Clone() *Grid {
	c := &Grid{
		size:      g.size,
		cells:     append([]Cell(nil), g.cells...),
		teleports: append([]Teleport(nil), g.teleports...),
		gates:     append([]Gate(nil), g.gates...),
		switches:  make([]*Switch, len(g.switches)),
	}
	for i, sw := range g.switches {
		cp := *sw
		c.switches[i] = &cp
	}
	return c
}
