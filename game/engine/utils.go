package engine

import "strings"

// RenderLegend explains the symbols used by Render
const RenderLegend = "@ = player 1, & = player 2, * = food, T = teleport, S/s = switch on/off, | and --- = wall, # and ### = closed gate"

var tokenSymbols = []byte{'@', '&'}

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	dx := from.X - to.X
	if dx < 0 {
		dx = -dx
	}
	dy := from.Y - to.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// Render draws the state as ASCII art, one text row per grid row plus wall rows
func Render(gs *GameState) string {
	return RenderSnapshot(gs.Snapshot())
}

// RenderSnapshot draws a snapshot the same way Render draws a live state
func RenderSnapshot(snap *Snapshot) string {
	v := newSnapshotView(snap)
	n := snap.GridSize
	var b strings.Builder

	horizontal := func(y int) {
		// boundary above row y
		for x := 0; x < n; x++ {
			b.WriteByte('+')
			above, below := Position{X: x, Y: y - 1}, Position{X: x, Y: y}
			switch {
			case y == 0 || y == n:
				b.WriteString("---")
			case v.gateClosed(above, Down) || v.gateClosed(below, Up):
				b.WriteString("###")
			case v.wall(above, Down) || v.wall(below, Up):
				b.WriteString("---")
			default:
				b.WriteString("   ")
			}
		}
		b.WriteString("+\n")
	}

	for y := 0; y < n; y++ {
		horizontal(y)
		b.WriteByte('|')
		for x := 0; x < n; x++ {
			p, right := Position{X: x, Y: y}, Position{X: x + 1, Y: y}
			b.Write(v.cellSymbols(p))
			switch {
			case x == n-1:
				b.WriteByte('|')
			case v.gateClosed(p, Right) || v.gateClosed(right, Left):
				b.WriteByte('#')
			case v.wall(p, Right) || v.wall(right, Left):
				b.WriteByte('|')
			default:
				b.WriteByte(' ')
			}
		}
		b.WriteByte('\n')
	}
	horizontal(n)
	return b.String()
}

// snapshotView indexes a snapshot by position for rendering
type snapshotView struct {
	snap      *Snapshot
	walls     map[Position]map[string]bool
	gates     map[Position]Direction
	teleports map[Position]bool
	switches  map[Position]bool
	food      map[Position]bool
}

func newSnapshotView(snap *Snapshot) *snapshotView {
	v := &snapshotView{
		snap:      snap,
		walls:     make(map[Position]map[string]bool),
		gates:     make(map[Position]Direction),
		teleports: make(map[Position]bool),
		switches:  make(map[Position]bool),
		food:      make(map[Position]bool),
	}
	for _, c := range snap.Walls {
		p := Position{X: c.X, Y: c.Y}
		v.walls[p] = make(map[string]bool)
		for _, w := range c.Walls {
			v.walls[p][w] = true
		}
	}
	for _, g := range snap.Gates {
		if g.Blocking {
			v.gates[g.Pos] = g.Orientation
		}
	}
	for _, t := range snap.Teleports {
		v.teleports[t.A] = true
		v.teleports[t.B] = true
	}
	for _, sw := range snap.Switches {
		v.switches[sw.Pos] = sw.On
	}
	for _, p := range snap.Food {
		v.food[p] = true
	}
	return v
}

func (v *snapshotView) wall(p Position, d Direction) bool {
	return v.walls[p][string(d)]
}

func (v *snapshotView) gateClosed(p Position, d Direction) bool {
	blocked, ok := v.gates[p]
	return ok && blocked == d
}

func (v *snapshotView) cellSymbols(p Position) []byte {
	out := []byte{' ', ' ', ' '}
	for _, t := range v.snap.Tokens {
		if t.Pos == p {
			sym := byte('@')
			if t.ID < len(tokenSymbols) {
				sym = tokenSymbols[t.ID]
			}
			out[1] = sym
		}
	}
	if v.food[p] {
		if out[1] == ' ' {
			out[1] = '*'
		} else {
			out[0] = '*'
		}
	}
	if v.teleports[p] {
		out[2] = 'T'
	}
	if on, ok := v.switches[p]; ok {
		if on {
			out[2] = 'S'
		} else {
			out[2] = 's'
		}
	}
	return out
}
