package engine

import (
	"fmt"

	"github.com/zyedidia/generic/mapset"
)

// Snapshot is a read-only, JSON-friendly view of a GameState for renderers
type Snapshot struct {
	Level     string     `json:"level,omitempty"`
	GridSize  int        `json:"grid_size"`
	Walls     []CellView `json:"walls"`
	Tokens    []Token    `json:"tokens"`
	Food      []Position `json:"food"`
	FoodTotal int        `json:"food_total"`
	Switches  []Switch   `json:"switches,omitempty"`
	Gates     []GateView `json:"gates,omitempty"`
	Teleports []Teleport `json:"teleports,omitempty"`
	Moves     int        `json:"moves"`
	Running   bool       `json:"running"`
	Complete  bool       `json:"complete"`
}

// CellView lists the walled sides of one cell
type CellView struct {
	X     int      `json:"x"`
	Y     int      `json:"y"`
	Walls []string `json:"walls"`
}

// GateView is a gate together with its current blocking state
type GateView struct {
	Gate
	Blocking bool `json:"blocking"`
}

// Snapshot captures the current state. Cells without walls are omitted.
func (gs *GameState) Snapshot() *Snapshot {
	g := gs.Grid
	snap := &Snapshot{
		GridSize:  g.Size(),
		Tokens:    append([]Token(nil), gs.Tokens...),
		Food:      gs.Food.Positions(),
		FoodTotal: gs.Food.Total(),
		Teleports: append([]Teleport(nil), g.Teleports()...),
		Moves:     gs.Moves,
		Running:   gs.Running,
		Complete:  gs.IsComplete(),
	}
	for _, c := range g.cells {
		if walls := c.Walls.List(); len(walls) > 0 {
			snap.Walls = append(snap.Walls, CellView{X: c.Pos.X, Y: c.Pos.Y, Walls: walls})
		}
	}
	for _, sw := range g.Switches() {
		snap.Switches = append(snap.Switches, *sw)
	}
	for _, gate := range g.Gates() {
		_, blocking := gate.BlockedDirection(g.switches[gate.SwitchID])
		snap.Gates = append(snap.Gates, GateView{Gate: gate, Blocking: blocking})
	}
	return snap
}

// Restore copies the dynamic parts of snap (tokens, food, switches,
// counters) onto gs. The snapshot must come from the same level.
func (gs *GameState) Restore(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}
	if snap.GridSize != gs.Grid.Size() {
		return fmt.Errorf("snapshot grid size %d does not match level grid size %d", snap.GridSize, gs.Grid.Size())
	}
	if len(snap.Tokens) != len(gs.Tokens) {
		return fmt.Errorf("snapshot has %d tokens, level has %d", len(snap.Tokens), len(gs.Tokens))
	}
	if len(snap.Switches) != len(gs.Grid.Switches()) {
		return fmt.Errorf("snapshot has %d switches, level has %d", len(snap.Switches), len(gs.Grid.Switches()))
	}
	ids := mapset.New[int]()
	occupied := mapset.New[Position]()
	for _, t := range snap.Tokens {
		if !gs.Grid.InBounds(t.Pos) {
			return fmt.Errorf("token %d: %w", t.ID, ErrOutOfBounds)
		}
		if gs.token(t.ID) == nil {
			return fmt.Errorf("snapshot references unknown token %d", t.ID)
		}
		if ids.Has(t.ID) {
			return fmt.Errorf("snapshot lists token %d twice", t.ID)
		}
		if occupied.Has(t.Pos) {
			return fmt.Errorf("snapshot places two tokens at %s", t.Pos)
		}
		ids.Put(t.ID)
		occupied.Put(t.Pos)
	}
	for _, p := range snap.Food {
		if !gs.Food.Has(p) {
			return fmt.Errorf("snapshot food at %s is not part of the level", p)
		}
	}

	for _, t := range snap.Tokens {
		gs.token(t.ID).Pos = t.Pos
	}
	remaining := NewFoodSet(snap.Food...)
	for _, p := range gs.Food.Positions() {
		if !remaining.Has(p) {
			gs.Food.Collect(p)
		}
	}
	for i, sw := range gs.Grid.Switches() {
		sw.On = snap.Switches[i].On
	}
	gs.Moves = snap.Moves
	gs.Running = snap.Running && !gs.IsComplete()
	return nil
}
