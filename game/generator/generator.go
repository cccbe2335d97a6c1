// Package generator builds random levels that the solver can complete.
package generator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/wricardo/foodmaze/game/engine"
	"github.com/wricardo/foodmaze/game/solver"
)

// Mechanism selects the optional mechanism placed on a generated level
type Mechanism string

const (
	MechanismNone     Mechanism = ""
	MechanismTeleport Mechanism = "teleport"
	MechanismGate     Mechanism = "gate"
)

const (
	MinSize            = 4
	MaxSize            = 13
	MaxFood            = 20
	MaxWallProbability = 40

	// wall layouts are reused for this many placement attempts
	attemptsPerLayout = 20
	placementTries    = 1000
)

// ErrNoLevel is returned when no solvable level was found within the attempt budget
var ErrNoLevel = errors.New("no solvable level generated")

// Options controls generation
type Options struct {
	Size            int       `json:"size"`
	Players         int       `json:"players"`
	Food            int       `json:"food"`
	WallProbability int       `json:"wall_probability"`
	Mechanism       Mechanism `json:"mechanism"`
	// Candidates is the number of solvable levels to collect; the one with
	// the longest solution wins
	Candidates int    `json:"candidates"`
	Attempts   int    `json:"attempts"`
	MaxStates  int    `json:"max_states"`
	Seed       uint64 `json:"seed"`
	Name       string `json:"name"`
}

// Result is a generated level with its shortest solution
type Result struct {
	Level    *engine.LevelDescriptor `json:"level"`
	Solution *solver.Solution        `json:"solution"`
	Attempts int                     `json:"attempts"`
}

func (o *Options) normalize() error {
	if o.Size == 0 {
		o.Size = 6
	}
	if o.Players == 0 {
		o.Players = 1
	}
	if o.Food == 0 {
		o.Food = 3
	}
	if o.WallProbability == 0 {
		o.WallProbability = 20
	}
	if o.Candidates == 0 {
		o.Candidates = 1
	}
	if o.Attempts == 0 {
		o.Attempts = 500
	}
	if o.MaxStates == 0 {
		o.MaxStates = 50000
	}

	switch {
	case o.Size < MinSize || o.Size > MaxSize:
		return fmt.Errorf("size must be between %d and %d, got %d", MinSize, MaxSize, o.Size)
	case o.Players < 1 || o.Players > engine.MaxPlayers:
		return fmt.Errorf("players must be between 1 and %d, got %d", engine.MaxPlayers, o.Players)
	case o.Food < 1 || o.Food > MaxFood:
		return fmt.Errorf("food must be between 1 and %d, got %d", MaxFood, o.Food)
	case o.WallProbability < 1 || o.WallProbability > MaxWallProbability:
		return fmt.Errorf("wall probability must be between 1 and %d, got %d", MaxWallProbability, o.WallProbability)
	}
	switch o.Mechanism {
	case MechanismNone, MechanismTeleport, MechanismGate:
	default:
		return fmt.Errorf("unknown mechanism %q", o.Mechanism)
	}
	return nil
}

// Generate returns a random solvable level
func Generate(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}

	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	g := &generator{opts: opts, rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}

	var best *Result
	found := 0
	var walls [][]engine.Walls
	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if (attempt-1)%attemptsPerLayout == 0 {
			walls = g.makeWalls()
		}

		desc, ok := g.place(walls)
		if !ok {
			continue
		}
		gs, err := engine.LoadLevel(desc)
		if err != nil {
			continue
		}
		sol, err := solver.Solve(ctx, gs, solver.Options{MaxStates: opts.MaxStates})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			continue
		}
		if len(sol.Moves) == 0 {
			continue
		}

		found++
		if best == nil || len(sol.Moves) > len(best.Solution.Moves) {
			best = &Result{Level: desc, Solution: sol}
		}
		// a solved layout is not reused
		walls = g.makeWalls()
		if found >= opts.Candidates {
			best.Attempts = attempt
			return best, nil
		}
	}

	if best != nil {
		best.Attempts = opts.Attempts
		return best, nil
	}
	return nil, fmt.Errorf("%w after %d attempts", ErrNoLevel, opts.Attempts)
}

type generator struct {
	opts Options
	rng  *rand.Rand
}

// makeWalls closes the border and adds mirrored walls with the configured probability
func (g *generator) makeWalls() [][]engine.Walls {
	n := g.opts.Size
	walls := make([][]engine.Walls, n)
	for y := range walls {
		walls[y] = make([]engine.Walls, n)
	}

	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			w := &walls[y][x]
			w.Left = w.Left || x == 0
			w.Right = w.Right || x == n-1
			w.Up = w.Up || y == 0
			w.Down = w.Down || y == n-1

			for _, d := range []engine.Direction{engine.Up, engine.Down, engine.Left, engine.Right} {
				if w.Has(d) || g.rng.IntN(100) >= g.opts.WallProbability {
					continue
				}
				w.Set(d, true)
				nb := engine.Position{X: x, Y: y}.Step(d)
				walls[nb.Y][nb.X].Set(d.Opposite(), true)
			}
		}
	}
	return walls
}

// place puts food, players and the mechanism on top of walls
func (g *generator) place(walls [][]engine.Walls) (*engine.LevelDescriptor, bool) {
	n := g.opts.Size
	taken := make(map[engine.Position]bool)

	food := make([]engine.Position, 0, g.opts.Food)
	for len(food) < g.opts.Food {
		p, ok := g.foodPosition(food)
		if !ok {
			return nil, false
		}
		food = append(food, p)
		taken[p] = true
	}

	players := make([]engine.Position, 0, g.opts.Players)
	for len(players) < g.opts.Players {
		p, ok := g.freePosition(taken)
		if !ok {
			return nil, false
		}
		players = append(players, p)
		taken[p] = true
	}

	desc := &engine.LevelDescriptor{
		Name:        g.opts.Name,
		Description: fmt.Sprintf("Generated %dx%d level", n, n),
		GridSize:    n,
		Players:     players,
	}

	foodAt := make(map[engine.Position]bool, len(food))
	for _, p := range food {
		foodAt[p] = true
	}
	switch g.opts.Mechanism {
	case MechanismTeleport:
		a, okA := g.freePosition(taken)
		if okA {
			taken[a] = true
		}
		b, okB := g.freePosition(taken)
		if !okA || !okB {
			return nil, false
		}
		desc.Teleports = []engine.Position{a, b}
	case MechanismGate:
		gate, ok := g.gateGroup(walls, taken)
		if !ok {
			return nil, false
		}
		desc.Gate = gate
	}

	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			p := engine.Position{X: x, Y: y}
			desc.Cells = append(desc.Cells, engine.CellSpec{
				X:     x,
				Y:     y,
				Walls: nonNil(walls[y][x].List()),
				Food:  foodAt[p],
			})
		}
	}
	return desc, true
}

// foodPosition keeps food off adjacent cells and, while few rows and columns
// are used, off rows and columns that already hold food
func (g *generator) foodPosition(existing []engine.Position) (engine.Position, bool) {
	n := g.opts.Size
	rows := make(map[int]bool)
	cols := make(map[int]bool)
	for _, p := range existing {
		rows[p.Y] = true
		cols[p.X] = true
	}
	spread := float64(len(rows))/float64(n) < 0.8 && float64(len(cols))/float64(n) < 0.8

	for i := 0; i < placementTries; i++ {
		p := engine.Position{X: g.rng.IntN(n), Y: g.rng.IntN(n)}
		if spread && (rows[p.Y] || cols[p.X]) {
			continue
		}
		ok := true
		for _, f := range existing {
			dx, dy := abs(f.X-p.X), abs(f.Y-p.Y)
			if dx+dy <= 1 {
				ok = false
				break
			}
		}
		if ok {
			return p, true
		}
	}
	return engine.Position{}, false
}

func (g *generator) freePosition(taken map[engine.Position]bool) (engine.Position, bool) {
	n := g.opts.Size
	for i := 0; i < placementTries; i++ {
		p := engine.Position{X: g.rng.IntN(n), Y: g.rng.IntN(n)}
		if !taken[p] {
			return p, true
		}
	}
	return engine.Position{}, false
}

// gateGroup places a mirrored gate pair on an open edge and a switch on a free cell
func (g *generator) gateGroup(walls [][]engine.Walls, taken map[engine.Position]bool) (*engine.GateGroupSpec, bool) {
	n := g.opts.Size
	for i := 0; i < placementTries; i++ {
		p := engine.Position{X: g.rng.IntN(n), Y: g.rng.IntN(n)}
		d := engine.Directions[g.rng.IntN(len(engine.Directions))]
		nb := p.Step(d)
		if nb.X < 0 || nb.X >= n || nb.Y < 0 || nb.Y >= n || walls[p.Y][p.X].Has(d) {
			continue
		}
		sw, ok := g.freePosition(taken)
		if !ok {
			return nil, false
		}
		taken[sw] = true
		return &engine.GateGroupSpec{
			Switch: sw,
			Cells: []engine.GateSpec{
				{X: p.X, Y: p.Y, Orientation: string(d)},
				{X: nb.X, Y: nb.Y, Orientation: string(d.Opposite())},
			},
		}, true
	}
	return nil, false
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
