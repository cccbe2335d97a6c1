package engine

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Validation constants
	MinGridSize  = 1
	MaxGridSize  = 50
	MaxPlayers   = 2
	MaxBulkMoves = 50

	noMechanism = -1
)

var (
	// ErrOutOfBounds is returned when a coordinate falls outside the grid.
	ErrOutOfBounds = errors.New("position out of bounds")
	// ErrInvalidLevel is returned when a level descriptor cannot be loaded.
	ErrInvalidLevel = errors.New("invalid level")
	// ErrInvalidDirection is returned for direction strings other than up, down, left and right.
	ErrInvalidDirection = errors.New("invalid direction")
)

// Direction is one of the four grid directions
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Directions lists every direction in a fixed order
var Directions = []Direction{Up, Down, Left, Right}

// ParseDirection converts user input into a Direction
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
	return d, nil
}

// Valid reports whether d is one of the four directions
func (d Direction) Valid() bool {
	switch d {
	case Up, Down, Left, Right:
		return true
	}
	return false
}

// Delta returns the coordinate offset of a single step
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	}
	return 0, 0
}

// Opposite returns the reverse direction
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	case Right:
		return Left
	}
	return d
}

// Position represents x,y coordinates
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Step returns the adjacent position in direction d, without bounds checks
func (p Position) Step(d Direction) Position {
	dx, dy := d.Delta()
	return Position{X: p.X + dx, Y: p.Y + dy}
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Walls holds the four permanent wall flags of a cell
type Walls struct {
	Left  bool `json:"left"`
	Right bool `json:"right"`
	Up    bool `json:"up"`
	Down  bool `json:"down"`
}

// Has reports whether there is a wall on side d
func (w Walls) Has(d Direction) bool {
	switch d {
	case Left:
		return w.Left
	case Right:
		return w.Right
	case Up:
		return w.Up
	case Down:
		return w.Down
	}
	return false
}

// Set places or removes the wall on side d
func (w *Walls) Set(d Direction, on bool) {
	switch d {
	case Left:
		w.Left = on
	case Right:
		w.Right = on
	case Up:
		w.Up = on
	case Down:
		w.Down = on
	}
}

// List returns the walled sides in left, right, up, down order
func (w Walls) List() []string {
	var out []string
	for _, d := range []Direction{Left, Right, Up, Down} {
		if w.Has(d) {
			out = append(out, string(d))
		}
	}
	return out
}

// Cell is a single grid square. Mechanisms are referenced by index into the
// owning Grid, noMechanism when absent.
type Cell struct {
	Pos      Position
	Walls    Walls
	teleport int
	switchID int
	gate     int
}

// HasTeleport reports whether the cell is a teleport endpoint
func (c *Cell) HasTeleport() bool { return c.teleport != noMechanism }

// HasSwitch reports whether the cell holds a switch
func (c *Cell) HasSwitch() bool { return c.switchID != noMechanism }

// HasGate reports whether the cell holds a gate
func (c *Cell) HasGate() bool { return c.gate != noMechanism }

// Token is a player piece on the grid. IDs are stable for the lifetime of a level.
type Token struct {
	ID  int      `json:"id"`
	Pos Position `json:"pos"`
}

// MoveHistoryEntry represents a single move in the game history
type MoveHistoryEntry struct {
	Action        string     `json:"action"`
	FromPositions []Position `json:"from_positions"`
	ToPositions   []Position `json:"to_positions"`
	FoodRemaining int        `json:"food_remaining"`
	Timestamp     int64      `json:"timestamp"`
	Success       bool       `json:"success"`
	MoveNumber    int        `json:"move_number"`
}
