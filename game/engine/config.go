package engine

import (
	"encoding/json"
	"fmt"
	"os"
)

// LevelDescriptor is the JSON level format
type LevelDescriptor struct {
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	GridSize    int            `json:"gridSize"`
	Cells       []CellSpec     `json:"cells"`
	Players     []Position     `json:"players"`
	Teleports   []Position     `json:"teleports,omitempty"`
	Gate        *GateGroupSpec `json:"gate,omitempty"`
}

// CellSpec describes walls and food for one cell. Omitted cells are open and empty.
type CellSpec struct {
	X     int      `json:"x"`
	Y     int      `json:"y"`
	Walls []string `json:"walls"`
	Food  bool     `json:"food"`
}

// GateGroupSpec is one switch and the gates it controls
type GateGroupSpec struct {
	Switch Position   `json:"switch"`
	Cells  []GateSpec `json:"cells"`
}

// GateSpec places a single gate
type GateSpec struct {
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Orientation string `json:"orientation"`
}

// FoodPositions returns the positions of every cell marked with food
func (d *LevelDescriptor) FoodPositions() []Position {
	var out []Position
	for _, c := range d.Cells {
		if c.Food {
			out = append(out, Position{X: c.X, Y: c.Y})
		}
	}
	return out
}

// ValidateLevel checks a descriptor for everything LoadLevel relies on
func ValidateLevel(desc *LevelDescriptor) error {
	_, err := LoadLevel(desc)
	return err
}

// LoadLevel builds a running GameState from a descriptor
func LoadLevel(desc *LevelDescriptor) (*GameState, error) {
	if desc == nil {
		return nil, fmt.Errorf("%w: descriptor is nil", ErrInvalidLevel)
	}

	grid, err := NewGrid(desc.GridSize)
	if err != nil {
		return nil, err
	}

	var food []Position
	for i, cs := range desc.Cells {
		p := Position{X: cs.X, Y: cs.Y}
		if !grid.InBounds(p) {
			return nil, fmt.Errorf("%w: cells[%d] at %s is outside the %dx%d grid", ErrInvalidLevel, i, p, desc.GridSize, desc.GridSize)
		}
		for _, w := range cs.Walls {
			d := Direction(w)
			if !d.Valid() {
				return nil, fmt.Errorf("%w: cells[%d] has unknown wall %q", ErrInvalidLevel, i, w)
			}
			if err := grid.SetWall(p, d, true); err != nil {
				return nil, err
			}
		}
		if cs.Food {
			food = append(food, p)
		}
	}
	if len(food) == 0 {
		return nil, fmt.Errorf("%w: level has no food", ErrInvalidLevel)
	}

	if len(desc.Players) < 1 || len(desc.Players) > MaxPlayers {
		return nil, fmt.Errorf("%w: expected 1 to %d players, got %d", ErrInvalidLevel, MaxPlayers, len(desc.Players))
	}
	tokens := make([]Token, 0, len(desc.Players))
	for i, p := range desc.Players {
		if !grid.InBounds(p) {
			return nil, fmt.Errorf("%w: player %d at %s is outside the grid", ErrInvalidLevel, i, p)
		}
		for _, other := range tokens {
			if other.Pos == p {
				return nil, fmt.Errorf("%w: players %d and %d share %s", ErrInvalidLevel, other.ID, i, p)
			}
		}
		tokens = append(tokens, Token{ID: i, Pos: p})
	}

	switch len(desc.Teleports) {
	case 0:
	case 2:
		if err := grid.AddTeleportPair(desc.Teleports[0], desc.Teleports[1]); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: teleports must come in a pair, got %d endpoints", ErrInvalidLevel, len(desc.Teleports))
	}

	if desc.Gate != nil {
		id, err := grid.AddSwitch(desc.Gate.Switch)
		if err != nil {
			return nil, err
		}
		for _, gs := range desc.Gate.Cells {
			if err := grid.AddGate(Position{X: gs.X, Y: gs.Y}, Direction(gs.Orientation), id); err != nil {
				return nil, err
			}
		}
	}

	return &GameState{
		Grid:    grid,
		Tokens:  tokens,
		Food:    NewFoodSet(food...),
		Running: true,
	}, nil
}

// DecodeLevel parses and validates a JSON level
func DecodeLevel(data []byte) (*LevelDescriptor, error) {
	var desc LevelDescriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLevel, err)
	}
	if err := ValidateLevel(&desc); err != nil {
		return nil, err
	}
	return &desc, nil
}

// LoadLevelFile loads a level descriptor from a JSON file
func LoadLevelFile(filename string) (*LevelDescriptor, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	desc, err := DecodeLevel(data)
	if err != nil {
		return nil, fmt.Errorf("level %s: %w", filename, err)
	}
	return desc, nil
}
