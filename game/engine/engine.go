package engine

import (
	"fmt"
	"time"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	GetState() *GameState
	Snapshot() *Snapshot
	Reset() *GameState
	IsComplete() bool
	FoodRemaining() int
	TokenPositions() []Position

	// Movement operations
	Move(direction string) (*MoveResult, error)
	BulkMove(moves []string) ([]MoveResult, error)
	CanMove(direction string) bool
	GetPossibleMoves() []string

	// Level
	GetLevel() *LevelDescriptor
	SetLevel(level *LevelDescriptor) error

	// History
	GetMoveHistory() []MoveHistoryEntry
	GetCurrentMoves() []MoveHistoryEntry
	GetLastMove() *MoveHistoryEntry

	// Persistence
	Save() *SavedGame
	Load(saved *SavedGame) error
}

// SavedGame is everything needed to rebuild an engine on top of its level
type SavedGame struct {
	State        *Snapshot          `json:"state"`
	MoveHistory  []MoveHistoryEntry `json:"move_history"`
	CurrentMoves []MoveHistoryEntry `json:"current_moves"`
	TotalMoves   int                `json:"total_moves"`
}

// GameEngine implements the Engine interface
type GameEngine struct {
	level *LevelDescriptor
	state *GameState

	// history is cumulative across resets; current covers the moves since the last reset
	history    []MoveHistoryEntry
	current    []MoveHistoryEntry
	totalMoves int
}

// NewEngine creates a new game engine for the provided level
func NewEngine(level *LevelDescriptor) (*GameEngine, error) {
	state, err := LoadLevel(level)
	if err != nil {
		return nil, err
	}
	return &GameEngine{level: level, state: state}, nil
}

// GetState returns the live game state
func (e *GameEngine) GetState() *GameState {
	return e.state
}

// Snapshot returns a read-only view of the current state
func (e *GameEngine) Snapshot() *Snapshot {
	snap := e.state.Snapshot()
	snap.Level = e.level.Name
	return snap
}

// Reset reloads the level. History is cumulative and survives the reset.
func (e *GameEngine) Reset() *GameState {
	state, err := LoadLevel(e.level)
	if err != nil {
		// level was validated by NewEngine or SetLevel
		return e.state
	}
	e.state = state
	e.current = nil
	return e.state
}

// IsComplete reports whether all food has been collected
func (e *GameEngine) IsComplete() bool {
	return e.state.IsComplete()
}

// FoodRemaining returns the number of uncollected items
func (e *GameEngine) FoodRemaining() int {
	return e.state.Food.Remaining()
}

// TokenPositions returns token positions in id order
func (e *GameEngine) TokenPositions() []Position {
	return e.state.Positions()
}

// Move applies one direction input and records it in the history
func (e *GameEngine) Move(direction string) (*MoveResult, error) {
	d, err := ParseDirection(direction)
	if err != nil {
		return nil, err
	}

	from := e.state.Positions()
	res := e.state.ApplyMove(d)
	e.addMoveToHistory(string(d), from, e.state.Positions(), res.Applied && res.Changed())

	return &res, nil
}

// BulkMove applies moves in order, stopping once the level is complete.
// An invalid direction stops the sequence and is returned with the results so far.
func (e *GameEngine) BulkMove(moves []string) ([]MoveResult, error) {
	results := make([]MoveResult, 0, len(moves))

	for i, direction := range moves {
		if e.IsComplete() {
			break
		}
		res, err := e.Move(direction)
		if err != nil {
			return results, fmt.Errorf("move %d: %w", i+1, err)
		}
		results = append(results, *res)
	}

	return results, nil
}

// CanMove reports whether direction would move at least one token
func (e *GameEngine) CanMove(direction string) bool {
	d, err := ParseDirection(direction)
	if err != nil {
		return false
	}
	res := e.state.Clone().ApplyMove(d)
	return res.Applied && res.Changed()
}

// GetPossibleMoves returns all directions that would move a token
func (e *GameEngine) GetPossibleMoves() []string {
	var possible []string
	for _, d := range Directions {
		if e.CanMove(string(d)) {
			possible = append(possible, string(d))
		}
	}
	return possible
}

// GetLevel returns the level the engine plays
func (e *GameEngine) GetLevel() *LevelDescriptor {
	return e.level
}

// SetLevel switches to a new level and resets the game
func (e *GameEngine) SetLevel(level *LevelDescriptor) error {
	state, err := LoadLevel(level)
	if err != nil {
		return err
	}
	e.level = level
	e.state = state
	e.current = nil
	return nil
}

// GetMoveHistory returns the complete move history
func (e *GameEngine) GetMoveHistory() []MoveHistoryEntry {
	return e.history
}

// GetCurrentMoves returns the moves made since the last reset
func (e *GameEngine) GetCurrentMoves() []MoveHistoryEntry {
	return e.current
}

// GetLastMove returns the last move made, or nil if no moves
func (e *GameEngine) GetLastMove() *MoveHistoryEntry {
	if len(e.history) == 0 {
		return nil
	}
	return &e.history[len(e.history)-1]
}

// Clone returns an independent engine at the same point of play
func (e *GameEngine) Clone() *GameEngine {
	return &GameEngine{
		level:      e.level,
		state:      e.state.Clone(),
		history:    append([]MoveHistoryEntry(nil), e.history...),
		current:    append([]MoveHistoryEntry(nil), e.current...),
		totalMoves: e.totalMoves,
	}
}

// Save captures state and history for persistence
func (e *GameEngine) Save() *SavedGame {
	return &SavedGame{
		State:        e.Snapshot(),
		MoveHistory:  append([]MoveHistoryEntry(nil), e.history...),
		CurrentMoves: append([]MoveHistoryEntry(nil), e.current...),
		TotalMoves:   e.totalMoves,
	}
}

// Load restores a SavedGame produced by Save on the same level
func (e *GameEngine) Load(saved *SavedGame) error {
	if saved == nil || saved.State == nil {
		return fmt.Errorf("saved game cannot be nil")
	}
	state, err := LoadLevel(e.level)
	if err != nil {
		return err
	}
	if err := state.Restore(saved.State); err != nil {
		return err
	}
	e.state = state
	e.history = saved.MoveHistory
	e.current = saved.CurrentMoves
	e.totalMoves = saved.TotalMoves
	return nil
}

func (e *GameEngine) addMoveToHistory(action string, from, to []Position, success bool) {
	entry := MoveHistoryEntry{
		Action:        action,
		FromPositions: from,
		ToPositions:   to,
		FoodRemaining: e.state.Food.Remaining(),
		Timestamp:     time.Now().Unix(),
		Success:       success,
		MoveNumber:    e.totalMoves + 1,
	}
	e.history = append(e.history, entry)
	e.current = append(e.current, entry)
	e.totalMoves++
}
