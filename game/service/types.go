package service

import (
	"time"

	"github.com/wricardo/foodmaze/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string                  `json:"id"`
	LevelID        string                  `json:"level_id"`
	LevelName      string                  `json:"level_name,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
	LastAccessedAt time.Time               `json:"last_accessed_at"`
	State          *engine.Snapshot        `json:"state"`
	Level          *engine.LevelDescriptor `json:"level,omitempty"`
}

// MoveResult contains the result of a move operation
type MoveResult struct {
	Success       bool               `json:"success"`
	Direction     string             `json:"direction"`
	State         *engine.Snapshot   `json:"state"`
	Message       string             `json:"message"`
	Events        []GameEvent        `json:"events,omitempty"`
	Tokens        []engine.TokenMove `json:"tokens,omitempty"`
	Collected     []engine.Position  `json:"collected,omitempty"`
	Completed     bool               `json:"completed"`
	PossibleMoves []string           `json:"possible_moves,omitempty"`
}

// BulkMoveResult contains the result of multiple moves
type BulkMoveResult struct {
	MovesExecuted  int              `json:"moves_executed"`
	RequestedMoves int              `json:"requested_moves"`
	Success        bool             `json:"success"`
	State          *engine.Snapshot `json:"state"`
	Events         []GameEvent      `json:"events"`
	StoppedReason  string           `json:"stopped_reason,omitempty"`
	StopReasonCode string           `json:"stop_reason_code,omitempty"` // blocked|invalid_direction|completed
	StoppedOnMove  int              `json:"stopped_on_move,omitempty"`  // 1-based
	Truncated      bool             `json:"truncated,omitempty"`
	Limit          int              `json:"limit,omitempty"`

	StartPositions []engine.Position `json:"start_positions"`
	EndPositions   []engine.Position `json:"end_positions"`
	FoodCollected  int               `json:"food_collected"`

	Steps []StepInfo `json:"steps,omitempty"`

	Completed     bool     `json:"completed"`
	Message       string   `json:"message,omitempty"`
	PossibleMoves []string `json:"possible_moves,omitempty"`
}

// StepInfo is a compact record for each executed move in a bulk call
type StepInfo struct {
	Idx       int               `json:"idx"`
	Dir       string            `json:"dir"`
	From      []engine.Position `json:"from"`
	To        []engine.Position `json:"to"`
	Collected int               `json:"collected,omitempty"`
	Toggled   int               `json:"toggled,omitempty"`
	Teleports int               `json:"teleports,omitempty"`
	Success   bool              `json:"success"`
	Completed bool              `json:"completed,omitempty"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string           `json:"type"` // "move", "food", "teleport", "switch", "blocked", "complete", "reset", "level"
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	Position  *engine.Position `json:"position,omitempty"`
	TokenID   int              `json:"token_id,omitempty"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveHistoryEntry `json:"moves"`
	TotalMoves  int                       `json:"total_moves"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// HintResult is the solver's answer from the current state of a session
type HintResult struct {
	Solvable       bool     `json:"solvable"`
	Next           string   `json:"next,omitempty"`
	Moves          []string `json:"moves"`
	StatesExplored int      `json:"states_explored"`
	Message        string   `json:"message"`
}

// LevelInfo provides information about a level file
type LevelInfo struct {
	LevelID     string `json:"level_id"` // The identifier to use for session creation
	Filename    string `json:"filename"`
	Pack        string `json:"pack,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
	GridSize    int    `json:"grid_size"`
	Players     int    `json:"players"`
	Food        int    `json:"food"`
	HasTeleport bool   `json:"has_teleport"`
	HasGate     bool   `json:"has_gate"`
}
