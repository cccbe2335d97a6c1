package engine

// GameState composes the grid, tokens and remaining food of one level
type GameState struct {
	Grid    *Grid
	Tokens  []Token
	Food    *FoodSet
	Running bool
	Moves   int
}

// MoveResult describes everything one direction input changed
type MoveResult struct {
	Direction     Direction   `json:"direction"`
	Applied       bool        `json:"applied"`
	Tokens        []TokenMove `json:"tokens"`
	Collected     []Position  `json:"collected,omitempty"`
	FoodRemaining int         `json:"food_remaining"`
	Completed     bool        `json:"completed"`
}

// Changed reports whether any token moved
func (r MoveResult) Changed() bool {
	for _, tm := range r.Tokens {
		if tm.Moved() {
			return true
		}
	}
	return false
}

// ApplyMove resolves direction d for every token, leading token first.
// It is a no-op once the level is complete or stopped.
func (gs *GameState) ApplyMove(d Direction) MoveResult {
	res := MoveResult{Direction: d, FoodRemaining: gs.Food.Remaining()}
	if !gs.Running || gs.IsComplete() || !d.Valid() {
		return res
	}

	res.Applied = true
	for _, id := range gs.processingOrder(d) {
		tm := gs.resolveChain(id, d)
		for _, step := range tm.Steps {
			if step.Collected {
				res.Collected = append(res.Collected, step.To)
			}
		}
		res.Tokens = append(res.Tokens, tm)
	}
	gs.Moves++

	res.FoodRemaining = gs.Food.Remaining()
	if gs.IsComplete() {
		gs.Running = false
		res.Completed = true
	}
	return res
}

// IsComplete reports whether all food has been collected
func (gs *GameState) IsComplete() bool {
	return gs.Food.Empty()
}

// Positions returns token positions in id order
func (gs *GameState) Positions() []Position {
	out := make([]Position, len(gs.Tokens))
	for i, t := range gs.Tokens {
		out[i] = t.Pos
	}
	return out
}

// Clone returns an independent copy sharing no mutable state
func (gs *GameState) Clone() *GameState {
	return &GameState{
		Grid:    gs.Grid.Clone(),
		Tokens:  append([]Token(nil), gs.Tokens...),
		Food:    gs.Food.Clone(),
		Running: gs.Running,
		Moves:   gs.Moves,
	}
}
