package engine

import (
	"sort"

	"github.com/zyedidia/generic/mapset"
)

// StepOutcome is the result of resolving a single transition. A zero value
// (Moved false) means the token was blocked.
type StepOutcome struct {
	Moved      bool     `json:"moved"`
	To         Position `json:"to"`
	Teleported bool     `json:"teleported"`
	Collected  bool     `json:"collected"`
	Toggled    bool     `json:"toggled"`
}

// TokenMove records the full chain a token travelled during one move
type TokenMove struct {
	TokenID int           `json:"token_id"`
	From    Position      `json:"from"`
	To      Position      `json:"to"`
	Steps   []StepOutcome `json:"steps"`
}

// Moved reports whether the token changed cells at least once
func (tm TokenMove) Moved() bool {
	return len(tm.Steps) > 0
}

// ResolveStep computes and applies one transition for token tokenID.
// Checks run in a fixed order: teleport, gate, edge and wall, collision.
// Food at the arrival cell is collected; a switch there is toggled only on
// an ordinary step. The token position itself is not updated.
func (gs *GameState) ResolveStep(tokenID int, d Direction, justTeleported bool) StepOutcome {
	tok := gs.token(tokenID)
	if tok == nil {
		return StepOutcome{}
	}
	pos := tok.Pos

	if !justTeleported {
		if dest, ok := gs.Grid.TeleportDestination(pos); ok {
			if gs.isAnotherTokenOnCell(dest, tokenID) {
				return StepOutcome{}
			}
			return StepOutcome{
				Moved:      true,
				To:         dest,
				Teleported: true,
				Collected:  gs.Food.Collect(dest),
			}
		}
	}

	if blocked, ok := gs.Grid.GateBlock(pos); ok && blocked == d {
		return StepOutcome{}
	}

	next, ok := gs.Grid.Neighbor(pos, d)
	if !ok || gs.Grid.HasWall(pos, d) {
		return StepOutcome{}
	}

	if gs.isAnotherTokenOnCell(next, tokenID) {
		return StepOutcome{}
	}

	out := StepOutcome{Moved: true, To: next, Collected: gs.Food.Collect(next)}
	if sw := gs.Grid.SwitchAt(next); sw != nil {
		sw.Toggle()
		out.Toggled = true
	}
	return out
}

// chainKey identifies a point in a chain. Revisiting a key means the chain
// is looping through a teleport pair.
type chainKey struct {
	pos            Position
	justTeleported bool
	switches       uint64
}

// resolveChain moves token tokenID as far as direction d takes it
func (gs *GameState) resolveChain(tokenID int, d Direction) TokenMove {
	tok := gs.token(tokenID)
	tm := TokenMove{TokenID: tokenID, From: tok.Pos, To: tok.Pos}

	seen := mapset.New[chainKey]()
	justTeleported := false
	seen.Put(chainKey{pos: tok.Pos, switches: gs.Grid.switchStates()})

	for {
		out := gs.ResolveStep(tokenID, d, justTeleported)
		if !out.Moved {
			break
		}
		tok.Pos = out.To
		justTeleported = out.Teleported
		tm.Steps = append(tm.Steps, out)

		key := chainKey{pos: tok.Pos, justTeleported: justTeleported, switches: gs.Grid.switchStates()}
		if seen.Has(key) {
			break
		}
		seen.Put(key)
	}

	tm.To = tok.Pos
	return tm
}

// processingOrder returns token ids with the token farthest along d first.
// Ties keep id order.
func (gs *GameState) processingOrder(d Direction) []int {
	order := make([]int, len(gs.Tokens))
	for i, t := range gs.Tokens {
		order[i] = t.ID
	}
	key := func(id int) int {
		p := gs.token(id).Pos
		switch d {
		case Right:
			return -p.X
		case Left:
			return p.X
		case Down:
			return -p.Y
		case Up:
			return p.Y
		}
		return 0
	}
	sort.SliceStable(order, func(i, j int) bool {
		return key(order[i]) < key(order[j])
	})
	return order
}

// isAnotherTokenOnCell reads live positions of every token except excluding
func (gs *GameState) isAnotherTokenOnCell(p Position, excluding int) bool {
	for _, t := range gs.Tokens {
		if t.ID != excluding && t.Pos == p {
			return true
		}
	}
	return false
}

func (gs *GameState) token(id int) *Token {
	for i := range gs.Tokens {
		if gs.Tokens[i].ID == id {
			return &gs.Tokens[i]
		}
	}
	return nil
}
