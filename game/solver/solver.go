// Package solver searches for the shortest sequence of direction inputs that
// collects every food item of a level.
//
// The search is breadth-first over engine states, keyed by token positions,
// switch states and remaining food. A state is skipped when another state
// with the same tokens and switches and a subset of its remaining food has
// already been expanded.
package solver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zyedidia/generic/mapset"
	"github.com/zyedidia/generic/queue"

	"github.com/wricardo/foodmaze/game/engine"
)

// DefaultMaxStates bounds a search when Options.MaxStates is zero
const DefaultMaxStates = 200000

var (
	// ErrUnsolvable is returned when every reachable state has been explored
	ErrUnsolvable = errors.New("level cannot be completed")
	// ErrSearchLimit is returned when the state budget runs out
	ErrSearchLimit = errors.New("search limit reached")
)

// Options tunes a search
type Options struct {
	MaxStates int
}

// Solution is a shortest winning input sequence
type Solution struct {
	Moves  []engine.Direction `json:"moves"`
	States int                `json:"states_explored"`
}

// Strings returns the moves as plain strings
func (s *Solution) Strings() []string {
	out := make([]string, len(s.Moves))
	for i, m := range s.Moves {
		out[i] = string(m)
	}
	return out
}

type node struct {
	state  *engine.GameState
	parent *node
	move   engine.Direction
}

// coreKey identifies token placement and switch states
type coreKey struct {
	tokens   string
	switches string
}

// Solve searches from start, which is not modified
func Solve(ctx context.Context, start *engine.GameState, opts Options) (*Solution, error) {
	if start.IsComplete() {
		return &Solution{Moves: []engine.Direction{}}, nil
	}
	if !start.Running {
		return nil, fmt.Errorf("%w: game is not running", ErrUnsolvable)
	}

	maxStates := opts.MaxStates
	if maxStates <= 0 {
		maxStates = DefaultMaxStates
	}

	idx := foodIndex(start.Food.Positions())
	expanded := make(map[coreKey][][]byte)
	seen := mapset.New[string]()

	q := queue.New[*node]()
	first := &node{state: start.Clone()}
	q.Enqueue(first)
	seen.Put(fullKey(first.state, idx))

	states := 0
	for !q.Empty() {
		if states%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		n := q.Dequeue()
		ck, food := keys(n.state, idx)
		if dominated(expanded[ck], food) {
			continue
		}
		expanded[ck] = append(expanded[ck], food)

		states++
		if states > maxStates {
			return nil, fmt.Errorf("%w: explored %d states", ErrSearchLimit, maxStates)
		}

		for _, d := range engine.Directions {
			next := n.state.Clone()
			res := next.ApplyMove(d)
			if !res.Changed() {
				continue
			}
			child := &node{state: next, parent: n, move: d}
			if next.IsComplete() {
				return &Solution{Moves: path(child), States: states}, nil
			}
			k := fullKey(next, idx)
			if seen.Has(k) {
				continue
			}
			seen.Put(k)
			q.Enqueue(child)
		}
	}

	return nil, fmt.Errorf("%w: explored %d states", ErrUnsolvable, states)
}

func path(n *node) []engine.Direction {
	var out []engine.Direction
	for ; n.parent != nil; n = n.parent {
		out = append(out, n.move)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func foodIndex(food []engine.Position) map[engine.Position]int {
	idx := make(map[engine.Position]int, len(food))
	for i, p := range food {
		idx[p] = i
	}
	return idx
}

// keys returns the placement key and a bitset of remaining food
func keys(gs *engine.GameState, idx map[engine.Position]int) (coreKey, []byte) {
	var tokens strings.Builder
	for _, t := range gs.Tokens {
		fmt.Fprintf(&tokens, "%d:%d,%d;", t.ID, t.Pos.X, t.Pos.Y)
	}
	var switches strings.Builder
	for _, sw := range gs.Grid.Switches() {
		if sw.On {
			switches.WriteByte('1')
		} else {
			switches.WriteByte('0')
		}
	}

	bits := make([]byte, (len(idx)+7)/8)
	for _, p := range gs.Food.Positions() {
		i := idx[p]
		bits[i/8] |= 1 << uint(i%8)
	}
	return coreKey{tokens: tokens.String(), switches: switches.String()}, bits
}

func fullKey(gs *engine.GameState, idx map[engine.Position]int) string {
	ck, food := keys(gs, idx)
	return ck.tokens + "|" + ck.switches + "|" + string(food)
}

// dominated reports whether some expanded bitset is a subset of remaining
func dominated(expanded [][]byte, remaining []byte) bool {
	for _, e := range expanded {
		subset := true
		for i := range e {
			if e[i]&^remaining[i] != 0 {
				subset = false
				break
			}
		}
		if subset {
			return true
		}
	}
	return false
}
