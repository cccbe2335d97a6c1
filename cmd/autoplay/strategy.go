package main

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	log "github.com/sirupsen/logrus"

	"github.com/wricardo/foodmaze/game/engine"
	"github.com/wricardo/foodmaze/game/solver"
)

// Planner produces a full move sequence for the current session state
type Planner interface {
	Plan(ctx context.Context) ([]string, error)
}

// hintPlanner asks the server for the solution
type hintPlanner struct {
	client *Client
}

func (p *hintPlanner) Plan(ctx context.Context) ([]string, error) {
	hint, err := p.client.Hint(ctx)
	if err != nil {
		return nil, err
	}
	if !hint.Solvable {
		return nil, fmt.Errorf("server found no solution: %s", hint.Message)
	}
	log.WithFields(log.Fields{"moves": len(hint.Moves), "states": hint.StatesExplored}).Info("📊 Server hint")
	return hint.Moves, nil
}

// localPlanner solves the level on this machine with its own state budget
type localPlanner struct {
	level     *engine.LevelDescriptor
	maxStates int
}

func (p *localPlanner) Plan(ctx context.Context) ([]string, error) {
	state, err := engine.LoadLevel(p.level)
	if err != nil {
		return nil, err
	}
	sol, err := solver.Solve(ctx, state, solver.Options{MaxStates: p.maxStates})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"moves": len(sol.Moves), "states": sol.States}).Info("📊 Local solution")
	return sol.Strings(), nil
}

// GreedyStrategy picks one move at a time from a local copy of the session
// state, preferring moves that collect food, then moves that end close to
// the nearest remaining food. Revisited positions are penalised so the
// strategy does not circle forever.
type GreedyStrategy struct {
	state      *engine.GameState
	visited    map[string]int
	stuckCount int
	rng        *rand.Rand
}

// NewGreedyStrategy mirrors level, seeded so attempts explore differently
func NewGreedyStrategy(level *engine.LevelDescriptor, seed uint64) (*GreedyStrategy, error) {
	state, err := engine.LoadLevel(level)
	if err != nil {
		return nil, err
	}
	s := &GreedyStrategy{
		state:   state,
		visited: make(map[string]int),
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	s.visited[positionKey(state.Positions())]++
	return s, nil
}

// Sync copies the server snapshot onto the local state
func (s *GreedyStrategy) Sync(snap *engine.Snapshot) error {
	if err := s.state.Restore(snap); err != nil {
		return fmt.Errorf("sync local state: %w", err)
	}
	s.visited[positionKey(s.state.Positions())]++
	return nil
}

// NextMove returns the best scoring direction, or "" when no move changes anything
func (s *GreedyStrategy) NextMove() engine.Direction {
	var best engine.Direction
	bestScore := math.Inf(-1)

	for _, d := range engine.Directions {
		next := s.state.Clone()
		res := next.ApplyMove(d)
		if !res.Changed() {
			continue
		}

		score := float64(len(res.Collected)) * 100
		if res.Completed {
			score += 1000
		}
		score -= float64(nearestFood(next))
		score -= float64(s.visited[positionKey(next.Positions())]) * 10
		// break ties between equal moves, more so when stuck
		score += s.rng.Float64() * float64(1+s.stuckCount)

		if score > bestScore {
			best, bestScore = d, score
		}
	}

	if bestScore < 0 {
		s.stuckCount++
	} else {
		s.stuckCount = 0
	}
	return best
}

// nearestFood is the smallest Manhattan distance from any token to any
// remaining food
func nearestFood(gs *engine.GameState) int {
	best := 0
	first := true
	for _, t := range gs.Tokens {
		for _, f := range gs.Food.Positions() {
			if d := engine.ManhattanDistance(t.Pos, f); first || d < best {
				best, first = d, false
			}
		}
	}
	return best
}

func positionKey(ps []engine.Position) string {
	key := ""
	for _, p := range ps {
		key += p.String()
	}
	return key
}
