// Package engine provides the movement-resolution core of the food maze puzzle.
//
// The engine package implements:
//   - An N×N grid with per-cell walls
//   - Mechanisms: a teleport pair, switches and the gates they control
//   - Chain movement of one or two tokens per direction input
//   - Food collection and the completion condition
//   - Level loading and validation from JSON descriptors
//
// Core Types:
//
// GameState holds the grid, tokens and remaining food of one level and
// exposes ApplyMove and IsComplete. GameEngine wraps a GameState with the
// level descriptor, move history and persistence helpers, and implements
// the Engine interface used by the service layer.
//
// Usage:
//
//	level, err := engine.LoadLevelFile("levels/tutorial/corridor.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine, err := engine.NewEngine(level)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameEngine.Move("right")
//	snapshot := gameEngine.Snapshot()
//
// Movement Rules:
//
// Every token slides in the requested direction until it is blocked. A token
// standing on a teleport is moved to the paired endpoint first, unless it has
// just arrived through that teleport. Gates block their orientation while their
// switch is off, and a switch flips each time a token walks onto it. Tokens are
// processed leading token first and never share a cell. The level is complete
// when the last food item is collected; further moves are ignored until reset.
package engine
