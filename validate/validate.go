// Command validate checks the level JSON files under a levels directory,
// including level packs in subdirectories. It checks:
//   - JSON structure and unknown fields
//   - everything the engine requires to load the level (grid size, players,
//     food, wall names, teleport pair, gate group)
//   - walls set on one side only, which block in a single direction (warning)
//   - food on a player start cell, which is only collected by returning to it (warning)
//   - solvability: a breadth-first search must complete the level
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wricardo/foodmaze/game/engine"
	"github.com/wricardo/foodmaze/game/solver"
)

// ValidationResult captures the outcome of validating a single file.
// Info holds the summary lines of a valid level.
type ValidationResult struct {
	File     string
	Valid    bool
	Errors   []string
	Warnings []string
	Info     []string
}

// validator carries the solver budget shared by every file
type validator struct {
	maxStates int
	timeout   time.Duration
}

// validateLevel loads and validates a single level file
func (v *validator) validateLevel(root, filePath string) ValidationResult {
	name, err := filepath.Rel(root, filePath)
	if err != nil {
		name = filepath.Base(filePath)
	}
	result := ValidationResult{
		File:  filepath.ToSlash(name),
		Valid: true,
	}
	fail := func(format string, args ...interface{}) ValidationResult {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf(format, args...))
		return result
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fail("Failed to read file: %v", err)
	}

	var desc engine.LevelDescriptor
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&desc); err != nil {
		return fail("Invalid JSON: %v", err)
	}

	state, err := engine.LoadLevel(&desc)
	if err != nil {
		return fail("%v", err)
	}

	result.Warnings = append(result.Warnings, asymmetricWalls(state.Grid)...)
	for i, p := range desc.Players {
		if state.Food.Has(p) {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Player %d starts on food at %s", i+1, p))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()
	sol, err := solver.Solve(ctx, state, solver.Options{MaxStates: v.maxStates})
	switch {
	case errors.Is(err, solver.ErrUnsolvable):
		return fail("Level cannot be completed from the start position")
	case errors.Is(err, solver.ErrSearchLimit), errors.Is(err, context.DeadlineExceeded):
		result.Warnings = append(result.Warnings, fmt.Sprintf("Solvability unknown: %v", err))
	case err != nil:
		return fail("Solver failed: %v", err)
	}

	result.Info = append(result.Info,
		fmt.Sprintf("✓ Name: %s", desc.Name),
		fmt.Sprintf("✓ Grid: %dx%d", desc.GridSize, desc.GridSize),
		fmt.Sprintf("✓ Players: %d", len(desc.Players)),
		fmt.Sprintf("✓ Food: %d", state.Food.Total()),
	)
	if len(desc.Teleports) > 0 {
		result.Info = append(result.Info, fmt.Sprintf("✓ Teleport: %s <-> %s", desc.Teleports[0], desc.Teleports[1]))
	}
	if desc.Gate != nil {
		result.Info = append(result.Info, fmt.Sprintf("✓ Gate: switch at %s, %d gate(s)", desc.Gate.Switch, len(desc.Gate.Cells)))
	}
	if sol != nil {
		result.Info = append(result.Info, fmt.Sprintf("✓ Solvable in %d moves: %s", len(sol.Moves), strings.Join(sol.Strings(), " ")))
	}

	return result
}

// asymmetricWalls lists walls that exist on one side of a shared edge only
func asymmetricWalls(g *engine.Grid) []string {
	var out []string
	n := g.Size()
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			p := engine.Position{X: x, Y: y}
			// right and down cover every shared edge once
			for _, d := range []engine.Direction{engine.Right, engine.Down} {
				next, ok := g.Neighbor(p, d)
				if !ok {
					continue
				}
				here, there := g.HasWall(p, d), g.HasWall(next, d.Opposite())
				if here != there {
					out = append(out, fmt.Sprintf("One-sided wall between %s and %s", p, next))
				}
			}
		}
	}
	return out
}

// findLevels returns every JSON file below root in walk order
func findLevels(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".json") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// run validates every level below root, printing a report to out. It returns
// false when any level is invalid.
func run(root string, v *validator, strict bool, out io.Writer) (bool, error) {
	files, err := findLevels(root)
	if err != nil {
		return false, fmt.Errorf("finding level files: %w", err)
	}
	if len(files) == 0 {
		return false, fmt.Errorf("no level files found in %s", root)
	}

	allValid := true
	for _, file := range files {
		result := v.validateLevel(root, file)
		if strict && len(result.Warnings) > 0 {
			result.Valid = false
		}

		fmt.Fprintf(out, "\n%s %s\n", strings.Repeat("=", 20), result.File)
		if result.Valid {
			fmt.Fprintln(out, "✅ VALID")
			for _, info := range result.Info {
				fmt.Fprintln(out, "  "+info)
			}
		} else {
			fmt.Fprintln(out, "❌ INVALID")
			allValid = false
			for _, e := range result.Errors {
				fmt.Fprintln(out, "  ❌ "+e)
			}
		}
		for _, w := range result.Warnings {
			fmt.Fprintln(out, "  ⚠️  "+w)
		}
	}

	fmt.Fprintf(out, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintf(out, "✅ All %d levels are valid!\n", len(files))
	} else {
		fmt.Fprintln(out, "❌ Some levels have errors")
	}
	return allValid, nil
}

// main validates the levels directory and exits non-zero when any level is invalid
func main() {
	dir := flag.String("dir", "../levels", "Levels directory")
	maxStates := flag.Int("max-states", solver.DefaultMaxStates, "Solver state budget per level")
	timeout := flag.Duration("timeout", 30*time.Second, "Solver time budget per level")
	strict := flag.Bool("strict", false, "Treat warnings as errors")
	flag.Parse()

	v := &validator{maxStates: *maxStates, timeout: *timeout}
	ok, err := run(*dir, v, *strict, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if !ok {
		os.Exit(1)
	}
}
