// Command analyze inspects food maze levels. It reports level statistics and
// shortest solutions, solves and renders single levels, converts between the
// JSON and bitmask text formats, and generates new random solvable levels.
//
// Levels are named either by catalog id (tutorial/corridor, relative to the
// levels directory) or by a path to a .json or .txt file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/wricardo/foodmaze/game/config"
	"github.com/wricardo/foodmaze/game/engine"
	"github.com/wricardo/foodmaze/game/generator"
	"github.com/wricardo/foodmaze/game/levelfmt"
	"github.com/wricardo/foodmaze/game/solver"
)

var (
	styleOK      = color.Style{color.FgGreen, color.OpBold}
	styleWarn    = color.Style{color.FgYellow, color.OpBold}
	styleFail    = color.Style{color.FgRed, color.OpBold}
	styleHeading = color.Style{color.FgCyan, color.OpBold}
	styleSubtle  = color.Style{color.FgGray}
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, styleFail.Sprint("Error: ")+err.Error())
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "inspect, solve, convert and generate food maze levels",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "levels-dir",
				Value:   "levels",
				Usage:   "levels directory used to resolve level ids",
				Sources: cli.EnvVars("LEVELS_DIR"),
			},
			&cli.IntFlag{
				Name:  "max-states",
				Value: solver.DefaultMaxStates,
				Usage: "solver state budget per level",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 30 * time.Second,
				Usage: "solver time budget per level",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "disable coloured output",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			color.Enable = !cmd.Bool("no-color") && isTerminal(cmd.Writer)
			return ctx, nil
		},
		Commands: []*cli.Command{
			reportCommand(),
			solveCommand(),
			renderCommand(),
			convertCommand(),
			generateCommand(),
		},
	}
}

// isTerminal reports whether w is an interactive terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func out(cmd *cli.Command) io.Writer {
	if cmd.Root().Writer != nil {
		return cmd.Root().Writer
	}
	return os.Stdout
}

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:      "report",
		Usage:     "summarize every level in the catalog, or the given levels",
		ArgsUsage: "[level...]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			names := cmd.Args().Slice()
			if len(names) == 0 {
				catalog, err := config.NewManager(cmd.String("levels-dir"))
				if err != nil {
					return err
				}
				infos, err := catalog.ListLevels()
				if err != nil {
					return err
				}
				for _, info := range infos {
					names = append(names, info.LevelID)
				}
			}
			if len(names) == 0 {
				return errors.New("no levels found")
			}

			w := out(cmd)
			failed := 0
			for _, name := range names {
				fmt.Fprintf(w, "\n%s\n", styleHeading.Sprintf("=== %s ===", name))
				level, err := loadLevel(cmd, name)
				if err != nil {
					failed++
					fmt.Fprintf(w, "%s %v\n", styleFail.Sprint("✗"), err)
					continue
				}
				if !report(ctx, cmd, w, level) {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d levels failed", failed, len(names))
			}
			return nil
		},
	}
}

// report prints statistics for one level and returns false when the level
// cannot be completed
func report(ctx context.Context, cmd *cli.Command, w io.Writer, level *engine.LevelDescriptor) bool {
	state, err := engine.LoadLevel(level)
	if err != nil {
		fmt.Fprintf(w, "%s %v\n", styleFail.Sprint("✗"), err)
		return false
	}

	fmt.Fprintf(w, "Name: %s\n", level.Name)
	if level.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", level.Description)
	}
	fmt.Fprintf(w, "Grid Size: %d x %d\n", level.GridSize, level.GridSize)
	fmt.Fprintf(w, "Players: %d\n", len(level.Players))
	fmt.Fprintf(w, "Food: %d\n", state.Food.Total())
	if len(level.Teleports) == 2 {
		fmt.Fprintf(w, "Teleport: %s <-> %s\n", level.Teleports[0], level.Teleports[1])
	}
	if level.Gate != nil {
		fmt.Fprintf(w, "Gate: switch %s, %d gate(s)\n", level.Gate.Switch, len(level.Gate.Cells))
	}
	fmt.Fprintf(w, "Farthest food: %d steps from a start position\n", farthestFood(level))

	sol, err := solve(ctx, cmd, state)
	switch {
	case err == nil:
		fmt.Fprintf(w, "%s Solvable in %d moves (%d states explored)\n",
			styleOK.Sprint("✓"), len(sol.Moves), sol.States)
		fmt.Fprintf(w, "   %s\n", styleSubtle.Sprint(strings.Join(sol.Strings(), " ")))
		return true
	case errors.Is(err, solver.ErrSearchLimit), errors.Is(err, context.DeadlineExceeded):
		fmt.Fprintf(w, "%s Solvability unknown: %v\n", styleWarn.Sprint("⚠"), err)
		return true
	default:
		fmt.Fprintf(w, "%s %v\n", styleFail.Sprint("✗"), err)
		return false
	}
}

// farthestFood returns the largest Manhattan distance from any food to its
// nearest start position
func farthestFood(level *engine.LevelDescriptor) int {
	farthest := 0
	for _, f := range level.FoodPositions() {
		nearest := -1
		for _, p := range level.Players {
			if d := engine.ManhattanDistance(p, f); nearest < 0 || d < nearest {
				nearest = d
			}
		}
		if nearest > farthest {
			farthest = nearest
		}
	}
	return farthest
}

func solve(ctx context.Context, cmd *cli.Command, state *engine.GameState) (*solver.Solution, error) {
	ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()
	return solver.Solve(ctx, state, solver.Options{MaxStates: cmd.Int("max-states")})
}

func solveCommand() *cli.Command {
	return &cli.Command{
		Name:      "solve",
		Usage:     "print the shortest solution of a level",
		ArgsUsage: "<level>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "replay",
				Usage: "render the grid after every move",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			level, err := loadLevel(cmd, cmd.Args().First())
			if err != nil {
				return err
			}
			state, err := engine.LoadLevel(level)
			if err != nil {
				return err
			}
			sol, err := solve(ctx, cmd, state)
			if err != nil {
				return err
			}

			w := out(cmd)
			fmt.Fprintf(w, "%s %d moves, %d states explored\n", styleOK.Sprint("✓"), len(sol.Moves), sol.States)
			fmt.Fprintln(w, strings.Join(sol.Strings(), " "))
			if !cmd.Bool("replay") {
				return nil
			}

			fmt.Fprintln(w, colorize(engine.Render(state)))
			for i, d := range sol.Moves {
				res := state.ApplyMove(d)
				fmt.Fprintf(w, "%s\n", styleHeading.Sprintf("%d. %s (food left %d)", i+1, d, res.FoodRemaining))
				fmt.Fprintln(w, colorize(engine.Render(state)))
			}
			return nil
		},
	}
}

func renderCommand() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "draw a level as ASCII art",
		ArgsUsage: "<level>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			level, err := loadLevel(cmd, cmd.Args().First())
			if err != nil {
				return err
			}
			state, err := engine.LoadLevel(level)
			if err != nil {
				return err
			}

			w := out(cmd)
			fmt.Fprintln(w, styleHeading.Sprint(level.Name))
			if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
				// each cell takes four columns plus the closing border
				if width, _, err := term.GetSize(int(f.Fd())); err == nil && level.GridSize*4+1 > width {
					fmt.Fprintln(w, styleWarn.Sprintf("grid is wider than the terminal (%d columns)", width))
				}
			}
			fmt.Fprint(w, colorize(engine.Render(state)))
			fmt.Fprintln(w, styleSubtle.Sprint(engine.RenderLegend))
			return nil
		},
	}
}

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "convert between JSON levels and the bitmask text format",
		ArgsUsage: "<input.json|input.txt> [output]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			input := cmd.Args().First()
			if input == "" {
				return errors.New("missing input file")
			}
			data, err := convert(input)
			if err != nil {
				return err
			}

			if output := cmd.Args().Get(1); output != "" {
				if err := os.WriteFile(output, data, 0644); err != nil {
					return fmt.Errorf("failed to write %s: %w", output, err)
				}
				fmt.Fprintf(out(cmd), "%s wrote %s\n", styleOK.Sprint("✓"), output)
				return nil
			}
			_, err = out(cmd).Write(data)
			return err
		},
	}
}

// convert turns a .txt level into indented JSON and a .json level into text
func convert(input string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(input)) {
	case ".txt":
		f, err := os.Open(input)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		level, err := levelfmt.Parse(f)
		if err != nil {
			return nil, err
		}
		if level.Name == "" {
			level.Name = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		}
		data, err := json.MarshalIndent(level, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case ".json":
		level, err := engine.LoadLevelFile(input)
		if err != nil {
			return nil, err
		}
		return levelfmt.Format(level)
	default:
		return nil, fmt.Errorf("unsupported file type %q, expected .json or .txt", filepath.Ext(input))
	}
}

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "generate a random solvable level",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "size", Value: 6, Usage: "grid size"},
			&cli.IntFlag{Name: "players", Value: 1, Usage: "number of players (1 or 2)"},
			&cli.IntFlag{Name: "food", Value: 3, Usage: "number of food items"},
			&cli.IntFlag{Name: "walls", Value: 20, Usage: "wall probability in percent"},
			&cli.StringFlag{Name: "mechanism", Usage: "optional mechanism: teleport or gate"},
			&cli.IntFlag{Name: "candidates", Value: 1, Usage: "solvable levels to try; the longest solution wins"},
			&cli.IntFlag{Name: "attempts", Value: 500, Usage: "placement attempts before giving up"},
			&cli.Uint64Flag{Name: "seed", Usage: "random seed, 0 picks one"},
			&cli.StringFlag{Name: "name", Usage: "level name"},
			&cli.StringFlag{Name: "save", Usage: "save to the catalog under this level id instead of printing"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts := generator.Options{
				Size:            cmd.Int("size"),
				Players:         cmd.Int("players"),
				Food:            cmd.Int("food"),
				WallProbability: cmd.Int("walls"),
				Mechanism:       generator.Mechanism(cmd.String("mechanism")),
				Candidates:      cmd.Int("candidates"),
				Attempts:        cmd.Int("attempts"),
				Seed:            cmd.Uint64("seed"),
				Name:            cmd.String("name"),
			}
			if cmd.IsSet("max-states") {
				opts.MaxStates = cmd.Int("max-states")
			}
			result, err := generator.Generate(ctx, opts)
			if err != nil {
				return err
			}

			w := out(cmd)
			if id := cmd.String("save"); id != "" {
				catalog, err := config.NewManager(cmd.String("levels-dir"))
				if err != nil {
					return err
				}
				if err := catalog.SaveLevel(id, result.Level); err != nil {
					return err
				}
				fmt.Fprintf(w, "%s saved %s (%d moves, %d attempts)\n",
					styleOK.Sprint("✓"), id, len(result.Solution.Moves), result.Attempts)
				return nil
			}

			data, err := json.MarshalIndent(result.Level, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(w, string(data))
			fmt.Fprintln(os.Stderr, styleSubtle.Sprintf("solution (%d moves): %s", len(result.Solution.Moves), strings.Join(result.Solution.Strings(), " ")))
			return nil
		},
	}
}

// loadLevel resolves name as a file path when it has a level file extension,
// otherwise as a catalog id
func loadLevel(cmd *cli.Command, name string) (*engine.LevelDescriptor, error) {
	if name == "" {
		return nil, errors.New("missing level")
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt":
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return levelfmt.Parse(f)
	case ".json":
		if _, err := os.Stat(name); err == nil {
			return engine.LoadLevelFile(name)
		}
	}

	catalog, err := config.NewManager(cmd.String("levels-dir"))
	if err != nil {
		return nil, err
	}
	return catalog.LoadLevel(name)
}

var glyphStyles = map[rune]color.Style{
	'@': {color.FgGreen, color.OpBold},
	'&': {color.FgBlue, color.OpBold},
	'*': {color.FgYellow},
	'T': {color.FgCyan, color.OpBold},
	'S': {color.FgMagenta, color.OpBold},
	's': {color.FgMagenta},
	'#': {color.FgRed, color.OpBold},
}

// colorize applies glyph colours to rendered grid text
func colorize(grid string) string {
	if !color.Enable {
		return grid
	}
	var b strings.Builder
	for _, r := range grid {
		if style, ok := glyphStyles[r]; ok {
			b.WriteString(style.Sprint(string(r)))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
