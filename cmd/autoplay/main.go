// Command autoplay plays a food maze session through the REST API until the
// level is complete. It can follow the server's hint, solve the level
// locally, or explore greedily one move at a time.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/foodmaze/game/engine"
	"github.com/wricardo/foodmaze/game/solver"
)

const (
	strategyHint   = "hint"
	strategyLocal  = "local"
	strategyGreedy = "greedy"
)

// errGaveUp reports that every attempt ended without completing the level
var errGaveUp = errors.New("failed to complete the level")

type playOptions struct {
	strategy    string
	maxMoves    int
	maxAttempts int
	maxStates   int
	delay       time.Duration
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "autoplay",
		Usage: "play a food maze session through the REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "game server URL", Sources: cli.EnvVars("FOODMAZE_URL")},
			&cli.StringFlag{Name: "level", Usage: "level id for a new session (server default when empty)"},
			&cli.StringFlag{Name: "continue", Usage: "resume an existing session by id"},
			&cli.StringFlag{Name: "session-file", Value: ".session", Usage: "file remembering the last session id (empty disables)"},
			&cli.StringFlag{Name: "strategy", Value: strategyHint, Usage: "hint, local or greedy"},
			&cli.IntFlag{Name: "max-moves", Value: 500, Usage: "maximum single moves per greedy attempt"},
			&cli.IntFlag{Name: "max-attempts", Value: 10, Usage: "maximum attempts before giving up"},
			&cli.IntFlag{Name: "max-states", Value: solver.DefaultMaxStates, Usage: "solver state budget for the local strategy"},
			&cli.DurationFlag{Name: "delay", Usage: "pause between greedy moves"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log every move"},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			log.SetOutput(cmd.ErrWriter)
			if cmd.Bool("verbose") {
				log.SetLevel(log.DebugLevel)
			}
			return ctx, nil
		},
		Action: run,
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	opts := playOptions{
		strategy:    cmd.String("strategy"),
		maxMoves:    cmd.Int("max-moves"),
		maxAttempts: cmd.Int("max-attempts"),
		maxStates:   cmd.Int("max-states"),
		delay:       cmd.Duration("delay"),
	}
	switch opts.strategy {
	case strategyHint, strategyLocal, strategyGreedy:
	default:
		return fmt.Errorf("unknown strategy %q (use hint, local or greedy)", opts.strategy)
	}

	log.Infof("Connecting to game server at %s", cmd.String("url"))
	client := NewClient(cmd.String("url"))

	levelID, err := attach(ctx, client, cmd.String("level"), cmd.String("continue"), cmd.String("session-file"))
	if err != nil {
		return err
	}

	if err := play(ctx, client, levelID, opts); err != nil {
		return fmt.Errorf("session %s: %w", client.SessionID(), err)
	}
	fmt.Fprintf(cmd.Writer, "completed %s in session %s\n", levelID, client.SessionID())
	return nil
}

// attach resumes the requested or remembered session, creating a new one
// when neither is usable, and returns the level id being played
func attach(ctx context.Context, client *Client, levelID, continueID, sessionFile string) (string, error) {
	savedID := continueID
	if savedID == "" && sessionFile != "" {
		if data, err := os.ReadFile(sessionFile); err == nil {
			savedID = string(bytes.TrimSpace(data))
		}
	}

	if savedID != "" {
		session, err := client.Resume(ctx, savedID)
		switch {
		case err != nil:
			log.WithError(err).Warn("⚠️  Failed to resume session (may be expired), creating a new one")
		case levelID != "" && session.LevelID != levelID:
			log.WithFields(log.Fields{"session": savedID, "level_id": session.LevelID}).Info("Saved session plays another level, creating a new one")
		default:
			log.WithFields(log.Fields{"session": session.ID, "level_id": session.LevelID}).Info("🔄 Session resumed")
			return session.LevelID, nil
		}
	}

	session, err := client.CreateSession(ctx, levelID)
	if err != nil {
		return "", err
	}
	log.WithFields(log.Fields{"session": session.ID, "level_id": session.LevelID}).Info("✨ Session created")

	if sessionFile != "" {
		if err := os.WriteFile(sessionFile, []byte(session.ID), 0644); err != nil {
			log.WithError(err).Warn("Failed to save session id")
		}
	}
	return session.LevelID, nil
}

// play resets the session and runs attempts until the level is complete
func play(ctx context.Context, client *Client, levelID string, opts playOptions) error {
	var level *engine.LevelDescriptor
	if opts.strategy != strategyHint {
		var err error
		if level, err = client.Level(ctx, levelID); err != nil {
			return err
		}
	}

	for attempt := 1; attempt <= opts.maxAttempts; attempt++ {
		log.Infof("=== 🎮 Attempt %d/%d (%s) ===", attempt, opts.maxAttempts, opts.strategy)

		snap, err := client.Reset(ctx)
		if err != nil {
			return err
		}

		var done bool
		switch opts.strategy {
		case strategyHint:
			done, err = executePlan(ctx, client, &hintPlanner{client: client})
		case strategyLocal:
			done, err = executePlan(ctx, client, &localPlanner{level: level, maxStates: opts.maxStates})
		case strategyGreedy:
			done, err = playGreedy(ctx, client, level, snap, uint64(attempt), opts)
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.WithError(err).Warnf("Attempt %d failed", attempt)
			continue
		}
		if done {
			log.Infof("🎉 Level complete in attempt %d", attempt)
			return nil
		}
	}
	return fmt.Errorf("%w after %d attempts", errGaveUp, opts.maxAttempts)
}

// executePlan sends the planned moves in bulk chunks and reports whether
// the level ended complete
func executePlan(ctx context.Context, client *Client, planner Planner) (bool, error) {
	moves, err := planner.Plan(ctx)
	if err != nil {
		return false, err
	}
	if len(moves) == 0 {
		return false, errors.New("planner returned no moves")
	}

	for start := 0; start < len(moves); start += engine.MaxBulkMoves {
		end := min(start+engine.MaxBulkMoves, len(moves))
		result, err := client.BulkMove(ctx, moves[start:end])
		if err != nil {
			return false, err
		}
		log.WithFields(log.Fields{
			"executed": result.MovesExecuted,
			"food":     result.FoodCollected,
		}).Debug("Bulk move applied")

		if result.State != nil && result.State.Complete {
			return true, nil
		}
		if result.StopReasonCode == "blocked" || result.StopReasonCode == "invalid_direction" {
			return false, fmt.Errorf("plan stopped on move %d: %s", start+result.StoppedOnMove, result.StoppedReason)
		}
	}
	return false, nil
}

// playGreedy sends single moves chosen by a GreedyStrategy kept in sync
// with the server state
func playGreedy(ctx context.Context, client *Client, level *engine.LevelDescriptor, snap *engine.Snapshot, seed uint64, opts playOptions) (bool, error) {
	strategy, err := NewGreedyStrategy(level, seed)
	if err != nil {
		return false, err
	}
	if err := strategy.Sync(snap); err != nil {
		return false, err
	}

	for moveCount := 0; moveCount < opts.maxMoves; moveCount++ {
		direction := strategy.NextMove()
		if direction == "" {
			log.Warn("⚠️  No move changes the board")
			return false, nil
		}

		result, err := client.Move(ctx, direction)
		if err != nil {
			return false, err
		}
		if result.State == nil {
			return false, errors.New("move response carried no state")
		}
		if err := strategy.Sync(result.State); err != nil {
			return false, err
		}

		log.WithFields(log.Fields{
			"move":      moveCount + 1,
			"direction": direction,
			"food":      fmt.Sprintf("%d/%d", result.State.FoodTotal-len(result.State.Food), result.State.FoodTotal),
		}).Debug(result.Message)

		if result.State.Complete {
			return true, nil
		}

		if opts.delay > 0 {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(opts.delay):
			}
		}
	}
	return false, nil
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.WithError(err).Error("autoplay failed")
		os.Exit(1)
	}
}
