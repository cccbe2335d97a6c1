package mcp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wricardo/foodmaze/game/engine"
	"github.com/wricardo/foodmaze/game/service"
)

const instructions = `FOOD MAZE - RULES

OBJECTIVE
Collect every piece of food (*) on the grid. The level is complete when no
food remains.

MOVEMENT
- Every move is one of up, down, left or right and applies to ALL tokens.
- Each token slides until a wall, the grid edge, a closed gate or another
  token stops it. The token furthest along the direction moves first, so a
  trailing token stops right behind the leader.
- Two tokens never share a cell.
- A move in which no token changes cell is reported as blocked.

FOOD
- Every cell a token passes through or stops on has its food collected.

TELEPORTS (T)
- Teleports come in pairs. A token standing on a teleport, or sliding onto
  one, jumps to the partner cell and keeps sliding. The jump is skipped when
  the partner is occupied.

SWITCHES (S on, s off) AND GATES (#)
- Each ordinary arrival on a switch flips it, including arrivals in the middle
  of a slide. Arriving by teleport does not flip it.
- Each gate belongs to one switch and blocks movement out of its cell in one
  direction while that switch is off.

COORDINATES
- x is the column, y is the row, both 0-based from the top-left corner.

TIPS
- Use describe_cell to inspect walls and mechanisms around a cell.
- Use hint when stuck: it returns the shortest solution from the current state.
- bulk_move stops at the first blocked move so you can re-plan.`

func formatSessionInfo(session *service.SessionInfo) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Session: %s\n", session.ID))
	level := session.LevelID
	if session.LevelName != "" {
		level = fmt.Sprintf("%s (%s)", session.LevelName, session.LevelID)
	}
	sb.WriteString(fmt.Sprintf("Level: %s\n", level))
	sb.WriteString(fmt.Sprintf("Created: %s\n", session.CreatedAt.Format("2006-01-02 15:04:05")))
	if session.State != nil {
		sb.WriteString("\n")
		sb.WriteString(formatSnapshot(session.State))
	}
	return sb.String()
}

func formatSessionList(count int, sessions []service.SessionInfo) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Active sessions: %d\n\n", count))
	for _, s := range sessions {
		status := "in progress"
		food := ""
		if s.State != nil {
			if s.State.Complete {
				status = "complete"
			}
			food = fmt.Sprintf(", food %d/%d", s.State.FoodTotal-len(s.State.Food), s.State.FoodTotal)
		}
		sb.WriteString(fmt.Sprintf("- %s: %s (%s%s), last accessed %s\n",
			s.ID, s.LevelID, status, food, s.LastAccessedAt.Format("15:04:05")))
	}
	return sb.String()
}

func formatSnapshot(state *engine.Snapshot) string {
	if state == nil {
		return "No state available\n"
	}

	var sb strings.Builder
	if state.Level != "" {
		sb.WriteString(fmt.Sprintf("=== %s ===\n", state.Level))
	}

	status := "IN PROGRESS"
	if state.Complete {
		status = "COMPLETE"
	}
	sb.WriteString(fmt.Sprintf("Status: %s | Moves: %d\n", status, state.Moves))
	sb.WriteString(fmt.Sprintf("Food: %d/%d collected, %d remaining\n",
		state.FoodTotal-len(state.Food), state.FoodTotal, len(state.Food)))
	for _, t := range state.Tokens {
		sb.WriteString(fmt.Sprintf("Player %d at %s\n", t.ID+1, t.Pos))
	}

	sb.WriteString("\n")
	sb.WriteString(engine.RenderSnapshot(state))
	sb.WriteString("\nLegend: ")
	sb.WriteString(engine.RenderLegend)
	sb.WriteString("\n")
	return sb.String()
}

func formatMoveResult(result *service.MoveResult) string {
	var sb strings.Builder
	if result.Success {
		sb.WriteString(fmt.Sprintf("✓ %s\n", result.Message))
	} else {
		sb.WriteString(fmt.Sprintf("✗ %s\n", result.Message))
	}

	for _, event := range result.Events {
		if event.Type == "move" {
			continue
		}
		sb.WriteString(fmt.Sprintf("  - %s\n", event.Message))
	}

	if result.Completed {
		sb.WriteString("\nLEVEL COMPLETE! All food collected.\n")
	} else if len(result.PossibleMoves) > 0 {
		sb.WriteString(fmt.Sprintf("Possible moves: %s\n", strings.Join(result.PossibleMoves, ", ")))
	}

	sb.WriteString("\n")
	sb.WriteString(formatSnapshot(result.State))
	return sb.String()
}

func formatBulkMoveResult(sessionID string, result *service.BulkMoveResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Session: %s\n", sessionID))
	sb.WriteString(fmt.Sprintf("Executed %d/%d moves", result.MovesExecuted, result.RequestedMoves))
	if result.Truncated {
		sb.WriteString(fmt.Sprintf(" (truncated to %d)", result.Limit))
	}
	sb.WriteString("\n")

	if result.StoppedReason != "" {
		sb.WriteString(fmt.Sprintf("Stopped on move %d: %s\n", result.StoppedOnMove, result.StoppedReason))
	}
	sb.WriteString(fmt.Sprintf("Food collected: %d\n", result.FoodCollected))

	if len(result.Steps) > 0 {
		sb.WriteString("\nSteps:\n")
		for _, step := range result.Steps {
			mark := "✓"
			if !step.Success {
				mark = "✗"
			}
			line := fmt.Sprintf("  %s %d. %s %s -> %s", mark, step.Idx, step.Dir, positions(step.From), positions(step.To))
			var extras []string
			if step.Collected > 0 {
				extras = append(extras, fmt.Sprintf("food +%d", step.Collected))
			}
			if step.Teleports > 0 {
				extras = append(extras, "teleport")
			}
			if step.Toggled > 0 {
				extras = append(extras, "switch")
			}
			if len(extras) > 0 {
				line += " [" + strings.Join(extras, ", ") + "]"
			}
			sb.WriteString(line + "\n")
		}
	}

	if result.Completed {
		sb.WriteString("\nLEVEL COMPLETE! All food collected.\n")
	} else if len(result.PossibleMoves) > 0 {
		sb.WriteString(fmt.Sprintf("Possible moves: %s\n", strings.Join(result.PossibleMoves, ", ")))
	}

	sb.WriteString("\n")
	sb.WriteString(formatSnapshot(result.State))
	return sb.String()
}

func positions(ps []engine.Position) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return strings.Join(parts, " ")
}

func formatHistory(history *service.HistoryResponse) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Move history: %d moves (page %d/%d)\n\n", history.TotalMoves, history.Page, history.TotalPages))

	for _, move := range history.Moves {
		status := "✓"
		if !move.Success {
			status = "✗"
		}
		sb.WriteString(fmt.Sprintf("%s #%d %s: %s -> %s (food left %d)\n",
			status, move.MoveNumber, move.Action, positions(move.FromPositions), positions(move.ToPositions), move.FoodRemaining))
	}

	if history.HasNext {
		sb.WriteString(fmt.Sprintf("\nMore moves on page %d\n", history.Page+1))
	}
	return sb.String()
}

func formatHint(hint *service.HintResult) string {
	var sb strings.Builder
	if !hint.Solvable {
		sb.WriteString("No solution from the current state.\n")
		if hint.Message != "" {
			sb.WriteString(hint.Message + "\n")
		}
		sb.WriteString("Try reset_game.\n")
		return sb.String()
	}

	if len(hint.Moves) == 0 {
		sb.WriteString("Level already complete.\n")
		return sb.String()
	}
	sb.WriteString(fmt.Sprintf("Next move: %s\n", hint.Next))
	sb.WriteString(fmt.Sprintf("Full solution (%d moves): %s\n", len(hint.Moves), strings.Join(hint.Moves, ", ")))
	sb.WriteString(fmt.Sprintf("States explored: %d\n", hint.StatesExplored))
	return sb.String()
}

func formatLevels(levels []service.LevelInfo) string {
	byPack := map[string][]service.LevelInfo{}
	var packs []string
	for _, l := range levels {
		if _, ok := byPack[l.Pack]; !ok {
			packs = append(packs, l.Pack)
		}
		byPack[l.Pack] = append(byPack[l.Pack], l)
	}
	sort.Strings(packs)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Available levels: %d\n", len(levels)))
	for _, pack := range packs {
		name := pack
		if name == "" {
			name = "(no pack)"
		}
		sb.WriteString(fmt.Sprintf("\n%s:\n", name))
		for _, l := range byPack[pack] {
			var features []string
			if l.Players > 1 {
				features = append(features, fmt.Sprintf("%d players", l.Players))
			}
			if l.HasTeleport {
				features = append(features, "teleports")
			}
			if l.HasGate {
				features = append(features, "gates")
			}
			line := fmt.Sprintf("  - %s: %s (%dx%d, %d food", l.LevelID, l.Name, l.GridSize, l.GridSize, l.Food)
			if len(features) > 0 {
				line += ", " + strings.Join(features, ", ")
			}
			sb.WriteString(line + ")\n")
			if l.Description != "" {
				sb.WriteString("      " + l.Description + "\n")
			}
		}
	}
	return sb.String()
}

// describeCell reports everything the snapshot knows about one cell
func describeCell(state *engine.Snapshot, p engine.Position) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Cell %s\n", p))

	walls := []string{}
	for _, cv := range state.Walls {
		if cv.X == p.X && cv.Y == p.Y {
			walls = cv.Walls
			break
		}
	}
	if len(walls) == 0 {
		sb.WriteString("Walls: none\n")
	} else {
		sb.WriteString(fmt.Sprintf("Walls: %s\n", strings.Join(walls, ", ")))
	}

	for _, f := range state.Food {
		if f == p {
			sb.WriteString("Food: yes\n")
			break
		}
	}
	for _, t := range state.Tokens {
		if t.Pos == p {
			sb.WriteString(fmt.Sprintf("Player %d is here\n", t.ID+1))
		}
	}
	for _, tp := range state.Teleports {
		if other, ok := tp.OtherEnd(p); ok {
			sb.WriteString(fmt.Sprintf("Teleport: linked to %s\n", other))
		}
	}
	for i, sw := range state.Switches {
		if sw.Pos == p {
			status := "off"
			if sw.On {
				status = "on"
			}
			sb.WriteString(fmt.Sprintf("Switch %d: %s\n", i, status))
		}
	}
	for _, gate := range state.Gates {
		if gate.Pos == p {
			status := "open"
			if gate.Blocking {
				status = "closed"
			}
			sb.WriteString(fmt.Sprintf("Gate: blocks %s while switch %d is off (currently %s)\n", gate.Orientation, gate.SwitchID, status))
		}
	}

	var exits []string
	for _, d := range engine.Directions {
		n := p.Step(d)
		if n.X < 0 || n.Y < 0 || n.X >= state.GridSize || n.Y >= state.GridSize {
			continue
		}
		if !contains(walls, string(d)) {
			exits = append(exits, string(d))
		}
	}
	if len(exits) == 0 {
		sb.WriteString("Open sides: none\n")
	} else {
		sb.WriteString(fmt.Sprintf("Open sides: %s\n", strings.Join(exits, ", ")))
	}
	return sb.String()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
