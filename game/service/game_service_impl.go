package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wricardo/foodmaze/game/engine"
	"github.com/wricardo/foodmaze/game/solver"
	"github.com/wricardo/foodmaze/telemetry"
)

// hintMaxStates bounds the solver for interactive hints
const hintMaxStates = 100000

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	levels   LevelCatalog
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, levels LevelCatalog) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		levels:   levels,
	}
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return telemetry.Tracer("service").Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// CreateSession creates a new game session on levelID, or on the default level when empty
func (s *gameServiceImpl) CreateSession(ctx context.Context, levelID string) (info *SessionInfo, err error) {
	_, span := startSpan(ctx, "service.create_session", attribute.String("level.id", levelID))
	defer func() { endSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	var level *engine.LevelDescriptor
	if levelID != "" {
		level, err = s.levels.LoadLevel(levelID)
		if err != nil {
			if errors.Is(err, ErrLevelNotFound) {
				return nil, s.levelNotFound(levelID)
			}
			return nil, fmt.Errorf("failed to load level %s: %w", levelID, err)
		}
	} else {
		levelID, level = s.levels.GetDefault()
	}

	// empty id lets the session manager generate one
	sess, err := s.sessions.Create("", levelID, level)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	span.SetAttributes(attribute.String("session.id", sess.ID))
	log.WithFields(log.Fields{"session": sess.ID, "level_id": levelID}).Info("session created")

	return sessionInfo(sess), nil
}

// levelNotFound lists the available level ids in the error
func (s *gameServiceImpl) levelNotFound(levelID string) error {
	available, err := s.levels.ListLevels()
	if err != nil || len(available) == 0 {
		return fmt.Errorf("%w: '%s'. Use /api/levels to list available levels", ErrLevelNotFound, levelID)
	}
	ids := make([]string, 0, len(available))
	for _, lvl := range available {
		ids = append(ids, lvl.LevelID)
	}
	return fmt.Errorf("%w: '%s'. Available levels: %v", ErrLevelNotFound, levelID, ids)
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		info := sessionInfo(sess)
		info.Level = nil
		result = append(result, info)
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	log.WithField("session", sessionID).Info("session deleted")
	return nil
}

// ChangeLevel switches a session to another level. target is "next",
// "previous" or a level id. The game restarts on the new level.
func (s *gameServiceImpl) ChangeLevel(ctx context.Context, sessionID, target string) (info *SessionInfo, err error) {
	_, span := startSpan(ctx, "service.change_level",
		attribute.String("session.id", sessionID),
		attribute.String("level.target", target),
	)
	defer func() { endSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	levelID := target
	switch strings.ToLower(strings.TrimSpace(target)) {
	case "next":
		levelID, err = s.levels.NextLevel(sess.LevelID)
	case "previous", "prev":
		levelID, err = s.levels.PreviousLevel(sess.LevelID)
	case "":
		return nil, fmt.Errorf("%w: empty level target", ErrLevelNotFound)
	}
	if err != nil {
		return nil, err
	}

	level, err := s.levels.LoadLevel(levelID)
	if err != nil {
		if errors.Is(err, ErrLevelNotFound) {
			return nil, s.levelNotFound(levelID)
		}
		return nil, fmt.Errorf("failed to load level %s: %w", levelID, err)
	}
	if err := sess.Engine.SetLevel(level); err != nil {
		return nil, fmt.Errorf("failed to switch level: %w", err)
	}
	sess.LevelID = levelID

	s.persist(sessionID, "level change")
	log.WithFields(log.Fields{"session": sessionID, "level_id": levelID}).Info("level changed")

	return sessionInfo(sess), nil
}

// Move executes a single move for a session
func (s *gameServiceImpl) Move(ctx context.Context, sessionID, direction string, reset bool) (result *MoveResult, err error) {
	_, span := startSpan(ctx, "service.move",
		attribute.String("session.id", sessionID),
		attribute.String("move.direction", direction),
		attribute.Bool("move.reset", reset),
	)
	defer func() { endSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	events := []GameEvent{}
	if reset {
		sess.Engine.Reset()
		events = append(events, resetEvent())
	}

	res, err := sess.Engine.Move(direction)
	if err != nil {
		return nil, err
	}

	events = append(events, extractMoveEvents(*res)...)
	result = &MoveResult{
		Success:       res.Applied && res.Changed(),
		Direction:     string(res.Direction),
		State:         sess.Engine.Snapshot(),
		Message:       moveMessage(*res),
		Events:        events,
		Tokens:        res.Tokens,
		Collected:     res.Collected,
		Completed:     res.Completed,
		PossibleMoves: sess.Engine.GetPossibleMoves(),
	}

	span.SetAttributes(
		attribute.Int("move.tokens_moved", movedCount(*res)),
		attribute.Int("food.remaining", res.FoodRemaining),
	)
	log.WithFields(log.Fields{
		"session":        sessionID,
		"direction":      res.Direction,
		"success":        result.Success,
		"food_remaining": res.FoodRemaining,
	}).Info("move")

	s.persist(sessionID, "move")
	return result, nil
}

// BulkMove executes multiple moves in sequence. It stops at the first move
// that changes nothing, at an invalid direction, or once the level is complete.
func (s *gameServiceImpl) BulkMove(ctx context.Context, sessionID string, moves []string, reset bool) (result *BulkMoveResult, err error) {
	_, span := startSpan(ctx, "service.bulk_move",
		attribute.String("session.id", sessionID),
		attribute.Int("moves.requested", len(moves)),
		attribute.Bool("move.reset", reset),
	)
	defer func() { endSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	result = &BulkMoveResult{
		RequestedMoves: len(moves),
		Events:         make([]GameEvent, 0),
		Success:        true,
	}

	if reset {
		sess.Engine.Reset()
		result.Events = append(result.Events, resetEvent())
	}
	result.StartPositions = sess.Engine.TokenPositions()
	startFood := sess.Engine.FoodRemaining()

	if len(moves) > engine.MaxBulkMoves {
		result.Truncated = true
		result.Limit = engine.MaxBulkMoves
		moves = moves[:engine.MaxBulkMoves]
	}

	for i, move := range moves {
		if sess.Engine.IsComplete() {
			result.StoppedReason = "level complete"
			result.StopReasonCode = "completed"
			result.StoppedOnMove = i + 1
			break
		}

		from := sess.Engine.TokenPositions()
		res, err := sess.Engine.Move(move)
		if err != nil {
			result.Success = false
			result.StoppedReason = fmt.Sprintf("move %d invalid: %s", i+1, move)
			result.StopReasonCode = "invalid_direction"
			result.StoppedOnMove = i + 1
			break
		}
		if !res.Changed() {
			result.Success = false
			result.StoppedReason = fmt.Sprintf("move %d blocked: %s", i+1, move)
			result.StopReasonCode = "blocked"
			result.StoppedOnMove = i + 1
			result.Events = append(result.Events, extractMoveEvents(*res)...)
			break
		}

		result.MovesExecuted++
		result.Events = append(result.Events, extractMoveEvents(*res)...)
		result.Steps = append(result.Steps, stepInfo(i+1, *res, from, sess.Engine.TokenPositions()))
	}

	result.State = sess.Engine.Snapshot()
	result.EndPositions = sess.Engine.TokenPositions()
	result.FoodCollected = startFood - sess.Engine.FoodRemaining()
	result.Completed = sess.Engine.IsComplete()
	if result.Completed && result.StopReasonCode == "" {
		result.StopReasonCode = "completed"
	}
	result.Message = bulkMessage(result)
	result.PossibleMoves = sess.Engine.GetPossibleMoves()

	span.SetAttributes(
		attribute.Int("moves.executed", result.MovesExecuted),
		attribute.Int("food.remaining", sess.Engine.FoodRemaining()),
	)
	log.WithFields(log.Fields{
		"session":   sessionID,
		"requested": result.RequestedMoves,
		"executed":  result.MovesExecuted,
		"stop":      result.StopReasonCode,
		"completed": result.Completed,
	}).Info("bulk move")

	s.persist(sessionID, "bulk move")
	return result, nil
}

// Reset resets a game session to its initial state
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Engine.Reset()
	s.persist(sessionID, "reset")
	log.WithField("session", sessionID).Info("game reset")

	return sess.Engine.Snapshot(), nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.Snapshot(), nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	return paginate(sess.Engine.GetMoveHistory(), opts), nil
}

// Hint solves the level from the session's current state
func (s *gameServiceImpl) Hint(ctx context.Context, sessionID string) (hint *HintResult, err error) {
	ctx, span := startSpan(ctx, "service.hint", attribute.String("session.id", sessionID))
	defer func() { endSpan(span, err) }()

	// the solver works on a copy so the session lock is released before searching
	s.mu.Lock()
	sess, err := s.session(sessionID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	state := sess.Engine.GetState().Clone()
	s.mu.Unlock()

	if state.IsComplete() {
		return &HintResult{Solvable: true, Moves: []string{}, Message: "Level complete"}, nil
	}

	sol, err := solver.Solve(ctx, state, solver.Options{MaxStates: hintMaxStates})
	switch {
	case errors.Is(err, solver.ErrUnsolvable):
		return &HintResult{Moves: []string{}, Message: "No solution from the current position. Try a reset."}, nil
	case errors.Is(err, solver.ErrSearchLimit):
		return &HintResult{Moves: []string{}, StatesExplored: hintMaxStates, Message: "Search limit reached before a solution was found"}, nil
	case err != nil:
		return nil, fmt.Errorf("failed to solve: %w", err)
	}

	span.SetAttributes(
		attribute.Int("solver.states", sol.States),
		attribute.Int("solver.length", len(sol.Moves)),
	)
	moves := sol.Strings()
	return &HintResult{
		Solvable:       true,
		Next:           moves[0],
		Moves:          moves,
		StatesExplored: sol.States,
		Message:        fmt.Sprintf("Solvable in %d moves, next: %s", len(moves), moves[0]),
	}, nil
}

// ListLevels returns available levels
func (s *gameServiceImpl) ListLevels(ctx context.Context) ([]*LevelInfo, error) {
	return s.levels.ListLevels()
}

// LoadLevel loads a specific level
func (s *gameServiceImpl) LoadLevel(ctx context.Context, levelID string) (*engine.LevelDescriptor, error) {
	return s.levels.LoadLevel(levelID)
}

// SaveLevel validates and stores a level
func (s *gameServiceImpl) SaveLevel(ctx context.Context, levelID string, level *engine.LevelDescriptor) error {
	if err := engine.ValidateLevel(level); err != nil {
		return err
	}
	return s.levels.SaveLevel(levelID, level)
}

// session looks up a session and marks it accessed. Callers must hold s.mu
// for writing since marking access mutates the session.
func (s *gameServiceImpl) session(id string) (*Session, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	if err := s.sessions.UpdateLastAccessed(id); err != nil {
		log.WithError(err).WithField("session", id).Warn("failed to update last access")
	}
	return sess, nil
}

func (s *gameServiceImpl) persist(id, after string) {
	if err := s.sessions.Save(id); err != nil {
		log.WithError(err).WithField("session", id).Warnf("failed to persist session after %s", after)
	}
}

func sessionInfo(sess *Session) *SessionInfo {
	level := sess.Engine.GetLevel()
	return &SessionInfo{
		ID:             sess.ID,
		LevelID:        sess.LevelID,
		LevelName:      level.Name,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		State:          sess.Engine.Snapshot(),
		Level:          level,
	}
}

func paginate(history []engine.MoveHistoryEntry, opts HistoryOptions) *HistoryResponse {
	total := len(history)

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	moves := []engine.MoveHistoryEntry{}
	if opts.Order == "desc" {
		// most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			moves = append(moves, history[i])
		}
	} else if start < total {
		moves = append(moves, history[start:end]...)
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}
}

func resetEvent() GameEvent {
	return GameEvent{
		Type:      "reset",
		Message:   "Game reset to initial state",
		Timestamp: time.Now(),
	}
}

// extractMoveEvents turns the chains of one move into events
func extractMoveEvents(res engine.MoveResult) []GameEvent {
	now := time.Now()
	events := []GameEvent{}

	if !res.Changed() {
		return append(events, GameEvent{
			Type:      "blocked",
			Message:   fmt.Sprintf("No token can move %s", res.Direction),
			Timestamp: now,
		})
	}

	for _, tm := range res.Tokens {
		if !tm.Moved() {
			continue
		}
		for _, step := range tm.Steps {
			at := step.To
			switch {
			case step.Teleported:
				events = append(events, GameEvent{Type: "teleport", Message: fmt.Sprintf("Token %d teleported to %s", tm.TokenID, at), Timestamp: now, Position: &at, TokenID: tm.TokenID})
			case step.Toggled:
				events = append(events, GameEvent{Type: "switch", Message: fmt.Sprintf("Token %d toggled the switch at %s", tm.TokenID, at), Timestamp: now, Position: &at, TokenID: tm.TokenID})
			}
			if step.Collected {
				events = append(events, GameEvent{Type: "food", Message: fmt.Sprintf("Token %d collected food at %s", tm.TokenID, at), Timestamp: now, Position: &at, TokenID: tm.TokenID})
			}
		}
		to := tm.To
		events = append(events, GameEvent{
			Type:      "move",
			Message:   fmt.Sprintf("Token %d moved %s from %s to %s", tm.TokenID, res.Direction, tm.From, tm.To),
			Timestamp: now,
			Position:  &to,
			TokenID:   tm.TokenID,
		})
	}

	if res.Completed {
		events = append(events, GameEvent{Type: "complete", Message: "All food collected!", Timestamp: now})
	}
	return events
}

func stepInfo(idx int, res engine.MoveResult, from, to []engine.Position) StepInfo {
	info := StepInfo{
		Idx:       idx,
		Dir:       string(res.Direction),
		From:      from,
		To:        to,
		Collected: len(res.Collected),
		Success:   res.Changed(),
		Completed: res.Completed,
	}
	for _, tm := range res.Tokens {
		for _, step := range tm.Steps {
			if step.Toggled {
				info.Toggled++
			}
			if step.Teleported {
				info.Teleports++
			}
		}
	}
	return info
}

func movedCount(res engine.MoveResult) int {
	n := 0
	for _, tm := range res.Tokens {
		if tm.Moved() {
			n++
		}
	}
	return n
}

func moveMessage(res engine.MoveResult) string {
	switch {
	case !res.Applied:
		return "Level already complete. Reset or change level to play again."
	case res.Completed:
		return "All food collected!"
	case !res.Changed():
		return fmt.Sprintf("Blocked: nothing can move %s", res.Direction)
	case len(res.Collected) > 0:
		return fmt.Sprintf("Collected %d food, %d remaining", len(res.Collected), res.FoodRemaining)
	default:
		return fmt.Sprintf("Moved %s, %d food remaining", res.Direction, res.FoodRemaining)
	}
}

func bulkMessage(r *BulkMoveResult) string {
	switch {
	case r.Completed:
		return fmt.Sprintf("All food collected after %d moves", r.MovesExecuted)
	case r.StoppedReason != "":
		return fmt.Sprintf("Executed %d of %d moves, stopped: %s", r.MovesExecuted, r.RequestedMoves, r.StoppedReason)
	default:
		return fmt.Sprintf("Executed %d moves, %d food collected", r.MovesExecuted, r.FoodCollected)
	}
}
