package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/wricardo/foodmaze/game/config"
	"github.com/wricardo/foodmaze/game/engine"
	"github.com/wricardo/foodmaze/game/service"
	"github.com/wricardo/foodmaze/transport/websocket"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	CreateSessionFunc func(ctx context.Context, levelID string) (*service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error
	ChangeLevelFunc   func(ctx context.Context, sessionID, target string) (*service.SessionInfo, error)

	MoveFunc     func(ctx context.Context, sessionID, direction string, reset bool) (*service.MoveResult, error)
	BulkMoveFunc func(ctx context.Context, sessionID string, moves []string, reset bool) (*service.BulkMoveResult, error)
	ResetFunc    func(ctx context.Context, sessionID string) (*engine.Snapshot, error)

	GetGameStateFunc   func(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	GetMoveHistoryFunc func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error)
	HintFunc           func(ctx context.Context, sessionID string) (*service.HintResult, error)

	ListLevelsFunc func(ctx context.Context) ([]*service.LevelInfo, error)
	LoadLevelFunc  func(ctx context.Context, levelID string) (*engine.LevelDescriptor, error)
	SaveLevelFunc  func(ctx context.Context, levelID string, level *engine.LevelDescriptor) error
}

func (m *MockGameService) CreateSession(ctx context.Context, levelID string) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, levelID)
	}
	return &service.SessionInfo{ID: "test-session", LevelID: levelID, CreatedAt: time.Now()}, nil
}

func (m *MockGameService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{ID: sessionID, LevelID: "pack/test", CreatedAt: time.Now()}, nil
}

func (m *MockGameService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockGameService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockGameService) ChangeLevel(ctx context.Context, sessionID, target string) (*service.SessionInfo, error) {
	if m.ChangeLevelFunc != nil {
		return m.ChangeLevelFunc(ctx, sessionID, target)
	}
	return &service.SessionInfo{ID: sessionID, LevelID: target, State: &engine.Snapshot{}}, nil
}

func (m *MockGameService) Move(ctx context.Context, sessionID, direction string, reset bool) (*service.MoveResult, error) {
	if m.MoveFunc != nil {
		return m.MoveFunc(ctx, sessionID, direction, reset)
	}
	return &service.MoveResult{Success: true, Direction: direction, State: &engine.Snapshot{}}, nil
}

func (m *MockGameService) BulkMove(ctx context.Context, sessionID string, moves []string, reset bool) (*service.BulkMoveResult, error) {
	if m.BulkMoveFunc != nil {
		return m.BulkMoveFunc(ctx, sessionID, moves, reset)
	}
	return &service.BulkMoveResult{Success: true, State: &engine.Snapshot{}}, nil
}

func (m *MockGameService) Reset(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, sessionID)
	}
	return &engine.Snapshot{}, nil
}

func (m *MockGameService) GetGameState(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	if m.GetGameStateFunc != nil {
		return m.GetGameStateFunc(ctx, sessionID)
	}
	return &engine.Snapshot{}, nil
}

func (m *MockGameService) GetMoveHistory(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
	if m.GetMoveHistoryFunc != nil {
		return m.GetMoveHistoryFunc(ctx, sessionID, opts)
	}
	return &service.HistoryResponse{
		Moves:      []engine.MoveHistoryEntry{},
		Page:       opts.Page,
		PageSize:   opts.Limit,
		TotalPages: 1,
	}, nil
}

func (m *MockGameService) Hint(ctx context.Context, sessionID string) (*service.HintResult, error) {
	if m.HintFunc != nil {
		return m.HintFunc(ctx, sessionID)
	}
	return &service.HintResult{Solvable: true, Next: "right", Moves: []string{"right"}}, nil
}

func (m *MockGameService) ListLevels(ctx context.Context) ([]*service.LevelInfo, error) {
	if m.ListLevelsFunc != nil {
		return m.ListLevelsFunc(ctx)
	}
	return []*service.LevelInfo{}, nil
}

func (m *MockGameService) LoadLevel(ctx context.Context, levelID string) (*engine.LevelDescriptor, error) {
	if m.LoadLevelFunc != nil {
		return m.LoadLevelFunc(ctx, levelID)
	}
	return &engine.LevelDescriptor{Name: levelID, GridSize: 3}, nil
}

func (m *MockGameService) SaveLevel(ctx context.Context, levelID string, level *engine.LevelDescriptor) error {
	if m.SaveLevelFunc != nil {
		return m.SaveLevelFunc(ctx, levelID, level)
	}
	return nil
}

// Test helpers
func setupTestServer(t *testing.T, mockService *MockGameService) *Server {
	t.Helper()
	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return NewServer(mockService, hub)
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v (body %s)", err, w.Body.String())
	}
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	parseResponse(t, w, &resp)
	return resp["error"]
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"session not found", fmt.Errorf("session x: %w", service.ErrSessionNotFound), http.StatusNotFound},
		{"level not found", fmt.Errorf("%w: 'nope'", service.ErrLevelNotFound), http.StatusNotFound},
		{"invalid direction", fmt.Errorf("%w: %q", engine.ErrInvalidDirection, "north"), http.StatusBadRequest},
		{"invalid level id", fmt.Errorf("%w: ../x", config.ErrInvalidID), http.StatusBadRequest},
		{"invalid level", fmt.Errorf("%w: no food", engine.ErrInvalidLevel), http.StatusUnprocessableEntity},
		{"other", fmt.Errorf("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

// Session management tests

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		setupMock      func(*MockGameService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:        "Create session with default level",
			requestBody: nil,
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, levelID string) (*service.SessionInfo, error) {
					if levelID != "" {
						t.Errorf("Expected empty level id, got %s", levelID)
					}
					return &service.SessionInfo{ID: "ab12", LevelID: "tutorial/corridor"}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "ab12" || resp.LevelID != "tutorial/corridor" {
					t.Errorf("unexpected session %+v", resp)
				}
			},
		},
		{
			name:        "Create session with specific level",
			requestBody: map[string]string{"level_id": "tutorial/teleport"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, levelID string) (*service.SessionInfo, error) {
					return &service.SessionInfo{ID: "cd34", LevelID: levelID}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.LevelID != "tutorial/teleport" {
					t.Errorf("Expected level 'tutorial/teleport', got %s", resp.LevelID)
				}
			},
		},
		{
			name:        "Unknown level",
			requestBody: map[string]string{"level_id": "missing"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, levelID string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("%w: 'missing'. Available levels: [a b]", service.ErrLevelNotFound)
				}
			},
			expectedStatus: http.StatusNotFound,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				if msg := errorMessage(t, w); msg != "level not found: 'missing'. Available levels: [a b]" {
					t.Errorf("unexpected error %q", msg)
				}
			},
		},
		{
			name:        "Handle service error",
			requestBody: nil,
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, levelID string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				if msg := errorMessage(t, w); msg != "service error" {
					t.Errorf("Expected error message 'service error', got %s", msg)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/sessions", tt.requestBody))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if w.Header().Get(RequestIDHeader) == "" {
				t.Error("Expected a request id header")
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestCreateSession_InvalidBody(t *testing.T) {
	server := setupTestServer(t, &MockGameService{})
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/sessions", bytes.NewBufferString("{not json"))

	server.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestListSessions(t *testing.T) {
	now := time.Now()
	sessions := func() []*service.SessionInfo {
		return []*service.SessionInfo{
			{ID: "old", CreatedAt: now.Add(-3 * time.Hour), LastAccessedAt: now.Add(-time.Minute)},
			{ID: "mid", CreatedAt: now.Add(-2 * time.Hour), LastAccessedAt: now.Add(-time.Hour)},
			{ID: "new", CreatedAt: now.Add(-time.Hour), LastAccessedAt: now},
		}
	}

	tests := []struct {
		name      string
		query     string
		wantIDs   []string
		wantTotal int
	}{
		{"default accessed desc", "", []string{"new", "old", "mid"}, 3},
		{"created asc", "?sort=created&order=asc", []string{"old", "mid", "new"}, 3},
		{"limited", "?sort=created&limit=2", []string{"new", "mid"}, 3},
		{"bad limit ignored", "?limit=abc", []string{"new", "old", "mid"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{
				ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
					return sessions(), nil
				},
			}
			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/sessions"+tt.query, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			var resp struct {
				Count    int                    `json:"count"`
				Total    int                    `json:"total"`
				Sessions []*service.SessionInfo `json:"sessions"`
			}
			parseResponse(t, w, &resp)

			if resp.Total != tt.wantTotal || resp.Count != len(tt.wantIDs) {
				t.Errorf("count/total = %d/%d, want %d/%d", resp.Count, resp.Total, len(tt.wantIDs), tt.wantTotal)
			}
			for i, id := range tt.wantIDs {
				if i >= len(resp.Sessions) || resp.Sessions[i].ID != id {
					t.Errorf("session %d: want %s, got %+v", i, id, resp.Sessions)
					break
				}
			}
		})
	}

	t.Run("service error", func(t *testing.T) {
		mockService := &MockGameService{
			ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
				return nil, fmt.Errorf("database error")
			},
		}
		server := setupTestServer(t, mockService)
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/sessions", nil))

		if w.Code != http.StatusInternalServerError || errorMessage(t, w) != "database error" {
			t.Errorf("unexpected response %d %s", w.Code, w.Body.String())
		}
	})
}

func TestGetSession(t *testing.T) {
	mockService := &MockGameService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			if sessionID != "sess-123" {
				return nil, fmt.Errorf("session %s: %w", sessionID, service.ErrSessionNotFound)
			}
			return &service.SessionInfo{ID: sessionID, LevelID: "pack/test"}, nil
		},
	}
	server := setupTestServer(t, mockService)

	tests := []struct {
		name           string
		sessionID      string
		expectedStatus int
	}{
		{"Get existing session", "sess-123", http.StatusOK},
		{"Session not found", "nonexistent", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := makeRequest("GET", "/api/sessions/"+tt.sessionID, nil)
			req = mux.SetURLVars(req, map[string]string{"id": tt.sessionID})

			server.handleGetSession(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestDeleteSession(t *testing.T) {
	var deleted string
	mockService := &MockGameService{
		DeleteSessionFunc: func(ctx context.Context, sessionID string) error {
			if sessionID == "missing" {
				return service.ErrSessionNotFound
			}
			deleted = sessionID
			return nil
		},
	}
	server := setupTestServer(t, mockService)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("DELETE", "/api/sessions/ab12", nil))
	if w.Code != http.StatusOK || deleted != "ab12" {
		t.Errorf("delete: status %d, deleted %q", w.Code, deleted)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("DELETE", "/api/sessions/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestChangeLevel(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		err            error
		expectedStatus int
	}{
		{"next level", map[string]string{"level": "next"}, nil, http.StatusOK},
		{"missing target", map[string]string{}, nil, http.StatusBadRequest},
		{"end of pack", map[string]string{"level": "next"}, fmt.Errorf("%w: no level +1 from a/b in its pack", service.ErrLevelNotFound), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotTarget string
			mockService := &MockGameService{
				ChangeLevelFunc: func(ctx context.Context, sessionID, target string) (*service.SessionInfo, error) {
					gotTarget = target
					if tt.err != nil {
						return nil, tt.err
					}
					return &service.SessionInfo{ID: sessionID, LevelID: "pack/two", State: &engine.Snapshot{GridSize: 3}}, nil
				},
			}
			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/level", tt.body))

			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d (%s)", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedStatus == http.StatusOK {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if gotTarget != "next" || resp.LevelID != "pack/two" {
					t.Errorf("target %q, level %q", gotTarget, resp.LevelID)
				}
			}
		})
	}
}

// Play tests

func TestMove(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		moveErr        error
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:           "Valid move",
			requestBody:    map[string]interface{}{"direction": "right"},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.MoveResult
				parseResponse(t, w, &resp)
				if !resp.Success || resp.State == nil {
					t.Errorf("unexpected result %+v", resp)
				}
				if got := resp.State.Tokens[0].Pos; got != (engine.Position{X: 1, Y: 0}) {
					t.Errorf("token at %v, want (1,0)", got)
				}
			},
		},
		{
			name:           "Move with reset",
			requestBody:    map[string]interface{}{"direction": "right", "reset": true},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Invalid direction",
			requestBody:    map[string]interface{}{"direction": "north"},
			moveErr:        fmt.Errorf("%w: %q", engine.ErrInvalidDirection, "north"),
			expectedStatus: http.StatusBadRequest,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				if msg := errorMessage(t, w); msg != `invalid direction: "north"` {
					t.Errorf("unexpected error %q", msg)
				}
			},
		},
		{
			name:           "Session not found",
			requestBody:    map[string]interface{}{"direction": "up"},
			moveErr:        fmt.Errorf("session nonexistent: %w", service.ErrSessionNotFound),
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{
				MoveFunc: func(ctx context.Context, sessionID, direction string, reset bool) (*service.MoveResult, error) {
					if tt.moveErr != nil {
						return nil, tt.moveErr
					}
					if wantReset := tt.name == "Move with reset"; reset != wantReset {
						t.Errorf("reset = %v, want %v", reset, wantReset)
					}
					return &service.MoveResult{
						Success:   true,
						Direction: direction,
						State: &engine.Snapshot{
							GridSize: 3,
							Tokens:   []engine.Token{{ID: 0, Pos: engine.Position{X: 1, Y: 0}}},
						},
					}, nil
				},
			}

			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			req := makeRequest("POST", "/api/sessions/sess-123/move", tt.requestBody)
			req = mux.SetURLVars(req, map[string]string{"id": "sess-123"})

			server.handleMove(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestBulkMove(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		expectedStatus int
	}{
		{"executes moves", map[string]interface{}{"moves": []string{"right", "down"}}, http.StatusOK},
		{"empty moves", map[string]interface{}{"moves": []string{}}, http.StatusBadRequest},
		{"bad body", "not an object", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{
				BulkMoveFunc: func(ctx context.Context, sessionID string, moves []string, reset bool) (*service.BulkMoveResult, error) {
					return &service.BulkMoveResult{
						MovesExecuted:  len(moves),
						RequestedMoves: len(moves),
						Success:        true,
						State:          &engine.Snapshot{},
					}, nil
				},
			}
			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/bulk-move", tt.requestBody))

			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if w.Code == http.StatusOK {
				var resp service.BulkMoveResult
				parseResponse(t, w, &resp)
				if resp.MovesExecuted != 2 {
					t.Errorf("Expected 2 moves executed, got %d", resp.MovesExecuted)
				}
			}
		})
	}
}

func TestReset(t *testing.T) {
	mockService := &MockGameService{
		ResetFunc: func(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
			if sessionID == "missing" {
				return nil, service.ErrSessionNotFound
			}
			return &engine.Snapshot{GridSize: 4, Running: true}, nil
		},
	}
	server := setupTestServer(t, mockService)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/reset", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp struct {
		Message string           `json:"message"`
		State   *engine.Snapshot `json:"state"`
	}
	parseResponse(t, w, &resp)
	if resp.State == nil || resp.State.GridSize != 4 || !resp.State.Running {
		t.Errorf("unexpected state %+v", resp.State)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/sessions/missing/reset", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestGetHistory(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  service.HistoryOptions
	}{
		{"defaults", "", service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
		{"explicit", "?page=3&limit=5&order=asc", service.HistoryOptions{Page: 3, Limit: 5, Order: "asc"}},
		{"invalid values", "?page=0&limit=-2&order=sideways", service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got service.HistoryOptions
			mockService := &MockGameService{
				GetMoveHistoryFunc: func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
					got = opts
					return &service.HistoryResponse{Page: opts.Page, PageSize: opts.Limit}, nil
				},
			}
			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/sessions/ab12/history"+tt.query, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			if got != tt.want {
				t.Errorf("options = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestGetGameState(t *testing.T) {
	mockService := &MockGameService{
		GetGameStateFunc: func(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
			return &engine.Snapshot{GridSize: 5, FoodTotal: 2, Food: []engine.Position{{X: 4, Y: 4}}}, nil
		},
	}
	server := setupTestServer(t, mockService)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/sessions/ab12/state", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var snap engine.Snapshot
	parseResponse(t, w, &snap)
	if snap.GridSize != 5 || len(snap.Food) != 1 || snap.FoodTotal != 2 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestHint(t *testing.T) {
	mockService := &MockGameService{
		HintFunc: func(ctx context.Context, sessionID string) (*service.HintResult, error) {
			return &service.HintResult{Solvable: true, Next: "down", Moves: []string{"down", "left"}, StatesExplored: 12}, nil
		},
	}
	server := setupTestServer(t, mockService)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/sessions/ab12/hint", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var hint service.HintResult
	parseResponse(t, w, &hint)
	if !hint.Solvable || hint.Next != "down" || len(hint.Moves) != 2 {
		t.Errorf("unexpected hint %+v", hint)
	}
}

// Level tests

func TestListLevels(t *testing.T) {
	mockService := &MockGameService{
		ListLevelsFunc: func(ctx context.Context) ([]*service.LevelInfo, error) {
			return []*service.LevelInfo{
				{LevelID: "tutorial/corridor", Pack: "tutorial", Name: "Corridor"},
				{LevelID: "tutorial/teleport", Pack: "tutorial", Name: "Teleport", HasTeleport: true},
			}, nil
		},
	}
	server := setupTestServer(t, mockService)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/levels", nil))

	var levels []*service.LevelInfo
	parseResponse(t, w, &levels)
	if len(levels) != 2 || !levels[1].HasTeleport {
		t.Errorf("unexpected levels %+v", levels)
	}
}

func TestGetLevel(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		wantID         string
		expectedStatus int
	}{
		{"pack level", "/api/levels/tutorial/corridor", "tutorial/corridor", http.StatusOK},
		{"json extension stripped", "/api/levels/tutorial/corridor.json", "tutorial/corridor", http.StatusOK},
		{"missing level", "/api/levels/nope", "nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID string
			mockService := &MockGameService{
				LoadLevelFunc: func(ctx context.Context, levelID string) (*engine.LevelDescriptor, error) {
					gotID = levelID
					if levelID == "nope" {
						return nil, fmt.Errorf("%w: nope", service.ErrLevelNotFound)
					}
					return &engine.LevelDescriptor{Name: "Corridor", GridSize: 5}, nil
				},
			}
			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", tt.path, nil))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if gotID != tt.wantID {
				t.Errorf("level id = %q, want %q", gotID, tt.wantID)
			}
		})
	}
}

func TestSaveLevel(t *testing.T) {
	level := &engine.LevelDescriptor{
		Name:     "Custom",
		GridSize: 3,
		Cells:    []engine.CellSpec{{X: 2, Y: 2, Food: true}},
		Players:  []engine.Position{{X: 0, Y: 0}},
	}

	tests := []struct {
		name           string
		body           interface{}
		saveErr        error
		expectedStatus int
	}{
		{"saves", map[string]interface{}{"level_id": "custom/one", "level": level}, nil, http.StatusCreated},
		{"missing id", map[string]interface{}{"level": level}, nil, http.StatusBadRequest},
		{"invalid level", map[string]interface{}{"level_id": "custom/bad", "level": level}, fmt.Errorf("%w: no food", engine.ErrInvalidLevel), http.StatusUnprocessableEntity},
		{"unsafe id", map[string]interface{}{"level_id": "../x", "level": level}, fmt.Errorf("%w: ../x", config.ErrInvalidID), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{
				SaveLevelFunc: func(ctx context.Context, levelID string, got *engine.LevelDescriptor) error {
					if got.Name != "Custom" {
						t.Errorf("level not decoded: %+v", got)
					}
					return tt.saveErr
				},
			}
			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/levels", tt.body))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d (%s)", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestUnifiedSessions(t *testing.T) {
	all := []*service.SessionInfo{
		{ID: "a1", LevelID: "pack/one", State: &engine.Snapshot{FoodTotal: 3}},
		{ID: "b2", LevelID: "pack/two", State: &engine.Snapshot{FoodTotal: 5}},
		{ID: "c3", LevelID: "pack/one", State: &engine.Snapshot{FoodTotal: 3}},
	}
	mockService := &MockGameService{
		ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) { return all, nil },
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			for _, s := range all {
				if s.ID == sessionID {
					return s, nil
				}
			}
			return nil, service.ErrSessionNotFound
		},
	}
	server := setupTestServer(t, mockService)

	tests := []struct {
		name      string
		query     string
		wantCount int
		wantLevel string
		wantFood  int
	}{
		{"all sessions", "", 3, "pack/one", 3},
		{"by level", "?levelId=pack/one", 2, "pack/one", 3},
		{"by ids skipping unknown", "?sessionIds=b2,zz,c3", 2, "pack/two", 5},
		{"no match", "?levelId=pack/none", 0, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/sessions/unified"+tt.query, nil))

			var resp struct {
				LevelID   string                   `json:"level_id"`
				TotalFood int                      `json:"total_food"`
				Sessions  []map[string]interface{} `json:"sessions"`
			}
			parseResponse(t, w, &resp)
			if len(resp.Sessions) != tt.wantCount || resp.LevelID != tt.wantLevel || resp.TotalFood != tt.wantFood {
				t.Errorf("got %d sessions on %q with %d food", len(resp.Sessions), resp.LevelID, resp.TotalFood)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	server := setupTestServer(t, &MockGameService{})
	w := httptest.NewRecorder()
	req := makeRequest("GET", "/health", nil)
	req.Header.Set(RequestIDHeader, "fixed-id")
	server.ServeHTTP(w, req)

	var resp map[string]string
	parseResponse(t, w, &resp)
	if resp["status"] != "healthy" {
		t.Errorf("unexpected health %v", resp)
	}
	if w.Header().Get(RequestIDHeader) != "fixed-id" {
		t.Error("an incoming request id should be echoed")
	}
}

func TestWebSocket(t *testing.T) {
	tests := []struct {
		name           string
		queryParams    string
		sessionErr     error
		expectedStatus int
	}{
		{"Missing session parameter", "", nil, http.StatusBadRequest},
		{"Invalid session", "?session=invalid", service.ErrSessionNotFound, http.StatusNotFound},
		// the recorder cannot be hijacked, so the upgrader answers 500 once it is reached
		{"Valid session", "?session=sess-123", nil, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{
				GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
					if tt.sessionErr != nil {
						return nil, tt.sessionErr
					}
					return &service.SessionInfo{ID: sessionID}, nil
				},
			}

			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/ws"+tt.queryParams, nil)
			req.Header.Set("Upgrade", "websocket")
			req.Header.Set("Connection", "Upgrade")
			req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
			req.Header.Set("Sec-WebSocket-Version", "13")

			server.handleWebSocket(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}

	t.Run("disabled without hub", func(t *testing.T) {
		server := NewServer(&MockGameService{}, nil)
		w := httptest.NewRecorder()
		server.ServeHTTP(w, httptest.NewRequest("GET", "/ws?session=x", nil))
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", w.Code)
		}
	})
}
