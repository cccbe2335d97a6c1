package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/foodmaze/api"
	"github.com/wricardo/foodmaze/game/config"
	"github.com/wricardo/foodmaze/game/engine"
	"github.com/wricardo/foodmaze/game/service"
	"github.com/wricardo/foodmaze/game/session"
)

// startAPI serves a catalog with a two-move walls level and a gate level
func startAPI(t *testing.T) string {
	t.Helper()
	levels, err := config.NewManager(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, levels.SaveLevel("tutorial/walls", &engine.LevelDescriptor{
		Name:     "Walls",
		GridSize: 4,
		Cells: []engine.CellSpec{
			{X: 1, Y: 0, Food: true, Walls: []string{"right"}},
			{X: 2, Y: 0, Walls: []string{"left"}},
			{X: 1, Y: 3, Food: true},
		},
		Players: []engine.Position{{X: 0, Y: 0}},
	}))
	require.NoError(t, levels.SaveLevel("gates/switch", &engine.LevelDescriptor{
		Name:     "Switch",
		GridSize: 4,
		Cells:    []engine.CellSpec{{X: 3, Y: 0, Food: true}},
		Players:  []engine.Position{{X: 0, Y: 0}},
		Gate: &engine.GateGroupSpec{
			Switch: engine.Position{X: 0, Y: 3},
			Cells:  []engine.GateSpec{{X: 1, Y: 0, Orientation: "right"}},
		},
	}))
	require.NoError(t, levels.SetDefault("tutorial/walls"))

	gs := service.NewGameService(session.NewManager(), levels)
	srv := httptest.NewServer(api.NewServer(gs, nil))
	t.Cleanup(srv.Close)
	return srv.URL
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, logs bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &logs
	err := app.Run(context.Background(), append([]string{"autoplay"}, args...))
	return out.String(), err
}

func TestAutoplay_Strategies(t *testing.T) {
	for _, strategy := range []string{strategyHint, strategyLocal, strategyGreedy} {
		t.Run(strategy, func(t *testing.T) {
			url := startAPI(t)
			output, err := runApp(t, "--url", url, "--session-file", "", "--strategy", strategy, "--level", "gates/switch")
			require.NoError(t, err)
			assert.Contains(t, output, "completed gates/switch")
		})
	}
}

func TestAutoplay_DefaultLevel(t *testing.T) {
	url := startAPI(t)
	output, err := runApp(t, "--url", url, "--session-file", "")
	require.NoError(t, err)
	assert.Contains(t, output, "completed tutorial/walls")
}

func TestAutoplay_UnknownStrategy(t *testing.T) {
	_, err := runApp(t, "--strategy", "random", "--session-file", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown strategy")
}

func TestAttach_SessionFile(t *testing.T) {
	url := startAPI(t)
	ctx := context.Background()
	sessionFile := filepath.Join(t.TempDir(), ".session")

	client := NewClient(url)
	levelID, err := attach(ctx, client, "", "", sessionFile)
	require.NoError(t, err)
	assert.Equal(t, "tutorial/walls", levelID)
	first := client.SessionID()

	saved, err := os.ReadFile(sessionFile)
	require.NoError(t, err)
	assert.Equal(t, first, strings.TrimSpace(string(saved)))

	// the remembered session is reused
	client = NewClient(url)
	_, err = attach(ctx, client, "", "", sessionFile)
	require.NoError(t, err)
	assert.Equal(t, first, client.SessionID())

	// asking for another level starts a new session
	client = NewClient(url)
	levelID, err = attach(ctx, client, "gates/switch", "", sessionFile)
	require.NoError(t, err)
	assert.Equal(t, "gates/switch", levelID)
	assert.NotEqual(t, first, client.SessionID())
}

func TestAttach_ExpiredSession(t *testing.T) {
	url := startAPI(t)
	client := NewClient(url)

	levelID, err := attach(context.Background(), client, "", "missing-session", "")
	require.NoError(t, err)
	assert.Equal(t, "tutorial/walls", levelID)
	assert.NotEqual(t, "missing-session", client.SessionID())
}

func TestClient_Errors(t *testing.T) {
	url := startAPI(t)
	client := NewClient(url)
	ctx := context.Background()

	_, err := client.CreateSession(ctx, "missing/level")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	_, err = client.Level(ctx, "missing/level")
	require.Error(t, err)
}

func TestGreedyStrategy_PrefersFood(t *testing.T) {
	level := &engine.LevelDescriptor{
		GridSize: 4,
		Cells:    []engine.CellSpec{{X: 3, Y: 0, Food: true}},
		Players:  []engine.Position{{X: 0, Y: 0}},
	}
	strategy, err := NewGreedyStrategy(level, 1)
	require.NoError(t, err)
	assert.Equal(t, engine.Right, strategy.NextMove())
}

func TestGreedyStrategy_NoMoves(t *testing.T) {
	level := &engine.LevelDescriptor{
		GridSize: 2,
		Cells: []engine.CellSpec{
			{X: 0, Y: 0, Walls: []string{"right", "down"}},
			{X: 1, Y: 1, Food: true},
		},
		Players: []engine.Position{{X: 0, Y: 0}},
	}
	strategy, err := NewGreedyStrategy(level, 1)
	require.NoError(t, err)
	assert.Equal(t, engine.Direction(""), strategy.NextMove())
}

func TestNearestFood(t *testing.T) {
	state, err := engine.LoadLevel(&engine.LevelDescriptor{
		GridSize: 5,
		Cells:    []engine.CellSpec{{X: 4, Y: 4, Food: true}, {X: 2, Y: 0, Food: true}},
		Players:  []engine.Position{{X: 0, Y: 0}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, nearestFood(state))
}
