package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/foodmaze/game/engine"
)

func createTestValidator() *validator {
	return &validator{maxStates: 10000, timeout: 5 * time.Second}
}

// writeLevel writes content to root/name, creating pack directories
func writeLevel(t *testing.T, root, name, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write level: %v", err)
	}
	return path
}

func hasMessage(messages []string, substr string) bool {
	for _, m := range messages {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

const corridorLevel = `{
	"name": "Corridor",
	"gridSize": 3,
	"cells": [
		{"x": 2, "y": 0, "food": true},
		{"x": 0, "y": 0, "walls": ["down"]},
		{"x": 0, "y": 1, "walls": ["up"]}
	],
	"players": [{"x": 0, "y": 0}]
}`

func TestValidateLevel_Valid(t *testing.T) {
	root := t.TempDir()
	path := writeLevel(t, root, "tutorial/corridor.json", corridorLevel)

	result := createTestValidator().validateLevel(root, path)
	if !result.Valid {
		t.Fatalf("Expected valid level, got errors: %v", result.Errors)
	}
	if result.File != "tutorial/corridor.json" {
		t.Errorf("Expected file name relative to the root, got %s", result.File)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", result.Warnings)
	}
	if !hasMessage(result.Info, "Solvable in 1 moves: right") {
		t.Errorf("Expected solution info, got %v", result.Info)
	}
	if !hasMessage(result.Info, "Grid: 3x3") {
		t.Errorf("Expected grid info, got %v", result.Info)
	}
}

func TestValidateLevel_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"invalid json", `{"name": "test", invalid json}`, "Invalid JSON"},
		{"unknown field", `{"gridSize": 3, "fuel": 5, "cells": [], "players": []}`, "Invalid JSON"},
		{"no food", `{"gridSize": 3, "cells": [], "players": [{"x": 0, "y": 0}]}`, "no food"},
		{"no players", `{"gridSize": 3, "cells": [{"x": 1, "y": 1, "food": true}], "players": []}`, "players"},
		{"bad wall", `{"gridSize": 3, "cells": [{"x": 1, "y": 1, "food": true, "walls": ["north"]}], "players": [{"x": 0, "y": 0}]}`, "unknown wall"},
		{"odd teleports", `{"gridSize": 3, "cells": [{"x": 1, "y": 1, "food": true}], "players": [{"x": 0, "y": 0}], "teleports": [{"x": 2, "y": 2}]}`, "pair"},
		{
			"unsolvable",
			`{"gridSize": 3, "cells": [{"x": 2, "y": 2, "food": true, "walls": ["left", "up"]}, {"x": 1, "y": 2, "walls": ["right"]}, {"x": 2, "y": 1, "walls": ["down"]}], "players": [{"x": 0, "y": 0}]}`,
			"cannot be completed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			path := writeLevel(t, root, "level.json", tt.content)

			result := createTestValidator().validateLevel(root, path)
			if result.Valid {
				t.Fatal("Expected invalid level")
			}
			if !hasMessage(result.Errors, tt.want) {
				t.Errorf("Expected an error containing %q, got %v", tt.want, result.Errors)
			}
		})
	}
}

func TestValidateLevel_MissingFile(t *testing.T) {
	result := createTestValidator().validateLevel("/non/existent", "/non/existent/file.json")
	if result.Valid {
		t.Error("Expected invalid result for missing file")
	}
	if !hasMessage(result.Errors, "Failed to read file") {
		t.Errorf("Expected 'Failed to read file' error, got %v", result.Errors)
	}
}

func TestValidateLevel_Warnings(t *testing.T) {
	level := `{
		"gridSize": 3,
		"cells": [
			{"x": 0, "y": 0, "food": true, "walls": ["right"]},
			{"x": 2, "y": 2, "food": true}
		],
		"players": [{"x": 0, "y": 0}]
	}`
	root := t.TempDir()
	path := writeLevel(t, root, "warn.json", level)

	result := createTestValidator().validateLevel(root, path)
	if !hasMessage(result.Warnings, "One-sided wall between (0,0) and (1,0)") {
		t.Errorf("Expected one-sided wall warning, got %v", result.Warnings)
	}
	if !hasMessage(result.Warnings, "Player 1 starts on food at (0,0)") {
		t.Errorf("Expected start food warning, got %v", result.Warnings)
	}
}

func TestValidateLevel_SearchLimit(t *testing.T) {
	level := `{
		"gridSize": 5,
		"cells": [{"x": 4, "y": 4, "food": true}, {"x": 0, "y": 4, "food": true}, {"x": 4, "y": 0, "food": true}],
		"players": [{"x": 2, "y": 2}]
	}`
	root := t.TempDir()
	path := writeLevel(t, root, "big.json", level)

	v := &validator{maxStates: 1, timeout: time.Second}
	result := v.validateLevel(root, path)
	if !result.Valid {
		t.Fatalf("A search limit should not invalidate the level: %v", result.Errors)
	}
	if !hasMessage(result.Warnings, "Solvability unknown") {
		t.Errorf("Expected solvability warning, got %v", result.Warnings)
	}
}

func TestAsymmetricWalls(t *testing.T) {
	grid, err := engine.NewGrid(2)
	if err != nil {
		t.Fatalf("NewGrid() error = %v", err)
	}
	if err := grid.SetWallPair(engine.Position{X: 0, Y: 0}, engine.Right, true); err != nil {
		t.Fatalf("SetWallPair() error = %v", err)
	}
	if got := asymmetricWalls(grid); len(got) != 0 {
		t.Errorf("Expected symmetric walls, got %v", got)
	}

	if err := grid.SetWall(engine.Position{X: 1, Y: 1}, engine.Up, true); err != nil {
		t.Fatalf("SetWall() error = %v", err)
	}
	got := asymmetricWalls(grid)
	if len(got) != 1 || !strings.Contains(got[0], "(1,0) and (1,1)") {
		t.Errorf("Expected one asymmetric wall, got %v", got)
	}
}

func TestRun(t *testing.T) {
	root := t.TempDir()
	writeLevel(t, root, "tutorial/corridor.json", corridorLevel)
	writeLevel(t, root, "notes.txt", "not a level")

	var out bytes.Buffer
	ok, err := run(root, createTestValidator(), false, &out)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !ok {
		t.Errorf("Expected all levels valid, output:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "All 1 levels are valid") {
		t.Errorf("Unexpected output:\n%s", out.String())
	}

	writeLevel(t, root, "broken/level.json", `{}`)
	out.Reset()
	ok, err = run(root, createTestValidator(), false, &out)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if ok {
		t.Error("Expected a failure with a broken level")
	}
	if !strings.Contains(out.String(), "❌ INVALID") {
		t.Errorf("Unexpected output:\n%s", out.String())
	}
}

func TestRun_Strict(t *testing.T) {
	root := t.TempDir()
	writeLevel(t, root, "warn.json", `{
		"gridSize": 2,
		"cells": [{"x": 1, "y": 0, "food": true}, {"x": 0, "y": 1, "walls": ["up"]}],
		"players": [{"x": 0, "y": 0}]
	}`)

	var out bytes.Buffer
	ok, err := run(root, createTestValidator(), false, &out)
	if err != nil || !ok {
		t.Fatalf("Expected warnings to pass without -strict: ok=%v err=%v\n%s", ok, err, out.String())
	}

	out.Reset()
	ok, err = run(root, createTestValidator(), true, &out)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if ok {
		t.Error("Expected -strict to fail on warnings")
	}
}

func TestRun_EmptyDirectory(t *testing.T) {
	var out bytes.Buffer
	if _, err := run(t.TempDir(), createTestValidator(), false, &out); err == nil {
		t.Error("Expected an error for a directory without levels")
	}
}
