package engine

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseDirection(t *testing.T) {
	tests := []struct {
		input   string
		want    Direction
		wantErr bool
	}{
		{"up", Up, false},
		{"DOWN", Down, false},
		{" left ", Left, false},
		{"Right", Right, false},
		{"north", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDirection(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDirection) {
					t.Errorf("Expected ErrInvalidDirection, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDirection_DeltaAndOpposite(t *testing.T) {
	for _, d := range Directions {
		dx, dy := d.Delta()
		ox, oy := d.Opposite().Delta()
		if dx+ox != 0 || dy+oy != 0 {
			t.Errorf("%s and its opposite %s do not cancel out", d, d.Opposite())
		}
		if d.Opposite().Opposite() != d {
			t.Errorf("Opposite of opposite of %s should be itself", d)
		}
	}

	if got := (Position{X: 2, Y: 2}).Step(Up); got != (Position{X: 2, Y: 1}) {
		t.Errorf("Expected (2,1) after stepping up, got %s", got)
	}
}

func TestWalls(t *testing.T) {
	var w Walls
	w.Set(Left, true)
	w.Set(Down, true)

	if !w.Has(Left) || !w.Has(Down) {
		t.Error("Expected left and down walls")
	}
	if w.Has(Up) || w.Has(Right) {
		t.Error("Expected no up or right walls")
	}
	if got := w.List(); !reflect.DeepEqual(got, []string{"left", "down"}) {
		t.Errorf("Expected [left down], got %v", got)
	}

	w.Set(Left, false)
	if w.Has(Left) {
		t.Error("Expected left wall to be removed")
	}
}

func TestMechanisms(t *testing.T) {
	sw := &Switch{}
	gate := Gate{Orientation: Right}

	if d, ok := gate.BlockedDirection(sw); !ok || d != Right {
		t.Errorf("Expected closed gate to block right, got %q %v", d, ok)
	}

	sw.Toggle()
	if !sw.IsOpen() {
		t.Fatal("Expected switch to be on after toggle")
	}
	if _, ok := gate.BlockedDirection(sw); ok {
		t.Error("Expected open gate to block nothing")
	}

	if _, ok := gate.BlockedDirection(nil); !ok {
		t.Error("Expected gate without switch to stay closed")
	}

	tp := Teleport{A: Position{X: 0, Y: 0}, B: Position{X: 3, Y: 1}}
	if end, ok := tp.OtherEnd(tp.A); !ok || end != tp.B {
		t.Errorf("Expected %s, got %s", tp.B, end)
	}
	if end, ok := tp.OtherEnd(tp.B); !ok || end != tp.A {
		t.Errorf("Expected %s, got %s", tp.A, end)
	}
	if _, ok := tp.OtherEnd(Position{X: 1, Y: 1}); ok {
		t.Error("Expected non-endpoint to have no partner")
	}
}

func TestFoodSet(t *testing.T) {
	f := NewFoodSet(Position{X: 2, Y: 1}, Position{X: 0, Y: 1}, Position{X: 1, Y: 0}, Position{X: 1, Y: 0})

	if f.Total() != 3 || f.Remaining() != 3 {
		t.Fatalf("Expected 3 distinct items, got total %d remaining %d", f.Total(), f.Remaining())
	}

	want := []Position{{X: 1, Y: 0}, {X: 0, Y: 1}, {X: 2, Y: 1}}
	if got := f.Positions(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	clone := f.Clone()
	if !f.Collect(Position{X: 1, Y: 0}) {
		t.Error("Expected first collect to succeed")
	}
	if f.Collect(Position{X: 1, Y: 0}) {
		t.Error("Expected second collect to find nothing")
	}
	if clone.Remaining() != 3 {
		t.Error("Clone should not share items")
	}

	f.Collect(Position{X: 0, Y: 1})
	f.Collect(Position{X: 2, Y: 1})
	if !f.Empty() {
		t.Error("Expected set to be empty")
	}
	if f.Total() != 3 {
		t.Error("Total should not change on collect")
	}
}

func TestManhattanDistance(t *testing.T) {
	if got := ManhattanDistance(Position{X: 0, Y: 0}, Position{X: 3, Y: 4}); got != 7 {
		t.Errorf("Expected 7, got %d", got)
	}
	if got := ManhattanDistance(Position{X: 3, Y: 4}, Position{X: 0, Y: 0}); got != 7 {
		t.Errorf("Expected 7, got %d", got)
	}
}
