// Package levelfmt reads and writes the compact text level format.
//
// The first line holds the grid size as "N,N". It is followed by N rows of
// N comma-separated integers, one per cell. Each integer is a 6-bit mask,
// most significant bit first: food, player, left wall, down wall, right wall,
// up wall. Teleports and gates have no text representation.
package levelfmt

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/wricardo/foodmaze/game/engine"
)

// ErrMalformed is returned for text that does not follow the format
var ErrMalformed = errors.New("malformed text level")

const (
	bitUp = 1 << iota
	bitRight
	bitDown
	bitLeft
	bitPlayer
	bitFood

	maxMask = 1<<6 - 1
)

var wallBits = []struct {
	dir engine.Direction
	bit int
}{
	{engine.Left, bitLeft},
	{engine.Down, bitDown},
	{engine.Right, bitRight},
	{engine.Up, bitUp},
}

// Parse reads a text level. The result is validated with engine.ValidateLevel.
func Parse(r io.Reader) (*engine.LevelDescriptor, error) {
	sc := bufio.NewScanner(r)

	size, err := parseSize(sc)
	if err != nil {
		return nil, err
	}

	desc := &engine.LevelDescriptor{GridSize: size}
	for y := 0; y < size; y++ {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%w: expected %d rows, got %d", ErrMalformed, size, y)
		}
		fields := strings.Split(strings.TrimSpace(sc.Text()), ",")
		if len(fields) != size {
			return nil, fmt.Errorf("%w: row %d has %d cells, expected %d", ErrMalformed, y+1, len(fields), size)
		}
		for x, field := range fields {
			mask, err := strconv.Atoi(strings.TrimSpace(field))
			if err != nil || mask < 0 || mask > maxMask {
				return nil, fmt.Errorf("%w: row %d column %d: %q is not a cell mask", ErrMalformed, y+1, x+1, field)
			}
			cell, player := decodeCell(mask, x, y)
			desc.Cells = append(desc.Cells, cell)
			if player {
				desc.Players = append(desc.Players, engine.Position{X: x, Y: y})
			}
		}
	}

	if err := engine.ValidateLevel(desc); err != nil {
		return nil, err
	}
	return desc, nil
}

func parseSize(sc *bufio.Scanner) (int, error) {
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("%w: empty input", ErrMalformed)
	}
	parts := strings.Split(strings.TrimSpace(sc.Text()), ",")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: size line must be N,N", ErrMalformed)
	}
	w, errW := strconv.Atoi(strings.TrimSpace(parts[0]))
	h, errH := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errW != nil || errH != nil {
		return 0, fmt.Errorf("%w: size line must be N,N", ErrMalformed)
	}
	if w != h {
		return 0, fmt.Errorf("%w: grid must be square, got %dx%d", ErrMalformed, w, h)
	}
	return w, nil
}

func decodeCell(mask, x, y int) (engine.CellSpec, bool) {
	cell := engine.CellSpec{X: x, Y: y, Walls: []string{}, Food: mask&bitFood != 0}
	for _, wb := range wallBits {
		if mask&wb.bit != 0 {
			cell.Walls = append(cell.Walls, string(wb.dir))
		}
	}
	return cell, mask&bitPlayer != 0
}

// Format writes desc in the text format. Levels with teleports or gates
// cannot be represented.
func Format(desc *engine.LevelDescriptor) ([]byte, error) {
	if len(desc.Teleports) > 0 || desc.Gate != nil {
		return nil, fmt.Errorf("text format cannot hold teleports or gates")
	}
	gs, err := engine.LoadLevel(desc)
	if err != nil {
		return nil, err
	}

	players := make(map[engine.Position]bool, len(gs.Tokens))
	for _, t := range gs.Tokens {
		players[t.Pos] = true
	}

	var buf bytes.Buffer
	n := gs.Grid.Size()
	fmt.Fprintf(&buf, "%d,%d\n", n, n)
	for y := 0; y < n; y++ {
		row := make([]string, n)
		for x := 0; x < n; x++ {
			p := engine.Position{X: x, Y: y}
			mask := 0
			if gs.Food.Has(p) {
				mask |= bitFood
			}
			if players[p] {
				mask |= bitPlayer
			}
			for _, wb := range wallBits {
				if gs.Grid.HasWall(p, wb.dir) {
					mask |= wb.bit
				}
			}
			row[x] = strconv.Itoa(mask)
		}
		buf.WriteString(strings.Join(row, ","))
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
