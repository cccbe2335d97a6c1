package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGrid(t *testing.T) {
	g, err := NewGrid(4)
	require.NoError(t, err)
	assert.Equal(t, 4, g.Size())

	_, err = NewGrid(0)
	assert.ErrorIs(t, err, ErrInvalidLevel)

	_, err = NewGrid(MaxGridSize + 1)
	assert.ErrorIs(t, err, ErrInvalidLevel)
}

func TestGrid_CellAt(t *testing.T) {
	g, err := NewGrid(3)
	require.NoError(t, err)

	c, err := g.CellAt(2, 1)
	require.NoError(t, err)
	assert.Equal(t, pos(2, 1), c.Pos)
	assert.False(t, c.HasTeleport())
	assert.False(t, c.HasSwitch())
	assert.False(t, c.HasGate())

	for _, p := range []Position{pos(-1, 0), pos(0, -1), pos(3, 0), pos(0, 3)} {
		_, err := g.CellAt(p.X, p.Y)
		assert.ErrorIs(t, err, ErrOutOfBounds, "cell %s", p)
	}
}

func TestGrid_Neighbor(t *testing.T) {
	g, err := NewGrid(3)
	require.NoError(t, err)

	n, ok := g.Neighbor(pos(1, 1), Up)
	assert.True(t, ok)
	assert.Equal(t, pos(1, 0), n)

	_, ok = g.Neighbor(pos(0, 1), Left)
	assert.False(t, ok)
	_, ok = g.Neighbor(pos(2, 2), Down)
	assert.False(t, ok)
}

func TestGrid_Walls(t *testing.T) {
	g, err := NewGrid(3)
	require.NoError(t, err)

	require.NoError(t, g.SetWallPair(pos(1, 1), Right, true))
	assert.True(t, g.HasWall(pos(1, 1), Right))
	assert.True(t, g.HasWall(pos(2, 1), Left))
	assert.False(t, g.HasWall(pos(1, 1), Left))

	require.NoError(t, g.SetWallPair(pos(1, 1), Right, false))
	assert.False(t, g.HasWall(pos(2, 1), Left))

	assert.True(t, g.HasWall(pos(5, 5), Up), "outside the grid is solid")
	assert.ErrorIs(t, g.SetWall(pos(3, 0), Up, true), ErrOutOfBounds)
}

func TestGrid_Mechanisms(t *testing.T) {
	g, err := NewGrid(4)
	require.NoError(t, err)

	require.NoError(t, g.AddTeleportPair(pos(0, 0), pos(3, 3)))
	dest, ok := g.TeleportDestination(pos(3, 3))
	assert.True(t, ok)
	assert.Equal(t, pos(0, 0), dest)
	_, ok = g.TeleportDestination(pos(1, 1))
	assert.False(t, ok)

	id, err := g.AddSwitch(pos(2, 2))
	require.NoError(t, err)
	require.NoError(t, g.AddGate(pos(1, 0), Right, id))
	require.NoError(t, g.AddGate(pos(2, 0), Left, id))

	blocked, ok := g.GateBlock(pos(1, 0))
	assert.True(t, ok)
	assert.Equal(t, Right, blocked)

	g.SwitchAt(pos(2, 2)).Toggle()
	_, ok = g.GateBlock(pos(1, 0))
	assert.False(t, ok)
	assert.Len(t, g.Gates(), 2)
	assert.Len(t, g.Switches(), 1)
}

func TestGrid_MechanismErrors(t *testing.T) {
	g, err := NewGrid(3)
	require.NoError(t, err)

	assert.ErrorIs(t, g.AddTeleportPair(pos(0, 0), pos(3, 0)), ErrInvalidLevel)
	assert.ErrorIs(t, g.AddTeleportPair(pos(1, 1), pos(1, 1)), ErrInvalidLevel)

	_, err = g.AddSwitch(pos(-1, 0))
	assert.ErrorIs(t, err, ErrInvalidLevel)

	id, err := g.AddSwitch(pos(0, 0))
	require.NoError(t, err)
	_, err = g.AddSwitch(pos(0, 0))
	assert.ErrorIs(t, err, ErrInvalidLevel)

	assert.ErrorIs(t, g.AddGate(pos(1, 1), "sideways", id), ErrInvalidLevel)
	assert.ErrorIs(t, g.AddGate(pos(1, 1), Up, id+1), ErrInvalidLevel)

	require.NoError(t, g.SetWall(pos(2, 2), Up, true))
	assert.ErrorIs(t, g.AddGate(pos(2, 2), Up, id), ErrInvalidLevel, "gate and wall on the same side")

	require.NoError(t, g.AddGate(pos(1, 1), Down, id))
	assert.ErrorIs(t, g.SetWall(pos(1, 1), Down, true), ErrInvalidLevel)
	assert.ErrorIs(t, g.AddGate(pos(1, 1), Left, id), ErrInvalidLevel, "one gate per cell")
}

func TestGrid_Clone(t *testing.T) {
	g, err := NewGrid(3)
	require.NoError(t, err)
	_, err = g.AddSwitch(pos(1, 1))
	require.NoError(t, err)

	c := g.Clone()
	c.SwitchAt(pos(1, 1)).Toggle()
	require.NoError(t, c.SetWall(pos(0, 0), Right, true))

	assert.False(t, g.SwitchAt(pos(1, 1)).IsOpen())
	assert.False(t, g.HasWall(pos(0, 0), Right))
}
