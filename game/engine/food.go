package engine

import (
	"sort"

	"github.com/zyedidia/generic/mapset"
)

// FoodSet tracks the food items still on the board
type FoodSet struct {
	items mapset.Set[Position]
	total int
}

// NewFoodSet creates a set holding the given positions
func NewFoodSet(positions ...Position) *FoodSet {
	f := &FoodSet{items: mapset.New[Position]()}
	for _, p := range positions {
		if !f.items.Has(p) {
			f.items.Put(p)
			f.total++
		}
	}
	return f
}

// Has reports whether food remains at p
func (f *FoodSet) Has(p Position) bool {
	return f.items.Has(p)
}

// Collect removes the food at p and reports whether any was there
func (f *FoodSet) Collect(p Position) bool {
	if !f.items.Has(p) {
		return false
	}
	f.items.Remove(p)
	return true
}

// Remaining returns the number of uncollected items
func (f *FoodSet) Remaining() int {
	return f.items.Size()
}

// Total returns the number of items the level started with
func (f *FoodSet) Total() int {
	return f.total
}

// Empty reports whether every item has been collected
func (f *FoodSet) Empty() bool {
	return f.items.Size() == 0
}

// Positions returns the remaining food sorted by row, then column
func (f *FoodSet) Positions() []Position {
	out := make([]Position, 0, f.items.Size())
	f.items.Each(func(p Position) {
		out = append(out, p)
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

// Clone returns an independent copy
func (f *FoodSet) Clone() *FoodSet {
	c := &FoodSet{items: mapset.New[Position](), total: f.total}
	f.items.Each(func(p Position) {
		c.items.Put(p)
	})
	return c
}
