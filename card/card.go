// Package card generates bingo cards and counts completed lines on them.
package card

import (
	"math/rand/v2"
)

const (
	// Size is the side length of a card.
	Size = 5
	// Cells is the number of cells on a card and the highest callable number.
	Cells = Size * Size
	// MaxLines is the number of lines on a card: rows, columns and both diagonals.
	MaxLines = 2*Size + 2
)

// Coord is a cell position on a card.
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Source is the randomness a card and a turn draw consume.
// *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	Shuffle(n int, swap func(i, j int))
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }
func (globalSource) IntN(n int) int                     { return rand.IntN(n) }

// DefaultSource returns a Source backed by the top-level math/rand/v2
// functions, which are safe for concurrent use.
func DefaultSource() Source {
	return globalSource{}
}

// Assignment maps each number 1..Cells to exactly one cell.
type Assignment struct {
	grid [Size][Size]int
	pos  [Cells + 1]Coord
}

// Generate lays out a shuffled 1..Cells sequence row-major.
func Generate(src Source) Assignment {
	var seq [Cells]int
	for i := range seq {
		seq[i] = i + 1
	}
	src.Shuffle(Cells, func(i, j int) { seq[i], seq[j] = seq[j], seq[i] })

	var a Assignment
	for k, n := range seq {
		c := Coord{Row: k / Size, Col: k % Size}
		a.grid[c.Row][c.Col] = n
		a.pos[n] = c
	}
	return a
}

// Grid returns the card numbers by row then column.
func (a Assignment) Grid() [Size][Size]int {
	return a.grid
}

// Coord returns the cell holding n.
func (a Assignment) Coord(n int) (Coord, bool) {
	if n < 1 || n > Cells {
		return Coord{}, false
	}
	return a.pos[n], true
}

// Row returns the numbers of row r, left to right.
func (a Assignment) Row(r int) []int {
	row := a.grid[r]
	return row[:]
}

// Valid reports whether the assignment is a bijection between 1..Cells and the grid.
func (a Assignment) Valid() bool {
	var seen [Cells + 1]bool
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			n := a.grid[r][c]
			if n < 1 || n > Cells || seen[n] {
				return false
			}
			seen[n] = true
			if a.pos[n] != (Coord{Row: r, Col: c}) {
				return false
			}
		}
	}
	return true
}
