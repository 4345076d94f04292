package card

// Marker reports whether a number has been called.
type Marker interface {
	Has(n int) bool
}

// Result is the outcome of evaluating both cards after a call.
type Result int

const (
	Continue Result = iota
	Winner
	Draw
)

func (r Result) String() string {
	switch r {
	case Winner:
		return "winner"
	case Draw:
		return "draw"
	default:
		return "continue"
	}
}

// CountLines returns how many rows, columns and main diagonals of a are fully
// called according to m.
func CountLines(a Assignment, m Marker) int {
	var marked [Size][Size]bool
	for n := 1; n <= Cells; n++ {
		c := a.pos[n]
		marked[c.Row][c.Col] = m.Has(n)
	}

	count := 0
	for i := 0; i < Size; i++ {
		row, col := true, true
		for j := 0; j < Size; j++ {
			if !marked[i][j] {
				row = false
			}
			if !marked[j][i] {
				col = false
			}
		}
		if row {
			count++
		}
		if col {
			count++
		}
	}

	diag, anti := true, true
	for i := 0; i < Size; i++ {
		if !marked[i][i] {
			diag = false
		}
		if !marked[i][Size-1-i] {
			anti = false
		}
	}
	if diag {
		count++
	}
	if anti {
		count++
	}
	return count
}

// Decide applies the resolution rule to the line counts of slots 0 and 1.
// winner is only meaningful when the result is Winner.
func Decide(lines [2]int, linesToWin int) (result Result, winner int) {
	first := lines[0] >= linesToWin
	second := lines[1] >= linesToWin
	switch {
	case first && second:
		return Draw, -1
	case first:
		return Winner, 0
	case second:
		return Winner, 1
	default:
		return Continue, -1
	}
}
