package card

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type calledSet map[int]bool

func (s calledSet) Has(n int) bool { return s[n] }

// identitySource leaves the sequence untouched, so card k holds k+1 at (k/5, k%5).
type identitySource struct{}

func (identitySource) Shuffle(int, func(i, j int)) {}
func (identitySource) IntN(int) int                { return 0 }

func seeded(rt *rapid.T) Source {
	a := rapid.Uint64().Draw(rt, "seed_a")
	b := rapid.Uint64().Draw(rt, "seed_b")
	return rand.New(rand.NewPCG(a, b))
}

func TestGenerate_IdentityLayout(t *testing.T) {
	a := Generate(identitySource{})
	assert.Equal(t, []int{1, 2, 3, 4, 5}, a.Row(0))
	assert.Equal(t, []int{21, 22, 23, 24, 25}, a.Row(4))

	c, ok := a.Coord(13)
	require.True(t, ok)
	assert.Equal(t, Coord{Row: 2, Col: 2}, c)

	_, ok = a.Coord(0)
	assert.False(t, ok)
	_, ok = a.Coord(26)
	assert.False(t, ok)
}

func TestProperty_GenerateIsBijective(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := Generate(seeded(rt))
		require.True(rt, a.Valid())

		cells := make(map[Coord]int, Cells)
		for n := 1; n <= Cells; n++ {
			c, ok := a.Coord(n)
			require.True(rt, ok)
			require.True(rt, c.Row >= 0 && c.Row < Size && c.Col >= 0 && c.Col < Size)
			_, dup := cells[c]
			require.False(rt, dup, "number %d shares cell %v", n, c)
			cells[c] = n
		}
		assert.Len(rt, cells, Cells)
	})
}

func TestGenerate_DefaultSourceIsBijective(t *testing.T) {
	for i := 0; i < 100; i++ {
		assert.True(t, Generate(DefaultSource()).Valid())
	}
}

func TestCountLines(t *testing.T) {
	a := Generate(identitySource{})

	tests := []struct {
		name   string
		called []int
		want   int
	}{
		{name: "nothing called", called: nil, want: 0},
		{name: "first row", called: []int{1, 2, 3, 4, 5}, want: 1},
		{name: "first column", called: []int{1, 6, 11, 16, 21}, want: 1},
		{name: "main diagonal", called: []int{1, 7, 13, 19, 25}, want: 1},
		{name: "anti diagonal", called: []int{5, 9, 13, 17, 21}, want: 1},
		{name: "row and column share a corner", called: []int{1, 2, 3, 4, 5, 6, 11, 16, 21}, want: 2},
		{name: "four of a row", called: []int{1, 2, 3, 4}, want: 0},
		{name: "both diagonals", called: []int{1, 7, 13, 19, 25, 5, 9, 17, 21}, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := calledSet{}
			for _, n := range tt.called {
				set[n] = true
			}
			assert.Equal(t, tt.want, CountLines(a, set))
		})
	}
}

func TestCountLines_FullCard(t *testing.T) {
	set := calledSet{}
	for n := 1; n <= Cells; n++ {
		set[n] = true
	}
	assert.Equal(t, MaxLines, CountLines(Generate(DefaultSource()), set))
}

func TestProperty_CountLinesMonotonic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := Generate(seeded(rt))
		order := rapid.Permutation(sequence()).Draw(rt, "order")
		set := calledSet{}
		prev := 0
		for _, n := range order {
			set[n] = true
			lines := CountLines(a, set)
			require.GreaterOrEqual(rt, lines, prev)
			require.LessOrEqual(rt, lines, MaxLines)
			prev = lines
		}
		assert.Equal(rt, MaxLines, prev)
	})
}

func TestDecide(t *testing.T) {
	tests := []struct {
		lines      [2]int
		threshold  int
		wantResult Result
		wantWinner int
	}{
		{lines: [2]int{0, 0}, threshold: 1, wantResult: Continue, wantWinner: -1},
		{lines: [2]int{1, 0}, threshold: 1, wantResult: Winner, wantWinner: 0},
		{lines: [2]int{0, 2}, threshold: 1, wantResult: Winner, wantWinner: 1},
		{lines: [2]int{1, 1}, threshold: 1, wantResult: Draw, wantWinner: -1},
		{lines: [2]int{4, 3}, threshold: 5, wantResult: Continue, wantWinner: -1},
		{lines: [2]int{5, 6}, threshold: 5, wantResult: Draw, wantWinner: -1},
	}
	for _, tt := range tests {
		result, winner := Decide(tt.lines, tt.threshold)
		assert.Equal(t, tt.wantResult, result, "lines %v threshold %d", tt.lines, tt.threshold)
		assert.Equal(t, tt.wantWinner, winner, "lines %v threshold %d", tt.lines, tt.threshold)
	}
}

func TestProperty_SimultaneousLinesAreDraw(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.IntRange(1, MaxLines).Draw(rt, "a")
		b := rapid.IntRange(1, MaxLines).Draw(rt, "b")
		result, _ := Decide([2]int{a, b}, 1)
		assert.Equal(rt, Draw, result)
	})
}

func sequence() []int {
	s := make([]int, Cells)
	for i := range s {
		s[i] = i + 1
	}
	return s
}
