package state

import (
	"errors"
	"fmt"

	"github.com/wfunc/bingoserver/card"
)

var (
	ErrInvalidNumber = errors.New("number out of range")
	ErrAlreadyCalled = errors.New("number already called")
	ErrOutOfTurn     = errors.New("not your turn")
)

// Ledger records the numbers called in one game and whose turn it is.
// It is not safe for concurrent use; the owning room serializes access.
type Ledger struct {
	called []int
	marked [card.Cells + 1]bool
	turn   int
}

// NewLedger starts a ledger with slot first holding the turn.
func NewLedger(first int) *Ledger {
	return &Ledger{
		called: make([]int, 0, card.Cells),
		turn:   first,
	}
}

// Call records number for slot. It fails without changing anything when the
// number is out of range, already called, or slot is not the turn holder.
func (l *Ledger) Call(number, slot int) error {
	if number < 1 || number > card.Cells {
		return fmt.Errorf("%w: %d", ErrInvalidNumber, number)
	}
	if l.marked[number] {
		return fmt.Errorf("%w: %d", ErrAlreadyCalled, number)
	}
	if slot != l.turn {
		return ErrOutOfTurn
	}
	l.marked[number] = true
	l.called = append(l.called, number)
	return nil
}

func (l *Ledger) ToggleTurn() {
	l.turn = 1 - l.turn
}

func (l *Ledger) Turn() int {
	return l.turn
}

func (l *Ledger) Has(n int) bool {
	return n >= 1 && n <= card.Cells && l.marked[n]
}

// Called returns the called numbers in call order.
func (l *Ledger) Called() []int {
	out := make([]int, len(l.called))
	copy(out, l.called)
	return out
}

func (l *Ledger) Len() int {
	return len(l.called)
}
