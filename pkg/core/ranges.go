/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: ranges.go
Description: Range-mode Position State Table. Every record of every window is folded
into the same per-offset cells holding min, max, the observed value set and a sticky
saturation flag. Signed and unsigned domains are fixed per table.
*/

package core

import (
	"fmt"
	"sort"
)

// RangeCell aggregates the values seen at one record offset
type RangeCell struct {
	Min       int     // Smallest value seen, in the table's domain
	Max       int     // Largest value seen, in the table's domain
	Observed  ByteSet // Raw byte values seen
	Saturated bool    // Whether [Min, Max] spans the whole domain
}

// Seen reports whether any value was folded into the cell
func (c RangeCell) Seen() bool {
	return !c.Observed.IsEmpty()
}

// RangeTable aggregates per-offset value ranges across records and files
type RangeTable struct {
	cells  []RangeCell
	signed bool
	active int // Length of the prefix still worth folding
	hope   int // Number of non-saturated cells within the active prefix
	folds  int
}

// RangeRow is one line of the range report
type RangeRow struct {
	Offset   int64 `json:"offset" yaml:"offset"`
	Min      int   `json:"min" yaml:"min"`
	Max      int   `json:"max" yaml:"max"`
	Observed []int `json:"observed" yaml:"observed"` // Sorted in the table's domain
	NotMask  byte  `json:"not_mask" yaml:"not_mask"` // Bits never set at the offset
}

// RangeCellState is the serializable form of a RangeCell
type RangeCellState struct {
	Min       int       `cbor:"min" json:"min"`
	Max       int       `cbor:"max" json:"max"`
	Observed  [4]uint64 `cbor:"observed" json:"observed"`
	Saturated bool      `cbor:"saturated" json:"saturated"`
}

// RangeState is the serializable form of a RangeTable
type RangeState struct {
	Cells  []RangeCellState `cbor:"cells" json:"cells"`
	Signed bool             `cbor:"signed" json:"signed"`
	Active int              `cbor:"active" json:"active"`
	Folds  int              `cbor:"folds" json:"folds"`
}

// NewRangeTable creates a table of the given record size
func NewRangeTable(size int, signed bool) *RangeTable {
	if size < 0 {
		size = 0
	}
	t := &RangeTable{
		cells:  make([]RangeCell, size),
		signed: signed,
		active: size,
		hope:   size,
	}
	lo, hi := t.Domain()
	for i := range t.cells {
		t.cells[i].Min = hi
		t.cells[i].Max = lo
	}
	return t
}

// Domain returns the inclusive value bounds of the table
func (t *RangeTable) Domain() (lo, hi int) {
	if t.signed {
		return -128, 127
	}
	return 0, 255
}

// value converts a raw byte into the table's domain
func (t *RangeTable) value(b byte) int {
	if t.signed {
		return int(int8(b))
	}
	return int(b)
}

// Fold adds every record of a window to the cells.
// Record r occupies window[r*sz : r*sz+sz]; positions past the end of the
// window are skipped for this window only.
func (t *RangeTable) Fold(window []byte, sz, items int) {
	if t.Exhausted() || sz <= 0 {
		return
	}
	if items <= 0 {
		items = 1
	}

	width := sz
	if t.active < width {
		width = t.active
	}

	for r := 0; r < items; r++ {
		start := r * sz
		if start >= len(window) {
			break
		}
		for i := 0; i < width; i++ {
			pos := start + i
			if pos >= len(window) {
				break
			}
			t.observe(i, window[pos])
		}
	}

	t.folds++
	t.shrink()
}

// observe updates one cell with one byte
func (t *RangeTable) observe(i int, b byte) {
	c := &t.cells[i]
	v := t.value(b)
	c.Observed.Add(b)
	if v < c.Min {
		c.Min = v
	}
	if v > c.Max {
		c.Max = v
	}
	lo, hi := t.Domain()
	if !c.Saturated && c.Min == lo && c.Max == hi {
		c.Saturated = true
		t.hope--
	}
}

// shrink crops the active length while the tail cell is saturated
func (t *RangeTable) shrink() {
	for t.active > 0 && t.cells[t.active-1].Saturated {
		t.active--
	}
}

// Truncate permanently lowers the active length to n
func (t *RangeTable) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	for ; t.active > n; t.active-- {
		if !t.cells[t.active-1].Saturated {
			t.hope--
		}
	}
}

// Merge folds another partial table of the same shape into this one
func (t *RangeTable) Merge(other *RangeTable) error {
	if len(other.cells) != len(t.cells) || other.signed != t.signed {
		return fmt.Errorf("cannot merge range tables of different shape (%d/%v vs %d/%v)",
			len(t.cells), t.signed, len(other.cells), other.signed)
	}
	if other.folds == 0 {
		return nil
	}

	lo, hi := t.Domain()
	for i := range t.cells {
		c, o := &t.cells[i], &other.cells[i]
		if o.Min < c.Min {
			c.Min = o.Min
		}
		if o.Max > c.Max {
			c.Max = o.Max
		}
		c.Observed = c.Observed.Union(&o.Observed)
		c.Saturated = c.Min == lo && c.Max == hi
	}

	if other.active < t.active {
		t.active = other.active
	}
	t.folds += other.folds
	t.shrink()

	t.hope = 0
	for i := 0; i < t.active; i++ {
		if !t.cells[i].Saturated {
			t.hope++
		}
	}
	return nil
}

// Exhausted reports whether every active cell is saturated
func (t *RangeTable) Exhausted() bool {
	return t.hope <= 0
}

// Hope returns the number of non-saturated cells
func (t *RangeTable) Hope() int {
	return t.hope
}

// Size returns the capacity the table was created with
func (t *RangeTable) Size() int {
	return len(t.cells)
}

// ActiveLength returns the current length of the folded prefix
func (t *RangeTable) ActiveLength() int {
	return t.active
}

// Folds returns the number of windows folded so far
func (t *RangeTable) Folds() int {
	return t.folds
}

// Signed reports the numeric domain of the table
func (t *RangeTable) Signed() bool {
	return t.signed
}

// Cell returns a copy of cell i
func (t *RangeTable) Cell(i int) RangeCell {
	return t.cells[i]
}

// Rows distils the table into report rows.
// Offsets never observed and saturated offsets carry no information and are left out.
func (t *RangeTable) Rows(baseOfs int64) []RangeRow {
	rows := make([]RangeRow, 0, t.active)
	for i := 0; i < t.active; i++ {
		c := &t.cells[i]
		if !c.Seen() || c.Saturated {
			continue
		}
		raw := c.Observed.Values()
		values := make([]int, len(raw))
		for j, b := range raw {
			values[j] = t.value(b)
		}
		sort.Ints(values)
		rows = append(rows, RangeRow{
			Offset:   baseOfs + int64(i),
			Min:      c.Min,
			Max:      c.Max,
			Observed: values,
			NotMask:  c.Observed.NotMask(),
		})
	}
	return rows
}

// State exports the table for snapshots
func (t *RangeTable) State() *RangeState {
	state := &RangeState{
		Cells:  make([]RangeCellState, len(t.cells)),
		Signed: t.signed,
		Active: t.active,
		Folds:  t.folds,
	}
	for i, c := range t.cells {
		state.Cells[i] = RangeCellState{Min: c.Min, Max: c.Max, Observed: c.Observed, Saturated: c.Saturated}
	}
	return state
}

// RestoreRangeTable rebuilds a table from its exported state
func RestoreRangeTable(state *RangeState) (*RangeTable, error) {
	if state == nil {
		return nil, fmt.Errorf("missing range state")
	}
	if state.Active < 0 || state.Active > len(state.Cells) {
		return nil, fmt.Errorf("range state active length %d out of range", state.Active)
	}
	t := &RangeTable{
		cells:  make([]RangeCell, len(state.Cells)),
		signed: state.Signed,
		active: state.Active,
		folds:  state.Folds,
	}
	for i, c := range state.Cells {
		t.cells[i] = RangeCell{Min: c.Min, Max: c.Max, Observed: ByteSet(c.Observed), Saturated: c.Saturated}
		if i < t.active && !c.Saturated {
			t.hope++
		}
	}
	return t, nil
}

// Reset re-initializes the table in place with a new record size.
// Everything folded so far is dropped.
func (t *RangeTable) Reset(size int) {
	fresh := NewRangeTable(size, t.signed)
	*t = *fresh
}
