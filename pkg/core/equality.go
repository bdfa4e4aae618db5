/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: equality.go
Description: Equality-mode Position State Table. Keeps the reference bytes of the first
folded window and an alive flag per offset; every later window can only kill cells.
The active length is a bound over the fixed arena that shrinks as the tail dies.
*/

package core

import "fmt"

// EqualityTable tracks which offsets hold the same byte in every folded window
type EqualityTable struct {
	reference []byte // Bytes of the first folded window
	alive     []bool // Whether no mismatch was seen at the offset
	active    int    // Length of the prefix still worth comparing
	hope      int    // Number of alive cells
	folds     int    // Number of windows folded
}

// EqualityState is the serializable form of an EqualityTable
type EqualityState struct {
	Reference []byte `cbor:"reference" json:"reference"`
	Alive     []bool `cbor:"alive" json:"alive"`
	Active    int    `cbor:"active" json:"active"`
	Folds     int    `cbor:"folds" json:"folds"`
}

// NewEqualityTable creates a table of the given capacity with every cell alive
func NewEqualityTable(size int) *EqualityTable {
	if size < 0 {
		size = 0
	}
	alive := make([]bool, size)
	for i := range alive {
		alive[i] = true
	}
	return &EqualityTable{
		reference: make([]byte, size),
		alive:     alive,
		active:    size,
		hope:      size,
	}
}

// Fold compares one window against the reference bytes.
// The first window becomes the reference. Offsets the window does not reach
// are treated as mismatches. Folding into an exhausted table is a no-op.
func (t *EqualityTable) Fold(window []byte) {
	if t.Exhausted() {
		return
	}

	limit := t.active
	if len(window) < limit {
		limit = len(window)
	}

	if t.folds == 0 {
		copy(t.reference[:limit], window)
	} else {
		for i := 0; i < limit; i++ {
			if t.alive[i] && window[i] != t.reference[i] {
				t.kill(i)
			}
		}
	}
	for i := limit; i < t.active; i++ {
		if t.alive[i] {
			t.kill(i)
		}
	}

	t.folds++
	t.shrink()
}

// kill marks a cell dead and takes its hope away
func (t *EqualityTable) kill(i int) {
	t.alive[i] = false
	t.hope--
}

// shrink crops the active length while the tail cell is dead
func (t *EqualityTable) shrink() {
	for t.active > 0 && !t.alive[t.active-1] {
		t.active--
	}
}

// Merge folds another partial table into this one.
// The result equals folding both tables' windows into a single table.
func (t *EqualityTable) Merge(other *EqualityTable) error {
	if len(other.alive) != len(t.alive) {
		return fmt.Errorf("cannot merge equality tables of size %d and %d", len(t.alive), len(other.alive))
	}
	if other.folds == 0 {
		return nil
	}
	if t.folds == 0 {
		copy(t.reference, other.reference)
		copy(t.alive, other.alive)
		t.active = other.active
		t.hope = other.hope
		t.folds = other.folds
		return nil
	}

	active := t.active
	if other.active < active {
		active = other.active
	}
	for i := active; i < t.active; i++ {
		t.alive[i] = false
	}
	hope := 0
	for i := 0; i < active; i++ {
		t.alive[i] = t.alive[i] && other.alive[i] && t.reference[i] == other.reference[i]
		if t.alive[i] {
			hope++
		}
	}
	t.active = active
	t.hope = hope
	t.folds += other.folds
	t.shrink()
	return nil
}

// Exhausted reports whether no cell can match anymore
func (t *EqualityTable) Exhausted() bool {
	return t.hope <= 0
}

// Hope returns the number of cells still alive
func (t *EqualityTable) Hope() int {
	return t.hope
}

// Size returns the capacity the table was created with
func (t *EqualityTable) Size() int {
	return len(t.alive)
}

// ActiveLength returns the current length of the compared prefix
func (t *EqualityTable) ActiveLength() int {
	return t.active
}

// Folds returns the number of windows folded so far
func (t *EqualityTable) Folds() int {
	return t.folds
}

// Alive reports whether offset i matched in every folded window
func (t *EqualityTable) Alive(i int) bool {
	return i >= 0 && i < t.active && t.alive[i]
}

// Reference returns a copy of the reference bytes over the active length
func (t *EqualityTable) Reference() []byte {
	out := make([]byte, t.active)
	copy(out, t.reference)
	return out
}

// State exports the table for snapshots
func (t *EqualityTable) State() *EqualityState {
	state := &EqualityState{
		Reference: make([]byte, len(t.reference)),
		Alive:     make([]bool, len(t.alive)),
		Active:    t.active,
		Folds:     t.folds,
	}
	copy(state.Reference, t.reference)
	copy(state.Alive, t.alive)
	return state
}

// RestoreEqualityTable rebuilds a table from its exported state
func RestoreEqualityTable(state *EqualityState) (*EqualityTable, error) {
	if state == nil {
		return nil, fmt.Errorf("missing equality state")
	}
	if len(state.Reference) != len(state.Alive) {
		return nil, fmt.Errorf("equality state has %d reference bytes but %d cells", len(state.Reference), len(state.Alive))
	}
	if state.Active < 0 || state.Active > len(state.Alive) {
		return nil, fmt.Errorf("equality state active length %d out of range", state.Active)
	}
	t := &EqualityTable{
		reference: make([]byte, len(state.Reference)),
		alive:     make([]bool, len(state.Alive)),
		active:    state.Active,
		folds:     state.Folds,
	}
	copy(t.reference, state.Reference)
	copy(t.alive, state.Alive)
	for i := range t.alive {
		if i >= t.active {
			t.alive[i] = false
		} else if t.alive[i] {
			t.hope++
		}
	}
	return t, nil
}
