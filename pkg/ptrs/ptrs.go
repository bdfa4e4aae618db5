/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: ptrs.go
Description: Pointer search. Scans a file for integers that point at a known data
offset, either absolutely or relative to where the pointer is stored, with an optional
leeway for pointers that are off by a few bytes.
*/

package ptrs

import (
	"errors"
	"fmt"

	"github.com/kleascm/bytesleuth/pkg/layout"
)

// ErrFileTooSmall is returned when the searchable span is not wider than the jitter
var ErrFileTooSmall = errors.New("file too small for the search")

// Options configures one pointer search
type Options struct {
	Format   layout.Field // Pointer byte order and width, the offset is ignored
	DataAt   int64        // Offset the pointers should lead to
	From     int64        // First position checked, -1 for the start of the file
	To       int64        // Position checking stops before, -1 for the end of the file
	Jitter   int64        // Accepted pointer error in bytes, >= 0
	Relative bool         // Pointer values are relative to their own position
}

// Match is a pointer found at At, off by Delta
type Match struct {
	At    int64 `json:"at" yaml:"at"`
	Delta int64 `json:"delta" yaml:"delta"`
}

// String renders the match as "Found [0010]" or "~Found [0010]+1"
func (m Match) String() string {
	if m.Delta == 0 {
		return fmt.Sprintf("Found [%04X]", m.At)
	}
	return fmt.Sprintf("~Found [%04X]%+X", m.At, m.Delta)
}

// Bounds clamps From and To into the searchable span of a file of the given length
func Bounds(length int64, opts Options) (from, to int64, err error) {
	if opts.Jitter < 0 {
		return 0, 0, fmt.Errorf("jitter must not be negative")
	}
	last := length - int64(opts.Format.Size) - opts.Jitter
	if last <= opts.Jitter {
		return opts.Jitter, opts.Jitter, fmt.Errorf("%w (%d bytes, jitter=%d)", ErrFileTooSmall, length, opts.Jitter)
	}

	from, to = opts.From, opts.To
	if from == -1 {
		from = opts.Jitter
	}
	if to == -1 {
		to = last
	}
	if from >= last || from < opts.Jitter {
		from = opts.Jitter
	}
	if to > last {
		to = last
	}
	if to < from {
		from, to = to, from
	}
	if from < opts.Jitter {
		from = opts.Jitter
	}
	if to-from <= opts.Jitter*2 {
		return from, to, fmt.Errorf("%w (from=%d, to=%d, jitter=%d)", ErrFileTooSmall, from, to, opts.Jitter)
	}
	return from, to, nil
}

// Search returns every pointer to DataAt in data, in position order
func Search(data []byte, opts Options) ([]Match, error) {
	if opts.Format.Size <= 0 {
		return nil, fmt.Errorf("pointer format not set")
	}
	from, to, err := Bounds(int64(len(data)), opts)
	if err != nil {
		return nil, err
	}

	var matches []Match
	for i := from; i < to; i++ {
		v, err := opts.Format.Decode(data[i:])
		if err != nil {
			return matches, fmt.Errorf("pointer at %08X: %w", i, err)
		}
		target := v
		if opts.Relative {
			target += i
		}
		if d := opts.DataAt - target; d >= -opts.Jitter && d <= opts.Jitter {
			matches = append(matches, Match{At: i, Delta: d})
		}
	}
	return matches, nil
}
