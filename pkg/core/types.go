/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: types.go
Description: Result and statistics types produced by the aggregation engine for both
the signature (equality) mode and the range mode.
*/

package core

import "time"

// ScanStats tracks the progress of one scan
type ScanStats struct {
	RunID        string    `json:"run_id" yaml:"run_id"`
	StartTime    time.Time `json:"start_time" yaml:"start_time"`
	EndTime      time.Time `json:"end_time" yaml:"end_time"`
	FilesTotal   int       `json:"files_total" yaml:"files_total"`
	FilesFolded  int       `json:"files_folded" yaml:"files_folded"`
	FilesSkipped int       `json:"files_skipped" yaml:"files_skipped"`
	Resets       int       `json:"resets" yaml:"resets"` // Range tables re-initialized after a layout grew
	LastFile     string    `json:"last_file" yaml:"last_file"`
	PrevFile     string    `json:"prev_file" yaml:"prev_file"`
}

// Duration returns how long the scan took
func (s ScanStats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// IntRange records the smallest and largest value observed
type IntRange struct {
	Min int  `json:"min" yaml:"min"`
	Max int  `json:"max" yaml:"max"`
	Set bool `json:"set" yaml:"set"`
}

// Observe widens the range to include v
func (r *IntRange) Observe(v int) {
	if !r.Set {
		r.Min, r.Max, r.Set = v, v, true
		return
	}
	if v < r.Min {
		r.Min = v
	}
	if v > r.Max {
		r.Max = v
	}
}

// Widen widens the range to include another range
func (r *IntRange) Widen(o IntRange) {
	if o.Set {
		r.Observe(o.Min)
		r.Observe(o.Max)
	}
}

// SignatureResult is the outcome of an equality-mode scan
type SignatureResult struct {
	Table      *EqualityTable
	Extraction *RunExtraction
	WindowSize int  // Window length every file was read with
	HasBase    bool // Whether any folded file had a nonzero base offset
	Exhausted  bool // Whether hope ran out: no byte is shared by all files
	Cancelled  bool // Whether the scan stopped on request; the result is partial
	Stats      ScanStats
}

// RangeResult is the outcome of a range-mode scan
type RangeResult struct {
	Table      *RangeTable
	Rows       []RangeRow
	BaseOfs    int64 // Offset added to cell indexes in the report
	Signed     bool
	SizeRange  IntRange // Record sizes used across files
	ItemsRange IntRange // Record counts used across files
	Cancelled  bool
	Stats      ScanStats
}
