/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: runs.go
Description: Signature run extraction. Scans the final equality mask for maximal alive
runs long enough to report, builds the redacted reference buffer and the x/. marker
buffer that accompany the text report.
*/

package core

// RunOptions controls which alive runs become signatures
type RunOptions struct {
	SigAtLeast    int  // Minimum run length
	AllZeroesGood bool // Keep runs made only of the filler byte
	ZeroOutWith   byte // Filler written over mismatching offsets
}

// SignatureRun is a contiguous span of offsets identical across the corpus
type SignatureRun struct {
	Start int    `json:"start" yaml:"start"`
	Bytes []byte `json:"bytes" yaml:"bytes"`
}

// End returns the offset just past the run
func (r SignatureRun) End() int {
	return r.Start + len(r.Bytes)
}

// RunExtraction holds everything distilled from an equality table
type RunExtraction struct {
	Runs       []SignatureRun // Reported runs in ascending offset order
	Redacted   []byte         // Reference bytes with dead offsets set to the filler
	Matches    []byte         // 'x' for alive offsets, '.' for dead ones
	Explained  int            // Bytes covered by runs of sufficient length, suppressed ones included
	Suppressed int            // Runs dropped for consisting only of the filler byte
}

// ExtractRuns scans the table for signature runs
func ExtractRuns(t *EqualityTable, opts RunOptions) *RunExtraction {
	threshold := opts.SigAtLeast
	if threshold < 1 {
		threshold = 1
	}

	n := t.ActiveLength()
	// one extra dead cell flushes a run reaching the last offset
	redacted := make([]byte, n+1)
	copy(redacted, t.reference[:n])
	result := &RunExtraction{
		Matches: make([]byte, n),
	}

	length := 0
	for i := 0; i <= n; i++ {
		if i < n && t.alive[i] {
			length++
			result.Matches[i] = 'x'
			continue
		}

		if length >= threshold {
			result.Explained += length
			span := redacted[i-length : i]
			if opts.AllZeroesGood || !allEqual(span, opts.ZeroOutWith) {
				run := SignatureRun{Start: i - length, Bytes: make([]byte, length)}
				copy(run.Bytes, span)
				result.Runs = append(result.Runs, run)
			} else {
				result.Suppressed++
			}
		}
		length = 0
		redacted[i] = opts.ZeroOutWith
		if i < n {
			result.Matches[i] = '.'
		}
	}

	result.Redacted = redacted[:n]
	return result
}

// allEqual reports whether every byte equals v
func allEqual(bs []byte, v byte) bool {
	for _, b := range bs {
		if b != v {
			return false
		}
	}
	return true
}
