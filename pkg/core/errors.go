/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: errors.go
Description: Error taxonomy of the aggregation engine. Corpus-level conditions are
sentinels checked with errors.Is; per-file problems are FileErrors that skip the file.
*/

package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientCorpus is returned when fewer than 2 usable files are supplied
	ErrInsufficientCorpus = errors.New("at least 2 files are needed to start the search")
	// ErrEmptyWindow is returned when the smallest file yields no bytes at the configured offsets
	ErrEmptyWindow = errors.New("the smallest file has no bytes at the configured offsets")
	// ErrCorpusTooUniform is returned when every range cell saturated: the corpus looks random
	ErrCorpusTooUniform = errors.New("it's all random, no point in continuing")
	// ErrCancelled is returned together with the partial result of a cancelled scan
	ErrCancelled = errors.New("scan cancelled")
)

// FileError reports a problem local to one corpus file.
// The file's contribution is skipped, the scan goes on.
type FileError struct {
	Path string
	Op   string
	Err  error
}

// Error implements the error interface
func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *FileError) Unwrap() error {
	return e.Err
}
