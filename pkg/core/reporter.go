/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: reporter.go
Description: Reporter interface for live scan telemetry. Allows the
engine to notify listeners (progress display, logs) of folded and skipped files.
*/

package core

// FoldEvent describes one file folded into a Position State Table
type FoldEvent struct {
	Path   string // File that was folded
	Folded int    // Files folded so far across all workers
	Total  int    // Files in the corpus
	Hope   int    // Hope of the table the file was folded into
	Active int    // Active length of that table
	Worker int    // Worker that folded the file, 0 when sequential
}

// Reporter defines the interface for telemetry and reporting hooks.
// Calls are serialized by the engine.
type Reporter interface {
	// OnFileFolded is called after a file's window was folded.
	OnFileFolded(event FoldEvent)
	// OnFileSkipped is called when a file could not contribute.
	OnFileSkipped(err *FileError)
}
