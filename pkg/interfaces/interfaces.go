/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: interfaces.go
Description: Shared interfaces for bytesleuth. Defines the collaborator contracts the
aggregation engine calls into (window sources and layout hooks) so that the corpus,
layout and core packages can depend on each other without import cycles.
*/

package interfaces

// CorpusFile is one candidate file of the analysed corpus
type CorpusFile struct {
	Path       string // Path as enumerated
	Size       int64  // File size in bytes
	BaseOffset int64  // Format-aware start of the matchable block (0 = file start)
}

// Accessible returns how many bytes lie at or after the base offset
func (f CorpusFile) Accessible() int64 {
	if f.BaseOffset >= f.Size {
		return 0
	}
	return f.Size - f.BaseOffset
}

// WindowSource yields byte windows out of corpus files.
// A window shorter than requested is returned without error when the file
// simply ends early; errors are reserved for files that cannot be read.
type WindowSource interface {
	ReadWindow(file CorpusFile, offset int64, length int) ([]byte, error)
}

// Layout describes the record shape folded in range mode
type Layout struct {
	BaseOfs int64 `json:"base_ofs" yaml:"base_ofs"` // Offset of the first record, relative to the file's base offset
	Sz      int   `json:"sz" yaml:"sz"`             // Record size in bytes
	Items   int   `json:"items" yaml:"items"`       // Number of consecutive records
}

// Span returns the number of bytes covered by all records
func (l Layout) Span() int {
	return l.Sz * l.Items
}

// LayoutHook lets format knowledge refine the record layout file by file.
// The returned layout applies to the given file and every file after it.
type LayoutHook interface {
	Adjust(file CorpusFile, current Layout) (Layout, error)
}

// LayoutHookFunc adapts a plain function to the LayoutHook interface
type LayoutHookFunc func(file CorpusFile, current Layout) (Layout, error)

// Adjust calls f(file, current)
func (f LayoutHookFunc) Adjust(file CorpusFile, current Layout) (Layout, error) {
	return f(file, current)
}
