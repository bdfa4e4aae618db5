/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: helpers_test.go
Description: In-memory corpus fixtures shared by the core tests.
*/

package core_test

import (
	"fmt"
	"sync"

	"github.com/kleascm/bytesleuth/pkg/core"
	"github.com/kleascm/bytesleuth/pkg/interfaces"
)

// memSource serves windows out of in-memory file contents
type memSource struct {
	files map[string][]byte
	mu    sync.Mutex
	reads int
}

func newMemSource() *memSource {
	return &memSource{files: make(map[string][]byte)}
}

// add registers a file and returns its corpus entry
func (s *memSource) add(path string, data []byte) interfaces.CorpusFile {
	s.files[path] = data
	return interfaces.CorpusFile{Path: path, Size: int64(len(data))}
}

func (s *memSource) ReadWindow(file interfaces.CorpusFile, offset int64, length int) ([]byte, error) {
	s.mu.Lock()
	s.reads++
	s.mu.Unlock()

	data, ok := s.files[file.Path]
	if !ok {
		return nil, fmt.Errorf("no such file")
	}
	if offset >= int64(len(data)) {
		return nil, nil
	}
	end := offset + int64(length)
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	return data[offset:end], nil
}

// cancelAfter cancels a scan once n files were folded
type cancelAfter struct {
	n       int
	cancel  func()
	skipped []string
}

func (r *cancelAfter) OnFileFolded(event core.FoldEvent) {
	if event.Folded == r.n {
		r.cancel()
	}
}

func (r *cancelAfter) OnFileSkipped(err *core.FileError) {
	r.skipped = append(r.skipped, err.Path)
}

// recorder keeps every event it sees
type recorder struct {
	folded  []core.FoldEvent
	skipped []*core.FileError
}

func (r *recorder) OnFileFolded(event core.FoldEvent) {
	r.folded = append(r.folded, event)
}

func (r *recorder) OnFileSkipped(err *core.FileError) {
	r.skipped = append(r.skipped, err)
}

// sampleCorpus is three 8-byte files sharing everything but offsets 2 and 5
func sampleCorpus() (*memSource, []interfaces.CorpusFile) {
	src := newMemSource()
	files := []interfaces.CorpusFile{
		src.add("a.bin", []byte{0xAA, 0x42, 0x00, 0x01, 0xFF, 0x42, 0x42, 0x00}),
		src.add("b.bin", []byte{0xAA, 0x42, 0x11, 0x01, 0xFF, 0x43, 0x42, 0x00}),
		src.add("c.bin", []byte{0xAA, 0x42, 0x22, 0x01, 0xFF, 0x44, 0x42, 0x00}),
	}
	return src, files
}
