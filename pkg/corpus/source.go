/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: source.go
Description: Filesystem window source. Opens a corpus file per request and returns the
bytes found at the requested offset; files ending early yield a shorter window.
*/

package corpus

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kleascm/bytesleuth/pkg/interfaces"
)

// FileSource reads windows straight from disk.
// Safe for concurrent use, every call opens its own handle.
type FileSource struct{}

// NewFileSource creates a new filesystem window source
func NewFileSource() *FileSource {
	return &FileSource{}
}

// ReadWindow implements interfaces.WindowSource
func (s *FileSource) ReadWindow(file interfaces.CorpusFile, offset int64, length int) ([]byte, error) {
	if offset < 0 {
		return nil, fmt.Errorf("negative offset %d", offset)
	}
	if length < 0 {
		return nil, fmt.Errorf("negative length %d", length)
	}

	f, err := os.Open(file.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, length)
	n, err := f.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}
