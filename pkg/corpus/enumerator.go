/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: enumerator.go
Description: Corpus enumeration. Walks a directory tree in lexical order, filters by
extension, resolves each file's base offset and optionally drops byte-identical
duplicates so they do not weigh on the statistics twice.
*/

package corpus

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kleascm/bytesleuth/pkg/interfaces"
	"github.com/sirupsen/logrus"
	"github.com/zeebo/blake3"
)

// Options controls which files make up the corpus
type Options struct {
	Extension  string             // "" for any, otherwise ".ext", compared case-insensitively
	Dedupe     bool               // Drop files whose content was already seen
	Exclude    []string           // Paths never included, such as the tool's own reports
	BaseOffset BaseOffsetProvider // nil means NoBase
}

// Stats summarizes one enumeration
type Stats struct {
	Seen       int // Regular files visited
	Filtered   int // Rejected by the extension filter or exclusions
	Duplicates int // Dropped by deduplication
	Failed     int // Files whose size or base offset could not be determined
}

// Enumerator builds the list of corpus files for a scan
type Enumerator struct {
	opts    Options
	exclude map[string]bool
	logger  *logrus.Logger
	stats   Stats
}

// NewEnumerator creates a new enumerator
func NewEnumerator(opts Options, logger *logrus.Logger) *Enumerator {
	if opts.BaseOffset == nil {
		opts.BaseOffset = NoBase{}
	}
	if logger == nil {
		logger = logrus.New()
	}
	exclude := make(map[string]bool, len(opts.Exclude))
	for _, p := range opts.Exclude {
		exclude[canonical(p)] = true
	}
	return &Enumerator{opts: opts, exclude: exclude, logger: logger}
}

// Stats returns the counters of the last Enumerate call
func (e *Enumerator) Stats() Stats {
	return e.stats
}

// MatchExtension reports whether name carries the wanted extension.
// An empty extension matches everything.
func MatchExtension(name, ext string) bool {
	return ext == "" || strings.EqualFold(filepath.Ext(name), ext)
}

// Enumerate walks root and returns the corpus files in lexical path order.
// Cancellation stops the walk and returns ctx.Err().
func (e *Enumerator) Enumerate(ctx context.Context, root string) ([]interfaces.CorpusFile, error) {
	e.stats = Stats{}
	seen := make(map[string]string)
	var files []interfaces.CorpusFile

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			e.logger.WithField("path", path).Warnf("Cannot walk: %v", err)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		e.stats.Seen++
		if !MatchExtension(d.Name(), e.opts.Extension) || e.exclude[canonical(path)] {
			e.stats.Filtered++
			return nil
		}

		file, digest, err := e.inspect(path)
		if err != nil {
			e.stats.Failed++
			e.logger.WithFields(logrus.Fields{"path": path, "base": e.opts.BaseOffset.Name()}).Warnf("Skipping file: %v", err)
			return nil
		}
		if e.opts.Dedupe {
			if first, dup := seen[digest]; dup {
				e.stats.Duplicates++
				e.logger.WithFields(logrus.Fields{"path": path, "duplicate_of": first}).Debug("Duplicate file dropped")
				return nil
			}
			seen[digest] = path
		}

		files = append(files, file)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"root":       root,
		"files":      len(files),
		"seen":       e.stats.Seen,
		"filtered":   e.stats.Filtered,
		"duplicates": e.stats.Duplicates,
		"failed":     e.stats.Failed,
	}).Info("Corpus enumerated")
	return files, nil
}

// inspect stats a file, resolves its base offset and hashes it when deduplicating
func (e *Enumerator) inspect(path string) (interfaces.CorpusFile, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return interfaces.CorpusFile{}, "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return interfaces.CorpusFile{}, "", err
	}
	file := interfaces.CorpusFile{Path: path, Size: info.Size()}

	base, err := e.opts.BaseOffset.BaseOffset(f, file.Size)
	if err != nil {
		return file, "", fmt.Errorf("base offset: %w", err)
	}
	if base < 0 || base > file.Size {
		return file, "", fmt.Errorf("base offset %d outside file of %d bytes", base, file.Size)
	}
	file.BaseOffset = base

	if !e.opts.Dedupe {
		return file, "", nil
	}
	digest, err := contentDigest(f)
	if err != nil {
		return file, "", fmt.Errorf("hash: %w", err)
	}
	return file, digest, nil
}

// contentDigest hashes the whole file with BLAKE3
func contentDigest(f *os.File) (string, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// canonical returns an absolute clean path for comparisons
func canonical(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// ListFiles returns every regular file below root in lexical order, minus exclusions
func ListFiles(ctx context.Context, root string, exclude []string) ([]string, error) {
	skip := make(map[string]bool, len(exclude))
	for _, p := range exclude {
		skip[canonical(p)] = true
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.Type().IsRegular() && !skip[canonical(path)] {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}
