/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: sigwars.go
Description: Signature variant grouping. Reads the same small window out of every file
and groups files by its content, exposing sub-formats and clones hiding behind one
extension.
*/

package sigwars

import (
	"bytes"
	"context"

	"github.com/cespare/xxhash/v2"
	"github.com/kleascm/bytesleuth/pkg/core"
	"github.com/kleascm/bytesleuth/pkg/interfaces"
	"github.com/kleascm/bytesleuth/pkg/signature"
	"github.com/sirupsen/logrus"
)

// Group is one window variant and the files carrying it
type Group struct {
	Window    []byte   `json:"window" yaml:"window"`
	Signature string   `json:"signature" yaml:"signature"`
	Files     []string `json:"files" yaml:"files"`
}

// Grouper collects window variants in first-seen order
type Grouper struct {
	ansiMin int
	groups  []*Group
	index   map[uint64][]int // window hash -> group positions
}

// NewGrouper creates a new grouper rendering signatures with ansiMin
func NewGrouper(ansiMin int) *Grouper {
	return &Grouper{
		ansiMin: ansiMin,
		index:   make(map[uint64][]int),
	}
}

// Add files a window under its variant
func (g *Grouper) Add(path string, window []byte) {
	key := xxhash.Sum64(window)
	for _, pos := range g.index[key] {
		if bytes.Equal(g.groups[pos].Window, window) {
			g.groups[pos].Files = append(g.groups[pos].Files, path)
			return
		}
	}

	w := make([]byte, len(window))
	copy(w, window)
	g.index[key] = append(g.index[key], len(g.groups))
	g.groups = append(g.groups, &Group{
		Window:    w,
		Signature: signature.Encode(w, g.ansiMin),
		Files:     []string{path},
	})
}

// Groups returns the variants in the order they were first seen
func (g *Grouper) Groups() []Group {
	out := make([]Group, len(g.groups))
	for i, grp := range g.groups {
		out[i] = *grp
	}
	return out
}

// Scan reads [ofs, ofs+size) of every file and groups them.
// Unreadable files are logged and left out; cancellation returns what was grouped so far.
func Scan(ctx context.Context, source interfaces.WindowSource, files []interfaces.CorpusFile, ofs int64, size, ansiMin int, logger *logrus.Logger) ([]Group, error) {
	g := NewGrouper(ansiMin)
	for _, f := range files {
		if ctx.Err() != nil {
			return g.Groups(), core.ErrCancelled
		}
		window, err := source.ReadWindow(f, f.BaseOffset+ofs, size)
		if err != nil {
			logger.WithField("file", f.Path).Warnf("Skipping file: %v", err)
			continue
		}
		g.Add(f.Path, window)
	}

	logger.WithFields(logrus.Fields{
		"files":    len(files),
		"variants": len(g.groups),
	}).Info("Signature variants grouped")
	return g.Groups(), nil
}
