/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: engine.go
Description: Corpus aggregation engine. Folds one byte window per file into a Position
State Table, tracks hope for early termination, honours cancellation at file boundaries
and distils the final table into signature runs or range rows.
*/

package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kleascm/bytesleuth/pkg/interfaces"
	"github.com/sirupsen/logrus"
)

// maxLayoutSpan bounds the bytes a layout hook may ask to read per file
const maxLayoutSpan = 256 << 20

// Engine drives the fold over a corpus
type Engine struct {
	config *interfaces.ScanConfig
	source interfaces.WindowSource
	hook   interfaces.LayoutHook
	logger *logrus.Logger

	reporters []Reporter

	// Guards stats and reporter calls, folds may run on several workers
	stats    ScanStats
	baseSeen bool // A folded file had a nonzero base offset
	mu       sync.Mutex
}

// NewEngine creates a new engine reading windows from source
func NewEngine(config *interfaces.ScanConfig, source interfaces.WindowSource) *Engine {
	return &Engine{
		config: config,
		source: source,
		logger: logrus.New(),
	}
}

// SetLogger sets the logger used for engine events
func (e *Engine) SetLogger(logger *logrus.Logger) {
	if logger != nil {
		e.logger = logger
	}
}

// SetLayoutHook sets the per-file range layout hook.
// A hook forces sequential folding since it may change the layout mid-run.
func (e *Engine) SetLayoutHook(hook interfaces.LayoutHook) {
	e.hook = hook
}

// AddReporter registers a Reporter for live scan events.
func (e *Engine) AddReporter(reporter Reporter) {
	e.reporters = append(e.reporters, reporter)
}

// GetStats returns a snapshot of the current scan statistics
func (e *Engine) GetStats() ScanStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// FindSignatures runs an equality-mode scan.
// On cancellation the partial result is returned together with ErrCancelled.
func (e *Engine) FindSignatures(ctx context.Context, files []interfaces.CorpusFile) (*SignatureResult, error) {
	if err := e.begin(files); err != nil {
		return nil, err
	}

	size := smallestAccessible(files, 0)
	if maxOfs := e.config.MaxOfs; maxOfs > 0 && size > maxOfs {
		size = maxOfs
	}
	if size <= 0 {
		return nil, ErrEmptyWindow
	}
	window := int(size)

	e.logger.WithFields(logrus.Fields{
		"run_id": e.stats.RunID,
		"files":  len(files),
		"hope":   window,
	}).Info("Signature search started")

	foldOne := func(t *EqualityTable, f interfaces.CorpusFile) error {
		data, err := e.source.ReadWindow(f, f.BaseOffset, window)
		if err != nil {
			return &FileError{Path: f.Path, Op: "read", Err: err}
		}
		t.Fold(data)
		return nil
	}

	table, cancelled, err := foldCorpus(ctx, e, files, func() *EqualityTable {
		return NewEqualityTable(window)
	}, foldOne)
	if err != nil {
		return nil, err
	}
	if cancelled && table.Folds() == 0 {
		return nil, ErrCancelled
	}
	if !cancelled && table.Folds() < 2 {
		return nil, fmt.Errorf("%w (%d of %d files usable)", ErrInsufficientCorpus, table.Folds(), len(files))
	}

	result := &SignatureResult{
		Table:      table,
		WindowSize: window,
		HasBase:    e.foldedWithBase(),
		Exhausted:  table.Exhausted(),
		Cancelled:  cancelled,
	}
	result.Extraction = ExtractRuns(table, RunOptions{
		SigAtLeast:    e.config.SigAtLeast,
		AllZeroesGood: e.config.AllZeroesGood,
		ZeroOutWith:   e.config.ZeroOutWith,
	})
	result.Stats = e.finish()

	fields := logrus.Fields{
		"run_id":     result.Stats.RunID,
		"folded":     result.Stats.FilesFolded,
		"hope":       table.Hope(),
		"active":     table.ActiveLength(),
		"signatures": len(result.Extraction.Runs),
		"duration":   result.Stats.Duration(),
	}
	switch {
	case cancelled:
		e.logger.WithFields(fields).Warn("Signature search cancelled")
		return result, ErrCancelled
	case result.Exhausted:
		e.logger.WithFields(fields).Warnf("No hope. Breaking off at %s; prev. %s", result.Stats.LastFile, result.Stats.PrevFile)
	default:
		e.logger.WithFields(fields).Info("Signature search completed")
	}
	return result, nil
}

// FindRanges runs a range-mode scan.
// ErrCorpusTooUniform is returned as soon as every cell saturated.
func (e *Engine) FindRanges(ctx context.Context, files []interfaces.CorpusFile) (*RangeResult, error) {
	if err := e.begin(files); err != nil {
		return nil, err
	}

	layout := e.config.InitialLayout()
	if layout.Sz <= 0 || smallestAccessible(files, layout.BaseOfs) <= 0 {
		return nil, ErrEmptyWindow
	}

	e.logger.WithFields(logrus.Fields{
		"run_id": e.stats.RunID,
		"files":  len(files),
		"sz":     layout.Sz,
		"items":  layout.Items,
		"signed": e.config.Signed,
	}).Info("Range search started")

	var sizes, items IntRange
	foldOne := func(t *RangeTable, f interfaces.CorpusFile) error {
		current := layout
		if e.hook != nil {
			next, err := e.hook.Adjust(f, layout)
			if err != nil {
				return &FileError{Path: f.Path, Op: "layout", Err: err}
			}
			if err := checkLayout(next); err != nil {
				return &FileError{Path: f.Path, Op: "layout", Err: err}
			}
			if next != layout {
				e.logger.WithFields(logrus.Fields{
					"file":     f.Path,
					"base_ofs": next.BaseOfs,
					"sz":       next.Sz,
					"items":    next.Items,
				}).Info("Layout adjusted")
			}
			layout, current = next, next
			e.applyLayout(t, current)
			sizes.Observe(current.Sz)
			items.Observe(current.Items)
		}

		offset := f.BaseOffset + current.BaseOfs
		if offset < 0 {
			return &FileError{Path: f.Path, Op: "layout", Err: fmt.Errorf("negative window offset %d", offset)}
		}
		data, err := e.source.ReadWindow(f, offset, current.Span())
		if err != nil {
			return &FileError{Path: f.Path, Op: "read", Err: err}
		}
		t.Fold(data, current.Sz, current.Items)
		return nil
	}

	table, cancelled, err := foldCorpus(ctx, e, files, func() *RangeTable {
		return NewRangeTable(layout.Sz, e.config.Signed)
	}, foldOne)
	if err != nil {
		return nil, err
	}
	if e.hook == nil && table.Folds() > 0 {
		sizes.Observe(layout.Sz)
		items.Observe(layout.Items)
	}

	stats := e.finish()
	if table.Exhausted() {
		e.logger.WithFields(logrus.Fields{"run_id": stats.RunID, "folded": stats.FilesFolded}).Warn("Every offset saturated")
		return nil, ErrCorpusTooUniform
	}
	if cancelled && table.Folds() == 0 {
		return nil, ErrCancelled
	}
	if !cancelled && table.Folds() < 2 {
		return nil, fmt.Errorf("%w (%d of %d files usable)", ErrInsufficientCorpus, table.Folds(), len(files))
	}

	result := &RangeResult{
		Table:      table,
		Rows:       table.Rows(e.config.MinOfs),
		BaseOfs:    e.config.MinOfs,
		Signed:     table.Signed(),
		SizeRange:  sizes,
		ItemsRange: items,
		Cancelled:  cancelled,
		Stats:      stats,
	}

	fields := logrus.Fields{
		"run_id":   stats.RunID,
		"folded":   stats.FilesFolded,
		"hope":     table.Hope(),
		"rows":     len(result.Rows),
		"duration": stats.Duration(),
	}
	if cancelled {
		e.logger.WithFields(fields).Warn("Range search cancelled")
		return result, ErrCancelled
	}
	e.logger.WithFields(fields).Infof("Report complete. %d hopes remain.", table.Hope())
	return result, nil
}

// applyLayout adapts the table to a record size chosen by the layout hook
func (e *Engine) applyLayout(t *RangeTable, layout interfaces.Layout) {
	switch {
	case layout.Sz > t.Size():
		e.logger.WithFields(logrus.Fields{
			"old_sz": t.Size(),
			"new_sz": layout.Sz,
			"folded": t.Folds(),
		}).Warn("Record size grew past the table, statistics restart")
		t.Reset(layout.Sz)
		e.mu.Lock()
		e.stats.Resets++
		e.mu.Unlock()
	case layout.Sz < t.ActiveLength():
		t.Truncate(layout.Sz)
	}
}

// begin validates the inputs and resets the statistics
func (e *Engine) begin(files []interfaces.CorpusFile) error {
	if e.config == nil {
		return fmt.Errorf("scan configuration not set")
	}
	if e.source == nil {
		return fmt.Errorf("window source not set")
	}
	if err := e.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	e.mu.Lock()
	e.stats = ScanStats{
		RunID:      uuid.New().String(),
		StartTime:  time.Now(),
		FilesTotal: len(files),
	}
	e.baseSeen = false
	e.mu.Unlock()

	if len(files) < 2 {
		return ErrInsufficientCorpus
	}
	return nil
}

// finish stamps the end time and returns the final statistics
func (e *Engine) finish() ScanStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats.EndTime = time.Now()
	return e.stats
}

// folded records a successful fold and notifies reporters
func (e *Engine) folded(worker int, f interfaces.CorpusFile, hope, active int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stats.FilesFolded++
	e.stats.PrevFile = e.stats.LastFile
	e.stats.LastFile = f.Path
	if f.BaseOffset > 0 {
		e.baseSeen = true
	}

	event := FoldEvent{
		Path:   f.Path,
		Folded: e.stats.FilesFolded,
		Total:  e.stats.FilesTotal,
		Hope:   hope,
		Active: active,
		Worker: worker,
	}
	for _, r := range e.reporters {
		r.OnFileFolded(event)
	}
}

// skipped records a file that could not contribute and notifies reporters
func (e *Engine) skipped(err *FileError) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stats.FilesSkipped++
	e.logger.WithFields(logrus.Fields{"file": err.Path, "op": err.Op}).Debugf("Skipping file: %v", err.Err)
	for _, r := range e.reporters {
		r.OnFileSkipped(err)
	}
}

// foldable is a Position State Table the engine can fold and merge
type foldable[T any] interface {
	Merge(other T) error
	Exhausted() bool
	Hope() int
	ActiveLength() int
}

// foldCorpus folds every file into a fresh table, in parallel chunks when allowed.
// Partial tables are merged in corpus order once every worker stopped.
func foldCorpus[T foldable[T]](ctx context.Context, e *Engine, files []interfaces.CorpusFile, newTable func() T, foldOne func(T, interfaces.CorpusFile) error) (T, bool, error) {
	workers := e.config.Workers
	if workers > len(files) {
		workers = len(files)
	}
	if workers <= 1 || e.hook != nil {
		t := newTable()
		cancelled := foldSequential(ctx, e, 0, files, t, foldOne)
		return t, cancelled, nil
	}

	chunk := (len(files) + workers - 1) / workers
	var tables []T
	flags := make([]bool, workers)
	var wg sync.WaitGroup
	for w := 0; w*chunk < len(files); w++ {
		lo := w * chunk
		hi := min(lo+chunk, len(files))
		t := newTable()
		tables = append(tables, t)

		wg.Add(1)
		go func(w int, t T, part []interfaces.CorpusFile) {
			defer wg.Done()
			flags[w] = foldSequential(ctx, e, w+1, part, t, foldOne)
		}(w, t, files[lo:hi])
	}
	wg.Wait()

	merged, cancelled := tables[0], flags[0]
	for w := 1; w < len(tables); w++ {
		if err := merged.Merge(tables[w]); err != nil {
			return merged, cancelled, fmt.Errorf("failed to merge partial table %d: %w", w, err)
		}
		cancelled = cancelled || flags[w]
	}
	return merged, cancelled, nil
}

// foldSequential folds files one by one until the table is exhausted or ctx is done.
// Cancellation is only observed between files.
func foldSequential[T foldable[T]](ctx context.Context, e *Engine, worker int, files []interfaces.CorpusFile, t T, foldOne func(T, interfaces.CorpusFile) error) (cancelled bool) {
	for _, f := range files {
		if ctx.Err() != nil {
			return true
		}
		if t.Exhausted() {
			return false
		}
		if err := foldOne(t, f); err != nil {
			var ferr *FileError
			if !errors.As(err, &ferr) {
				ferr = &FileError{Path: f.Path, Op: "fold", Err: err}
			}
			e.skipped(ferr)
			continue
		}
		e.folded(worker, f, t.Hope(), t.ActiveLength())
	}
	return false
}

// checkLayout rejects layouts a hook must not produce
func checkLayout(l interfaces.Layout) error {
	if l.Sz <= 0 {
		return fmt.Errorf("record size %d must be positive", l.Sz)
	}
	if l.Items <= 0 {
		return fmt.Errorf("item count %d must be positive", l.Items)
	}
	if int64(l.Sz)*int64(l.Items) > maxLayoutSpan {
		return fmt.Errorf("layout %dx%d exceeds %d bytes", l.Sz, l.Items, maxLayoutSpan)
	}
	return nil
}

// smallestAccessible returns the fewest bytes any file holds past its base and extra offset
func smallestAccessible(files []interfaces.CorpusFile, extra int64) int64 {
	smallest := int64(-1)
	for _, f := range files {
		n := f.Accessible() - extra
		if smallest < 0 || n < smallest {
			smallest = n
		}
	}
	return smallest
}

// foldedWithBase reports whether any folded file started its window past offset 0
func (e *Engine) foldedWithBase() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.baseSeen
}
