/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: engine_test.go
Description: Integration tests for the aggregation engine. Covers both scan modes,
cancellation, parallel folding, layout hooks and the corpus level error conditions.
*/

package core_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/kleascm/bytesleuth/pkg/core"
	"github.com/kleascm/bytesleuth/pkg/interfaces"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newEngine(config *interfaces.ScanConfig, src interfaces.WindowSource) *core.Engine {
	engine := core.NewEngine(config, src)
	engine.SetLogger(quietLogger())
	return engine
}

func rangeConfig(minOfs, maxOfs int64) *interfaces.ScanConfig {
	config := interfaces.DefaultRangeConfig()
	config.MinOfs = minOfs
	config.MaxOfs = maxOfs
	return config
}

func TestFindSignatures(t *testing.T) {
	src, files := sampleCorpus()
	rec := &recorder{}
	engine := newEngine(interfaces.DefaultSignatureConfig(), src)
	engine.AddReporter(rec)

	result, err := engine.FindSignatures(context.Background(), files)
	require.NoError(t, err)

	runs := result.Extraction.Runs
	require.Len(t, runs, 3)
	assert.Equal(t, []byte{0xAA, 0x42}, runs[0].Bytes)
	assert.Equal(t, 3, runs[1].Start)
	assert.Equal(t, []byte{0x01, 0xFF}, runs[1].Bytes)
	assert.Equal(t, 6, runs[2].Start)
	assert.Equal(t, []byte{0x42, 0x00}, runs[2].Bytes)
	assert.False(t, result.Table.Alive(2))
	assert.False(t, result.Table.Alive(5))

	assert.Equal(t, 8, result.WindowSize)
	assert.False(t, result.HasBase)
	assert.False(t, result.Exhausted)
	assert.False(t, result.Cancelled)
	assert.Equal(t, 3, result.Stats.FilesFolded)
	assert.NotEmpty(t, result.Stats.RunID)
	assert.Len(t, rec.folded, 3)
	assert.Equal(t, 3, rec.folded[2].Total)
}

func TestFindSignaturesWindowLimits(t *testing.T) {
	src := newMemSource()
	files := []interfaces.CorpusFile{
		src.add("long", []byte{9, 9, 1, 2, 3, 4, 5, 6}),
		src.add("short", []byte{1, 2, 3, 4, 7}),
	}
	files[0].BaseOffset = 2

	config := interfaces.DefaultSignatureConfig()
	result, err := newEngine(config, src).FindSignatures(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, 5, result.WindowSize)
	assert.True(t, result.HasBase)
	require.Len(t, result.Extraction.Runs, 1)
	assert.Equal(t, []byte{1, 2, 3, 4}, result.Extraction.Runs[0].Bytes)

	config.MaxOfs = 3
	result, err = newEngine(config, src).FindSignatures(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, 3, result.WindowSize)
}

func TestFindSignaturesBaseFromFoldedFiles(t *testing.T) {
	src := newMemSource()
	files := []interfaces.CorpusFile{
		src.add("a", []byte{1, 2, 3, 4}),
		src.add("b", []byte{1, 2, 3, 5}),
		{Path: "unreadable", Size: 8, BaseOffset: 4},
	}

	rec := &recorder{}
	engine := newEngine(interfaces.DefaultSignatureConfig(), src)
	engine.AddReporter(rec)
	result, err := engine.FindSignatures(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, rec.skipped, 1)
	assert.Equal(t, "unreadable", rec.skipped[0].Path)
	assert.Equal(t, 2, result.Stats.FilesFolded)
	assert.False(t, result.HasBase)
}

func TestFindSignaturesExhausted(t *testing.T) {
	src := newMemSource()
	files := []interfaces.CorpusFile{
		src.add("a", []byte{0, 0}),
		src.add("b", []byte{1, 1}),
		src.add("c", []byte{2, 2}),
	}

	result, err := newEngine(interfaces.DefaultSignatureConfig(), src).FindSignatures(context.Background(), files)
	require.NoError(t, err)
	assert.True(t, result.Exhausted)
	assert.Empty(t, result.Extraction.Runs)
	assert.Equal(t, 2, result.Stats.FilesFolded, "folding stops once hope is gone")
	assert.Equal(t, "b", result.Stats.LastFile)
	assert.Equal(t, "a", result.Stats.PrevFile)
}

func TestFindSignaturesCancelled(t *testing.T) {
	src := newMemSource()
	var files []interfaces.CorpusFile
	for i := 0; i < 5; i++ {
		files = append(files, src.add(fmt.Sprintf("f%d", i), []byte{0x4D, 0x5A, byte(i), 0x00}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine := newEngine(interfaces.DefaultSignatureConfig(), src)
	engine.AddReporter(&cancelAfter{n: 2, cancel: cancel})

	result, err := engine.FindSignatures(ctx, files)
	require.ErrorIs(t, err, core.ErrCancelled)
	require.NotNil(t, result)
	assert.True(t, result.Cancelled)
	assert.Equal(t, 2, result.Table.Folds())
	assert.Equal(t, 2, result.Stats.FilesFolded)
	require.Len(t, result.Extraction.Runs, 1)
	assert.Equal(t, []byte{0x4D, 0x5A}, result.Extraction.Runs[0].Bytes)
}

func TestFindSignaturesCancelledBeforeStart(t *testing.T) {
	src, files := sampleCorpus()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newEngine(interfaces.DefaultSignatureConfig(), src).FindSignatures(ctx, files)
	assert.ErrorIs(t, err, core.ErrCancelled)
	assert.Nil(t, result)
}

func TestFindSignaturesInsufficientCorpus(t *testing.T) {
	src, files := sampleCorpus()
	engine := newEngine(interfaces.DefaultSignatureConfig(), src)

	_, err := engine.FindSignatures(context.Background(), files[:1])
	assert.ErrorIs(t, err, core.ErrInsufficientCorpus)

	// the second file cannot be read and is skipped
	rec := &recorder{}
	engine.AddReporter(rec)
	missing := interfaces.CorpusFile{Path: "gone.bin", Size: 8}
	_, err = engine.FindSignatures(context.Background(), []interfaces.CorpusFile{files[0], missing})
	assert.ErrorIs(t, err, core.ErrInsufficientCorpus)
	require.Len(t, rec.skipped, 1)
	assert.Equal(t, "gone.bin", rec.skipped[0].Path)
	assert.Equal(t, "read", rec.skipped[0].Op)
	assert.Equal(t, 1, engine.GetStats().FilesSkipped)
}

func TestFindSignaturesEmptyWindow(t *testing.T) {
	src := newMemSource()
	files := []interfaces.CorpusFile{
		src.add("a", []byte{1, 2, 3}),
		src.add("b", []byte{}),
	}
	_, err := newEngine(interfaces.DefaultSignatureConfig(), src).FindSignatures(context.Background(), files)
	assert.ErrorIs(t, err, core.ErrEmptyWindow)
}

func TestFindSignaturesParallelMatchesSequential(t *testing.T) {
	src := newMemSource()
	var files []interfaces.CorpusFile
	for i, w := range randomWindows(5, 13, 96) {
		files = append(files, src.add(fmt.Sprintf("f%02d", i), w))
	}

	config := interfaces.DefaultSignatureConfig()
	sequential, err := newEngine(config, src).FindSignatures(context.Background(), files)
	require.NoError(t, err)

	parallel := *config
	parallel.Workers = 4
	result, err := newEngine(&parallel, src).FindSignatures(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, sequential.Extraction.Runs, result.Extraction.Runs)
	assert.Equal(t, sequential.Extraction.Matches, result.Extraction.Matches)
	assert.Equal(t, sequential.Table.Hope(), result.Table.Hope())
	assert.Equal(t, len(files), result.Stats.FilesFolded)
}

func TestFindRanges(t *testing.T) {
	src, files := sampleCorpus()
	result, err := newEngine(rangeConfig(0, 8), src).FindRanges(context.Background(), files)
	require.NoError(t, err)

	var row *core.RangeRow
	for i := range result.Rows {
		if result.Rows[i].Offset == 2 {
			row = &result.Rows[i]
		}
	}
	require.NotNil(t, row)
	assert.Equal(t, []int{0x00, 0x11, 0x22}, row.Observed)
	assert.Equal(t, 0x00, row.Min)
	assert.Equal(t, 0x22, row.Max)
	assert.Equal(t, byte(0xCC), row.NotMask)

	assert.Len(t, result.Rows, 8)
	assert.Equal(t, core.IntRange{Min: 8, Max: 8, Set: true}, result.SizeRange)
	assert.Equal(t, core.IntRange{Min: 1, Max: 1, Set: true}, result.ItemsRange)
	assert.Equal(t, 3, result.Stats.FilesFolded)
}

func TestFindRangesOffsets(t *testing.T) {
	src, files := sampleCorpus()
	files[1].BaseOffset = 1

	result, err := newEngine(rangeConfig(4, 6), src).FindRanges(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, int64(4), result.Rows[0].Offset)
	assert.Equal(t, []int{0x43, 0xFF}, result.Rows[0].Observed)
	assert.Equal(t, int64(5), result.Rows[1].Offset)
	assert.Equal(t, []int{0x42, 0x44}, result.Rows[1].Observed)
}

func TestFindRangesTooUniform(t *testing.T) {
	src := newMemSource()
	files := []interfaces.CorpusFile{
		src.add("a", []byte{0x00}),
		src.add("b", []byte{0xFF}),
		src.add("c", []byte{0x10}),
	}
	_, err := newEngine(rangeConfig(0, 1), src).FindRanges(context.Background(), files)
	assert.ErrorIs(t, err, core.ErrCorpusTooUniform)
}

func TestFindRangesEmptyWindow(t *testing.T) {
	src, files := sampleCorpus()
	_, err := newEngine(rangeConfig(8, 16), src).FindRanges(context.Background(), files)
	assert.ErrorIs(t, err, core.ErrEmptyWindow)
}

func TestFindRangesCancelled(t *testing.T) {
	src := newMemSource()
	var files []interfaces.CorpusFile
	for i := 0; i < 5; i++ {
		files = append(files, src.add(fmt.Sprintf("f%d", i), []byte{byte(i), 0x10}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine := newEngine(rangeConfig(0, 2), src)
	engine.AddReporter(&cancelAfter{n: 2, cancel: cancel})

	result, err := engine.FindRanges(ctx, files)
	require.ErrorIs(t, err, core.ErrCancelled)
	require.NotNil(t, result)
	assert.True(t, result.Cancelled)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, []int{0, 1}, result.Rows[0].Observed)
}

func TestFindRangesRecords(t *testing.T) {
	src := newMemSource()
	files := []interfaces.CorpusFile{
		src.add("a", []byte{0x01, 0x80, 0x02, 0x81, 0x03, 0x82}),
		src.add("b", []byte{0x04, 0x90, 0x05}),
	}
	config := rangeConfig(0, 0)
	config.Size = 2
	config.Items = 3

	result, err := newEngine(config, src).FindRanges(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, result.Rows[0].Observed)
	assert.Equal(t, []int{0x80, 0x81, 0x82, 0x90}, result.Rows[1].Observed)
}

func TestFindRangesLayoutHook(t *testing.T) {
	src := newMemSource()
	files := []interfaces.CorpusFile{
		src.add("a", []byte{0x01, 0x02, 0x03, 0x04}),
		src.add("b", []byte{0x05, 0x06, 0x07, 0x08}),
		src.add("c", []byte{0x09, 0x0A, 0x0B, 0x0C}),
	}
	config := rangeConfig(0, 2)
	engine := newEngine(config, src)
	engine.SetLayoutHook(interfaces.LayoutHookFunc(func(f interfaces.CorpusFile, current interfaces.Layout) (interfaces.Layout, error) {
		if f.Path != "a" {
			current.Sz = 4
		}
		return current, nil
	}))

	result, err := engine.FindRanges(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stats.Resets)
	assert.Equal(t, 4, result.Table.Size())
	assert.Equal(t, 2, result.Table.Folds())
	assert.Equal(t, core.IntRange{Min: 2, Max: 4, Set: true}, result.SizeRange)
	require.Len(t, result.Rows, 4)
	assert.Equal(t, []int{0x05, 0x09}, result.Rows[0].Observed)
}

func TestFindRangesLayoutHookShrinks(t *testing.T) {
	src := newMemSource()
	files := []interfaces.CorpusFile{
		src.add("a", []byte{0x01, 0x02, 0x03, 0x04}),
		src.add("b", []byte{0x05, 0x06, 0x07, 0x08}),
		src.add("c", []byte{0x09, 0x0A, 0x0B, 0x0C}),
	}
	engine := newEngine(rangeConfig(0, 4), src)
	engine.SetLayoutHook(interfaces.LayoutHookFunc(func(f interfaces.CorpusFile, current interfaces.Layout) (interfaces.Layout, error) {
		switch f.Path {
		case "b":
			current.Sz = 2
		case "c":
			return current, errors.New("unreadable header")
		}
		return current, nil
	}))

	rec := &recorder{}
	engine.AddReporter(rec)
	result, err := engine.FindRanges(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Stats.Resets)
	assert.Equal(t, 2, result.Table.ActiveLength())
	assert.Len(t, result.Rows, 2)
	require.Len(t, rec.skipped, 1)
	assert.Equal(t, "layout", rec.skipped[0].Op)
}

func TestFindRangesParallel(t *testing.T) {
	src := newMemSource()
	var files []interfaces.CorpusFile
	for i, w := range randomWindows(9, 10, 64) {
		files = append(files, src.add(fmt.Sprintf("f%02d", i), w))
	}

	config := rangeConfig(0, 16)
	config.Items = 4
	sequential, err := newEngine(config, src).FindRanges(context.Background(), files)
	require.NoError(t, err)

	parallel := *config
	parallel.Workers = 3
	result, err := newEngine(&parallel, src).FindRanges(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, sequential.Rows, result.Rows)
	assert.Equal(t, sequential.Table.Hope(), result.Table.Hope())
}

func TestEngineRejectsInvalidConfig(t *testing.T) {
	src, files := sampleCorpus()
	config := interfaces.DefaultSignatureConfig()
	config.SigAtLeast = 0
	_, err := newEngine(config, src).FindSignatures(context.Background(), files)
	assert.Error(t, err)

	_, err = core.NewEngine(nil, src).FindSignatures(context.Background(), files)
	assert.Error(t, err)
}
