package core_test

import (
	"testing"

	"github.com/kleascm/bytesleuth/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func foldAll(size int, windows ...[]byte) *core.EqualityTable {
	table := core.NewEqualityTable(size)
	for _, w := range windows {
		table.Fold(w)
	}
	return table
}

func TestExtractRuns(t *testing.T) {
	table := foldAll(8,
		[]byte{0xAA, 0x42, 0x00, 0x01, 0xFF, 0x42, 0x42, 0x00},
		[]byte{0xAA, 0x42, 0x11, 0x01, 0xFF, 0x43, 0x42, 0x00},
		[]byte{0xAA, 0x42, 0x22, 0x01, 0xFF, 0x44, 0x42, 0x00},
	)

	ex := core.ExtractRuns(table, core.RunOptions{SigAtLeast: 2})
	require.Len(t, ex.Runs, 3)
	assert.Equal(t, core.SignatureRun{Start: 0, Bytes: []byte{0xAA, 0x42}}, ex.Runs[0])
	assert.Equal(t, core.SignatureRun{Start: 3, Bytes: []byte{0x01, 0xFF}}, ex.Runs[1])
	assert.Equal(t, core.SignatureRun{Start: 6, Bytes: []byte{0x42, 0x00}}, ex.Runs[2])
	assert.Equal(t, 8, ex.Runs[2].End())

	assert.Equal(t, []byte{0xAA, 0x42, 0x00, 0x01, 0xFF, 0x00, 0x42, 0x00}, ex.Redacted)
	assert.Equal(t, "xx.xx.xx", string(ex.Matches))
	assert.Equal(t, 6, ex.Explained)
	assert.Equal(t, 0, ex.Suppressed)
}

func TestExtractRunsThreshold(t *testing.T) {
	table := foldAll(6,
		[]byte{1, 2, 3, 4, 5, 6},
		[]byte{1, 9, 3, 4, 9, 6},
	)

	ex := core.ExtractRuns(table, core.RunOptions{SigAtLeast: 2, ZeroOutWith: 0xEE})
	require.Len(t, ex.Runs, 1)
	assert.Equal(t, 2, ex.Runs[0].Start)
	assert.Equal(t, []byte{1, 0xEE, 3, 4, 0xEE, 6}, ex.Redacted)

	ex = core.ExtractRuns(table, core.RunOptions{SigAtLeast: 1})
	assert.Len(t, ex.Runs, 3)
	assert.Equal(t, 4, ex.Explained)
}

func TestExtractRunsFillerSuppressed(t *testing.T) {
	table := foldAll(6,
		[]byte{0, 0, 0, 7, 8, 9},
		[]byte{0, 0, 0, 1, 8, 9},
	)

	ex := core.ExtractRuns(table, core.RunOptions{SigAtLeast: 2})
	require.Len(t, ex.Runs, 1)
	assert.Equal(t, 4, ex.Runs[0].Start)
	assert.Equal(t, 1, ex.Suppressed)
	assert.Equal(t, 5, ex.Explained)

	ex = core.ExtractRuns(table, core.RunOptions{SigAtLeast: 2, AllZeroesGood: true})
	assert.Len(t, ex.Runs, 2)
	assert.Equal(t, 0, ex.Suppressed)
}

func TestExtractRunsExhausted(t *testing.T) {
	table := foldAll(2, []byte{1, 2}, []byte{3, 4})
	ex := core.ExtractRuns(table, core.RunOptions{SigAtLeast: 2})
	assert.Empty(t, ex.Runs)
	assert.Empty(t, ex.Matches)
	assert.Equal(t, 0, ex.Explained)
}
