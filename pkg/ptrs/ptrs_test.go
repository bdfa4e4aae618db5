package ptrs_test

import (
	"bytes"
	"testing"

	"github.com/kleascm/bytesleuth/pkg/layout"
	"github.com/kleascm/bytesleuth/pkg/ptrs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func format(t *testing.T, s string) layout.Field {
	t.Helper()
	f, err := layout.ParseFormat(s)
	require.NoError(t, err)
	return f
}

func TestMatchString(t *testing.T) {
	assert.Equal(t, "Found [000B]", ptrs.Match{At: 0x0B}.String())
	assert.Equal(t, "~Found [000B]+1", ptrs.Match{At: 0x0B, Delta: 1}.String())
	assert.Equal(t, "~Found [1234]-2", ptrs.Match{At: 0x1234, Delta: -2}.String())
}

func TestSearchRelative(t *testing.T) {
	data := bytes.Repeat([]byte{0x7F}, 0x20)
	// relative big endian word at 4 pointing 0x0F ahead -> 0x13
	data[4], data[5] = 0x00, 0x0F
	// one off: at 8, 0x0A -> 0x12
	data[8], data[9] = 0x00, 0x0A

	matches, err := ptrs.Search(data, ptrs.Options{
		Format:   format(t, ">h"),
		DataAt:   0x13,
		From:     4,
		To:       -1,
		Jitter:   2,
		Relative: true,
	})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, ptrs.Match{At: 4}, matches[0])
	assert.Equal(t, ptrs.Match{At: 8, Delta: 1}, matches[1])
}

func TestSearchAbsolute(t *testing.T) {
	data := make([]byte, 16)
	data[6] = 0x0C

	matches, err := ptrs.Search(data, ptrs.Options{
		Format: format(t, "<L"),
		DataAt: 0x0C,
		From:   -1,
		To:     -1,
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, int64(6), matches[0].At)
}

func TestBounds(t *testing.T) {
	opts := ptrs.Options{Format: format(t, ">h"), From: 100, To: 20, Jitter: 2}
	from, to, err := ptrs.Bounds(32, opts)
	require.NoError(t, err)
	// From past the end falls back to the jitter
	assert.Equal(t, int64(2), from)
	assert.Equal(t, int64(20), to)

	opts.From, opts.To = 20, 5
	from, to, err = ptrs.Bounds(32, opts)
	require.NoError(t, err)
	assert.Equal(t, int64(5), from)
	assert.Equal(t, int64(20), to)

	opts = ptrs.Options{Format: format(t, ">h"), From: -1, To: -1, Jitter: 2}
	from, to, err = ptrs.Bounds(32, opts)
	require.NoError(t, err)
	assert.Equal(t, int64(2), from)
	assert.Equal(t, int64(28), to)

	_, _, err = ptrs.Bounds(6, opts)
	assert.ErrorIs(t, err, ptrs.ErrFileTooSmall)

	// A negative To below the jitter never yields a position before the jitter
	opts.From, opts.To = 10, -5
	from, to, err = ptrs.Bounds(32, opts)
	require.NoError(t, err)
	assert.Equal(t, int64(2), from)
	assert.Equal(t, int64(10), to)
}

func TestSearchTinyFile(t *testing.T) {
	for _, size := range []int{0, 1, 2} {
		opts := ptrs.Options{Format: format(t, ">h"), From: -1, To: -1, Relative: true}
		var matches []ptrs.Match
		var err error
		assert.NotPanics(t, func() {
			matches, err = ptrs.Search(make([]byte, size), opts)
		})
		assert.ErrorIs(t, err, ptrs.ErrFileTooSmall, "size %d", size)
		assert.Empty(t, matches)

		opts.Jitter = 1
		assert.NotPanics(t, func() {
			_, err = ptrs.Search(make([]byte, size), opts)
		})
		assert.ErrorIs(t, err, ptrs.ErrFileTooSmall, "size %d with jitter", size)
	}
}
