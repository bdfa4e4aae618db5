package signature_test

import (
	"testing"

	"github.com/kleascm/bytesleuth/pkg/signature"
	"github.com/stretchr/testify/assert"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		ansiMin int
		want    string
	}{
		{"text between hex", []byte{0xAA, 'R', 'I', 'F', 'F', 0x04}, 2, `"AA'RIFF'04"`},
		{"short printable tail", []byte{0xAA, 0x42}, 2, `"AA42"`},
		{"short text as hex", []byte{0x00, 'A', 0x00}, 2, `"004100"`},
		{"trailing text", []byte{0x01, 'M', 'Z'}, 2, `"01'MZ'"`},
		{"quotes are hex", []byte{'a', '\'', 'b', '"'}, 1, `"'a'27'b'22"`},
		{"empty", nil, 2, `""`},
		{"ansi min zero", []byte{0x7F}, 0, `"7F"`},
		{"threshold", []byte{'a', 'b', 'c'}, 4, `"616263"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, signature.Encode(tt.input, tt.ansiMin))
		})
	}
}

func TestEncodeAdjacentTextRuns(t *testing.T) {
	// two text runs split by a hex byte never produce an empty quote pair
	got := signature.Encode([]byte{'a', 'b', 0x00, 'c', 'd'}, 2)
	assert.Equal(t, `"'ab'00'cd'"`, got)
}

func TestHex(t *testing.T) {
	assert.Equal(t, "4D5A00", signature.Hex([]byte{0x4D, 0x5A, 0x00}))
}
