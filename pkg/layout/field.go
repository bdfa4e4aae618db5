/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: field.go
Description: Struct-style field specifications. A spec like "<L@0x3C" names the byte
order, the integer type and the offset of a header field. Used to locate base offsets,
record counts and record sizes inside corpus files.
*/

package layout

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Field is a fixed-width integer stored at a known offset
type Field struct {
	Order  binary.ByteOrder // Byte order, little endian unless '>' or '!' is given
	Kind   byte             // Type character: b B h H l L q Q
	Size   int              // Width in bytes
	Signed bool             // Whether the value is two's complement
	Offset int64            // Position relative to the file's base offset
}

// kinds maps the type characters to their width and signedness
var kinds = map[byte]struct {
	size   int
	signed bool
}{
	'b': {1, true},
	'B': {1, false},
	'c': {1, false},
	'h': {2, true},
	'H': {2, false},
	'i': {4, true},
	'I': {4, false},
	'l': {4, true},
	'L': {4, false},
	'q': {8, true},
	'Q': {8, false},
}

// ParseFormat parses a byte order and type pair such as "<L" or ">h"
func ParseFormat(format string) (Field, error) {
	f := Field{Order: binary.LittleEndian}
	s := strings.TrimSpace(format)
	if s == "" {
		return f, fmt.Errorf("empty field format")
	}

	switch s[0] {
	case '<', '=', '@':
		s = s[1:]
	case '>', '!':
		f.Order = binary.BigEndian
		s = s[1:]
	}
	if len(s) != 1 {
		return f, fmt.Errorf("invalid field format %q: expected one type character", format)
	}

	k, ok := kinds[s[0]]
	if !ok {
		return f, fmt.Errorf("invalid field format %q: unknown type %q", format, s[0])
	}
	f.Kind = s[0]
	if f.Kind == 'c' {
		f.Kind = 'B'
	}
	f.Size = k.size
	f.Signed = k.signed
	return f, nil
}

// ParseField parses a field spec of the form "<format>@<offset>".
// The offset accepts 0x, 0o and 0b prefixes.
func ParseField(spec string) (Field, error) {
	format, at, found := strings.Cut(spec, "@")
	if !found {
		return Field{}, fmt.Errorf("invalid field %q: expected <format>@<offset>", spec)
	}
	f, err := ParseFormat(format)
	if err != nil {
		return f, err
	}
	ofs, err := strconv.ParseInt(strings.TrimSpace(at), 0, 64)
	if err != nil {
		return f, fmt.Errorf("invalid field %q: bad offset: %w", spec, err)
	}
	if ofs < 0 {
		return f, fmt.Errorf("invalid field %q: negative offset", spec)
	}
	f.Offset = ofs
	return f, nil
}

// Decode reads the field value from the first Size bytes of b
func (f Field) Decode(b []byte) (int64, error) {
	if len(b) < f.Size {
		return 0, fmt.Errorf("need %d bytes for %s, have %d", f.Size, f, len(b))
	}

	var u uint64
	switch f.Size {
	case 1:
		u = uint64(b[0])
	case 2:
		u = uint64(f.Order.Uint16(b))
	case 4:
		u = uint64(f.Order.Uint32(b))
	case 8:
		u = f.Order.Uint64(b)
	default:
		return 0, fmt.Errorf("unsupported field width %d", f.Size)
	}

	if !f.Signed {
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("value %d of %s overflows", u, f)
		}
		return int64(u), nil
	}
	shift := 64 - 8*f.Size
	return int64(u<<shift) >> shift, nil
}

// ReadAt reads the field from r, counting its offset from base
func (f Field) ReadAt(r io.ReaderAt, base int64) (int64, error) {
	buf := make([]byte, f.Size)
	if _, err := r.ReadAt(buf, base+f.Offset); err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", f, err)
	}
	return f.Decode(buf)
}

// String renders the field back in spec form
func (f Field) String() string {
	order := "<"
	if f.Order == binary.BigEndian {
		order = ">"
	}
	return fmt.Sprintf("%s%c@0x%X", order, f.Kind, f.Offset)
}
