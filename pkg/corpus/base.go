/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: base.go
Description: Base offset providers. Locate where the matchable block of a file starts,
such as the entry point code of a PE executable or a header pointer of a custom format.
*/

package corpus

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/kleascm/bytesleuth/pkg/layout"
)

// BaseOffsetProvider finds the start of the matchable block of one file
type BaseOffsetProvider interface {
	BaseOffset(r io.ReaderAt, size int64) (int64, error)
	Name() string
}

// NoBase matches from the start of every file
type NoBase struct{}

// BaseOffset always returns 0
func (NoBase) BaseOffset(io.ReaderAt, int64) (int64, error) { return 0, nil }

// Name returns "none"
func (NoBase) Name() string { return "none" }

// Fixed PE header fields, relative to the file start or the PE header
var (
	peHeaderPtr  = layout.Field{Order: binary.LittleEndian, Kind: 'L', Size: 4, Offset: 0x3C}
	peSections   = layout.Field{Order: binary.LittleEndian, Kind: 'H', Size: 2, Offset: 6}
	peOptSize    = layout.Field{Order: binary.LittleEndian, Kind: 'H', Size: 2, Offset: 0x14}
	peEntryPoint = layout.Field{Order: binary.LittleEndian, Kind: 'L', Size: 4, Offset: 0x28}
	secVirtAddr  = layout.Field{Order: binary.LittleEndian, Kind: 'L', Size: 4, Offset: 12}
	secRawSize   = layout.Field{Order: binary.LittleEndian, Kind: 'L', Size: 4, Offset: 16}
	secRawPtr    = layout.Field{Order: binary.LittleEndian, Kind: 'L', Size: 4, Offset: 20}
)

const (
	peSectionSize = 0x28
	peMaxSections = 96
)

// PEEntryPoint starts matching at the file offset of a PE executable's entry point
type PEEntryPoint struct{}

// Name returns "pe"
func (PEEntryPoint) Name() string { return "pe" }

// BaseOffset maps AddressOfEntryPoint to a raw file offset through the section table.
// An entry point outside every section yields 0.
func (PEEntryPoint) BaseOffset(r io.ReaderAt, size int64) (int64, error) {
	magic := make([]byte, 2)
	if _, err := r.ReadAt(magic, 0); err != nil || string(magic) != "MZ" {
		return 0, fmt.Errorf("not an MZ executable")
	}

	pe, err := peHeaderPtr.ReadAt(r, 0)
	if err != nil {
		return 0, err
	}
	sections, err := peSections.ReadAt(r, pe)
	if err != nil {
		return 0, err
	}
	if sections > peMaxSections {
		return 0, fmt.Errorf("implausible section count %d", sections)
	}
	optSize, err := peOptSize.ReadAt(r, pe)
	if err != nil {
		return 0, err
	}
	entry, err := peEntryPoint.ReadAt(r, pe)
	if err != nil {
		return 0, err
	}

	table := pe + optSize + 0x18
	for i := int64(0); i < sections; i++ {
		start := table + i*peSectionSize
		vadr, err := secVirtAddr.ReadAt(r, start)
		if err != nil {
			return 0, err
		}
		rdsz, err := secRawSize.ReadAt(r, start)
		if err != nil {
			return 0, err
		}
		rdp, err := secRawPtr.ReadAt(r, start)
		if err != nil {
			return 0, err
		}
		if vadr <= entry && entry < vadr+rdsz {
			return entry - vadr + rdp, nil
		}
	}
	return 0, nil
}

// FieldBase reads the base offset from a header field
type FieldBase struct {
	Field layout.Field
}

// Name returns the field spec
func (p FieldBase) Name() string { return "field:" + p.Field.String() }

// BaseOffset returns the value stored in the field
func (p FieldBase) BaseOffset(r io.ReaderAt, size int64) (int64, error) {
	v, err := p.Field.ReadAt(r, 0)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("%s holds negative offset %d", p.Field, v)
	}
	return v, nil
}

// ParseBaseOffset parses a provider name: "none", "pe" or "field:<fmt>@<ofs>"
func ParseBaseOffset(spec string) (BaseOffsetProvider, error) {
	s := strings.TrimSpace(spec)
	switch strings.ToLower(s) {
	case "", "none", "0":
		return NoBase{}, nil
	case "pe", "exe":
		return PEEntryPoint{}, nil
	}
	if rest, ok := strings.CutPrefix(s, "field:"); ok {
		f, err := layout.ParseField(rest)
		if err != nil {
			return nil, err
		}
		return FieldBase{Field: f}, nil
	}
	return nil, fmt.Errorf("unknown base offset provider %q", spec)
}
