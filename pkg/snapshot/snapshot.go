/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: snapshot.go
Description: Position State Table snapshots. A finished (or interrupted) scan can be
saved, and snapshots of disjoint corpus slices merged later into one report.
Layout: magic, version, codec, uncompressed length, then the CBOR payload.
*/

package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/kleascm/bytesleuth/pkg/core"
	"github.com/kleascm/bytesleuth/pkg/interfaces"
)

const (
	magic   = "BSNP"
	version = 1

	headerSize = len(magic) + 2 + 8
	// Refuse payloads claiming more than this when decoding
	maxPayload = 1 << 30
)

// ErrBadSnapshot is returned for data that is not a readable snapshot
var ErrBadSnapshot = errors.New("not a bytesleuth snapshot")

// Snapshot is the persisted state of one scan
type Snapshot struct {
	RunID     string          `cbor:"run_id"`
	Mode      interfaces.Mode `cbor:"mode"`
	CreatedAt time.Time       `cbor:"created_at"`
	Extension string          `cbor:"extension"`
	Files     int             `cbor:"files"` // Files folded into the table
	Cancelled bool            `cbor:"cancelled"`

	// Equality mode
	HasBase  bool                `cbor:"has_base,omitempty"`
	Equality *core.EqualityState `cbor:"equality,omitempty"`

	// Range mode
	BaseOfs    int64            `cbor:"base_ofs,omitempty"`
	Range      *core.RangeState `cbor:"range,omitempty"`
	SizeRange  core.IntRange    `cbor:"size_range"`
	ItemsRange core.IntRange    `cbor:"items_range"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("snapshot: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("snapshot: CBOR decoder initialization failed: " + err.Error())
	}
}

// FromSignatures captures an equality-mode result
func FromSignatures(res *core.SignatureResult, ext string) *Snapshot {
	return &Snapshot{
		RunID:     res.Stats.RunID,
		Mode:      interfaces.ModeSignatures,
		CreatedAt: time.Now().UTC(),
		Extension: ext,
		Files:     res.Table.Folds(),
		Cancelled: res.Cancelled,
		HasBase:   res.HasBase,
		Equality:  res.Table.State(),
	}
}

// FromRanges captures a range-mode result
func FromRanges(res *core.RangeResult, ext string) *Snapshot {
	return &Snapshot{
		RunID:      res.Stats.RunID,
		Mode:       interfaces.ModeRanges,
		CreatedAt:  time.Now().UTC(),
		Extension:  ext,
		Files:      res.Table.Folds(),
		Cancelled:  res.Cancelled,
		BaseOfs:    res.BaseOfs,
		Range:      res.Table.State(),
		SizeRange:  res.SizeRange,
		ItemsRange: res.ItemsRange,
	}
}

// EqualityTable rebuilds the equality table
func (s *Snapshot) EqualityTable() (*core.EqualityTable, error) {
	if s.Mode != interfaces.ModeSignatures {
		return nil, fmt.Errorf("snapshot %s holds %s data", s.RunID, s.Mode)
	}
	return core.RestoreEqualityTable(s.Equality)
}

// RangeTable rebuilds the range table
func (s *Snapshot) RangeTable() (*core.RangeTable, error) {
	if s.Mode != interfaces.ModeRanges {
		return nil, fmt.Errorf("snapshot %s holds %s data", s.RunID, s.Mode)
	}
	return core.RestoreRangeTable(s.Range)
}

// Encode writes the snapshot to w
func Encode(w io.Writer, s *Snapshot, codec Codec) error {
	raw, err := encMode.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	payload, used, err := compress(raw, codec)
	if err != nil {
		return err
	}

	header := make([]byte, headerSize)
	copy(header, magic)
	header[len(magic)] = version
	header[len(magic)+1] = byte(used)
	binary.LittleEndian.PutUint64(header[len(magic)+2:], uint64(len(raw)))

	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

// Decode reads a snapshot written by Encode
func Decode(r io.Reader) (*Snapshot, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	if string(header[:len(magic)]) != magic {
		return nil, ErrBadSnapshot
	}
	if v := header[len(magic)]; v != version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadSnapshot, v)
	}
	codec := Codec(header[len(magic)+1])
	size := binary.LittleEndian.Uint64(header[len(magic)+2:])
	if size > maxPayload {
		return nil, fmt.Errorf("%w: payload of %d bytes", ErrBadSnapshot, size)
	}

	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	raw, err := decompress(payload, codec, int(size))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}

	s := &Snapshot{}
	if err := decMode.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	return s, nil
}

// SaveFile writes the snapshot to path
func SaveFile(path string, s *Snapshot, codec Codec) error {
	var buf bytes.Buffer
	if err := Encode(&buf, s, codec); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// LoadFile reads the snapshot at path
func LoadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Merge combines snapshots of disjoint corpus slices taken with the same settings
func Merge(snaps ...*Snapshot) (*Snapshot, error) {
	if len(snaps) == 0 {
		return nil, fmt.Errorf("nothing to merge")
	}
	first := snaps[0]
	merged := &Snapshot{
		RunID:      first.RunID,
		Mode:       first.Mode,
		CreatedAt:  time.Now().UTC(),
		Extension:  first.Extension,
		BaseOfs:    first.BaseOfs,
		SizeRange:  first.SizeRange,
		ItemsRange: first.ItemsRange,
	}

	switch first.Mode {
	case interfaces.ModeSignatures:
		table, err := first.EqualityTable()
		if err != nil {
			return nil, err
		}
		for _, s := range snaps[1:] {
			other, err := s.EqualityTable()
			if err != nil {
				return nil, err
			}
			if err := table.Merge(other); err != nil {
				return nil, fmt.Errorf("snapshot %s: %w", s.RunID, err)
			}
		}
		merged.Equality = table.State()
		merged.Files = table.Folds()

	case interfaces.ModeRanges:
		table, err := first.RangeTable()
		if err != nil {
			return nil, err
		}
		for _, s := range snaps[1:] {
			if s.BaseOfs != first.BaseOfs {
				return nil, fmt.Errorf("snapshot %s starts at offset %d, expected %d", s.RunID, s.BaseOfs, first.BaseOfs)
			}
			other, err := s.RangeTable()
			if err != nil {
				return nil, err
			}
			if err := table.Merge(other); err != nil {
				return nil, fmt.Errorf("snapshot %s: %w", s.RunID, err)
			}
		}
		merged.Range = table.State()
		merged.Files = table.Folds()

	default:
		return nil, fmt.Errorf("snapshot %s has unknown mode %q", first.RunID, first.Mode)
	}

	for _, s := range snaps {
		merged.HasBase = merged.HasBase || s.HasBase
		merged.Cancelled = merged.Cancelled || s.Cancelled
		if s != first {
			merged.SizeRange.Widen(s.SizeRange)
			merged.ItemsRange.Widen(s.ItemsRange)
		}
	}
	return merged, nil
}
