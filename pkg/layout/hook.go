/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: hook.go
Description: Header driven layout hook. Reads record count, record size and record
base out of each file's header fields and hands the adjusted layout to the engine.
*/

package layout

import (
	"fmt"

	"github.com/kleascm/bytesleuth/pkg/interfaces"
)

// HookFields selects the header fields a FieldHook reads.
// Nil fields leave the corresponding layout value untouched.
type HookFields struct {
	Items *Field // Record count
	Size  *Field // Record size in bytes
	Base  *Field // Start of the records, added to BaseAdd
	// Added to the value read by Base
	BaseAdd int64
}

// FieldHook adjusts the range layout from per-file header fields
type FieldHook struct {
	source interfaces.WindowSource
	fields HookFields
}

// NewFieldHook creates a hook reading fields through source.
// Returns nil when no field is configured.
func NewFieldHook(source interfaces.WindowSource, fields HookFields) *FieldHook {
	if fields.Items == nil && fields.Size == nil && fields.Base == nil {
		return nil
	}
	return &FieldHook{source: source, fields: fields}
}

// Adjust implements interfaces.LayoutHook
func (h *FieldHook) Adjust(file interfaces.CorpusFile, current interfaces.Layout) (interfaces.Layout, error) {
	next := current

	if f := h.fields.Items; f != nil {
		v, err := h.read(file, *f)
		if err != nil {
			return current, fmt.Errorf("items: %w", err)
		}
		if v <= 0 {
			return current, fmt.Errorf("items: %s holds %d", f, v)
		}
		next.Items = int(v)
	}
	if f := h.fields.Size; f != nil {
		v, err := h.read(file, *f)
		if err != nil {
			return current, fmt.Errorf("size: %w", err)
		}
		if v <= 0 {
			return current, fmt.Errorf("size: %s holds %d", f, v)
		}
		next.Sz = int(v)
	}
	if f := h.fields.Base; f != nil {
		v, err := h.read(file, *f)
		if err != nil {
			return current, fmt.Errorf("base: %w", err)
		}
		next.BaseOfs = v + h.fields.BaseAdd
		if next.BaseOfs < 0 {
			return current, fmt.Errorf("base: %s gives negative offset %d", f, next.BaseOfs)
		}
	}
	return next, nil
}

// read fetches one field counted from the file's base offset
func (h *FieldHook) read(file interfaces.CorpusFile, f Field) (int64, error) {
	data, err := h.source.ReadWindow(file, file.BaseOffset+f.Offset, f.Size)
	if err != nil {
		return 0, err
	}
	return f.Decode(data)
}
