/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: config.go
Description: Scan configuration shared by the CLI and the aggregation engine. Holds the
window shape, signature thresholds and numeric domain settings for both the equality
(signature) and range analysis modes.
*/

package interfaces

import "fmt"

// Mode selects which aggregate the engine maintains
type Mode string

const (
	ModeSignatures Mode = "sigs"
	ModeRanges     Mode = "ranges"
)

const (
	DefaultSignatureMaxOfs = 10000000
	DefaultRangeMaxOfs     = 256
	DefaultSigAtLeast      = 2
	DefaultAnsiMin         = 2
)

// ScanConfig holds every tunable of a scan
type ScanConfig struct {
	Mode      Mode   `json:"mode" yaml:"mode"`
	Extension string `json:"extension" yaml:"extension"` // "" for any, otherwise ".ext"

	MinOfs int64 `json:"min_ofs" yaml:"min_ofs"` // Range mode: first offset looked at
	MaxOfs int64 `json:"max_ofs" yaml:"max_ofs"` // Upper bound of the window (exclusive)
	Size   int   `json:"size" yaml:"size"`       // Range mode record size, 0 = MaxOfs-MinOfs
	Items  int   `json:"items" yaml:"items"`     // Range mode record count
	Signed bool  `json:"signed" yaml:"signed"`   // Range mode numeric domain

	SigAtLeast    int  `json:"sig_at_least" yaml:"sig_at_least"`       // Minimum signature run length
	AllZeroesGood bool `json:"all_zeroes_good" yaml:"all_zeroes_good"` // Keep runs made only of the filler byte
	ZeroOutWith   byte `json:"zero_out_with" yaml:"zero_out_with"`     // Filler for mismatching positions
	AnsiMin       int  `json:"ansi_min" yaml:"ansi_min"`               // Shortest printable run rendered as text

	Workers int `json:"workers" yaml:"workers"` // Parallel folders, 0 or 1 = sequential
}

// DefaultSignatureConfig returns the defaults for equality mode
func DefaultSignatureConfig() *ScanConfig {
	return &ScanConfig{
		Mode:       ModeSignatures,
		MaxOfs:     DefaultSignatureMaxOfs,
		Items:      1,
		SigAtLeast: DefaultSigAtLeast,
		AnsiMin:    DefaultAnsiMin,
	}
}

// DefaultRangeConfig returns the defaults for range mode
func DefaultRangeConfig() *ScanConfig {
	return &ScanConfig{
		Mode:       ModeRanges,
		MaxOfs:     DefaultRangeMaxOfs,
		Items:      1,
		SigAtLeast: DefaultSigAtLeast,
		AnsiMin:    DefaultAnsiMin,
	}
}

// RecordSize returns the configured range mode record size
func (c *ScanConfig) RecordSize() int {
	if c.Size > 0 {
		return c.Size
	}
	return int(c.MaxOfs - c.MinOfs)
}

// InitialLayout returns the range mode layout before any hook runs
func (c *ScanConfig) InitialLayout() Layout {
	items := c.Items
	if items <= 0 {
		items = 1
	}
	return Layout{BaseOfs: c.MinOfs, Sz: c.RecordSize(), Items: items}
}

// Validate checks the ScanConfig for invalid values.
// Returns an error if the config is invalid, or nil if valid.
func (c *ScanConfig) Validate() error {
	switch c.Mode {
	case ModeSignatures, ModeRanges:
		// ok
	default:
		return fmt.Errorf("unsupported mode: %q", c.Mode)
	}
	if c.MinOfs < 0 {
		return fmt.Errorf("min_ofs must not be negative")
	}
	if c.MaxOfs < 0 {
		return fmt.Errorf("max_ofs must not be negative")
	}
	if c.Size < 0 {
		return fmt.Errorf("size must not be negative")
	}
	if c.Items < 0 {
		return fmt.Errorf("items must not be negative")
	}
	if c.SigAtLeast < 1 {
		return fmt.Errorf("sig_at_least must be at least 1")
	}
	if c.AnsiMin < 0 {
		return fmt.Errorf("ansi_min must not be negative")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	if c.Mode == ModeRanges && c.Size == 0 && c.MaxOfs <= c.MinOfs {
		return fmt.Errorf("max_ofs (%d) must be above min_ofs (%d)", c.MaxOfs, c.MinOfs)
	}
	return nil
}
