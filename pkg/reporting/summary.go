/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: summary.go
Description: Machine-readable run summary. Captures statistics, findings and artifact
paths of one run as YAML for scripts that post-process scan results.
*/

package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kleascm/bytesleuth/pkg/core"
	"github.com/kleascm/bytesleuth/pkg/interfaces"
	"github.com/kleascm/bytesleuth/pkg/monitoring"
	"github.com/kleascm/bytesleuth/pkg/signature"
	"gopkg.in/yaml.v3"
)

// SignatureEntry is one reported signature run
type SignatureEntry struct {
	Offset    int    `yaml:"offset" json:"offset"`
	Length    int    `yaml:"length" json:"length"`
	Hex       string `yaml:"hex" json:"hex"`
	Signature string `yaml:"signature" json:"signature"`
}

// Summary describes one finished run
type Summary struct {
	RunID      string          `yaml:"run_id" json:"run_id"`
	Mode       interfaces.Mode `yaml:"mode" json:"mode"`
	Extension  string          `yaml:"extension" json:"extension"`
	StartedAt  time.Time       `yaml:"started_at" json:"started_at"`
	FinishedAt time.Time       `yaml:"finished_at" json:"finished_at"`
	Duration   string          `yaml:"duration" json:"duration"`

	FilesTotal   int `yaml:"files_total" json:"files_total"`
	FilesFolded  int `yaml:"files_folded" json:"files_folded"`
	FilesSkipped int `yaml:"files_skipped" json:"files_skipped"`
	Resets       int `yaml:"resets,omitempty" json:"resets,omitempty"`

	Hope         int  `yaml:"hope" json:"hope"`
	ActiveLength int  `yaml:"active_length" json:"active_length"`
	Exhausted    bool `yaml:"exhausted" json:"exhausted"`
	Cancelled    bool `yaml:"cancelled" json:"cancelled"`

	HasBase    bool             `yaml:"has_base,omitempty" json:"has_base,omitempty"`
	Explained  int              `yaml:"explained,omitempty" json:"explained,omitempty"`
	Suppressed int              `yaml:"suppressed,omitempty" json:"suppressed,omitempty"`
	Signatures []SignatureEntry `yaml:"signatures,omitempty" json:"signatures,omitempty"`

	Signed     bool            `yaml:"signed,omitempty" json:"signed,omitempty"`
	Ranges     []core.RangeRow `yaml:"ranges,omitempty" json:"ranges,omitempty"`
	SizeRange  *core.IntRange  `yaml:"size_range,omitempty" json:"size_range,omitempty"`
	ItemsRange *core.IntRange  `yaml:"items_range,omitempty" json:"items_range,omitempty"`

	Resources *monitoring.ResourceUsage `yaml:"resources,omitempty" json:"resources,omitempty"`
	Artifacts []string                  `yaml:"artifacts,omitempty" json:"artifacts,omitempty"`
}

// fillStats copies the common statistics
func (s *Summary) fillStats(stats core.ScanStats) {
	s.RunID = stats.RunID
	s.StartedAt = stats.StartTime
	s.FinishedAt = stats.EndTime
	s.Duration = stats.Duration().Round(time.Millisecond).String()
	s.FilesTotal = stats.FilesTotal
	s.FilesFolded = stats.FilesFolded
	s.FilesSkipped = stats.FilesSkipped
	s.Resets = stats.Resets
}

// SignatureSummary summarizes an equality-mode result
func SignatureSummary(res *core.SignatureResult, ext string, ansiMin int) *Summary {
	s := &Summary{
		Mode:         interfaces.ModeSignatures,
		Extension:    ext,
		Hope:         res.Table.Hope(),
		ActiveLength: res.Table.ActiveLength(),
		Exhausted:    res.Exhausted,
		Cancelled:    res.Cancelled,
		HasBase:      res.HasBase,
	}
	s.fillStats(res.Stats)
	if ex := res.Extraction; ex != nil {
		s.Explained = ex.Explained
		s.Suppressed = ex.Suppressed
		for _, run := range ex.Runs {
			s.Signatures = append(s.Signatures, SignatureEntry{
				Offset:    run.Start,
				Length:    len(run.Bytes),
				Hex:       signature.Hex(run.Bytes),
				Signature: signature.Encode(run.Bytes, ansiMin),
			})
		}
	}
	return s
}

// RangeSummary summarizes a range-mode result
func RangeSummary(res *core.RangeResult, ext string) *Summary {
	s := &Summary{
		Mode:         interfaces.ModeRanges,
		Extension:    ext,
		Hope:         res.Table.Hope(),
		ActiveLength: res.Table.ActiveLength(),
		Cancelled:    res.Cancelled,
		Signed:       res.Signed,
		Ranges:       res.Rows,
	}
	s.fillStats(res.Stats)
	if res.SizeRange.Set {
		sizes := res.SizeRange
		s.SizeRange = &sizes
	}
	if res.ItemsRange.Set {
		items := res.ItemsRange
		s.ItemsRange = &items
	}
	return s
}

// WriteSummary writes the summary as YAML to path
func WriteSummary(path string, s *Summary) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create summary directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// ReadSummary loads a summary written by WriteSummary
func ReadSummary(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := &Summary{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse summary: %w", err)
	}
	return s, nil
}
