/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: merge.go
Description: Snapshot merge command. Combines tables saved by scans of corpus slices
and writes the report of the combined corpus.
*/

package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/kleascm/bytesleuth/pkg/core"
	"github.com/kleascm/bytesleuth/pkg/interfaces"
	"github.com/kleascm/bytesleuth/pkg/reporting"
	"github.com/kleascm/bytesleuth/pkg/snapshot"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RunMerge merges snapshots and renders the report
func RunMerge(cmd *cobra.Command, args []string) error {
	printHeading("bytesleuth - Snapshot Merge")

	filler, err := parseByte(viper.GetString("merge.zero_out_with"))
	if err != nil {
		return err
	}
	opts := core.RunOptions{
		SigAtLeast:    viper.GetInt("merge.sig_at_least"),
		AllZeroesGood: viper.GetBool("merge.all_zeroes_good"),
		ZeroOutWith:   filler,
	}
	ansiMin := viper.GetInt("merge.ansi_min")

	session, err := newScanSession()
	if err != nil {
		return err
	}
	defer session.close()

	snaps := make([]*snapshot.Snapshot, 0, len(args))
	for _, path := range args {
		s, err := snapshot.LoadFile(path)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		printKeyValues(string(s.Mode), fmt.Sprintf("%s (%d files)", path, s.Files))
		snaps = append(snaps, s)
	}

	merged, err := snapshot.Merge(snaps...)
	if err != nil {
		return fmt.Errorf("failed to merge snapshots: %w", err)
	}

	ext := session.ext
	if ext == "" {
		ext = merged.Extension
	}
	now := time.Now()
	stats := core.ScanStats{
		RunID:       merged.RunID,
		StartTime:   now,
		EndTime:     now,
		FilesTotal:  merged.Files,
		FilesFolded: merged.Files,
	}

	var summary *reporting.Summary
	switch merged.Mode {
	case interfaces.ModeSignatures:
		summary, err = renderMergedSignatures(session, merged, stats, ext, opts, ansiMin)
	case interfaces.ModeRanges:
		summary, err = renderMergedRanges(session, merged, stats, ext)
	default:
		err = fmt.Errorf("unknown snapshot mode %q", merged.Mode)
	}
	if err != nil {
		return err
	}

	printKeyValues("files", strconv.Itoa(merged.Files), "hope", strconv.Itoa(summary.Hope))
	if err := session.saveArtifacts(merged, summary); err != nil {
		return err
	}
	return session.finish(summary, stats)
}

// renderMergedSignatures extracts and writes the signatures of a merged equality table
func renderMergedSignatures(session *scanSession, merged *snapshot.Snapshot, stats core.ScanStats, ext string, opts core.RunOptions, ansiMin int) (*reporting.Summary, error) {
	table, err := merged.EqualityTable()
	if err != nil {
		return nil, err
	}
	res := &core.SignatureResult{
		Table:      table,
		Extraction: core.ExtractRuns(table, opts),
		WindowSize: table.Size(),
		HasBase:    merged.HasBase,
		Exhausted:  table.Exhausted(),
		Cancelled:  merged.Cancelled,
		Stats:      stats,
	}
	summary := reporting.SignatureSummary(res, ext, ansiMin)
	if res.Exhausted {
		printResult("  There were no matches at all.")
		return summary, nil
	}

	artifacts, err := session.writer.WriteSignatures(res, ext, ansiMin)
	if err != nil {
		return nil, err
	}
	summary.Artifacts = artifacts.Paths()
	printResult(fmt.Sprintf("  %d hopes rest in %d sequences among %d files.",
		res.Extraction.Explained, len(res.Extraction.Runs), merged.Files))
	return summary, nil
}

// renderMergedRanges writes the report of a merged range table
func renderMergedRanges(session *scanSession, merged *snapshot.Snapshot, stats core.ScanStats, ext string) (*reporting.Summary, error) {
	table, err := merged.RangeTable()
	if err != nil {
		return nil, err
	}
	if table.Exhausted() {
		return nil, core.ErrCorpusTooUniform
	}
	res := &core.RangeResult{
		Table:      table,
		Rows:       table.Rows(merged.BaseOfs),
		BaseOfs:    merged.BaseOfs,
		Signed:     table.Signed(),
		SizeRange:  merged.SizeRange,
		ItemsRange: merged.ItemsRange,
		Cancelled:  merged.Cancelled,
		Stats:      stats,
	}
	summary := reporting.RangeSummary(res, ext)

	path, err := session.writer.WriteRanges(res, ext)
	if err != nil {
		return nil, err
	}
	summary.Artifacts = []string{path}
	printResult(fmt.Sprintf("Report complete. %d hopes remain.", table.Hope()))
	return summary, nil
}
