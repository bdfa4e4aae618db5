/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: ranges.go
Description: Range search command. Folds record bytes of the corpus into a range table,
optionally reading the record layout from per-file header fields, and writes the
per-offset value range report.
*/

package commands

import (
	"errors"
	"fmt"

	"github.com/kleascm/bytesleuth/pkg/core"
	"github.com/kleascm/bytesleuth/pkg/interfaces"
	"github.com/kleascm/bytesleuth/pkg/layout"
	"github.com/kleascm/bytesleuth/pkg/reporting"
	"github.com/kleascm/bytesleuth/pkg/snapshot"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rangeConfig builds the range-mode configuration from flags and config
func rangeConfig() (*interfaces.ScanConfig, error) {
	config := interfaces.DefaultRangeConfig()
	config.Extension = normalizeExt(viper.GetString("ext"))
	config.MinOfs = viper.GetInt64("ranges.min_ofs")
	config.MaxOfs = viper.GetInt64("ranges.max_ofs")
	config.Size = viper.GetInt("ranges.size")
	config.Items = viper.GetInt("ranges.items")
	config.Signed = viper.GetBool("ranges.signed")
	config.Workers = viper.GetInt("workers")

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// hookFields parses the --items-from, --size-from and --base-from fields
func hookFields(minOfs int64) (layout.HookFields, error) {
	fields := layout.HookFields{BaseAdd: minOfs}
	for _, spec := range []struct {
		key    string
		target **layout.Field
	}{
		{"ranges.items_from", &fields.Items},
		{"ranges.size_from", &fields.Size},
		{"ranges.base_from", &fields.Base},
	} {
		raw := viper.GetString(spec.key)
		if raw == "" {
			continue
		}
		f, err := layout.ParseField(raw)
		if err != nil {
			return fields, fmt.Errorf("%s: %w", spec.key, err)
		}
		*spec.target = &f
	}
	return fields, nil
}

// RunRanges executes the range search
func RunRanges(cmd *cobra.Command, args []string) error {
	printHeading("bytesleuth - Range Search")

	config, err := rangeConfig()
	if err != nil {
		return err
	}
	fields, err := hookFields(config.MinOfs)
	if err != nil {
		return err
	}

	session, err := newScanSession()
	if err != nil {
		return err
	}
	defer session.close()

	ctx, stop := signalContext()
	defer stop()

	files, err := session.enumerate(ctx, corpusDir(args))
	if err != nil {
		return err
	}

	engine, prog := session.newEngine(config)
	if hook := layout.NewFieldHook(session.source, fields); hook != nil {
		engine.SetLayoutHook(hook)
	}

	printStep("Processing...")
	res, err := engine.FindRanges(ctx, files)
	prog.Done()

	if errors.Is(err, core.ErrCorpusTooUniform) {
		printWarning("It's all random, no point in continuing.")
		return err
	}
	partial, err := scanOutcome(err)
	if err != nil {
		return fmt.Errorf("range search failed: %w", err)
	}
	if partial && (res == nil || !viper.GetBool("keep_partial")) {
		printWarning("Program terminated.")
		return core.ErrCancelled
	}

	ext := reportExt(session.ext, res.Stats.LastFile)
	summary := reporting.RangeSummary(res, ext)

	path, err := session.writer.WriteRanges(res, ext)
	if err != nil {
		return err
	}
	summary.Artifacts = []string{path}

	printResult(fmt.Sprintf("Report complete. %d hopes remain.", res.Table.Hope()))
	printKeyValues("report", path)
	if res.Stats.Resets > 0 {
		printWarning(fmt.Sprintf("Record size grew %d times, only files after the last growth are included.", res.Stats.Resets))
	}
	if partial {
		printWarning("Scan was interrupted, the report covers the files folded so far.")
	}

	if err := session.saveArtifacts(snapshot.FromRanges(res, ext), summary); err != nil {
		return err
	}
	return session.finish(summary, res.Stats)
}
