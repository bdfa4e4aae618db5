/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: sigs.go
Description: Signature search command. Folds the corpus into an equality table and
writes the Detect-It-Easy signature list with its binary and match-mask companions.
*/

package commands

import (
	"fmt"

	"github.com/kleascm/bytesleuth/pkg/core"
	"github.com/kleascm/bytesleuth/pkg/interfaces"
	"github.com/kleascm/bytesleuth/pkg/reporting"
	"github.com/kleascm/bytesleuth/pkg/snapshot"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// signatureConfig builds the equality-mode configuration from flags and config
func signatureConfig() (*interfaces.ScanConfig, error) {
	config := interfaces.DefaultSignatureConfig()
	config.Extension = normalizeExt(viper.GetString("ext"))
	config.MaxOfs = viper.GetInt64("sigs.max_ofs")
	config.SigAtLeast = viper.GetInt("sigs.sig_at_least")
	config.AllZeroesGood = viper.GetBool("sigs.all_zeroes_good")
	config.AnsiMin = viper.GetInt("sigs.ansi_min")
	config.Workers = viper.GetInt("workers")

	filler, err := parseByte(viper.GetString("sigs.zero_out_with"))
	if err != nil {
		return nil, err
	}
	config.ZeroOutWith = filler

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// RunSigs executes the signature search
func RunSigs(cmd *cobra.Command, args []string) error {
	printHeading("bytesleuth - Signature Search")

	config, err := signatureConfig()
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
	printStep("Processing...")
	res, err := engine.FindSignatures(ctx, files)
	prog.Done()

	partial, err := scanOutcome(err)
	if err != nil {
		return fmt.Errorf("signature search failed: %w", err)
	}
	if partial && (res == nil || !viper.GetBool("keep_partial")) {
		printWarning("Program terminated.")
		return core.ErrCancelled
	}

	ext := reportExt(session.ext, res.Stats.LastFile)
	summary := reporting.SignatureSummary(res, ext, config.AnsiMin)

	if res.Exhausted {
		printResult("  There were no matches at all.")
	} else {
		artifacts, err := session.writer.WriteSignatures(res, ext, config.AnsiMin)
		if err != nil {
			return err
		}
		summary.Artifacts = artifacts.Paths()

		ex := res.Extraction
		msg := fmt.Sprintf("  %d hopes rest in %d sequences among %d files.", ex.Explained, len(ex.Runs), len(files))
		if !config.AllZeroesGood && ex.Suppressed > 0 {
			msg += fmt.Sprintf(" 0-sequences ignored: %d.", ex.Suppressed)
		}
		printResult(msg)
		printKeyValues("report", artifacts.Text)
	}
	if partial {
		printWarning("Scan was interrupted, the report covers the files folded so far.")
	}

	if err := session.saveArtifacts(snapshot.FromSignatures(res, ext), summary); err != nil {
		return err
	}
	return session.finish(summary, res.Stats)
}
