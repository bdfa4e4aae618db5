/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: sigwars.go
Description: Signature variant command. Groups the corpus by the signature of one
window and writes the variant list.
*/

package commands

import (
	"fmt"
	"strconv"

	"github.com/kleascm/bytesleuth/pkg/core"
	"github.com/kleascm/bytesleuth/pkg/sigwars"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RunSigwars executes the signature variant grouping
func RunSigwars(cmd *cobra.Command, args []string) error {
	printHeading("bytesleuth - Signature Wars")

	ofs := viper.GetInt64("sigwars.ofs")
	size := viper.GetInt("sigwars.size")
	ansiMin := viper.GetInt("sigwars.ansi_min")
	if ofs < 0 || size <= 0 {
		return fmt.Errorf("invalid window: ofs=%d size=%d", ofs, size)
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
	if len(files) == 0 {
		return fmt.Errorf("no files to compare")
	}

	groups, err := sigwars.Scan(ctx, session.source, files, ofs, size, ansiMin, session.log.GetLogger())
	partial, err := scanOutcome(err)
	if err != nil {
		return err
	}
	if partial && !viper.GetBool("keep_partial") {
		printWarning("Program terminated.")
		return core.ErrCancelled
	}

	ext := reportExt(session.ext, files[len(files)-1].Path)
	path, err := session.writer.WriteSigwars(groups, ext)
	if err != nil {
		return err
	}
	printKeyValues("variants", strconv.Itoa(len(groups)), "report", path)
	return session.close()
}
