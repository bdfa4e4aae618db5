/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: filelist.go
Description: File list and version commands.
*/

package commands

import (
	"fmt"
	"runtime"
	"strconv"

	"github.com/kleascm/bytesleuth/pkg/corpus"
	"github.com/kleascm/bytesleuth/pkg/reporting"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RunFileList writes the recursive file list of a directory
func RunFileList(cmd *cobra.Command, args []string) error {
	printStep("Please wait patiently...")

	log, err := SetupLogging()
	if err != nil {
		return err
	}
	defer log.Close()

	ctx, stop := signalContext()
	defer stop()

	writer := reporting.NewWriter(viper.GetString("output_dir"), log.GetLogger())
	exclude := []string{writer.FileListFile()}
	if log.FilePath() != "" {
		exclude = append(exclude, log.FilePath())
	}

	paths, err := corpus.ListFiles(ctx, corpusDir(args), exclude)
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}
	out, err := writer.WriteFileList(paths)
	if err != nil {
		return err
	}
	printKeyValues("files", strconv.Itoa(len(paths)), "report", out)
	return log.Close()
}

// PrintVersion prints version information
func PrintVersion(cmd *cobra.Command, args []string) {
	fmt.Printf("bytesleuth %s (%s, %s/%s)\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
