/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main.go
Description: Command-line interface for bytesleuth. Wires the corpus scans (signatures,
value ranges, signature variants), the pointer finder, snapshot merging and file listing
into cobra commands with viper-backed configuration.
*/

package main

import (
	"fmt"
	"os"

	"github.com/kleascm/bytesleuth/cmd/bytesleuth/commands"
	"github.com/kleascm/bytesleuth/pkg/interfaces"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Configuration
	configFile string

	// Logging configuration
	logLevel    string
	logDir      string
	logFormat   string
	logMaxFiles int
	logMaxSize  int64
	logCompress bool

	// Corpus and output configuration
	extension     string
	outputDir     string
	metricsDir    string
	workers       int
	dedupe        bool
	baseOffset    string
	keepPartial   bool
	snapshotPath  string
	snapshotCodec string
	summaryPath   string
	heapWarn      int64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bytesleuth",
		Short: "bytesleuth - byte-level structure discovery across file corpora",
		Long: `bytesleuth folds a corpus of files of one unknown format into per-offset
statistics. It reports the byte runs every file shares (format signatures), the value
ranges seen at each offset of a record, and which signature variants exist.`,
		Version:       commands.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return commands.LoadConfig()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Configuration file path (yaml, toml, json)")
	pf.StringVar(&logLevel, "log-level", "info", "Logging level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "scan", "Log format (text, json, custom, scan)")
	pf.StringVar(&logDir, "log-dir", "", "Log output directory, empty for console only")
	pf.IntVar(&logMaxFiles, "log-max-files", 10, "Maximum number of log files to keep")
	pf.Int64Var(&logMaxSize, "log-max-size", 100*1024*1024, "Maximum log file size in bytes")
	pf.BoolVar(&logCompress, "log-compress", false, "Compress rotated log files")

	pf.StringVar(&extension, "ext", "", "Only scan files with this extension (\".mod\"), empty for any")
	pf.StringVar(&outputDir, "output-dir", ".", "Directory reports are written to")
	pf.StringVar(&metricsDir, "metrics-dir", "", "Also write a JSON run result below this directory")
	pf.IntVar(&workers, "workers", 1, "Parallel folders, 1 = sequential")
	pf.BoolVar(&dedupe, "dedupe", false, "Skip files whose content was already seen")
	pf.StringVar(&baseOffset, "base-offset", "none", "Per-file base offset (none, pe, field:<fmt>@<ofs>)")
	pf.BoolVar(&keepPartial, "keep-partial", false, "Write reports for interrupted scans")
	pf.StringVar(&snapshotPath, "snapshot", "", "Save the final table to this snapshot file")
	pf.StringVar(&snapshotCodec, "snapshot-codec", "zstd", "Snapshot compression (none, zstd, lz4)")
	pf.StringVar(&summaryPath, "summary", "", "Write a YAML run summary to this file")
	pf.Int64Var(&heapWarn, "heap-warn", 2<<30, "Warn when the heap grows past this many bytes, 0 to disable")

	viper.BindPFlag("config", pf.Lookup("config"))
	viper.BindPFlag("log_level", pf.Lookup("log-level"))
	viper.BindPFlag("log_format", pf.Lookup("log-format"))
	viper.BindPFlag("log_dir", pf.Lookup("log-dir"))
	viper.BindPFlag("log_max_files", pf.Lookup("log-max-files"))
	viper.BindPFlag("log_max_size", pf.Lookup("log-max-size"))
	viper.BindPFlag("log_compress", pf.Lookup("log-compress"))
	viper.BindPFlag("ext", pf.Lookup("ext"))
	viper.BindPFlag("output_dir", pf.Lookup("output-dir"))
	viper.BindPFlag("metrics_dir", pf.Lookup("metrics-dir"))
	viper.BindPFlag("workers", pf.Lookup("workers"))
	viper.BindPFlag("dedupe", pf.Lookup("dedupe"))
	viper.BindPFlag("base_offset", pf.Lookup("base-offset"))
	viper.BindPFlag("keep_partial", pf.Lookup("keep-partial"))
	viper.BindPFlag("snapshot", pf.Lookup("snapshot"))
	viper.BindPFlag("snapshot_codec", pf.Lookup("snapshot-codec"))
	viper.BindPFlag("summary", pf.Lookup("summary"))
	viper.BindPFlag("heap_warn", pf.Lookup("heap-warn"))

	// Signature search
	sigsCmd := &cobra.Command{
		Use:   "sigs [dir]",
		Short: "Find byte runs shared by every file of a corpus",
		Long: `Compare the files below dir byte by byte from their base offset and report every
run of identical bytes as a Detect-It-Easy signature. Writes findsigs<ext>.txt, the
redacted reference findsigs<ext>.bin and the match mask findsigs<ext>.matches.`,
		Args: cobra.MaximumNArgs(1),
		RunE: commands.RunSigs,
	}
	sigsCmd.Flags().Int64("max-ofs", interfaces.DefaultSignatureMaxOfs, "Maximum offset to look at for matches")
	sigsCmd.Flags().Int("sig-at-least", interfaces.DefaultSigAtLeast, "Minimum length of a reported run")
	sigsCmd.Flags().Bool("all-zeroes-good", false, "Report runs made only of the filler byte")
	sigsCmd.Flags().String("zero-out-with", "0", "Filler for mismatching offsets, a number or a character")
	sigsCmd.Flags().Int("ansi-min", interfaces.DefaultAnsiMin, "Shortest printable run rendered as text")
	viper.BindPFlag("sigs.max_ofs", sigsCmd.Flags().Lookup("max-ofs"))
	viper.BindPFlag("sigs.sig_at_least", sigsCmd.Flags().Lookup("sig-at-least"))
	viper.BindPFlag("sigs.all_zeroes_good", sigsCmd.Flags().Lookup("all-zeroes-good"))
	viper.BindPFlag("sigs.zero_out_with", sigsCmd.Flags().Lookup("zero-out-with"))
	viper.BindPFlag("sigs.ansi_min", sigsCmd.Flags().Lookup("ansi-min"))
	rootCmd.AddCommand(sigsCmd)

	// Range search
	rangesCmd := &cobra.Command{
		Use:   "ranges [dir]",
		Short: "Report the value range of every offset of a record",
		Long: `Pool the bytes of Items records of Sz bytes starting at min-ofs across all files
below dir and report, for every offset, the smallest and largest value seen. Offsets that
saw every possible value are left out. Writes findranges<ext>.txt.`,
		Args: cobra.MaximumNArgs(1),
		RunE: commands.RunRanges,
	}
	rangesCmd.Flags().Int64("min-ofs", 0, "First offset looked at")
	rangesCmd.Flags().Int64("max-ofs", interfaces.DefaultRangeMaxOfs, "Offset looking stops before")
	rangesCmd.Flags().Int("size", 0, "Record size in bytes, 0 = max-ofs - min-ofs")
	rangesCmd.Flags().Int("items", 1, "Number of records")
	rangesCmd.Flags().Bool("signed", false, "Treat bytes as signed values")
	rangesCmd.Flags().String("items-from", "", "Read the record count per file from a field (<H@0x20)")
	rangesCmd.Flags().String("size-from", "", "Read the record size per file from a field")
	rangesCmd.Flags().String("base-from", "", "Read the record start per file from a field, added to min-ofs")
	viper.BindPFlag("ranges.min_ofs", rangesCmd.Flags().Lookup("min-ofs"))
	viper.BindPFlag("ranges.max_ofs", rangesCmd.Flags().Lookup("max-ofs"))
	viper.BindPFlag("ranges.size", rangesCmd.Flags().Lookup("size"))
	viper.BindPFlag("ranges.items", rangesCmd.Flags().Lookup("items"))
	viper.BindPFlag("ranges.signed", rangesCmd.Flags().Lookup("signed"))
	viper.BindPFlag("ranges.items_from", rangesCmd.Flags().Lookup("items-from"))
	viper.BindPFlag("ranges.size_from", rangesCmd.Flags().Lookup("size-from"))
	viper.BindPFlag("ranges.base_from", rangesCmd.Flags().Lookup("base-from"))
	rootCmd.AddCommand(rangesCmd)

	// Signature variants
	sigwarsCmd := &cobra.Command{
		Use:   "sigwars [dir]",
		Short: "Group files by the signature of one window",
		Long: `Read size bytes at ofs from every file below dir and group the files by the
resulting signature. Writes sigwars<ext>.txt listing each variant with its files.`,
		Args: cobra.MaximumNArgs(1),
		RunE: commands.RunSigwars,
	}
	sigwarsCmd.Flags().Int64("ofs", 0, "Window offset")
	sigwarsCmd.Flags().Int("size", 4, "Window size in bytes")
	sigwarsCmd.Flags().Int("ansi-min", interfaces.DefaultAnsiMin, "Shortest printable run rendered as text")
	viper.BindPFlag("sigwars.ofs", sigwarsCmd.Flags().Lookup("ofs"))
	viper.BindPFlag("sigwars.size", sigwarsCmd.Flags().Lookup("size"))
	viper.BindPFlag("sigwars.ansi_min", sigwarsCmd.Flags().Lookup("ansi-min"))
	rootCmd.AddCommand(sigwarsCmd)

	// Pointer search
	ptrsCmd := &cobra.Command{
		Use:   "ptrs <file>",
		Short: "Find pointers to an offset inside one file",
		Long: `Scan a file for values that point at data-at, absolutely or relative to their
own position, accepting pointers off by up to jitter bytes.`,
		Args: cobra.ExactArgs(1),
		RunE: commands.RunPtrs,
	}
	ptrsCmd.Flags().String("format", "<L", "Pointer format: endianness and type (<L, >H, <q)")
	ptrsCmd.Flags().Int64("data-at", 0, "Offset the pointers lead to")
	ptrsCmd.Flags().Int64("from", -1, "First position checked, -1 for the file start")
	ptrsCmd.Flags().Int64("to", -1, "Position checking stops before, -1 for the file end")
	ptrsCmd.Flags().Int64("jitter", 0, "Accepted pointer error in bytes")
	ptrsCmd.Flags().Bool("relative", false, "Pointers are relative to their own position")
	ptrsCmd.MarkFlagRequired("data-at")
	viper.BindPFlag("ptrs.format", ptrsCmd.Flags().Lookup("format"))
	viper.BindPFlag("ptrs.data_at", ptrsCmd.Flags().Lookup("data-at"))
	viper.BindPFlag("ptrs.from", ptrsCmd.Flags().Lookup("from"))
	viper.BindPFlag("ptrs.to", ptrsCmd.Flags().Lookup("to"))
	viper.BindPFlag("ptrs.jitter", ptrsCmd.Flags().Lookup("jitter"))
	viper.BindPFlag("ptrs.relative", ptrsCmd.Flags().Lookup("relative"))
	rootCmd.AddCommand(ptrsCmd)

	// Snapshot merging
	mergeCmd := &cobra.Command{
		Use:   "merge <snapshot>...",
		Short: "Combine snapshots of corpus slices and render the report",
		Long: `Merge snapshots saved with --snapshot by scans of disjoint corpus slices with the
same settings, then write the report the combined corpus would have produced.`,
		Args: cobra.MinimumNArgs(1),
		RunE: commands.RunMerge,
	}
	mergeCmd.Flags().Int("sig-at-least", interfaces.DefaultSigAtLeast, "Minimum length of a reported run")
	mergeCmd.Flags().Bool("all-zeroes-good", false, "Report runs made only of the filler byte")
	mergeCmd.Flags().String("zero-out-with", "0", "Filler for mismatching offsets, a number or a character")
	mergeCmd.Flags().Int("ansi-min", interfaces.DefaultAnsiMin, "Shortest printable run rendered as text")
	viper.BindPFlag("merge.sig_at_least", mergeCmd.Flags().Lookup("sig-at-least"))
	viper.BindPFlag("merge.all_zeroes_good", mergeCmd.Flags().Lookup("all-zeroes-good"))
	viper.BindPFlag("merge.zero_out_with", mergeCmd.Flags().Lookup("zero-out-with"))
	viper.BindPFlag("merge.ansi_min", mergeCmd.Flags().Lookup("ansi-min"))
	rootCmd.AddCommand(mergeCmd)

	// File listing
	rootCmd.AddCommand(&cobra.Command{
		Use:   "filelist [dir]",
		Short: "List every file below a directory",
		Long:  `Write the relative paths of all files below dir to filelist.txt, one per line.`,
		Args:  cobra.MaximumNArgs(1),
		RunE:  commands.RunFileList,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run:   commands.PrintVersion,
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
