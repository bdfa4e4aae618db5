/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utils.go
Description: Shared utilities for the bytesleuth commands. Provides configuration
loading, logging setup, corpus enumeration and the artifact plumbing (snapshots,
summaries, metrics) used across the scan commands.
*/

package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/kleascm/bytesleuth/pkg/core"
	"github.com/kleascm/bytesleuth/pkg/corpus"
	"github.com/kleascm/bytesleuth/pkg/interfaces"
	"github.com/kleascm/bytesleuth/pkg/logging"
	"github.com/kleascm/bytesleuth/pkg/monitoring"
	"github.com/kleascm/bytesleuth/pkg/reporting"
	"github.com/kleascm/bytesleuth/pkg/snapshot"
	"github.com/kleascm/bytesleuth/pkg/utils"
	"github.com/spf13/viper"
)

// Version is the bytesleuth release
const Version = "1.0.0"

// LoadConfig loads configuration from files and environment
func LoadConfig() error {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// BYTESLEUTH_SIGS_MAX_OFS sets sigs.max_ofs
	viper.SetEnvPrefix("BYTESLEUTH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	return nil
}

// SetupLogging creates the logger from the log_* settings
func SetupLogging() (*logging.Logger, error) {
	config := &logging.LoggerConfig{
		Level:     logging.LogLevel(viper.GetString("log_level")),
		Format:    logging.LogFormat(viper.GetString("log_format")),
		OutputDir: viper.GetString("log_dir"),
		MaxFiles:  viper.GetInt("log_max_files"),
		MaxSize:   viper.GetInt64("log_max_size"),
		Compress:  viper.GetBool("log_compress"),
		Timestamp: true,
		Colors:    stderrIsTerminal(),
	}
	if config.Level == "warning" {
		config.Level = logging.LogLevelWarning
	}
	logger, err := logging.NewLogger(config)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	return logger, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// corpusDir returns the directory argument, "." when absent
func corpusDir(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// normalizeExt lowercases ext and adds the leading dot
func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// parseByte reads a filler byte given as a number (0, 0x20, 255) or a single character
func parseByte(s string) (byte, error) {
	if s == "" {
		return 0, nil
	}
	if v, err := strconv.ParseUint(s, 0, 8); err == nil {
		return byte(v), nil
	}
	if len(s) == 1 {
		return s[0], nil
	}
	return 0, fmt.Errorf("filler %q is neither a byte value nor a single character", s)
}

// reportExt names the report after the configured extension, or else after the last file as spelled
func reportExt(configured string, lastFile string) string {
	if configured != "" {
		return configured
	}
	return filepath.Ext(lastFile)
}

// scanSession bundles what every corpus command needs
type scanSession struct {
	log     *logging.Logger
	writer  *reporting.Writer
	source  *corpus.FileSource
	sampler *monitoring.ResourceSampler
	ext     string
}

// newScanSession sets up logging, resource sampling and the report writer
func newScanSession() (*scanSession, error) {
	log, err := SetupLogging()
	if err != nil {
		return nil, err
	}
	sampler := monitoring.NewResourceSampler(time.Second, uint64(viper.GetInt64("heap_warn")), log.GetLogger())
	sampler.Start(context.Background())
	return &scanSession{
		log:     log,
		writer:  reporting.NewWriter(viper.GetString("output_dir"), log.GetLogger()),
		source:  corpus.NewFileSource(),
		sampler: sampler,
		ext:     normalizeExt(viper.GetString("ext")),
	}, nil
}

// close stops sampling and closes the logger
func (s *scanSession) close() error {
	s.sampler.Stop()
	return s.log.Close()
}

// enumerate lists the corpus below dir, leaving out our own reports
func (s *scanSession) enumerate(ctx context.Context, dir string) ([]interfaces.CorpusFile, error) {
	provider, err := corpus.ParseBaseOffset(viper.GetString("base_offset"))
	if err != nil {
		return nil, err
	}

	var exclude []string
	for _, key := range []string{"snapshot", "summary"} {
		if p := viper.GetString(key); p != "" {
			exclude = append(exclude, p)
		}
	}
	if s.log.FilePath() != "" {
		exclude = append(exclude, s.log.FilePath())
	}

	enum := corpus.NewEnumerator(corpus.Options{
		Extension:  s.ext,
		Dedupe:     viper.GetBool("dedupe"),
		Exclude:    exclude,
		BaseOffset: provider,
	}, s.log.GetLogger())

	printStep("Enumerating files...")
	files, err := enum.Enumerate(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate %s: %w", dir, err)
	}

	kept := files[:0]
	for _, f := range files {
		if !s.writer.IsReport(f.Path) {
			kept = append(kept, f)
		}
	}

	stats := enum.Stats()
	printKeyValues(
		"files", strconv.Itoa(len(kept)),
		"filtered", strconv.Itoa(stats.Filtered+len(files)-len(kept)),
		"duplicates", strconv.Itoa(stats.Duplicates),
		"failed", strconv.Itoa(stats.Failed),
	)
	return kept, nil
}

// newEngine creates an engine logging through the session
func (s *scanSession) newEngine(config *interfaces.ScanConfig) (*core.Engine, *progress) {
	engine := core.NewEngine(config, s.source)
	engine.SetLogger(s.log.GetLogger())
	engine.AddReporter(s.log)
	p := newProgress(os.Stderr)
	if p != nil {
		engine.AddReporter(p)
	}
	return engine, p
}

// scanOutcome sorts a scan error into stop, partial or fine
func scanOutcome(err error) (partial bool, fatal error) {
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, core.ErrCancelled):
		return true, nil
	default:
		return false, err
	}
}

// saveArtifacts writes the snapshot, summary and metrics requested by flags
func (s *scanSession) saveArtifacts(snap *snapshot.Snapshot, summary *reporting.Summary) error {
	usage := s.sampler.Stop()
	summary.Resources = &usage

	if path := viper.GetString("snapshot"); path != "" && snap != nil {
		codec, err := snapshot.ParseCodec(viper.GetString("snapshot_codec"))
		if err != nil {
			return err
		}
		if err := snapshot.SaveFile(path, snap, codec); err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}
		summary.Artifacts = append(summary.Artifacts, path)
		printKeyValues("snapshot", path)
	}

	if path := viper.GetString("summary"); path != "" {
		if err := reporting.WriteSummary(path, summary); err != nil {
			return err
		}
		printKeyValues("summary", path)
	}

	if dir := viper.GetString("metrics_dir"); dir != "" {
		path, err := utils.WriteMetricsResult(dir, string(summary.Mode), Version, summary)
		if err != nil {
			return err
		}
		printKeyValues("metrics", path)
	}
	return nil
}

// finish logs the run summary and closes the session
func (s *scanSession) finish(summary *reporting.Summary, stats core.ScanStats) error {
	fields := map[string]interface{}{
		"hope":      summary.Hope,
		"cancelled": summary.Cancelled,
	}
	if r := summary.Resources; r != nil {
		fields["peak_heap"] = r.PeakHeapAlloc
		fields["peak_goroutines"] = r.PeakGoroutines
	}
	s.log.LogSummary(string(summary.Mode), stats, fields)
	return s.close()
}
