/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: writer.go
Description: Report file writer. Places the text reports and binary artifacts of a
scan in the output directory with their conventional names and encodings: code page
437 for signature and range reports, UTF-8 with BOM for file name listings.
*/

package reporting

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kleascm/bytesleuth/pkg/core"
	"github.com/kleascm/bytesleuth/pkg/sigwars"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// FileListName is the name of the file list report
const FileListName = "filelist.txt"

// Writer writes reports into one output directory
type Writer struct {
	outputDir string
	logger    *logrus.Logger
}

// NewWriter creates a new report writer
func NewWriter(outputDir string, logger *logrus.Logger) *Writer {
	if outputDir == "" {
		outputDir = "."
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Writer{outputDir: outputDir, logger: logger}
}

// SignatureArtifacts names the files written for a signature scan
type SignatureArtifacts struct {
	Text    string `json:"text" yaml:"text"`
	Binary  string `json:"binary" yaml:"binary"`
	Matches string `json:"matches" yaml:"matches"`
}

// Paths returns the artifact paths
func (a *SignatureArtifacts) Paths() []string {
	return []string{a.Text, a.Binary, a.Matches}
}

// SignatureFiles returns the artifact paths a signature scan of ext produces
func (w *Writer) SignatureFiles(ext string) *SignatureArtifacts {
	base := filepath.Join(w.outputDir, "findsigs"+ext)
	return &SignatureArtifacts{Text: base + ".txt", Binary: base + ".bin", Matches: base + ".matches"}
}

// RangeFile returns the report path of a range scan of ext
func (w *Writer) RangeFile(ext string) string {
	return filepath.Join(w.outputDir, "findranges"+ext+".txt")
}

// SigwarsFile returns the report path of a sigwars run over ext
func (w *Writer) SigwarsFile(ext string) string {
	return filepath.Join(w.outputDir, "sigwars"+ext+".txt")
}

// FileListFile returns the file list path
func (w *Writer) FileListFile() string {
	return filepath.Join(w.outputDir, FileListName)
}

// reportPrefixes are the base name prefixes of generated reports
var reportPrefixes = []string{"findsigs", "findranges", "sigwars"}

// IsReport reports whether path names a report this writer produces,
// so a corpus below the output directory can leave them out.
func (w *Writer) IsReport(path string) bool {
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return false
	}
	out, err := filepath.Abs(w.outputDir)
	if err != nil || dir != out {
		return false
	}
	name := filepath.Base(path)
	if name == FileListName {
		return true
	}
	for _, prefix := range reportPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// WriteSignatures writes the signature list, the redacted reference and the match markers
func (w *Writer) WriteSignatures(res *core.SignatureResult, ext string, ansiMin int) (*SignatureArtifacts, error) {
	out := w.SignatureFiles(ext)
	if err := w.writeEncoded(out.Text, cp437(), func(f io.Writer) error {
		return FormatSignatures(f, res, ansiMin)
	}); err != nil {
		return nil, err
	}
	if err := w.writeRaw(out.Binary, res.Extraction.Redacted); err != nil {
		return nil, err
	}
	if err := w.writeRaw(out.Matches, res.Extraction.Matches); err != nil {
		return nil, err
	}

	w.logger.WithFields(logrus.Fields{
		"report":     out.Text,
		"signatures": len(res.Extraction.Runs),
		"bytes":      len(res.Extraction.Redacted),
	}).Info("Signature report written")
	return out, nil
}

// WriteRanges writes the range report
func (w *Writer) WriteRanges(res *core.RangeResult, ext string) (string, error) {
	path := w.RangeFile(ext)
	if err := w.writeEncoded(path, cp437(), func(f io.Writer) error {
		return FormatRanges(f, res, ext)
	}); err != nil {
		return "", err
	}
	w.logger.WithFields(logrus.Fields{"report": path, "rows": len(res.Rows)}).Info("Range report written")
	return path, nil
}

// WriteSigwars writes the signature variant report
func (w *Writer) WriteSigwars(groups []sigwars.Group, ext string) (string, error) {
	path := w.SigwarsFile(ext)
	if err := w.writeEncoded(path, unicode.UTF8BOM.NewEncoder(), func(f io.Writer) error {
		return FormatSigwars(f, groups)
	}); err != nil {
		return "", err
	}
	w.logger.WithFields(logrus.Fields{"report": path, "variants": len(groups)}).Info("Signature variant report written")
	return path, nil
}

// WriteFileList writes the file list
func (w *Writer) WriteFileList(paths []string) (string, error) {
	path := w.FileListFile()
	if err := w.writeEncoded(path, unicode.UTF8BOM.NewEncoder(), func(f io.Writer) error {
		return FormatFileList(f, paths)
	}); err != nil {
		return "", err
	}
	w.logger.WithFields(logrus.Fields{"report": path, "files": len(paths)}).Info("File list written")
	return path, nil
}

// cp437 encodes text for DOS code page 437, unmappable runes are substituted
func cp437() transform.Transformer {
	return encoding.ReplaceUnsupported(charmap.CodePage437.NewEncoder())
}

// writeEncoded runs fill against path through the given encoder
func (w *Writer) writeEncoded(path string, enc transform.Transformer, fill func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	defer f.Close()

	tw := transform.NewWriter(f, enc)
	if err := fill(tw); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// writeRaw writes bytes as they are
func (w *Writer) writeRaw(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
