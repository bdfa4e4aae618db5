/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: reporting_test.go
Description: Tests for report line formats, file encodings and run summaries.
*/

package reporting_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/kleascm/bytesleuth/pkg/core"
	"github.com/kleascm/bytesleuth/pkg/reporting"
	"github.com/kleascm/bytesleuth/pkg/sigwars"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func signatureResult(hasBase bool) *core.SignatureResult {
	table := core.NewEqualityTable(8)
	table.Fold([]byte{0xAA, 0x42, 0x00, 0x01, 0xFF, 0x42, 0x42, 0x00})
	table.Fold([]byte{0xAA, 0x42, 0x11, 0x01, 0xFF, 0x43, 0x42, 0x00})
	table.Fold([]byte{0xAA, 0x42, 0x22, 0x01, 0xFF, 0x44, 0x42, 0x00})
	return &core.SignatureResult{
		Table:      table,
		Extraction: core.ExtractRuns(table, core.RunOptions{SigAtLeast: 2}),
		WindowSize: 8,
		HasBase:    hasBase,
		Stats:      core.ScanStats{RunID: "r1", FilesTotal: 3, FilesFolded: 3},
	}
}

func rangeResult(signed bool) *core.RangeResult {
	table := core.NewRangeTable(2, signed)
	table.Fold([]byte{0xAA, 0x00}, 2, 1)
	table.Fold([]byte{0xAA, 0x11}, 2, 1)
	table.Fold([]byte{0xAA, 0xF2}, 2, 1)
	res := &core.RangeResult{Table: table, Rows: table.Rows(0x10), BaseOfs: 0x10, Signed: signed}
	res.SizeRange.Observe(2)
	res.ItemsRange.Observe(1)
	res.ItemsRange.Observe(4)
	return res
}

func TestFormatSignatures(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, reporting.FormatSignatures(&buf, signatureResult(false), 2))
	assert.Equal(t, "\"AA42\", 0x00\n\"01FF\", 0x03\n\"4200\", 0x06\n", buf.String())

	buf.Reset()
	require.NoError(t, reporting.FormatSignatures(&buf, signatureResult(true), 2))
	assert.Equal(t, "\"AA42\", base+0x00\n\"01FF\", base+0x03\n\"4200\", base+0x06\n", buf.String())
}

func TestSignatureLineText(t *testing.T) {
	run := core.SignatureRun{Start: 0x1234, Bytes: []byte("RIFF")}
	assert.Equal(t, `"'RIFF'", 0x1234`, reporting.SignatureLine(run, false, 2))
}

func TestFormatRangesUnsigned(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, reporting.FormatRanges(&buf, rangeResult(false), ".mod"))
	want := "   Ranges detected for .mod\n" +
		"ofs   range  not-mask (possible values)\n" +
		"0010: AA-AA, ~55 (AA)\n" +
		"0011: 00-F2, ~0C (00,11,F2)\n" +
		"structure size: 2..2, items: 1..4\n"
	assert.Equal(t, want, buf.String())
}

func TestFormatRangesSigned(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, reporting.FormatRanges(&buf, rangeResult(true), ".mod"))
	want := "   Ranges detected for .mod\n" +
		"ofs   range (possible values)\n" +
		"0010: -86..-86 (-86)\n" +
		"0011: -14..17 (-14,0,17)\n" +
		"structure size: 2..2, items: 1..4\n"
	assert.Equal(t, want, buf.String())
}

func TestFormatSigwars(t *testing.T) {
	groups := []sigwars.Group{
		{Signature: `"'MED0'"`, Files: []string{"file 1.med", "file 3.med"}},
		{Signature: `"'MMD3'"`, Files: []string{"file 0.med"}},
	}
	var buf bytes.Buffer
	require.NoError(t, reporting.FormatSigwars(&buf, groups))
	assert.Equal(t, "\"'MED0'\"\n  - file 1.med, file 3.med\n\n\"'MMD3'\"\n  - file 0.med\n\n", buf.String())
}

func TestWriterSignatures(t *testing.T) {
	dir := t.TempDir()
	w := reporting.NewWriter(dir, quietLogger())

	out, err := w.WriteSignatures(signatureResult(false), ".bin", 2)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "findsigs.bin.txt"), out.Text)

	bin, err := os.ReadFile(out.Binary)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0x42, 0x00, 0x01, 0xFF, 0x00, 0x42, 0x00}, bin)

	matches, err := os.ReadFile(out.Matches)
	require.NoError(t, err)
	assert.Equal(t, "xx.xx.xx", string(matches))

	text, err := os.ReadFile(out.Text)
	require.NoError(t, err)
	assert.Equal(t, "\"AA42\", 0x00\n\"01FF\", 0x03\n\"4200\", 0x06\n", string(text))
}

func TestWriterRangesCodePage(t *testing.T) {
	dir := t.TempDir()
	w := reporting.NewWriter(dir, quietLogger())

	path, err := w.WriteRanges(rangeResult(false), ".mod")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "findranges.mod.txt"), path)

	// CP437 keeps ASCII as is and substitutes unmappable runes
	path, err = w.WriteRanges(rangeResult(false), ".é€")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("   Ranges detected for .\x82")))
}

func TestWriterBOM(t *testing.T) {
	dir := t.TempDir()
	w := reporting.NewWriter(dir, quietLogger())

	path, err := w.WriteFileList([]string{"./a.txt", "./sub/ß.txt"})
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\xEF\xBB\xBF./a.txt\n./sub/ß.txt\n", string(data))

	path, err = w.WriteSigwars([]sigwars.Group{{Signature: `"00"`, Files: []string{"a"}}}, ".med")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sigwars.med.txt"), path)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\xEF\xBB\xBF\"00\"\n  - a\n\n", string(data))
}

func TestSummaryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "summary.yaml")

	s := reporting.SignatureSummary(signatureResult(false), ".bin", 2)
	s.Artifacts = []string{"findsigs.bin.txt"}
	require.NoError(t, reporting.WriteSummary(path, s))

	got, err := reporting.ReadSummary(path)
	require.NoError(t, err)
	assert.Equal(t, "r1", got.RunID)
	require.Len(t, got.Signatures, 3)
	assert.Equal(t, reporting.SignatureEntry{Offset: 3, Length: 2, Hex: "01FF", Signature: `"01FF"`}, got.Signatures[1])
	assert.Equal(t, 6, got.Explained)
	assert.Equal(t, []string{"findsigs.bin.txt"}, got.Artifacts)

	r := reporting.RangeSummary(rangeResult(false), ".mod")
	require.NotNil(t, r.ItemsRange)
	assert.Equal(t, 4, r.ItemsRange.Max)
	assert.Len(t, r.Ranges, 2)
}

func TestWriterIsReport(t *testing.T) {
	dir := t.TempDir()
	w := reporting.NewWriter(dir, quietLogger())

	assert.True(t, w.IsReport(w.SignatureFiles(".mod").Binary))
	assert.True(t, w.IsReport(w.RangeFile("")))
	assert.True(t, w.IsReport(filepath.Join(dir, reporting.FileListName)))
	assert.False(t, w.IsReport(filepath.Join(dir, "sample.mod")))
	assert.False(t, w.IsReport(filepath.Join(dir, "sub", "findsigs.txt")))
}
