/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: text.go
Description: Line formats of the text reports. Signature lines, range rows, signature
variant groups and plain file lists, written to any io.Writer.
*/

package reporting

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/kleascm/bytesleuth/pkg/core"
	"github.com/kleascm/bytesleuth/pkg/signature"
	"github.com/kleascm/bytesleuth/pkg/sigwars"
)

// SignatureLine renders one signature run as "<sig>, 0x<ofs>" or "<sig>, base+0x<ofs>"
func SignatureLine(run core.SignatureRun, hasBase bool, ansiMin int) string {
	sig := signature.Encode(run.Bytes, ansiMin)
	if hasBase {
		return fmt.Sprintf("%s, base+0x%02X", sig, run.Start)
	}
	return fmt.Sprintf("%s, 0x%02X", sig, run.Start)
}

// FormatSignatures writes one line per reported signature run
func FormatSignatures(w io.Writer, res *core.SignatureResult, ansiMin int) error {
	bw := bufio.NewWriter(w)
	for _, run := range res.Extraction.Runs {
		fmt.Fprintln(bw, SignatureLine(run, res.HasBase, ansiMin))
	}
	return bw.Flush()
}

// RangeHeader returns the two header lines of a range report
func RangeHeader(ext string, signed bool) string {
	columns := "ofs   range  not-mask (possible values)"
	if signed {
		columns = "ofs   range (possible values)"
	}
	return fmt.Sprintf("   Ranges detected for %s\n%s\n", ext, columns)
}

// RangeLine renders one range row
func RangeLine(row core.RangeRow, signed bool) string {
	values := make([]string, len(row.Observed))
	if signed {
		for i, v := range row.Observed {
			values[i] = fmt.Sprintf("%d", v)
		}
		return fmt.Sprintf("%04X: %d..%d (%s)", row.Offset, row.Min, row.Max, strings.Join(values, ","))
	}
	for i, v := range row.Observed {
		values[i] = fmt.Sprintf("%02X", v)
	}
	return fmt.Sprintf("%04X: %02X-%02X, ~%02X (%s)", row.Offset, row.Min, row.Max, row.NotMask, strings.Join(values, ","))
}

// FormatRanges writes the header, one line per row and the layout trailer
func FormatRanges(w io.Writer, res *core.RangeResult, ext string) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(RangeHeader(ext, res.Signed))
	for _, row := range res.Rows {
		fmt.Fprintln(bw, RangeLine(row, res.Signed))
	}
	if res.SizeRange.Set && res.ItemsRange.Set {
		fmt.Fprintf(bw, "structure size: %d..%d, items: %d..%d\n",
			res.SizeRange.Min, res.SizeRange.Max, res.ItemsRange.Min, res.ItemsRange.Max)
	}
	return bw.Flush()
}

// FormatSigwars writes every variant followed by the files carrying it
func FormatSigwars(w io.Writer, groups []sigwars.Group) error {
	bw := bufio.NewWriter(w)
	for _, g := range groups {
		fmt.Fprintf(bw, "%s\n  - %s\n\n", g.Signature, strings.Join(g.Files, ", "))
	}
	return bw.Flush()
}

// FormatFileList writes one path per line
func FormatFileList(w io.Writer, paths []string) error {
	bw := bufio.NewWriter(w)
	for _, p := range paths {
		bw.WriteString(p)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
