/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: formatter.go
Description: Custom log formatters for bytesleuth. Provides compact console output with
optional colors, sorted structured fields and scan-aware prefixes for fold, skip, hope,
resize and summary events.
*/

package logging

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// CustomFormatter provides structured console output
type CustomFormatter struct {
	Timestamp bool
	Caller    bool
	Colors    bool
}

// Format formats a log entry
func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var output strings.Builder
	f.writeHeader(&output, entry, "")
	output.WriteString(entry.Message)
	if len(entry.Data) > 0 {
		output.WriteString(" ")
		output.WriteString(f.formatFields(entry.Data, f.formatValue))
	}
	output.WriteString("\n")
	return []byte(output.String()), nil
}

// writeHeader writes timestamp, level, prefix and caller
func (f *CustomFormatter) writeHeader(out *strings.Builder, entry *logrus.Entry, prefix string) {
	if f.Timestamp {
		out.WriteString(f.paint(36, entry.Time.Format("2006-01-02 15:04:05.000")))
		out.WriteString(" ")
	}

	out.WriteString(f.paint(f.getLevelColor(entry.Level), strings.ToUpper(entry.Level.String())))
	out.WriteString(" ")

	if prefix != "" {
		out.WriteString(f.paint(35, "["+prefix+"]"))
		out.WriteString(" ")
	}

	if f.Caller && entry.HasCaller() {
		caller := fmt.Sprintf("[%s:%d]", filepath.Base(entry.Caller.File), entry.Caller.Line)
		out.WriteString(f.paint(33, caller))
		out.WriteString(" ")
	}
}

// paint wraps s in an ANSI color when colors are enabled
func (f *CustomFormatter) paint(color int, s string) string {
	if !f.Colors {
		return s
	}
	return fmt.Sprintf("\033[%dm%s\033[0m", color, s)
}

// getLevelColor returns the ANSI color code for a log level
func (f *CustomFormatter) getLevelColor(level logrus.Level) int {
	switch level {
	case logrus.InfoLevel:
		return 32 // Green
	case logrus.WarnLevel:
		return 33 // Yellow
	case logrus.ErrorLevel:
		return 31 // Red
	case logrus.FatalLevel, logrus.PanicLevel:
		return 35 // Magenta
	default:
		return 37 // White
	}
}

// formatFields renders fields sorted by key
func (f *CustomFormatter) formatFields(fields logrus.Fields, format func(string, interface{}) string) string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, f.paint(34, key)+"="+f.paint(32, format(key, fields[key])))
	}
	return strings.Join(parts, " ")
}

// formatValue formats a field value appropriately
func (f *CustomFormatter) formatValue(_ string, value interface{}) string {
	switch v := value.(type) {
	case time.Duration:
		return v.Round(time.Millisecond).String()
	case time.Time:
		return v.Format("15:04:05.000")
	case string:
		if len(v) > 60 {
			return "..." + v[len(v)-57:]
		}
		return v
	case []byte:
		if len(v) > 20 {
			return fmt.Sprintf("[%d bytes]", len(v))
		}
		return fmt.Sprintf("%x", v)
	case error:
		return v.Error()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ScanFormatter tags scan events with a short prefix
type ScanFormatter struct {
	CustomFormatter
}

// Format formats a log entry with its scan prefix
func (f *ScanFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var output strings.Builder
	f.writeHeader(&output, entry, scanPrefix(entry.Message))
	output.WriteString(entry.Message)
	if len(entry.Data) > 0 {
		output.WriteString(" ")
		output.WriteString(f.formatFields(entry.Data, f.formatScanValue))
	}
	output.WriteString("\n")
	return []byte(output.String()), nil
}

// scanPrefix returns a prefix based on the log message
func scanPrefix(message string) string {
	switch {
	case strings.HasPrefix(message, "File folded"):
		return "FOLD"
	case strings.HasPrefix(message, "File skipped"):
		return "SKIP"
	case strings.HasPrefix(message, "No hope"), strings.Contains(message, "hopes remain"):
		return "HOPE"
	case strings.HasPrefix(message, "Record size"):
		return "RESIZE"
	case strings.HasPrefix(message, "Run summary"):
		return "SUMMARY"
	default:
		return ""
	}
}

// formatScanValue shortens file paths and renders progress counters
func (f *ScanFormatter) formatScanValue(key string, value interface{}) string {
	switch key {
	case "file", "prev":
		if s, ok := value.(string); ok && s != "" {
			return filepath.Base(s)
		}
	case "folded":
		if n, ok := value.(int); ok {
			return fmt.Sprintf("#%d", n)
		}
	}
	return f.formatValue(key, value)
}
