/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: metrics_writer.go
Description: Utility for writing run results to a metrics directory.
Handles timestamped, versioned and mode-specific subdirectory naming
so repeated scans of a corpus can be compared over time.
*/

package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// WriteMetricsResult writes result as JSON to <dir>/<mode>/<timestamp>_<mode>_v<version>.json
func WriteMetricsResult(dir, mode, version string, result interface{}) (string, error) {
	if dir == "" {
		dir = "metrics"
	}
	modeDir := filepath.Join(dir, mode)
	if err := os.MkdirAll(modeDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create metrics directory: %w", err)
	}

	// 2026-06-11_01-30-00.000_sigs_v1.0.0.json
	timestamp := time.Now().Format("2006-01-02_15-04-05.000")
	path := filepath.Join(modeDir, fmt.Sprintf("%s_%s_v%s.json", timestamp, mode, version))

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write metrics file: %w", err)
	}
	return path, nil
}
