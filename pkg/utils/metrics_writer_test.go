/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: metrics_writer_test.go
Description: Tests for the metrics result writer.
*/

package utils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteMetricsResult(t *testing.T) {
	dir := t.TempDir()
	result := map[string]interface{}{"hope": 12, "mode": "sigs"}

	path, err := WriteMetricsResult(dir, "sigs", "1.0.0", result)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "sigs"), filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, "_sigs_v1.0.0.json"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var back map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &back))
	assert.EqualValues(t, 12, back["hope"])
}

func TestWriteMetricsResultBadValue(t *testing.T) {
	_, err := WriteMetricsResult(t.TempDir(), "ranges", "1.0.0", map[string]interface{}{"f": func() {}})
	assert.Error(t, err)
}
