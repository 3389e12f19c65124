package outwriter

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFormatter(t *testing.T) {
	tests := []struct {
		name      string
		precision int
		value     float64
		expected  string
	}{
		{"precision 1", 1, 72.46, "72.5"},
		{"precision 0", 0, 72.46, "72"},
		{"precision 3", 3, 72.46, "72.460"},
		{"negative value", 2, -4.567, "-4.57"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, createFormatter(tt.precision)(tt.value))
		})
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, map[string]any{"area_code": "E14", "rank": 1}))
	assert.Equal(t, "{\n  \"area_code\": \"E14\",\n  \"rank\": 1\n}\n", buf.String())

	err := writeJSON(&buf, make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to encode JSON")
}

func TestWriteCSVWithHeader(t *testing.T) {
	tests := []struct {
		name     string
		rows     [][]string
		expected string
	}{
		{
			name:     "rows",
			rows:     [][]string{{"1", "E14"}, {"2", "SE15"}},
			expected: "rank,area_code\n1,E14\n2,SE15\n",
		},
		{
			name:     "header only",
			expected: "rank,area_code\n",
		},
		{
			name:     "quoted values",
			rows:     [][]string{{"1", "Canary Wharf, E14"}},
			expected: "rank,area_code\n1,\"Canary Wharf, E14\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := writeCSVWithHeader(&buf, []string{"rank", "area_code"}, func(w *csv.Writer) error {
				return w.WriteAll(tt.rows)
			})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, buf.String())
		})
	}

	t.Run("row error propagates", func(t *testing.T) {
		err := writeCSVWithHeader(io.Discard, []string{"rank"}, func(*csv.Writer) error {
			return assert.AnError
		})
		assert.Equal(t, assert.AnError, err)
	})
}

func TestWriteWithFile(t *testing.T) {
	t.Run("stdout", func(t *testing.T) {
		called := false
		err := writeWithFile("", func(io.Writer) error {
			called = true
			return nil
		}, "Wrote text")
		require.NoError(t, err)
		assert.True(t, called)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ranking.txt")
		err := writeWithFile(path, func(w io.Writer) error {
			_, err := io.WriteString(w, "ranking")
			return err
		}, "Wrote text")
		require.NoError(t, err)

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "ranking", string(content))
	})

	t.Run("writer error", func(t *testing.T) {
		err := writeWithFile(filepath.Join(t.TempDir(), "x.txt"), func(io.Writer) error {
			return assert.AnError
		}, "Wrote text")
		assert.Equal(t, assert.AnError, err)
	})

	t.Run("invalid path", func(t *testing.T) {
		err := writeWithFile("/nonexistent/dir/ranking.txt", func(io.Writer) error { return nil }, "Wrote text")
		assert.Error(t, err)
	})
}
