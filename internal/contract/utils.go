package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/placewise/internal/logging"
	"github.com/huangsam/placewise/schema"
)

// Score label constants.
const (
	ExcellentValue = "Excellent"
	GoodValue      = "Good"
	FairValue      = "Fair"
	PoorValue      = "Poor"
)

// Color variables for console output.
var (
	ExcellentColor = color.New(color.FgGreen, color.Bold)
	GoodColor      = color.New(color.FgCyan)
	FairColor      = color.New(color.FgYellow)
	PoorColor      = color.New(color.FgRed, color.Bold)
)

// GetPlainLabel returns a plain text label for a 0-100 score. This is the
// core logic used for CSV, JSON, and table printing.
func GetPlainLabel(score float64) string {
	switch {
	case score >= 80:
		return ExcellentValue
	case score >= 60:
		return GoodValue
	case score >= 40:
		return FairValue
	default:
		return PoorValue
	}
}

// GetColorLabel returns a colored text label for console output (table).
func GetColorLabel(score float64) string {
	text := GetPlainLabel(score)

	switch text {
	case ExcellentValue:
		return ExcellentColor.Sprint(text)
	case GoodValue:
		return GoodColor.Sprint(text)
	case FairValue:
		return FairColor.Sprint(text)
	default:
		return PoorColor.Sprint(text)
	}
}

// SelectOutputFile returns the file handle for output, or os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	logging.Error().Err(err).Msg("fatal " + msg)
	os.Exit(1)
}

// LogWarn logs a warning.
func LogWarn(msg string, err error) {
	logging.Warn().Err(err).Msg(msg)
}

func homePath(name string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(homeDir, name)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for cache storage.
func GetCacheDBFilePath() string {
	return homePath(".placewise_cache.db")
}

// GetHistoryDBFilePath returns the path to the SQLite DB file for run history.
func GetHistoryDBFilePath() string {
	return homePath(".placewise_history.db")
}

// GetCacheDirPath returns the directory of the file cache backend.
func GetCacheDirPath() string {
	return homePath(filepath.Join(".placewise", "cache"))
}

// GetBadgerDirPath returns the directory of the badger cache backend.
func GetBadgerDirPath() string {
	return homePath(filepath.Join(".placewise", "badger"))
}

// TruncateText shortens text to maxWidth runes with an ellipsis suffix.
// maxWidth must leave room for the ellipsis and one character.
func TruncateText(text string, maxWidth int) string {
	runes := []rune(text)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return text
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}

// ParseImportanceString parses "safety:9,schools:7" into importance ratings.
func ParseImportanceString(s string) (map[schema.Factor]float64, error) {
	out := make(map[schema.Factor]float64)
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("invalid importance '%s', expected 'factor:rating'", part)
		}
		factor := schema.Factor(strings.ToLower(strings.TrimSpace(name)))
		if _, known := schema.ValidFactors[factor]; !known {
			return nil, fmt.Errorf("unknown factor '%s'", name)
		}
		rating, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid rating '%s' for %s: %w", value, factor, err)
		}
		out[factor] = rating
	}
	return out, nil
}
