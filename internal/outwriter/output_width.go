package outwriter

import (
	"os"

	"github.com/huangsam/placewise/internal/contract"
	"golang.org/x/term"
)

// getTerminalWidth returns the --width override, the detected terminal width or 80.
func getTerminalWidth(cfg *contract.Config) int {
	if cfg.Width > 0 {
		return cfg.Width
	}
	detected, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || detected <= 0 {
		return 80 // Conservative default for narrow terminals and CI
	}
	return detected
}

// getMaxTextWidth calculates the width of the free-text trade-off column
// based on terminal width and the other columns in the ranking table.
func getMaxTextWidth(cfg *contract.Config, factorColumns int) int {
	baseWidth := 40 // Rank + Area + Score + Label + Strengths with borders/padding

	if cfg.Detail {
		baseWidth += 8 * factorColumns
	}
	baseWidth += 10 // table borders and separators

	available := getTerminalWidth(cfg) - baseWidth
	if available < 20 {
		return 20
	}
	if available > 60 {
		return 60
	}
	return available
}
