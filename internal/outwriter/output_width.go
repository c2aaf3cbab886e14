package outwriter

import (
	"os"

	"github.com/huangsam/footfall/internal/contract"
	"golang.org/x/term"
)

// Bounds for the key column in table output.
const (
	minKeyWidth = 15
	maxKeyWidth = 40
)

// GetMaxTableKeyWidth calculates the maximum width for spatial keys in table output
// based on terminal width and the width taken by the other columns.
func GetMaxTableKeyWidth(cfg *contract.Config, otherColumns int) int {
	termWidth := cfg.Width
	if termWidth == 0 {
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Each column takes roughly 12 characters with borders and padding
	available := termWidth - otherColumns*12 - 4
	if available < minKeyWidth {
		return minKeyWidth
	}
	if available > maxKeyWidth {
		return maxKeyWidth
	}
	return available
}
