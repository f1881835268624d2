package analyzer

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

func usd(v float64) string {
	return "$" + humanize.Comma(int64(math.Round(v)))
}

func usdSigned(v float64) string {
	r := int64(math.Round(v))
	if r >= 0 {
		return "$+" + humanize.Comma(r)
	}
	return "$" + humanize.Comma(r)
}

// pct renders a fraction as a percentage with the given precision.
func pct(v float64, decimals int) string {
	return fmt.Sprintf("%.*f%%", decimals, v*100)
}

func writeSignals(b *strings.Builder, signals []string) {
	if len(signals) > 0 {
		b.WriteString("\nSignals: " + strings.Join(signals, "; "))
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
