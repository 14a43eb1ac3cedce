package services

import (
	"fmt"
	"math"
	"strings"
)

// FormatJPY formats an amount as whole yen with thousands separators,
// e.g. ¥1,234,567. Fractions are rounded half away from zero.
func FormatJPY(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}
	raw := fmt.Sprintf("%.0f", math.Round(amount))
	result := "¥" + applyThousandsGrouping(raw)
	if negative && raw != "0" {
		result = "-" + result
	}
	return result
}

// applyThousandsGrouping inserts commas every three digits from the right.
func applyThousandsGrouping(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	var b strings.Builder
	head := n % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatQty returns whole quantities without decimals and trims trailing
// zeros from fractional ones (2.5, 3.333).
func FormatQty(qty float64) string {
	if qty == math.Trunc(qty) {
		return fmt.Sprintf("%.0f", qty)
	}
	s := fmt.Sprintf("%.3f", qty)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
