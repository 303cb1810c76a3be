package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatCurrencyINR formats an amount in rupees with Indian digit grouping.
// Whole amounts drop the paise: 263 -> "₹263", 123456.5 -> "₹1,23,456.50".
func FormatCurrencyINR(amount float64) string {
	d := decimal.NewFromFloat(amount).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}

	whole := d.Truncate(0)
	paise := d.Sub(whole)

	integerPart := groupIndian(whole.String())
	if paise.IsZero() {
		return sign + "₹" + integerPart
	}
	frac := paise.StringFixed(2)
	return sign + "₹" + integerPart + frac[strings.Index(frac, "."):]
}

// groupIndian inserts separators after the last three digits, then every two.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}
