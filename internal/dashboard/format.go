package dashboard

import (
	"math"
	"strconv"
	"strings"
)

// DefaultCurrencyPrefix is prepended to formatted balances
const DefaultCurrencyPrefix = "RM"

// ShortForm renders a chart label: millions with one decimal and an "m",
// thousands rounded with a "k", smaller values as a truncated integer. A
// trailing ".0" on millions is dropped. NaN and infinities yield "".
func ShortForm(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}

	switch {
	case v >= 1_000_000:
		s := strconv.FormatFloat(v/1_000_000, 'f', 1, 64)
		return strings.TrimSuffix(s, ".0") + "m"
	case v >= 1_000:
		return strconv.FormatFloat(v/1_000, 'f', 0, 64) + "k"
	default:
		return strconv.FormatInt(int64(v), 10)
	}
}

// FormatCurrency renders a balance the way the detail table shows it,
// e.g. "RM 30,960.00"
func FormatCurrency(v float64) string {
	return FormatMoney(DefaultCurrencyPrefix, v)
}

// FormatMoney renders v with two decimals, thousands separators and prefix
func FormatMoney(prefix string, v float64) string {
	number := FormatNumber(v, 2)
	if prefix == "" {
		return number
	}
	return prefix + " " + number
}

// FormatNumber renders v with the given decimals and comma thousands
// separators
func FormatNumber(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', decimals, 64)
	}

	s := strconv.FormatFloat(v, 'f', decimals, 64)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	intPart, fracPart := s, ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		intPart, fracPart = s[:dot], s[dot:]
	}

	return sign + groupThousands(intPart) + fracPart
}

// FormatCount renders an integer with comma thousands separators
func FormatCount(n int) string {
	s := strconv.Itoa(n)
	if n < 0 {
		return "-" + groupThousands(s[1:])
	}
	return groupThousands(s)
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
