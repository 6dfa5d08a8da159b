package utils

import (
	"fmt"
	"math"
	"strings"
)

// FormatMoney renders a currency amount with thousands separators and no
// cents: 400000 -> "$400,000".
func FormatMoney(v float64) string {
	neg := v < 0
	n := int64(math.Round(math.Abs(v)))

	s := fmt.Sprintf("%d", n)
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)

	out := "$" + strings.Join(parts, ",")
	if neg {
		out = "-" + out
	}
	return out
}

// FormatMoneyRange renders a money interval with either bound optional:
// "between $200,000 and $350,000", "up to $400,000", "from $150,000".
func FormatMoneyRange(min, max *float64) string {
	switch {
	case min != nil && max != nil:
		return fmt.Sprintf("between %s and %s", FormatMoney(*min), FormatMoney(*max))
	case max != nil:
		return "up to " + FormatMoney(*max)
	case min != nil:
		return "from " + FormatMoney(*min)
	default:
		return "flexible"
	}
}

// FormatCountRange renders a count interval: "3", "3+", "up to 2", "2-4".
func FormatCountRange(min, max *float64) string {
	trim := func(v float64) string {
		s := fmt.Sprintf("%.1f", v)
		return strings.TrimSuffix(s, ".0")
	}
	switch {
	case min != nil && max != nil && *min == *max:
		return trim(*min)
	case min != nil && max != nil:
		return trim(*min) + "-" + trim(*max)
	case min != nil:
		return trim(*min) + "+"
	case max != nil:
		return "up to " + trim(*max)
	default:
		return "any"
	}
}
