package pricing

import (
	"fmt"
	"math"
	"strconv"
)

// MarginCheck is the margin guard's verdict. It is a pure predicate plus
// a diagnostic message; retries and fallback policy belong to the caller.
type MarginCheck struct {
	MarginPercent float64
	Viable        bool
	Reason        string
}

// CheckMargin validates the total against the minimum-margin floor.
// A zero total is non-viable with a -Inf margin sentinel rather than an
// error, since it is a legitimate business outcome the caller must
// handle.
func CheckMargin(total Money, qty int, cost Money, minMarginPercent float64, tierLabel string) MarginCheck {
	if total == 0 {
		return MarginCheck{
			MarginPercent: math.Inf(-1),
			Viable:        false,
			Reason:        "zero-total order",
		}
	}
	margin := (float64(total) - float64(qty)*float64(cost)) / float64(total) * 100
	if margin >= minMarginPercent {
		return MarginCheck{
			MarginPercent: margin,
			Viable:        true,
			Reason:        fmt.Sprintf("%s priced at %.1f%% margin (floor %s%%)", tierLabel, margin, formatPercent(minMarginPercent)),
		}
	}
	return MarginCheck{
		MarginPercent: margin,
		Viable:        false,
		Reason:        fmt.Sprintf("%s margin %.1f%% below required %s%% floor", tierLabel, margin, formatPercent(minMarginPercent)),
	}
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
