package pricing

import (
	"math"
	"strings"
	"testing"
)

func TestCheckMarginZeroTotal(t *testing.T) {
	check := CheckMargin(0, 10, 100, 15, "1-10")
	if check.Viable {
		t.Fatal("zero total must not be viable")
	}
	if !math.IsInf(check.MarginPercent, -1) {
		t.Fatalf("expected -Inf sentinel, got %v", check.MarginPercent)
	}
	if check.Reason != "zero-total order" {
		t.Fatalf("unexpected reason %q", check.Reason)
	}
}

func TestCheckMarginBoundary(t *testing.T) {
	// total 10000, qty 10, cost 850 each -> margin exactly 15%.
	check := CheckMargin(10000, 10, 850, 15, "1-10")
	if !check.Viable {
		t.Fatalf("margin equal to floor must pass, reason: %s", check.Reason)
	}
	if math.Abs(check.MarginPercent-15) > 1e-9 {
		t.Fatalf("expected 15%% margin, got %v", check.MarginPercent)
	}
}

func TestCheckMarginReasonIncludesTierName(t *testing.T) {
	check := CheckMargin(10000, 10, 990, 15, "11-30")
	if check.Viable {
		t.Fatal("expected shortfall")
	}
	for _, want := range []string{"11-30", "1.0%", "15%"} {
		if !strings.Contains(check.Reason, want) {
			t.Fatalf("reason %q missing %q", check.Reason, want)
		}
	}
}
