package formula

import (
	"math"
	"testing"
)

func TestLatencyFactorContinuity(t *testing.T) {
	p := DefaultParams()
	if LatencyFactor(0.5, p) != 1 {
		t.Fatalf("expected base latency below normal threshold")
	}
	at := LatencyFactor(p.LatencyStressedUtil, p)
	just := LatencyFactor(p.LatencyStressedUtil+1e-9, p)
	if math.Abs(at-1.9) > 1e-9 || math.Abs(just-at) > 1e-3 {
		t.Fatalf("latency factor not continuous at stressed threshold: %v vs %v", at, just)
	}
	if LatencyFactor(2, p) <= LatencyFactor(1.5, p) {
		t.Fatalf("expected superlinear growth above stressed")
	}
}

func TestErrorRateClamped(t *testing.T) {
	p := DefaultParams()
	if got := ErrorRate(0.01, 0.5, 1, p); got != 0.01 {
		t.Fatalf("expected base error, got %v", got)
	}
	if got := ErrorRate(0.5, 50, 0, p); got != 1 {
		t.Fatalf("expected clamp at 1, got %v", got)
	}
	if got := ErrorRate(0, 0, 0.5, p); math.Abs(got-0.15) > 1e-9 {
		t.Fatalf("expected health penalty 0.15, got %v", got)
	}
}

func TestRevenueUptimeFloor(t *testing.T) {
	p := DefaultParams()
	full := Revenue(86400, 1, 100, 1, p)
	if math.Abs(full-86400) > 1e-6 {
		t.Fatalf("unexpected revenue %v", full)
	}
	down := Revenue(86400, 1, 100, 0, p)
	if math.Abs(down-full*0.3) > 1e-6 {
		t.Fatalf("expected 30%% floor, got %v", down)
	}
}

func TestHazardCap(t *testing.T) {
	p := DefaultParams()
	extremes := []float64{-10, 0, 0.5, 1, 5, 100, 1e9, math.Inf(1)}
	for _, d := range []float64{1, 3, 100} {
		for _, u := range extremes {
			for _, e := range extremes {
				for _, td := range extremes {
					for _, sec := range extremes {
						if h := HazardMultiplier(d, u, e, td, sec, p); h > p.HazardCap || math.IsNaN(h) {
							t.Fatalf("hazard %v exceeds cap for d=%v u=%v e=%v td=%v sec=%v", h, d, u, e, td, sec)
						}
					}
				}
			}
		}
	}
}

func TestDifficultyMultiplier(t *testing.T) {
	p := DefaultParams()
	if DifficultyMultiplier(0, 0, p) != 1 {
		t.Fatalf("expected 1 at start")
	}
	capped := DifficultyMultiplier(1e7, 0, p)
	if math.Abs(capped-3) > 1e-9 {
		t.Fatalf("expected time cap 3, got %v", capped)
	}
	if DifficultyMultiplier(0, 200000, p) != 1.5 {
		t.Fatalf("expected peak user tier")
	}
}

func TestChurnAndGrowth(t *testing.T) {
	p := DefaultParams()
	if ChurnRate(true, 0, 0, p) <= ChurnRate(false, 0, 0, p) {
		t.Fatalf("down must raise churn")
	}
	if GrowthRate(90, 100, 0, 1, p) <= GrowthRate(30, 100, 0, 1, p) {
		t.Fatalf("higher reputation must grow faster")
	}
	if GrowthRate(90, 900, 0.2, 1, p) >= GrowthRate(90, 100, 0, 1, p) {
		t.Fatalf("slow and failing service must grow slower")
	}
}

func TestReputationDelta(t *testing.T) {
	p := DefaultParams()
	if ReputationDelta(1, 0, 0, p) <= 0 {
		t.Fatalf("healthy service should gain reputation")
	}
	if ReputationDelta(0.4, 0.2, 6, p) >= 0 {
		t.Fatalf("failing service should lose reputation")
	}
}

func TestMTTRMultiplierFloor(t *testing.T) {
	if MTTRMultiplier(0, 0, 1) != 0.7 {
		t.Fatalf("unexpected multiplier %v", MTTRMultiplier(0, 0, 1))
	}
	if MTTRMultiplier(0, 0, 5) < 0.5 {
		t.Fatalf("multiplier below floor")
	}
}

func TestActivityPeaks(t *testing.T) {
	p := DefaultParams()
	if math.Abs(ActivityRate(14, p)-1) > 1e-9 {
		t.Fatalf("expected peak activity at 14h")
	}
	if math.Abs(ActivityRate(2, p)-0.3) > 1e-9 {
		t.Fatalf("expected trough activity at 2h")
	}
}
