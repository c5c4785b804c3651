package scoring

import (
	"math"
	"testing"
)

func TestAccuracyFromPositionError(t *testing.T) {
	tests := []struct {
		name      string
		err       float64
		threshold float64
		want      float64
	}{
		{name: "exact hit", err: 0, threshold: 5, want: 100},
		{name: "0.3T", err: 1.5, threshold: 5, want: 95},
		{name: "inside first band", err: 0.75, threshold: 5, want: 97.5},
		{name: "0.6T", err: 3, threshold: 5, want: 85},
		{name: "threshold", err: 5, threshold: 5, want: 70},
		{name: "1.5T", err: 7.5, threshold: 5, want: 55},
		{name: "2T", err: 10, threshold: 5, want: 40},
		{name: "3T", err: 15, threshold: 5, want: 20},
		{name: "4T", err: 20, threshold: 5, want: 0},
		{name: "beyond 4T", err: 50, threshold: 5, want: 0},
		{name: "negative error is a distance", err: -5, threshold: 5, want: 70},
		{name: "zero threshold miss", err: 1, threshold: 0, want: 0},
		{name: "zero threshold hit", err: 0, threshold: 0, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AccuracyFromPositionError(tt.err, tt.threshold)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("AccuracyFromPositionError(%v, %v) = %v, want %v", tt.err, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestAccuracyIsMonotonic(t *testing.T) {
	prev := 101.0
	for e := 0.0; e <= 25; e += 0.1 {
		got := AccuracyFromPositionError(e, 5)
		if got > prev {
			t.Fatalf("accuracy rose from %v to %v at error %v", prev, got, e)
		}
		if got < 0 || got > 100 {
			t.Fatalf("accuracy %v out of range at error %v", got, e)
		}
		prev = got
	}
}

func TestTierForAccuracy(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{pct: 100, want: "PERFECT"},
		{pct: 95, want: "PERFECT"},
		{pct: 94.99, want: "EXCELLENT"},
		{pct: 85, want: "EXCELLENT"},
		{pct: 70, want: "GREAT"},
		{pct: 55, want: "GOOD"},
		{pct: 40, want: "OK"},
		{pct: 39.9, want: "MINIMUM"},
		{pct: 0, want: "MINIMUM"},
		{pct: -5, want: "MINIMUM"},
	}

	for _, tt := range tests {
		if got := TierForAccuracy(tt.pct); got.Name != tt.want {
			t.Errorf("TierForAccuracy(%v) = %s, want %s", tt.pct, got.Name, tt.want)
		}
	}
}

func TestComputeScore(t *testing.T) {
	tests := []struct {
		name     string
		accuracy float64
		time     float64
		level    int
		want     Breakdown
	}{
		{
			name:     "perfect tier without perfect bonus",
			accuracy: 96, time: 10, level: 0,
			want: Breakdown{Base: 1500, TimeBonus: 250, LevelBonus: 200, PerfectBonus: 0, Total: 1950},
		},
		{
			name:     "97 earns the small bonus",
			accuracy: 97, time: 0, level: 1,
			want: Breakdown{Base: 1500, TimeBonus: 0, LevelBonus: 400, PerfectBonus: 150, Total: 2050},
		},
		{
			name:     "99 earns the big bonus and time is capped",
			accuracy: 99.5, time: 60, level: 2,
			want: Breakdown{Base: 1500, TimeBonus: 750, LevelBonus: 600, PerfectBonus: 300, Total: 3150},
		},
		{
			name:     "fractional time rounds",
			accuracy: 50, time: 3.5, level: 0,
			want: Breakdown{Base: 300, TimeBonus: 88, LevelBonus: 200, PerfectBonus: 0, Total: 588},
		},
		{
			name:     "minimum tier",
			accuracy: 10, time: 1, level: 4,
			want: Breakdown{Base: 100, TimeBonus: 25, LevelBonus: 1000, PerfectBonus: 0, Total: 1125},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeScore(tt.accuracy, tt.time, tt.level)
			if got.Base != tt.want.Base || got.TimeBonus != tt.want.TimeBonus ||
				got.LevelBonus != tt.want.LevelBonus || got.PerfectBonus != tt.want.PerfectBonus ||
				got.Total != tt.want.Total {
				t.Errorf("ComputeScore(%v, %v, %d) = %+v, want %+v", tt.accuracy, tt.time, tt.level, got, tt.want)
			}
			if got.Tier.Points != got.Base {
				t.Errorf("Base %d does not match tier points %d", got.Base, got.Tier.Points)
			}
		})
	}
}

func TestComputeScoreIsDeterministic(t *testing.T) {
	a := ComputeScore(88.8, 12.4, 3)
	b := ComputeScore(88.8, 12.4, 3)
	if a != b {
		t.Errorf("ComputeScore() not deterministic: %+v vs %+v", a, b)
	}
}
