// Package scoring converts a Fraction Ninja cut into accuracy, tier and points.
// Every function here is pure.
package scoring

import "math"

// Tier is a named accuracy bracket with a fixed point value
type Tier struct {
	Name        string  `json:"name"`
	MinAccuracy float64 `json:"minAccuracy"`
	Points      int     `json:"points"`
	Label       string  `json:"label"`
	Color       string  `json:"color"`
}

// Tiers are ordered from the highest threshold down
var Tiers = []Tier{
	{Name: "PERFECT", MinAccuracy: 95, Points: 1500, Label: "Perfect!", Color: "#FFD700"},
	{Name: "EXCELLENT", MinAccuracy: 85, Points: 1200, Label: "Excellent!", Color: "#00E676"},
	{Name: "GREAT", MinAccuracy: 70, Points: 900, Label: "Great!", Color: "#29B6F6"},
	{Name: "GOOD", MinAccuracy: 55, Points: 600, Label: "Good", Color: "#AB47BC"},
	{Name: "OK", MinAccuracy: 40, Points: 300, Label: "OK", Color: "#FF9800"},
	{Name: "MINIMUM", MinAccuracy: 0, Points: 100, Label: "Keep trying", Color: "#9E9E9E"},
}

const (
	timeBonusPerSecond = 25
	maxTimeBonus       = 750
	levelBonusStep     = 200

	perfectBonusHigh      = 300
	perfectBonusHighFloor = 99
	perfectBonusLow       = 150
	perfectBonusLowFloor  = 97
)

// Breakdown itemizes the points for one attempt
type Breakdown struct {
	Accuracy     float64 `json:"accuracy"`
	Tier         Tier    `json:"tier"`
	Base         int     `json:"base"`
	TimeBonus    int     `json:"timeBonus"`
	LevelBonus   int     `json:"levelBonus"`
	PerfectBonus int     `json:"perfectBonus"`
	Total        int     `json:"total"`
}

// band is one linear piece of the accuracy curve, in units of the threshold
type band struct {
	upTo     float64
	fromPct  float64
	toPct    float64
	startsAt float64
}

var accuracyBands = []band{
	{startsAt: 0, upTo: 0.3, fromPct: 100, toPct: 95},
	{startsAt: 0.3, upTo: 0.6, fromPct: 95, toPct: 85},
	{startsAt: 0.6, upTo: 1, fromPct: 85, toPct: 70},
	{startsAt: 1, upTo: 1.5, fromPct: 70, toPct: 55},
	{startsAt: 1.5, upTo: 2, fromPct: 55, toPct: 40},
	{startsAt: 2, upTo: 4, fromPct: 40, toPct: 0},
}

// AccuracyFromPositionError maps the distance between a cut and its target to
// a 0..100 percentage. threshold is in the same units as positionError.
func AccuracyFromPositionError(positionError, threshold float64) float64 {
	e := math.Abs(positionError)
	if e == 0 {
		return 100
	}
	if threshold <= 0 {
		return 0
	}

	for _, b := range accuracyBands {
		lo, hi := b.startsAt*threshold, b.upTo*threshold
		if e <= hi {
			return b.fromPct - (e-lo)/(hi-lo)*(b.fromPct-b.toPct)
		}
	}
	return 0
}

// TierForAccuracy returns the highest tier whose threshold pct meets
func TierForAccuracy(pct float64) Tier {
	for _, tier := range Tiers {
		if pct >= tier.MinAccuracy {
			return tier
		}
	}
	return Tiers[len(Tiers)-1]
}

// ComputeScore totals the points for one attempt
func ComputeScore(accuracy, timeRemaining float64, levelIndex int) Breakdown {
	tier := TierForAccuracy(accuracy)

	timeBonus := int(math.Round(math.Min(timeRemaining*timeBonusPerSecond, maxTimeBonus)))
	levelBonus := (levelIndex + 1) * levelBonusStep

	perfectBonus := 0
	switch {
	case accuracy >= perfectBonusHighFloor:
		perfectBonus = perfectBonusHigh
	case accuracy >= perfectBonusLowFloor:
		perfectBonus = perfectBonusLow
	}

	return Breakdown{
		Accuracy:     accuracy,
		Tier:         tier,
		Base:         tier.Points,
		TimeBonus:    timeBonus,
		LevelBonus:   levelBonus,
		PerfectBonus: perfectBonus,
		Total:        tier.Points + timeBonus + levelBonus + perfectBonus,
	}
}
