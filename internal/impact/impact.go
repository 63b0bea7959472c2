// Package impact describes how a parameter snapshot differs from the
// previous one for the "what changed" summary shown after a run.
package impact

import (
	"math"
	"sort"

	"omicsim/internal/model"
)

const (
	// Epsilon is the smallest absolute difference treated as a change.
	Epsilon = 0.001

	HighThreshold   = 50.0
	MediumThreshold = 20.0

	// FromZeroPercent is reported when the previous value was 0.
	FromZeroPercent = 100.0
)

type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

type Direction string

const (
	DirectionIncrease Direction = "increase"
	DirectionDecrease Direction = "decrease"
)

type Change struct {
	Key           string    `json:"key"`
	Label         string    `json:"label"`
	Previous      float64   `json:"previous"`
	Current       float64   `json:"current"`
	PercentChange float64   `json:"percent_change"`
	Direction     Direction `json:"direction"`
	Impact        Level     `json:"impact"`
	// FromZero marks changes whose previous value was 0, where a relative
	// change is undefined and PercentChange is FromZeroPercent.
	FromZero bool `json:"from_zero,omitempty"`
}

// Compare lists every field whose value moved by more than Epsilon, sorted by
// descending percentage change. Ties keep field declaration order.
func Compare(prev, cur model.Parameters) []Change {
	before := prev.Fields()
	after := cur.Fields()

	changes := make([]Change, 0, len(before))
	for i := range before {
		p, c := before[i].Value, after[i].Value
		diff := c - p
		if math.Abs(diff) <= Epsilon {
			continue
		}

		change := Change{
			Key:       before[i].Key,
			Label:     before[i].Label,
			Previous:  p,
			Current:   c,
			Direction: DirectionIncrease,
		}
		if diff < 0 {
			change.Direction = DirectionDecrease
		}
		if p == 0 {
			change.FromZero = true
			change.PercentChange = FromZeroPercent
		} else {
			change.PercentChange = math.Abs(diff/p) * 100
		}
		change.Impact = Classify(change.PercentChange)
		changes = append(changes, change)
	}

	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].PercentChange > changes[j].PercentChange
	})
	return changes
}

func Classify(percent float64) Level {
	switch {
	case percent > HighThreshold:
		return LevelHigh
	case percent > MediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}
