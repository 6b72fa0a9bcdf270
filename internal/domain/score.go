package domain

import (
	"cmp"
	"slices"
)

const (
	baseScore        = 100.0
	importanceWeight = 10.0
	houseNumberBonus = 10.0
	streetFieldBonus = 5.0

	resultTypeBuilding = "building"
	resultTypeHouse    = "house_number"
	resultTypeStreet   = "street"
)

var resultTypeBonus = map[string]float64{
	resultTypeHouse:    25,
	resultTypeBuilding: 30,
	resultTypeStreet:   20,
}

// Score rates how precise a candidate is. Only the relative order of scores
// from one response is meaningful.
func Score(f Feature) float64 {
	score := baseScore
	if f.Importance != nil {
		// High importance means a small penalty.
		imp := min(max(*f.Importance, 0), 1)
		score -= importanceWeight * (1 - imp)
	}
	score += resultTypeBonus[f.ResultType]
	if f.HouseNumber != "" {
		score += houseNumberBonus
	}
	if f.Street != "" {
		score += streetFieldBonus
	}
	return score
}

// RankFeatures returns a copy of features ordered by descending Score.
// Equal scores keep their input order.
func RankFeatures(features []Feature) []Feature {
	ranked := slices.Clone(features)
	slices.SortStableFunc(ranked, func(a, b Feature) int {
		return cmp.Compare(Score(b), Score(a))
	})
	return ranked
}
