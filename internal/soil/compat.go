package soil

import (
	"fmt"
	"math"
	"slices"

	"github.com/i474232898/crop-advisor/internal/crop"
)

// Compatibility explains how a soil reading fits one crop.
type Compatibility struct {
	Score           float64    `json:"compatibility_score"`
	SoilTypeMatch   bool       `json:"soil_type_match"`
	PHCompatible    bool       `json:"ph_compatible"`
	NutrientDeficit []string   `json:"nutrient_deficits,omitempty"`
	SoilType        string     `json:"soil_type"`
	PH              float64    `json:"soil_ph"`
	Drainage        string     `json:"drainage"`
	RequiredTypes   []string   `json:"required_soil_types"`
	RequiredPH      crop.Range `json:"required_ph_range"`
	Suggestions     []string   `json:"adaptation_suggestions"`
}

// AssessCompatibility compares r with the crop's soil requirements. A soil type
// mismatch costs 40 points of the type half; pH is scored by distance to the
// middle of the crop's range.
func AssessCompatibility(r Reading, p crop.Profile) Compatibility {
	c := Compatibility{
		SoilTypeMatch: p.AcceptsSoil(r.SoilType),
		PHCompatible:  p.PHRange.Contains(r.PH),
		SoilType:      r.SoilType,
		PH:            r.PH,
		Drainage:      r.Drainage,
		RequiredTypes: p.SoilTypes,
		RequiredPH:    p.PHRange,
	}

	typeScore := 60.0
	if c.SoilTypeMatch {
		typeScore = 100
	}
	phScore := 100.0
	if !c.PHCompatible {
		mid := (p.PHRange.Min + p.PHRange.Max) / 2
		phScore = math.Max(0, 100-math.Abs(r.PH-mid)*20)
	}
	c.Score = (typeScore + phScore) / 2

	c.NutrientDeficit, c.Suggestions = adaptations(r, p)
	return c
}

func adaptations(r Reading, p crop.Profile) (deficits, suggestions []string) {
	suggestions = []string{}
	ph := p.PHRange
	switch {
	case r.PH < ph.Min:
		suggestions = append(suggestions, fmt.Sprintf("Apply lime to raise pH to %.1f-%.1f", ph.Min, ph.Max))
	case r.PH > ph.Max:
		suggestions = append(suggestions, fmt.Sprintf("Apply sulfur to lower pH to %.1f-%.1f", ph.Min, ph.Max))
	}

	if !p.AcceptsSoil(r.SoilType) {
		switch {
		case r.SoilType == "clay" && slices.Contains(p.SoilTypes, "sandy loam"):
			suggestions = append(suggestions, "Add sand and organic matter to improve drainage")
		case r.SoilType == "sandy loam" && slices.Contains(p.SoilTypes, "clay loam"):
			suggestions = append(suggestions, "Add clay and organic matter to improve water retention")
		}
	}

	need, have := p.MinNutrients, r.Nutrients
	for _, n := range []struct {
		name       string
		have, need float64
	}{
		{"nitrogen", have.Nitrogen, need.Nitrogen},
		{"phosphorus", have.Phosphorus, need.Phosphorus},
		{"potassium", have.Potassium, need.Potassium},
	} {
		if n.have < n.need {
			deficits = append(deficits, n.name)
			suggestions = append(suggestions,
				fmt.Sprintf("Apply %s fertilizer to reach %.0f mg/kg", n.name, n.need))
		}
	}
	return deficits, suggestions
}
