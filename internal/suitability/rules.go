// Package suitability ranks crops for a plot. Score is the deterministic
// rule-based scorer used as the terminal rung of the suitability ladder; Service
// puts the remote inference service in front of it.
package suitability

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ahrav/go-resilient/internal/domain"
)

// poorFitness is the threshold below which a dimension is called out in the reason.
const poorFitness = 0.5

// Fitness is the per-dimension breakdown of one crop's score, each in [0,1].
type Fitness struct {
	PH          float64
	Rainfall    float64
	Temperature float64
	Irrigation  float64
	Slope       float64
	Drainage    float64
	Soil        float64
}

// Composite returns the weighted sum of the dimensions, in [0,1].
func (f Fitness) Composite() float64 {
	return f.PH*WeightPH +
		f.Rainfall*WeightRainfall +
		f.Temperature*WeightTemperature +
		f.Irrigation*WeightIrrigation +
		f.Slope*WeightSlope +
		f.Drainage*WeightDrainage +
		f.Soil*WeightSoil
}

// Score ranks every crop in the table for in, best first. Ties keep table order.
//
// Score is total: it performs no I/O, never fails and returns the same output
// for the same input. Out-of-range or unknown values lower a dimension's fitness
// rather than producing an error.
func Score(in domain.SuitabilityInput) []domain.Recommendation {
	recs := make([]domain.Recommendation, 0, len(crops))
	for _, crop := range crops {
		f := Evaluate(crop, in)
		recs = append(recs, domain.Recommendation{
			Crop:   crop.Name,
			Score:  toScore(f.Composite()),
			Reason: reason(crop, in, f),
			Notes:  crop.Notes,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Score > recs[j].Score
	})
	return recs
}

// Evaluate computes crop's per-dimension fitness for in.
func Evaluate(crop Crop, in domain.SuitabilityInput) Fitness {
	return Fitness{
		PH:          symmetric(in.SoilPH, crop.OptimalPH, crop.PHTolerance),
		Rainfall:    ramp(in.RainfallMM, crop.MinRainfallMM, crop.MaxRainfallMM),
		Temperature: symmetric(in.TemperatureC, crop.OptimalTempC, crop.TempTolerance),
		Irrigation:  irrigation(crop, in),
		Slope:       lookup(crop.Slope, in.Slope),
		Drainage:    lookup(crop.Drainage, in.Drainage),
		Soil:        lookup(crop.Soil, in.SoilType),
	}
}

// symmetric is 1 at optimum, falling linearly to 0 at optimum±tolerance.
func symmetric(v, optimum, tolerance float64) float64 {
	if tolerance <= 0 {
		if v == optimum {
			return 1
		}
		return 0
	}
	return clamp01(1 - math.Abs(v-optimum)/tolerance)
}

// ramp is 0 at or below lo and 1 at or above hi.
func ramp(v, lo, hi float64) float64 {
	if hi <= lo {
		if v >= hi {
			return 1
		}
		return 0
	}
	return clamp01((v - lo) / (hi - lo))
}

func irrigation(crop Crop, in domain.SuitabilityInput) float64 {
	if in.Irrigation {
		return 1
	}
	if v, ok := crop.RainfedFitness[in.Season]; ok {
		return clamp01(v)
	}
	return unknownCategoryFitness
}

func lookup[K comparable](table map[K]float64, key K) float64 {
	if v, ok := table[key]; ok {
		return clamp01(v)
	}
	return unknownCategoryFitness
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// toScore scales a composite to [0,100] rounded to one decimal place.
func toScore(composite float64) float64 {
	s := math.Round(clamp01(composite)*1000) / 10
	return math.Min(100, math.Max(0, s))
}

func reason(crop Crop, in domain.SuitabilityInput, f Fitness) string {
	var clauses []string
	if f.PH < poorFitness {
		clauses = append(clauses, fmt.Sprintf("soil pH %.1f is far from the preferred %.1f", in.SoilPH, crop.OptimalPH))
	}
	if f.Rainfall < poorFitness {
		clauses = append(clauses, fmt.Sprintf("rainfall of %.0f mm is below the %.0f mm it needs", in.RainfallMM, crop.MaxRainfallMM))
	}
	if f.Temperature < poorFitness {
		clauses = append(clauses, fmt.Sprintf("%.1f°C is outside its preferred temperature of %.1f°C", in.TemperatureC, crop.OptimalTempC))
	}
	if f.Irrigation < poorFitness {
		clauses = append(clauses, "limited irrigation reduces suitability")
	}
	if f.Slope < poorFitness {
		clauses = append(clauses, fmt.Sprintf("%s slope is unfavourable", strings.ToLower(string(in.Slope))))
	}
	if f.Drainage < poorFitness {
		clauses = append(clauses, fmt.Sprintf("%s drainage is unfavourable", strings.ToLower(string(in.Drainage))))
	}
	if f.Soil < poorFitness {
		clauses = append(clauses, fmt.Sprintf("%s soil is a poor match", strings.ToLower(string(in.SoilType))))
	}

	if len(clauses) == 0 {
		return fmt.Sprintf("Conditions are well suited for %s", crop.Name)
	}
	return "Limited suitability: " + strings.Join(clauses, "; ")
}
