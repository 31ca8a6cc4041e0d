package suitability

import "github.com/ahrav/go-resilient/internal/domain"

// Dimension weights. They sum to 1.0.
const (
	WeightPH          = 0.20
	WeightRainfall    = 0.20
	WeightTemperature = 0.20
	WeightIrrigation  = 0.10
	WeightSlope       = 0.10
	WeightDrainage    = 0.10
	WeightSoil        = 0.10
)

// unknownCategoryFitness is used for a categorical value missing from a crop's table.
const unknownCategoryFitness = 0.5

// Crop is the agronomic profile the scorer evaluates a plot against.
type Crop struct {
	Name string

	OptimalPH   float64
	PHTolerance float64

	// Rainfall fitness ramps linearly from MinRainfallMM (0) to MaxRainfallMM (1).
	MinRainfallMM float64
	MaxRainfallMM float64

	OptimalTempC  float64
	TempTolerance float64

	// RainfedFitness is the irrigation fitness per season when the plot is not irrigated.
	RainfedFitness map[domain.Season]float64

	Slope    map[domain.Slope]float64
	Drainage map[domain.Drainage]float64
	Soil     map[domain.SoilType]float64

	Notes string
}

// Crops returns the crop table in ranking tie-break order.
func Crops() []Crop {
	out := make([]Crop, len(crops))
	copy(out, crops)
	return out
}

var crops = []Crop{
	{
		Name:        "Rice",
		OptimalPH:   6.3,
		PHTolerance: 1.5,

		MinRainfallMM: 600,
		MaxRainfallMM: 1100,

		OptimalTempC:  27.5,
		TempTolerance: 6,

		RainfedFitness: map[domain.Season]float64{domain.SeasonMaha: 0.7, domain.SeasonYala: 0.3},
		Slope: map[domain.Slope]float64{
			domain.SlopeFlat: 1, domain.SlopeGentle: 0.5, domain.SlopeModerate: 0.2, domain.SlopeSteep: 0,
		},
		Drainage: map[domain.Drainage]float64{
			domain.DrainagePoor: 0.9, domain.DrainageModerate: 1, domain.DrainageGood: 0.6,
		},
		Soil: map[domain.SoilType]float64{
			domain.SoilClay: 1, domain.SoilClayLoam: 1, domain.SoilLoam: 1,
			domain.SoilSandyLoam: 0.5, domain.SoilSandy: 0.2, domain.SoilLaterite: 0.4,
		},
		Notes: "Paddy needs standing water; plan field levelling and bunding before planting.",
	},
	{
		Name:        "Maize",
		OptimalPH:   6.2,
		PHTolerance: 1.5,

		MinRainfallMM: 500,
		MaxRainfallMM: 800,

		OptimalTempC:  25,
		TempTolerance: 7,

		RainfedFitness: map[domain.Season]float64{domain.SeasonMaha: 0.8, domain.SeasonYala: 0.5},
		Slope: map[domain.Slope]float64{
			domain.SlopeFlat: 1, domain.SlopeGentle: 0.9, domain.SlopeModerate: 0.6, domain.SlopeSteep: 0.2,
		},
		Drainage: map[domain.Drainage]float64{
			domain.DrainagePoor: 0.3, domain.DrainageModerate: 0.8, domain.DrainageGood: 1,
		},
		Soil: map[domain.SoilType]float64{
			domain.SoilClay: 0.5, domain.SoilClayLoam: 0.8, domain.SoilLoam: 1,
			domain.SoilSandyLoam: 0.9, domain.SoilSandy: 0.5, domain.SoilLaterite: 0.6,
		},
		Notes: "Sensitive to waterlogging at the seedling stage.",
	},
	{
		Name:        "Green Gram",
		OptimalPH:   6.5,
		PHTolerance: 1.5,

		MinRainfallMM: 350,
		MaxRainfallMM: 700,

		OptimalTempC:  29,
		TempTolerance: 6,

		RainfedFitness: map[domain.Season]float64{domain.SeasonMaha: 0.8, domain.SeasonYala: 0.5},
		Slope: map[domain.Slope]float64{
			domain.SlopeFlat: 1, domain.SlopeGentle: 0.9, domain.SlopeModerate: 0.5, domain.SlopeSteep: 0.1,
		},
		Drainage: map[domain.Drainage]float64{
			domain.DrainagePoor: 0.2, domain.DrainageModerate: 0.8, domain.DrainageGood: 1,
		},
		Soil: map[domain.SoilType]float64{
			domain.SoilClay: 0.3, domain.SoilClayLoam: 0.7, domain.SoilLoam: 1,
			domain.SoilSandyLoam: 1, domain.SoilSandy: 0.6, domain.SoilLaterite: 0.6,
		},
		Notes: "Short-duration legume; fits between main-season crops.",
	},
	{
		Name:        "Chilli",
		OptimalPH:   6.5,
		PHTolerance: 1.2,

		MinRainfallMM: 600,
		MaxRainfallMM: 1200,

		OptimalTempC:  27,
		TempTolerance: 6,

		RainfedFitness: map[domain.Season]float64{domain.SeasonMaha: 0.6, domain.SeasonYala: 0.3},
		Slope: map[domain.Slope]float64{
			domain.SlopeFlat: 1, domain.SlopeGentle: 0.8, domain.SlopeModerate: 0.5, domain.SlopeSteep: 0.1,
		},
		Drainage: map[domain.Drainage]float64{
			domain.DrainagePoor: 0.1, domain.DrainageModerate: 0.7, domain.DrainageGood: 1,
		},
		Soil: map[domain.SoilType]float64{
			domain.SoilClay: 0.3, domain.SoilClayLoam: 0.7, domain.SoilLoam: 1,
			domain.SoilSandyLoam: 0.9, domain.SoilSandy: 0.5, domain.SoilLaterite: 0.6,
		},
		Notes: "Watch for leaf curl complex in humid spells.",
	},
	{
		Name:        "Big Onion",
		OptimalPH:   6.5,
		PHTolerance: 1.2,

		MinRainfallMM: 400,
		MaxRainfallMM: 800,

		OptimalTempC:  26,
		TempTolerance: 6,

		RainfedFitness: map[domain.Season]float64{domain.SeasonMaha: 0.5, domain.SeasonYala: 0.2},
		Slope: map[domain.Slope]float64{
			domain.SlopeFlat: 1, domain.SlopeGentle: 0.7, domain.SlopeModerate: 0.3, domain.SlopeSteep: 0,
		},
		Drainage: map[domain.Drainage]float64{
			domain.DrainagePoor: 0.1, domain.DrainageModerate: 0.7, domain.DrainageGood: 1,
		},
		Soil: map[domain.SoilType]float64{
			domain.SoilClay: 0.2, domain.SoilClayLoam: 0.6, domain.SoilLoam: 0.9,
			domain.SoilSandyLoam: 1, domain.SoilSandy: 0.6, domain.SoilLaterite: 0.4,
		},
		Notes: "Bulbing needs a dry spell; avoid harvest during heavy rain.",
	},
	{
		Name:        "Tea",
		OptimalPH:   5.0,
		PHTolerance: 1.0,

		MinRainfallMM: 1500,
		MaxRainfallMM: 2500,

		OptimalTempC:  20,
		TempTolerance: 6,

		RainfedFitness: map[domain.Season]float64{domain.SeasonMaha: 0.9, domain.SeasonYala: 0.8},
		Slope: map[domain.Slope]float64{
			domain.SlopeFlat: 0.4, domain.SlopeGentle: 0.8, domain.SlopeModerate: 1, domain.SlopeSteep: 0.9,
		},
		Drainage: map[domain.Drainage]float64{
			domain.DrainagePoor: 0, domain.DrainageModerate: 0.6, domain.DrainageGood: 1,
		},
		Soil: map[domain.SoilType]float64{
			domain.SoilClay: 0.3, domain.SoilClayLoam: 0.6, domain.SoilLoam: 0.9,
			domain.SoilSandyLoam: 0.8, domain.SoilSandy: 0.3, domain.SoilLaterite: 1,
		},
		Notes: "Perennial; contour planting and soil conservation are required on slopes.",
	},
	{
		Name:        "Coconut",
		OptimalPH:   6.0,
		PHTolerance: 1.5,

		MinRainfallMM: 1000,
		MaxRainfallMM: 2000,

		OptimalTempC:  28,
		TempTolerance: 5,

		RainfedFitness: map[domain.Season]float64{domain.SeasonMaha: 0.8, domain.SeasonYala: 0.6},
		Slope: map[domain.Slope]float64{
			domain.SlopeFlat: 1, domain.SlopeGentle: 0.9, domain.SlopeModerate: 0.6, domain.SlopeSteep: 0.2,
		},
		Drainage: map[domain.Drainage]float64{
			domain.DrainagePoor: 0.3, domain.DrainageModerate: 0.8, domain.DrainageGood: 1,
		},
		Soil: map[domain.SoilType]float64{
			domain.SoilClay: 0.3, domain.SoilClayLoam: 0.6, domain.SoilLoam: 0.9,
			domain.SoilSandyLoam: 1, domain.SoilSandy: 0.8, domain.SoilLaterite: 0.8,
		},
		Notes: "Perennial; returns start after five to six years.",
	},
}
