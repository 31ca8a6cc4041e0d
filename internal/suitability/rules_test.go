package suitability

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-resilient/internal/domain"
)

func mahaPaddyPlot() domain.SuitabilityInput {
	return domain.SuitabilityInput{
		Season:       domain.SeasonMaha,
		SoilPH:       6.3,
		SoilType:     domain.SoilLoam,
		Drainage:     domain.DrainageModerate,
		Slope:        domain.SlopeFlat,
		Irrigation:   true,
		RainfallMM:   1100,
		TemperatureC: 28,
	}
}

func TestScore_MahaPaddyRanksRiceFirst(t *testing.T) {
	recs := Score(mahaPaddyPlot())
	require.Len(t, recs, len(crops))

	assert.Equal(t, "Rice", recs[0].Crop)
	assert.InDelta(t, 98.3, recs[0].Score, 1e-9)
	assert.Equal(t, "Conditions are well suited for Rice", recs[0].Reason)
	assert.NotEmpty(t, recs[0].Notes)
}

func TestScore_Deterministic(t *testing.T) {
	inputs := []domain.SuitabilityInput{
		mahaPaddyPlot(),
		{Season: domain.SeasonYala, SoilPH: 5.1, SoilType: domain.SoilLaterite, Drainage: domain.DrainageGood, Slope: domain.SlopeSteep, RainfallMM: 2200, TemperatureC: 19},
		{Season: domain.SeasonYala, SoilPH: 7.8, SoilType: domain.SoilSandy, Drainage: domain.DrainagePoor, Slope: domain.SlopeGentle, RainfallMM: 150, TemperatureC: 35},
	}

	for _, in := range inputs {
		first, err := json.Marshal(Score(in))
		require.NoError(t, err)
		second, err := json.Marshal(Score(in))
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func TestScore_RankedAndBounded(t *testing.T) {
	seasons := []domain.Season{domain.SeasonMaha, domain.SeasonYala}
	soils := []domain.SoilType{domain.SoilClay, domain.SoilClayLoam, domain.SoilLoam, domain.SoilSandyLoam, domain.SoilSandy, domain.SoilLaterite}
	slopes := []domain.Slope{domain.SlopeFlat, domain.SlopeGentle, domain.SlopeModerate, domain.SlopeSteep}

	for _, season := range seasons {
		for _, soil := range soils {
			for _, slope := range slopes {
				for _, irrigated := range []bool{true, false} {
					in := domain.SuitabilityInput{
						Season: season, SoilPH: 5.5, SoilType: soil, Drainage: domain.DrainageGood,
						Slope: slope, Irrigation: irrigated, RainfallMM: 900, TemperatureC: 24,
					}
					recs := Score(in)
					require.Len(t, recs, len(crops))
					for i, r := range recs {
						assert.GreaterOrEqual(t, r.Score, 0.0)
						assert.LessOrEqual(t, r.Score, 100.0)
						assert.NoError(t, r.Validate())
						if i > 0 {
							assert.GreaterOrEqual(t, recs[i-1].Score, r.Score, "recommendations must be ranked")
						}
					}
				}
			}
		}
	}
}

func TestScore_OptimumIsCappedAt100(t *testing.T) {
	in := mahaPaddyPlot()
	in.TemperatureC = 27.5

	rice := crops[0]
	f := Evaluate(rice, in)
	assert.Equal(t, 1.0, f.PH)
	assert.Equal(t, 1.0, f.Temperature)

	recs := Score(in)
	assert.Equal(t, "Rice", recs[0].Crop)
	assert.Equal(t, 100.0, recs[0].Score)
}

func TestScore_ExtremeInputsStayTotal(t *testing.T) {
	in := domain.SuitabilityInput{
		Season:       "Monsoon",
		SoilPH:       math.NaN(),
		SoilType:     "Peat",
		Drainage:     "Unknown",
		Slope:        "Cliff",
		RainfallMM:   math.Inf(1),
		TemperatureC: -273,
	}

	recs := Score(in)
	require.Len(t, recs, len(crops))
	for _, r := range recs {
		assert.False(t, math.IsNaN(r.Score))
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 100.0)
	}
}

func TestScore_ReasonNamesPoorDimensions(t *testing.T) {
	in := domain.SuitabilityInput{
		Season:       domain.SeasonYala,
		SoilPH:       6.3,
		SoilType:     domain.SoilSandy,
		Drainage:     domain.DrainageModerate,
		Slope:        domain.SlopeSteep,
		Irrigation:   false,
		RainfallMM:   1100,
		TemperatureC: 27.5,
	}

	var rice domain.Recommendation
	for _, r := range Score(in) {
		if r.Crop == "Rice" {
			rice = r
		}
	}
	require.NotEmpty(t, rice.Crop)

	assert.Equal(t,
		"Limited suitability: limited irrigation reduces suitability; steep slope is unfavourable; sandy soil is a poor match",
		rice.Reason)
}

func TestEvaluate_Dimensions(t *testing.T) {
	rice := crops[0]

	tests := []struct {
		name string
		in   domain.SuitabilityInput
		get  func(Fitness) float64
		want float64
	}{
		{"ph at optimum", domain.SuitabilityInput{SoilPH: 6.3}, func(f Fitness) float64 { return f.PH }, 1},
		{"ph at tolerance edge", domain.SuitabilityInput{SoilPH: 4.8}, func(f Fitness) float64 { return f.PH }, 0},
		{"ph far outside", domain.SuitabilityInput{SoilPH: 1}, func(f Fitness) float64 { return f.PH }, 0},
		{"rainfall below minimum", domain.SuitabilityInput{RainfallMM: 300}, func(f Fitness) float64 { return f.Rainfall }, 0},
		{"rainfall midway", domain.SuitabilityInput{RainfallMM: 850}, func(f Fitness) float64 { return f.Rainfall }, 0.5},
		{"rainfall above maximum", domain.SuitabilityInput{RainfallMM: 3000}, func(f Fitness) float64 { return f.Rainfall }, 1},
		{"temperature half tolerance", domain.SuitabilityInput{TemperatureC: 24.5}, func(f Fitness) float64 { return f.Temperature }, 0.5},
		{"irrigated", domain.SuitabilityInput{Irrigation: true}, func(f Fitness) float64 { return f.Irrigation }, 1},
		{"rainfed maha", domain.SuitabilityInput{Season: domain.SeasonMaha}, func(f Fitness) float64 { return f.Irrigation }, 0.7},
		{"rainfed yala", domain.SuitabilityInput{Season: domain.SeasonYala}, func(f Fitness) float64 { return f.Irrigation }, 0.3},
		{"rainfed unknown season", domain.SuitabilityInput{Season: "Monsoon"}, func(f Fitness) float64 { return f.Irrigation }, 0.5},
		{"gentle slope", domain.SuitabilityInput{Slope: domain.SlopeGentle}, func(f Fitness) float64 { return f.Slope }, 0.5},
		{"poor drainage", domain.SuitabilityInput{Drainage: domain.DrainagePoor}, func(f Fitness) float64 { return f.Drainage }, 0.9},
		{"unknown soil", domain.SuitabilityInput{SoilType: "Peat"}, func(f Fitness) float64 { return f.Soil }, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.get(Evaluate(rice, tt.in)), 1e-9)
		})
	}
}

func TestWeightsSumToOne(t *testing.T) {
	sum := WeightPH + WeightRainfall + WeightTemperature + WeightIrrigation + WeightSlope + WeightDrainage + WeightSoil
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestCrops_ReturnsCopy(t *testing.T) {
	table := Crops()
	require.Len(t, table, len(crops))
	table[0].Name = "Changed"
	assert.Equal(t, "Rice", crops[0].Name)
}
