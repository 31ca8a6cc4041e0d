package domain

// Season is the cultivation season the input describes.
type Season string

// Cultivation seasons.
const (
	SeasonMaha Season = "Maha"
	SeasonYala Season = "Yala"
)

// SoilType is the dominant soil texture of the plot.
type SoilType string

// Recognised soil types.
const (
	SoilClay      SoilType = "Clay"
	SoilClayLoam  SoilType = "Clay Loam"
	SoilLoam      SoilType = "Loam"
	SoilSandyLoam SoilType = "Sandy Loam"
	SoilSandy     SoilType = "Sandy"
	SoilLaterite  SoilType = "Laterite"
)

// Drainage describes how quickly the plot sheds water.
type Drainage string

// Drainage classes.
const (
	DrainagePoor     Drainage = "Poor"
	DrainageModerate Drainage = "Moderate"
	DrainageGood     Drainage = "Good"
)

// Slope describes the plot's terrain.
type Slope string

// Slope classes.
const (
	SlopeFlat     Slope = "Flat"
	SlopeGentle   Slope = "Gentle"
	SlopeModerate Slope = "Moderate"
	SlopeSteep    Slope = "Steep"
)

// SuitabilityInput is the feature set for crop suitability scoring.
// The same shape is sent to the remote inference service and fed to the rule-based scorer.
type SuitabilityInput struct {
	District     string   `json:"district,omitempty"`
	Season       Season   `json:"season" validate:"required,oneof=Maha Yala"`
	SoilPH       float64  `json:"soil_ph" validate:"gte=0,lte=14"`
	SoilType     SoilType `json:"soil_type" validate:"required,oneof=Clay 'Clay Loam' Loam 'Sandy Loam' Sandy Laterite"`
	Drainage     Drainage `json:"drainage" validate:"required,oneof=Poor Moderate Good"`
	Slope        Slope    `json:"slope" validate:"required,oneof=Flat Gentle Moderate Steep"`
	Irrigation   bool     `json:"irrigation"`
	RainfallMM   float64  `json:"rainfall_mm" validate:"gte=0,lte=10000"`
	TemperatureC float64  `json:"temperature_c" validate:"gte=-10,lte=60"`
	LandSize     float64  `json:"land_size" validate:"gte=0"`
}

// Validate checks the input for caller errors.
func (in *SuitabilityInput) Validate() error {
	return validateStruct(in, ErrInvalidSuitabilityInput)
}

// Recommendation is one ranked crop suggestion.
type Recommendation struct {
	Crop   string  `json:"crop" validate:"required"`
	Score  float64 `json:"score" validate:"gte=0,lte=100"`
	Reason string  `json:"reason"`
	Notes  string  `json:"notes,omitempty"`
}

// Validate checks that the recommendation names a crop and has a score in [0,100].
func (r *Recommendation) Validate() error {
	return validateStruct(r, ErrInvalidRecommendation)
}

// SuitabilityResult is the suitability operation's result envelope.
type SuitabilityResult struct {
	Recommendations []Recommendation `json:"recommendations"`
	Source          Source           `json:"source"`
	Provider        string           `json:"provider"`
	Attempts        []Attempt        `json:"attempts,omitempty"`
}
