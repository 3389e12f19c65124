package schema

// AreaRecord is one area's aggregated raw data. A nil sub-record means the
// collaborator had nothing for the area, which the engine treats as unknown.
type AreaRecord struct {
	AreaCode       string                `json:"area_code"`
	AreaName       string                `json:"area_name,omitempty"`
	Property       *PropertyRecord       `json:"scansan,omitempty"`
	Commute        *CommuteRecord        `json:"commute,omitempty"`
	Safety         *SafetyRecord         `json:"crime,omitempty"`
	Schools        *SchoolsRecord        `json:"schools,omitempty"`
	Amenities      *AmenitiesRecord      `json:"amenities,omitempty"`
	Infrastructure *InfrastructureRecord `json:"infrastructure,omitempty"`
}

// PropertyRecord holds property intelligence scores, already on a 0-100 scale.
type PropertyRecord struct {
	AffordabilityScore *float64 `json:"affordability_score,omitempty"`
	InvestmentQuality  *float64 `json:"investment_quality,omitempty"`
	DemandIndex        *float64 `json:"demand_index,omitempty"`
	RiskScore          *float64 `json:"risk_score,omitempty"`
	AvgPrice           *float64 `json:"avg_price,omitempty"`
}

// CommuteRecord holds the door-to-door travel time to the user's destination.
type CommuteRecord struct {
	DurationMinutes *float64 `json:"duration_minutes,omitempty"`
}

// SafetyRecord holds crime statistics. SafetyScore wins over TotalCrimes
// when both are present.
type SafetyRecord struct {
	SafetyScore *float64 `json:"safety_score,omitempty"`
	TotalCrimes *int     `json:"total_crimes,omitempty"`
}

// SchoolsRecord holds the average primary school quality score.
type SchoolsRecord struct {
	QualityScore *float64 `json:"avg_primary_score,omitempty"`
}

// AmenitiesRecord holds the amenity density score.
type AmenitiesRecord struct {
	DensityScore *float64 `json:"density_score,omitempty"`
}

// InfrastructureRecord holds the infrastructure investment score.
type InfrastructureRecord struct {
	Score *float64 `json:"score,omitempty"`
}

// FactorScores maps factors to normalized 0-100 values. Absent keys are unknown.
type FactorScores map[Factor]float64

// WeightMap maps factors to non-negative weights.
type WeightMap map[Factor]float64

// Sum returns the total of all weights.
func (w WeightMap) Sum() float64 {
	total := 0.0
	for _, v := range w {
		total += v
	}
	return total
}

// Clone returns an independent copy of the weight map.
func (w WeightMap) Clone() WeightMap {
	out := make(WeightMap, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Factors returns the weighted factors in canonical order.
func (w WeightMap) Factors() []Factor {
	out := make([]Factor, 0, len(w))
	for _, f := range AllFactors {
		if _, ok := w[f]; ok {
			out = append(out, f)
		}
	}
	return out
}
