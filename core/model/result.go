package model

// ExtractionResult is the snapshot produced by a single extraction call on a
// column. It is never mutated once produced.
type ExtractionResult struct {
	PeriodID              int       `json:"period"`
	Subscript             Subscript `json:"subscript"`
	ExtractedTonnage      float64   `json:"extracted_tonnage"`
	FromMeters            float64   `json:"from_meters"`
	ToMeters              float64   `json:"to_meters"`
	IsDepleted            bool      `json:"is_depleted"`
	TonnageAvailable      float64   `json:"tonnage_available"`
	TargetTonnage         float64   `json:"target_tonnage"`
	WasTargetAccomplished bool      `json:"accomplished"`
}
