package model

import "time"

// PeriodSummary aggregates the records produced by one scheduling step.
type PeriodSummary struct {
	Step             int       `json:"step"`
	Period           int       `json:"period"`
	Start            time.Time `json:"start,omitempty"`
	DurationDays     float64   `json:"duration_days"`
	TargetTonnage    float64   `json:"target_tonnage"`
	ExtractedTonnage float64   `json:"extracted_tonnage"`
	Incorporated     int       `json:"incorporated"`
	ActiveColumns    int       `json:"active_columns"`
	DepletedColumns  int       `json:"depleted_columns"`
	Accomplished     bool      `json:"accomplished"`
}

// Shortfall returns the tonnage of the target left unmet.
func (s PeriodSummary) Shortfall() float64 {
	if d := s.TargetTonnage - s.ExtractedTonnage; d > 0 {
		return d
	}
	return 0
}
