package dto

import "skusync/internal/domain/settings"

// SettingsResponse is the application settings payload.
type SettingsResponse struct {
	PriceFormulaB2B      string `json:"priceFormulaB2B"`
	PriceFormulaConsumer string `json:"priceFormulaConsumer"`
	Language             string `json:"language"`
}

// FromSettings maps domain settings.
func FromSettings(s settings.AppSettings) SettingsResponse {
	return SettingsResponse{
		PriceFormulaB2B:      s.B2BFormula,
		PriceFormulaConsumer: s.ConsumerFormula,
		Language:             s.Language,
	}
}

// SaveSettingsRequest updates the application settings. Blank fields
// fall back to defaults.
type SaveSettingsRequest struct {
	PriceFormulaB2B      string `json:"priceFormulaB2B"`
	PriceFormulaConsumer string `json:"priceFormulaConsumer"`
	Language             string `json:"language"`
}

// ToDomain converts the request.
func (r SaveSettingsRequest) ToDomain() settings.AppSettings {
	return settings.AppSettings{
		B2BFormula:      r.PriceFormulaB2B,
		ConsumerFormula: r.PriceFormulaConsumer,
		Language:        r.Language,
	}
}

// FormulaCheckRequest asks whether a formula parses.
type FormulaCheckRequest struct {
	Formula string `json:"formula"`
}

// FormulaCheckResponse reports the parse outcome. Sample is the value
// the formula yields for cost 100 and discount 20, as a preview.
type FormulaCheckResponse struct {
	Valid  bool    `json:"valid"`
	Error  string  `json:"error,omitempty"`
	Sample float64 `json:"sample,omitempty"`
}
