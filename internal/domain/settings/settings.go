// Package settings provides process-wide application settings: the two
// pricing formula strings and the UI language.
package settings

import (
	"context"
	"sync"

	"skusync/internal/domain/pricing"
)

// AppSettings is the process-wide configuration. Formula strings are
// free text; FormulaEvaluator decides at evaluation time what they are
// worth. Language is a UI concern carried along for the client.
type AppSettings struct {
	B2BFormula      string `json:"priceFormulaB2B"`
	ConsumerFormula string `json:"priceFormulaConsumer"`
	Language        string `json:"language"`
}

// Default returns the settings used when nothing is stored yet.
func Default() AppSettings {
	return AppSettings{
		B2BFormula:      pricing.DefaultFormulaB2B,
		ConsumerFormula: pricing.DefaultFormulaConsumer,
		Language:        "en",
	}
}

// Formulas converts to the pricing package's formula pair.
func (s AppSettings) Formulas() pricing.Formulas {
	return pricing.Formulas{B2B: s.B2BFormula, Consumer: s.ConsumerFormula}
}

// normalize fills blanks with defaults so half-stored settings still work.
func (s AppSettings) normalize() AppSettings {
	def := Default()
	if s.B2BFormula == "" {
		s.B2BFormula = def.B2BFormula
	}
	if s.ConsumerFormula == "" {
		s.ConsumerFormula = def.ConsumerFormula
	}
	if s.Language == "" {
		s.Language = def.Language
	}
	return s
}

// Repository defines settings persistence. Get returns nil when no
// settings row exists yet.
type Repository interface {
	Get(ctx context.Context) (*AppSettings, error)
	Save(ctx context.Context, s AppSettings) error
}

// Service loads settings once and caches them for the session; saves
// refresh the cache.
type Service struct {
	repo Repository

	mu     sync.RWMutex
	cached *AppSettings
}

// NewService creates a new settings service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns the current settings, loading them on first use.
// Missing or partial stored settings fall back to defaults.
func (s *Service) Get(ctx context.Context) (AppSettings, error) {
	s.mu.RLock()
	if s.cached != nil {
		out := *s.cached
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	stored, err := s.repo.Get(ctx)
	if err != nil {
		return AppSettings{}, err
	}

	var out AppSettings
	if stored == nil {
		out = Default()
	} else {
		out = stored.normalize()
	}

	s.mu.Lock()
	s.cached = &out
	s.mu.Unlock()
	return out, nil
}

// Save persists settings and updates the session cache.
func (s *Service) Save(ctx context.Context, in AppSettings) (AppSettings, error) {
	out := in.normalize()
	if err := s.repo.Save(ctx, out); err != nil {
		return AppSettings{}, err
	}

	s.mu.Lock()
	s.cached = &out
	s.mu.Unlock()
	return out, nil
}
