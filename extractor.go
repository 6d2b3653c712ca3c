package lookanalyst

import (
	"github.com/lookanalyst/lookanalyst/models"
)

// Extractor applies strategies in priority order and stops at the first match
type Extractor struct {
	strategies []Strategy
}

// NewExtractor creates an Extractor over the given strategies, or the
// default six when none are given
func NewExtractor(strategies ...Strategy) *Extractor {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Extractor{strategies: strategies}
}

// Strategies returns the strategy names in evaluation order
func (e *Extractor) Strategies() []string {
	names := make([]string, len(e.strategies))
	for i, s := range e.strategies {
		names[i] = s.Name
	}
	return names
}

// Extract returns the image URL found by the highest-priority matching strategy.
// A match that is not an http(s) URL with an allowed image extension is ignored
// and the next strategy is tried.
func (e *Extractor) Extract(doc string) (*models.ExtractionResult, error) {
	for _, s := range e.strategies {
		imageURL, ok := s.Find(doc)
		if !ok || !hasAllowedImageExtension(imageURL) {
			continue
		}
		return &models.ExtractionResult{ImageURL: imageURL, Strategy: s.Name}, nil
	}
	return nil, &ExtractionError{Reason: "no image found"}
}

// Extract runs the default strategies over doc
func Extract(doc string) (*models.ExtractionResult, error) {
	return NewExtractor().Extract(doc)
}
