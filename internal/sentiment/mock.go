package sentiment

import (
	"context"
	"strings"
)

// MockScorer is a local fallback scorer used when no classifier service is
// configured. It produces deterministic results from a tiny negative lexicon
// so the pipeline and UI remain exercisable without model inference.
type MockScorer struct{}

func NewMockScorer() *MockScorer { return &MockScorer{} }

var mockNegativeWords = []string{
	"sad", "awful", "terrible", "hopeless", "worthless",
	"hate", "alone", "nothing", "anymore",
}

func (s *MockScorer) Score(_ context.Context, text string) (Result, error) {
	lower := strings.ToLower(text)
	hits := 0
	for _, w := range mockNegativeWords {
		if strings.Contains(lower, w) {
			hits++
		}
	}
	if hits == 0 {
		return Result{Label: LabelPositive, Confidence: 0.90}, nil
	}
	confidence := 0.60 + 0.12*float64(hits)
	if confidence > 0.99 {
		confidence = 0.99
	}
	return Result{Label: LabelNegative, Confidence: confidence}, nil
}
