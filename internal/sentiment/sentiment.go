package sentiment

import (
	"context"
	"errors"
)

// Label is the polarity reported by the external classifier.
type Label string

const (
	LabelPositive Label = "POSITIVE"
	LabelNegative Label = "NEGATIVE"
	LabelNeutral  Label = "NEUTRAL"
)

// ErrUnavailable reports that the classifier could not score the text.
// Callers fall back to keyword-only risk classification.
var ErrUnavailable = errors.New("sentiment classifier unavailable")

// Result is one scored utterance.
type Result struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Scorer maps text to a polarity label and a confidence in [0,1].
// Scoring may be slow (model inference); implementations must be safe
// for concurrent use.
type Scorer interface {
	Score(ctx context.Context, text string) (Result, error)
}
