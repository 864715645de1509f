// Package risk implements the escalation policy that converts an utterance
// and its sentiment score into a risk tier.
package risk

import (
	"strings"

	"github.com/careloop/vigil/internal/sentiment"
)

// Tier is the three-valued escalation classification of an utterance.
type Tier string

const (
	TierNormal Tier = "Normal"
	TierMedium Tier = "Medium"
	TierHigh   Tier = "High"
)

const (
	defaultMediumThreshold = 0.80
	defaultHighThreshold   = 0.95
)

// Classifier is a stateless decision function. The keyword rule always wins;
// the sentiment rule applies only to negative polarity, and the tighter bound
// is checked first so a very negative score maps to High, not Medium. Both
// bounds are strict (a score of exactly 0.80 or 0.95 does not trigger).
type Classifier struct {
	keywords []string
	medium   float64
	high     float64
}

func NewClassifier(keywords []string, medium, high float64) *Classifier {
	if len(keywords) == 0 {
		keywords = DefaultKeywords()
	}
	if medium <= 0 || medium >= 1 {
		medium = defaultMediumThreshold
	}
	if high <= medium || high >= 1 {
		high = defaultHighThreshold
	}
	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		lowered = append(lowered, kw)
	}
	return &Classifier{keywords: lowered, medium: medium, high: high}
}

// Classify returns the risk tier for one utterance. Pure function; safe for
// concurrent use.
func (c *Classifier) Classify(text string, label sentiment.Label, score float64) Tier {
	lower := strings.ToLower(text)
	for _, kw := range c.keywords {
		if strings.Contains(lower, kw) {
			return TierHigh
		}
	}

	if label == sentiment.LabelNegative {
		if score > c.high {
			return TierHigh
		}
		if score > c.medium {
			return TierMedium
		}
	}

	return TierNormal
}

// Keywords returns the active keyword list.
func (c *Classifier) Keywords() []string {
	out := make([]string, len(c.keywords))
	copy(out, c.keywords)
	return out
}
