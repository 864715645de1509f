package risk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/careloop/vigil/internal/sentiment"
)

func TestClassifyKeywordOverridesSentiment(t *testing.T) {
	c := NewClassifier(nil, 0, 0)

	cases := []struct {
		name  string
		text  string
		label sentiment.Label
		score float64
	}{
		{"low negative score", "I want to end my life", sentiment.LabelNegative, 0.3},
		{"positive label", "they told me to take the pills", sentiment.LabelPositive, 1.0},
		{"mixed case", "I will HURT myself", sentiment.LabelPositive, 0.0},
		{"embedded phrase", "sometimes I think about Suicide a lot", sentiment.LabelNeutral, 0.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.Classify(tc.text, tc.label, tc.score); got != TierHigh {
				t.Fatalf("Classify(%q) = %q, want %q", tc.text, got, TierHigh)
			}
		})
	}
}

func TestClassifySentimentThresholds(t *testing.T) {
	c := NewClassifier(nil, 0, 0)

	cases := []struct {
		name  string
		label sentiment.Label
		score float64
		want  Tier
	}{
		{"high negative", sentiment.LabelNegative, 0.96, TierHigh},
		{"just above high bound", sentiment.LabelNegative, 0.951, TierHigh},
		{"at high bound exclusive", sentiment.LabelNegative, 0.95, TierMedium},
		{"medium negative", sentiment.LabelNegative, 0.88, TierMedium},
		{"at medium bound exclusive", sentiment.LabelNegative, 0.80, TierNormal},
		{"mild negative", sentiment.LabelNegative, 0.5, TierNormal},
		{"positive any score", sentiment.LabelPositive, 0.99, TierNormal},
		{"neutral any score", sentiment.LabelNeutral, 1.0, TierNormal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.Classify("the weather turned quickly", tc.label, tc.score); got != tc.want {
				t.Fatalf("Classify(%s, %v) = %q, want %q", tc.label, tc.score, got, tc.want)
			}
		})
	}
}

func TestClassifyStricterBoundDominates(t *testing.T) {
	c := NewClassifier(nil, 0, 0)
	// 0.97 clears both bounds; the tighter one must win.
	if got := c.Classify("everything is pointless", sentiment.LabelNegative, 0.97); got != TierHigh {
		t.Fatalf("Classify(NEGATIVE, 0.97) = %q, want %q", got, TierHigh)
	}
}

func TestClassifyMediumScenario(t *testing.T) {
	c := NewClassifier(nil, 0, 0)
	if got := c.Classify("Nothing feels okay anymore", sentiment.LabelNegative, 0.88); got != TierMedium {
		t.Fatalf("Classify() = %q, want %q", got, TierMedium)
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	c := NewClassifier(nil, 0, 0)
	first := c.Classify("I feel awful today", sentiment.LabelNegative, 0.9)
	second := c.Classify("I feel awful today", sentiment.LabelNegative, 0.9)
	if first != second {
		t.Fatalf("repeated Classify() diverged: %q then %q", first, second)
	}
}

func TestNewClassifierRejectsBadThresholds(t *testing.T) {
	c := NewClassifier(nil, 0.9, 0.5)
	// high <= medium falls back to the default high bound.
	if got := c.Classify("it went badly", sentiment.LabelNegative, 0.96); got != TierHigh {
		t.Fatalf("Classify(NEGATIVE, 0.96) = %q, want %q", got, TierHigh)
	}
}

func TestLoadKeywords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.txt")
	content := "# deployment overrides\nJump Off\n\nrazor\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write keywords file: %v", err)
	}

	keywords, err := LoadKeywords(path)
	if err != nil {
		t.Fatalf("LoadKeywords() error = %v", err)
	}
	if len(keywords) != 2 || keywords[0] != "jump off" || keywords[1] != "razor" {
		t.Fatalf("keywords = %v, want [jump off razor]", keywords)
	}

	c := NewClassifier(keywords, 0, 0)
	if got := c.Classify("I might jump off the bridge", sentiment.LabelPositive, 0.1); got != TierHigh {
		t.Fatalf("Classify() with loaded keywords = %q, want %q", got, TierHigh)
	}
}

func TestLoadKeywordsEmptyFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.txt")
	if err := os.WriteFile(path, []byte("# comments only\n"), 0o644); err != nil {
		t.Fatalf("write keywords file: %v", err)
	}
	if _, err := LoadKeywords(path); err == nil {
		t.Fatalf("LoadKeywords() on empty list should fail")
	}
}
