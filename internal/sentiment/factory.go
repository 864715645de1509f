package sentiment

import (
	"fmt"
	"strings"
	"time"
)

// NewScorer selects a scorer implementation by mode. "auto" picks the HTTP
// classifier when a URL is configured and falls back to the mock otherwise.
func NewScorer(mode, baseURL string, timeout time.Duration, maxRetries int) (Scorer, string, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "http":
		s, err := NewHTTPScorer(HTTPConfig{BaseURL: baseURL, Timeout: timeout, MaxRetries: maxRetries})
		if err != nil {
			return nil, "", err
		}
		return s, "http", nil
	case "mock":
		return NewMockScorer(), "mock", nil
	case "", "auto":
		if strings.TrimSpace(baseURL) != "" {
			s, err := NewHTTPScorer(HTTPConfig{BaseURL: baseURL, Timeout: timeout, MaxRetries: maxRetries})
			if err != nil {
				return nil, "", err
			}
			return s, "http", nil
		}
		return NewMockScorer(), "mock", nil
	default:
		return nil, "", fmt.Errorf("invalid sentiment provider: %q (expected auto|http|mock)", mode)
	}
}
