package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/careloop/vigil/internal/reliability"
)

// HTTPConfig configures the remote classifier client.
type HTTPConfig struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// HTTPScorer calls an external sentiment classifier service over HTTP.
// The service exposes POST /classify taking {"text": ...} and returning
// {"label": "NEGATIVE", "score": 0.97}.
type HTTPScorer struct {
	baseURL    string
	maxRetries int
	client     *http.Client
}

func NewHTTPScorer(cfg HTTPConfig) (*HTTPScorer, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("sentiment base URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &HTTPScorer{
		baseURL:    base,
		maxRetries: retries,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func (s *HTTPScorer) Score(ctx context.Context, text string) (Result, error) {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := reliability.ExponentialBackoff(attempt-1, 100*time.Millisecond, 2*time.Second)
			select {
			case <-ctx.Done():
				return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			case <-time.After(backoff):
			}
		}

		res, retryable, err := s.scoreOnce(ctx, text)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (s *HTTPScorer) scoreOnce(ctx context.Context, text string) (Result, bool, error) {
	body, err := json.Marshal(classifyRequest{Text: text})
	if err != nil {
		return Result{}, false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/classify", bytes.NewReader(body))
	if err != nil {
		return Result{}, false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		// Transport-level failures (refused, timed out) are worth one more try.
		return Result{}, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("classify %s: %s", resp.Status, strings.TrimSpace(string(msg)))
		return Result{}, reliability.IsRetryableHTTPStatus(resp.StatusCode), err
	}

	var out classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, false, fmt.Errorf("classify decode: %w", err)
	}
	if out.Score < 0 || out.Score > 1 {
		return Result{}, false, fmt.Errorf("classify score out of range: %v", out.Score)
	}

	return Result{
		Label:      Label(strings.ToUpper(strings.TrimSpace(out.Label))),
		Confidence: out.Score,
	}, false, nil
}
