package archive

import (
	"context"
	"time"
)

// Record is one archived utterance row. The archive is a write-behind copy
// of session history for after-the-fact review; live reads and exports go
// through the in-process conversation log.
type Record struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id"`
	Speaker        string    `json:"speaker"`
	Text           string    `json:"text"`
	SentimentLabel string    `json:"sentiment_label"`
	SentimentScore float64   `json:"sentiment_score"`
	RiskTier       string    `json:"risk_tier"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store persists and retrieves archived utterances.
type Store interface {
	SaveUtterance(ctx context.Context, record Record) error
	BySession(ctx context.Context, sessionID string, limit int) ([]Record, error)
	Close() error
}
