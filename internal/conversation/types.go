package conversation

import (
	"time"

	"github.com/careloop/vigil/internal/risk"
	"github.com/careloop/vigil/internal/sentiment"
)

// SpeakerID identifies a participant within one session ("Speaker-1", ...).
// Identifiers are assigned sequentially and are stable for the session's
// lifetime; speakers are never removed.
type SpeakerID string

// Utterance is one classified, stored unit of transcribed speech.
// Records are immutable after append.
type Utterance struct {
	Timestamp      time.Time       `json:"timestamp"`
	Speaker        SpeakerID       `json:"speaker"`
	Text           string          `json:"text"`
	SentimentLabel sentiment.Label `json:"sentiment_label"`
	SentimentScore float64         `json:"sentiment_score"`
	Tier           risk.Tier       `json:"risk_tier"`
}

// Escalation is the one-time signal raised when an utterance is classified
// High. It is never re-raised for the same utterance.
type Escalation struct {
	Speaker   SpeakerID `json:"speaker"`
	Text      string    `json:"text"`
	Tier      risk.Tier `json:"risk_tier"`
	Timestamp time.Time `json:"timestamp"`
}
