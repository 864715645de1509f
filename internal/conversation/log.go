package conversation

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/careloop/vigil/internal/risk"
	"github.com/careloop/vigil/internal/sentiment"
)

// ErrUnknownSpeaker reports an append referencing a speaker that was never
// registered with AddSpeaker. The log is left unchanged.
var ErrUnknownSpeaker = errors.New("unknown speaker")

const defaultEscalationBuffer = 64

// Log is the ordered, append-only record of one monitored conversation.
// Append is the single mutation point; history is never reordered or mutated
// after append. All methods are safe for concurrent use, with appends
// serialized by the internal lock.
type Log struct {
	mu       sync.RWMutex
	speakers map[SpeakerID]struct{}
	count    int
	entries  []Utterance

	escalations chan Escalation
	onDrop      func()
}

func NewLog(escalationBuffer int) *Log {
	if escalationBuffer <= 0 {
		escalationBuffer = defaultEscalationBuffer
	}
	return &Log{
		speakers:    make(map[SpeakerID]struct{}),
		escalations: make(chan Escalation, escalationBuffer),
	}
}

// SetDropHook installs a callback invoked when an escalation signal is
// dropped because the consumer is behind. Used for metrics.
func (l *Log) SetDropHook(hook func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onDrop = hook
}

// AddSpeaker registers a new participant and returns its identifier.
// Never fails; the speaker count only grows.
func (l *Log) AddSpeaker() SpeakerID {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.count++
	id := SpeakerID(fmt.Sprintf("Speaker-%d", l.count))
	l.speakers[id] = struct{}{}
	return id
}

// Speakers returns the registered speaker identifiers in assignment order.
func (l *Log) Speakers() []SpeakerID {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]SpeakerID, 0, l.count)
	for i := 1; i <= l.count; i++ {
		out = append(out, SpeakerID(fmt.Sprintf("Speaker-%d", i)))
	}
	return out
}

// Append stores one classified utterance. The speaker must already be
// registered; an utterance can never introduce a new speaker implicitly.
// When the stored tier is High an escalation signal is raised exactly once,
// delivered best-effort so a slow consumer never stalls ingestion.
func (l *Log) Append(speaker SpeakerID, text string, label sentiment.Label, score float64, tier risk.Tier, at time.Time) (Utterance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.speakers[speaker]; !ok {
		return Utterance{}, fmt.Errorf("%w: %s", ErrUnknownSpeaker, speaker)
	}

	if at.IsZero() {
		at = time.Now().UTC()
	}
	// Timestamps are non-decreasing across the session.
	if n := len(l.entries); n > 0 && at.Before(l.entries[n-1].Timestamp) {
		at = l.entries[n-1].Timestamp
	}

	u := Utterance{
		Timestamp:      at,
		Speaker:        speaker,
		Text:           text,
		SentimentLabel: label,
		SentimentScore: score,
		Tier:           tier,
	}
	l.entries = append(l.entries, u)

	if tier == risk.TierHigh {
		select {
		case l.escalations <- Escalation{Speaker: speaker, Text: text, Tier: tier, Timestamp: at}:
		default:
			if l.onDrop != nil {
				l.onDrop()
			}
		}
	}

	return u, nil
}

// History returns a snapshot of the log in insertion order. The returned
// slice is a copy; mutating it does not affect the log.
func (l *Log) History() []Utterance {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Utterance, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of stored utterances.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// LastTier returns the tier of the most recent utterance, or Normal for an
// empty log.
func (l *Log) LastTier() risk.Tier {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.entries) == 0 {
		return risk.TierNormal
	}
	return l.entries[len(l.entries)-1].Tier
}

// Escalations exposes the signal channel for the presentation consumer.
func (l *Log) Escalations() <-chan Escalation {
	return l.escalations
}
