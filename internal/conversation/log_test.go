package conversation

import (
	"errors"
	"testing"
	"time"

	"github.com/careloop/vigil/internal/risk"
	"github.com/careloop/vigil/internal/sentiment"
)

func TestAddSpeakerAssignsSequentialIDs(t *testing.T) {
	l := NewLog(0)
	if got := l.AddSpeaker(); got != "Speaker-1" {
		t.Fatalf("first speaker = %q, want Speaker-1", got)
	}
	if got := l.AddSpeaker(); got != "Speaker-2" {
		t.Fatalf("second speaker = %q, want Speaker-2", got)
	}
	speakers := l.Speakers()
	if len(speakers) != 2 || speakers[0] != "Speaker-1" || speakers[1] != "Speaker-2" {
		t.Fatalf("Speakers() = %v", speakers)
	}
}

func TestAppendRejectsUnknownSpeaker(t *testing.T) {
	l := NewLog(0)
	l.AddSpeaker()

	_, err := l.Append("Speaker-9", "hello", sentiment.LabelPositive, 0.9, risk.TierNormal, time.Time{})
	if !errors.Is(err, ErrUnknownSpeaker) {
		t.Fatalf("Append() error = %v, want ErrUnknownSpeaker", err)
	}
	if l.Len() != 0 {
		t.Fatalf("history length = %d after rejected append, want 0", l.Len())
	}
}

func TestAppendPreservesOrderAndFields(t *testing.T) {
	l := NewLog(0)
	s1 := l.AddSpeaker()
	s2 := l.AddSpeaker()

	first, err := l.Append(s1, "good morning", sentiment.LabelPositive, 0.95, risk.TierNormal, time.Time{})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	second, err := l.Append(s2, "nothing feels okay anymore", sentiment.LabelNegative, 0.88, risk.TierMedium, time.Time{})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	history := l.History()
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0] != first || history[1] != second {
		t.Fatalf("history order does not match append order: %+v", history)
	}
	if history[1].Speaker != s2 || history[1].SentimentScore != 0.88 || history[1].Tier != risk.TierMedium {
		t.Fatalf("stored fields differ from appended fields: %+v", history[1])
	}
	if l.LastTier() != risk.TierMedium {
		t.Fatalf("LastTier() = %q, want %q", l.LastTier(), risk.TierMedium)
	}
}

func TestLastTierOnEmptyLog(t *testing.T) {
	l := NewLog(0)
	if got := l.LastTier(); got != risk.TierNormal {
		t.Fatalf("LastTier() on empty log = %q, want %q", got, risk.TierNormal)
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	l := NewLog(0)
	s := l.AddSpeaker()
	if _, err := l.Append(s, "hi", sentiment.LabelPositive, 0.9, risk.TierNormal, time.Time{}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	history := l.History()
	history[0].Text = "mutated"
	if got := l.History()[0].Text; got != "hi" {
		t.Fatalf("log text = %q after mutating snapshot, want %q", got, "hi")
	}
}

func TestEscalationFiresOncePerHighAppend(t *testing.T) {
	l := NewLog(4)
	s := l.AddSpeaker()

	appendTier := func(tier risk.Tier) {
		t.Helper()
		if _, err := l.Append(s, "text", sentiment.LabelNegative, 0.99, tier, time.Time{}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	appendTier(risk.TierNormal)
	appendTier(risk.TierMedium)
	appendTier(risk.TierHigh)
	appendTier(risk.TierHigh)

	received := 0
	for {
		select {
		case <-l.Escalations():
			received++
			continue
		default:
		}
		break
	}
	if received != 2 {
		t.Fatalf("escalations received = %d, want 2", received)
	}
}

func TestEscalationDropIsNonBlocking(t *testing.T) {
	l := NewLog(1)
	s := l.AddSpeaker()

	dropped := 0
	l.SetDropHook(func() { dropped++ })

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 3; i++ {
			if _, err := l.Append(s, "bad", sentiment.LabelNegative, 0.99, risk.TierHigh, time.Time{}); err != nil {
				t.Errorf("Append() error = %v", err)
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("appends blocked on a full escalation channel")
	}
	if dropped != 2 {
		t.Fatalf("dropped = %d, want 2", dropped)
	}
}

func TestAppendClampsBackwardTimestamps(t *testing.T) {
	l := NewLog(0)
	s := l.AddSpeaker()

	later := time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)
	earlier := later.Add(-3 * time.Second)

	if _, err := l.Append(s, "first", sentiment.LabelPositive, 0.9, risk.TierNormal, later); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	second, err := l.Append(s, "second", sentiment.LabelPositive, 0.9, risk.TierNormal, earlier)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if second.Timestamp.Before(later) {
		t.Fatalf("timestamp went backwards: %v before %v", second.Timestamp, later)
	}
}
