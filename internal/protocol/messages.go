package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeClientUtterance MessageType = "client_utterance"
	TypeClientControl   MessageType = "client_control"
	TypeTranscriptEntry MessageType = "transcript_entry"
	TypeRiskUpdate      MessageType = "risk_update"
	TypeEscalationAlert MessageType = "escalation_alert"
	TypeSystemEvent     MessageType = "system_event"
	TypeErrorEvent      MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// ClientUtterance carries one transcribed unit from the upstream
// speech-to-text collaborator, already attributed to a speaker.
type ClientUtterance struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	SpeakerID string      `json:"speaker_id"`
	Text      string      `json:"text"`
	TSMs      int64       `json:"ts_ms"`
}

type ClientControl struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Action    string      `json:"action"`
}

// TranscriptEntry is the stored record echoed to the live monitor view.
type TranscriptEntry struct {
	Type           MessageType `json:"type"`
	SessionID      string      `json:"session_id"`
	Speaker        string      `json:"speaker"`
	Text           string      `json:"text"`
	SentimentLabel string      `json:"sentiment_label"`
	SentimentScore float64     `json:"sentiment_score"`
	RiskTier       string      `json:"risk_tier"`
	TSMs           int64       `json:"ts_ms"`
}

// RiskUpdate reports the session's current (most recent) risk tier.
type RiskUpdate struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	RiskTier  string      `json:"risk_tier"`
}

// EscalationAlert is pushed once per High-tier utterance.
type EscalationAlert struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Speaker   string      `json:"speaker"`
	Text      string      `json:"text"`
	TSMs      int64       `json:"ts_ms"`
}

type SystemEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Detail    string      `json:"detail,omitempty"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Source    string      `json:"source"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientUtterance:
		var msg ClientUtterance
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.SpeakerID == "" {
			return nil, errors.New("invalid client_utterance")
		}
		return msg, nil
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.Action == "" {
			return nil, errors.New("invalid client_control")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
