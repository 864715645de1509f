package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/careloop/vigil/internal/protocol"
	"github.com/careloop/vigil/internal/sentiment"
)

func TestWebsocketFeedDeliversEscalation(t *testing.T) {
	ts := newTestServer(t, staticScorer{result: sentiment.Result{Label: sentiment.LabelPositive, Confidence: 0.9}})

	_, created := postJSON(t, ts.URL+"/v1/sessions", nil)
	sessionID, _ := created["session_id"].(string)
	_, speaker := postJSON(t, ts.URL+"/v1/sessions/"+sessionID+"/speakers", nil)
	speakerID, _ := speaker["speaker_id"].(string)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/sessions/ws?session_id=" + sessionID
	conn, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()
	defer res.Body.Close()

	// Submit through the websocket itself, the streaming transcription path.
	utterance := protocol.ClientUtterance{
		Type:      protocol.TypeClientUtterance,
		SessionID: sessionID,
		SpeakerID: speakerID,
		Text:      "I keep thinking about suicide",
	}
	if err := conn.WriteJSON(utterance); err != nil {
		t.Fatalf("write utterance: %v", err)
	}

	sawEntry := false
	sawAlert := false
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !(sawEntry && sawAlert) {
		_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		_, data, err := conn.ReadMessage()
		if err != nil {
			continue
		}
		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
		switch env.Type {
		case protocol.TypeTranscriptEntry:
			var entry protocol.TranscriptEntry
			if err := json.Unmarshal(data, &entry); err != nil {
				t.Fatalf("decode transcript entry: %v", err)
			}
			if entry.RiskTier != "High" {
				t.Fatalf("RiskTier = %q, want High", entry.RiskTier)
			}
			sawEntry = true
		case protocol.TypeEscalationAlert:
			var alert protocol.EscalationAlert
			if err := json.Unmarshal(data, &alert); err != nil {
				t.Fatalf("decode escalation alert: %v", err)
			}
			if alert.Speaker != speakerID {
				t.Fatalf("alert speaker = %q, want %q", alert.Speaker, speakerID)
			}
			sawAlert = true
		}
	}
	if !sawEntry || !sawAlert {
		t.Fatalf("missed events: entry=%v alert=%v", sawEntry, sawAlert)
	}
}

func TestWebsocketRejectsUnknownSession(t *testing.T) {
	ts := newTestServer(t, staticScorer{result: sentiment.Result{Label: sentiment.LabelPositive, Confidence: 0.9}})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/sessions/ws?session_id=nope"
	_, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatalf("dial should fail for unknown session")
	}
	if res != nil {
		defer res.Body.Close()
		if res.StatusCode != http.StatusNotFound {
			t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNotFound)
		}
	}
}
