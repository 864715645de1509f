package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/careloop/vigil/internal/config"
	"github.com/careloop/vigil/internal/conversation"
	"github.com/careloop/vigil/internal/export"
	"github.com/careloop/vigil/internal/ingest"
	"github.com/careloop/vigil/internal/observability"
	"github.com/careloop/vigil/internal/protocol"
)

type Server struct {
	cfg      config.Config
	sessions *conversation.Manager
	pipeline *ingest.Service
	exporter *export.Exporter
	metrics  *observability.Metrics
	stages   *observability.StageWindow
	upgrader websocket.Upgrader
}

func New(cfg config.Config, sessions *conversation.Manager, pipeline *ingest.Service, exporter *export.Exporter, metrics *observability.Metrics, stages *observability.StageWindow) *Server {
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		pipeline: pipeline,
		exporter: exporter,
		metrics:  metrics,
		stages:   stages,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the
				// same origin, so other sites cannot attach to a live
				// monitoring feed if the service is exposed beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/sessions", s.handleCreateSession)
	r.Post("/v1/sessions/{id}/end", s.handleEndSession)
	r.Post("/v1/sessions/{id}/speakers", s.handleAddSpeaker)
	r.Post("/v1/sessions/{id}/utterances", s.handleSubmitUtterance)
	r.Get("/v1/sessions/{id}/history", s.handleHistory)
	r.Get("/v1/sessions/{id}/risk", s.handleRisk)
	r.Post("/v1/sessions/{id}/export", s.handleExport)
	r.Get("/v1/sessions/ws", s.handleSessionWS)
	r.Get("/v1/perf/pipeline", s.handlePerfPipeline)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ready",
		"active_sessions": s.sessions.ActiveCount(),
	})
}

type createSessionResponse struct {
	SessionID       string              `json:"session_id"`
	Status          conversation.Status `json:"status"`
	StartedAt       time.Time           `json:"started_at"`
	InactivityTTLMS int64               `json:"inactivity_ttl_ms"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	s.pipeline.StartSession(context.Background(), sess)
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("created").Inc()

	respondJSON(w, http.StatusCreated, createSessionResponse{
		SessionID:       sess.ID,
		Status:          sess.Status,
		StartedAt:       sess.StartedAt,
		InactivityTTLMS: s.cfg.SessionInactivityTimeout.Milliseconds(),
	})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	sess, err := s.sessions.End(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	s.pipeline.StopSession(id)
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("ended").Inc()
	respondJSON(w, http.StatusOK, sess)
}

type addSpeakerResponse struct {
	SpeakerID string   `json:"speaker_id"`
	Speakers  []string `json:"speakers"`
}

func (s *Server) handleAddSpeaker(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.activeSession(w, r)
	if !ok {
		return
	}

	id := sess.Log.AddSpeaker()
	_ = s.sessions.Touch(sess.ID)

	speakers := sess.Log.Speakers()
	out := make([]string, 0, len(speakers))
	for _, sp := range speakers {
		out = append(out, string(sp))
	}
	respondJSON(w, http.StatusCreated, addSpeakerResponse{SpeakerID: string(id), Speakers: out})
}

type submitUtteranceRequest struct {
	SpeakerID string `json:"speaker_id"`
	Text      string `json:"text"`
	TSMs      int64  `json:"ts_ms"`
}

func (s *Server) handleSubmitUtterance(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.activeSession(w, r)
	if !ok {
		return
	}

	var req submitUtteranceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.SpeakerID) == "" {
		respondError(w, http.StatusBadRequest, "missing_speaker_id", "speaker_id is required")
		return
	}

	var at time.Time
	if req.TSMs > 0 {
		at = time.UnixMilli(req.TSMs).UTC()
	}
	err := s.pipeline.Submit(sess.ID, ingest.Submission{
		Speaker: conversation.SpeakerID(req.SpeakerID),
		Text:    req.Text,
		At:      at,
	})
	switch {
	case errors.Is(err, ingest.ErrNoWorker):
		respondError(w, http.StatusConflict, "session_not_ingesting", err.Error())
		return
	case errors.Is(err, ingest.ErrQueueFull):
		respondError(w, http.StatusServiceUnavailable, "ingest_backpressure", err.Error())
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "ingest_failed", err.Error())
		return
	}
	_ = s.sessions.Touch(sess.ID)

	respondJSON(w, http.StatusAccepted, map[string]any{"status": "queued"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.knownSession(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"session_id": sess.ID,
		"history":    sess.Log.History(),
	})
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.knownSession(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"session_id": sess.ID,
		"risk_tier":  sess.Log.LastTier(),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.knownSession(w, r)
	if !ok {
		return
	}

	path, err := s.exporter.Export(sess.Log)
	if errors.Is(err, export.ErrEmptySession) {
		// A no-op notice, not a failure that aborts anything.
		s.metrics.ExportEvents.WithLabelValues("empty").Inc()
		respondError(w, http.StatusConflict, "empty_session", err.Error())
		return
	}
	if err != nil {
		s.metrics.ExportEvents.WithLabelValues("error").Inc()
		respondError(w, http.StatusInternalServerError, "export_failed", err.Error())
		return
	}
	s.metrics.ExportEvents.WithLabelValues("ok").Inc()
	respondJSON(w, http.StatusCreated, map[string]any{
		"artifact": path,
		"records":  sess.Log.Len(),
	})
}

func (s *Server) handlePerfPipeline(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.stages.Snapshot())
}

func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}

	events, unsubscribe, err := s.pipeline.Subscribe(sess.ID)
	if err != nil {
		respondError(w, http.StatusConflict, "session_not_ingesting", err.Error())
		return
	}
	defer unsubscribe()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-events:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
				if t, known := messageTypeOf(msg); known {
					s.metrics.WSMessages.WithLabelValues("outbound", string(t)).Inc()
				}
			}
		}
	}()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

readLoop:
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			_ = conn.WriteJSON(protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "invalid_client_message",
				Source:    "gateway",
				Retryable: false,
				Detail:    err.Error(),
			})
			continue
		}
		if t, known := messageTypeOf(parsed); known {
			s.metrics.WSMessages.WithLabelValues("inbound", string(t)).Inc()
		}

		switch msg := parsed.(type) {
		case protocol.ClientUtterance:
			var at time.Time
			if msg.TSMs > 0 {
				at = time.UnixMilli(msg.TSMs).UTC()
			}
			submitErr := s.pipeline.Submit(sess.ID, ingest.Submission{
				Speaker: conversation.SpeakerID(msg.SpeakerID),
				Text:    msg.Text,
				At:      at,
			})
			if submitErr != nil {
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				_ = conn.WriteJSON(protocol.ErrorEvent{
					Type:      protocol.TypeErrorEvent,
					SessionID: sessionID,
					Code:      "submit_failed",
					Source:    "ingest",
					Retryable: errors.Is(submitErr, ingest.ErrQueueFull),
					Detail:    submitErr.Error(),
				})
				continue
			}
			_ = s.sessions.Touch(sess.ID)
		case protocol.ClientControl:
			// Only keepalive-style controls exist today.
		}

		select {
		case <-ctx.Done():
			break readLoop
		default:
		}
	}

	cancel()
	<-writerDone
	s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()
}

func (s *Server) knownSession(w http.ResponseWriter, r *http.Request) (*conversation.Session, bool) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return nil, false
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return nil, false
	}
	return sess, true
}

func (s *Server) activeSession(w http.ResponseWriter, r *http.Request) (*conversation.Session, bool) {
	sess, ok := s.knownSession(w, r)
	if !ok {
		return nil, false
	}
	if sess.Status != conversation.StatusActive {
		respondError(w, http.StatusConflict, "session_ended", "session is no longer active")
		return nil, false
	}
	return sess, true
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.ClientUtterance:
		return m.Type, true
	case protocol.ClientControl:
		return m.Type, true
	case protocol.TranscriptEntry:
		return m.Type, true
	case protocol.RiskUpdate:
		return m.Type, true
	case protocol.EscalationAlert:
		return m.Type, true
	case protocol.SystemEvent:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
