// Package ingest drives arriving (speaker, text) pairs through sentiment
// scoring, risk classification and the session log, in arrival order.
package ingest

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/careloop/vigil/internal/archive"
	"github.com/careloop/vigil/internal/conversation"
	"github.com/careloop/vigil/internal/observability"
	"github.com/careloop/vigil/internal/policy"
	"github.com/careloop/vigil/internal/protocol"
	"github.com/careloop/vigil/internal/risk"
	"github.com/careloop/vigil/internal/sentiment"
)

var (
	ErrNoWorker  = errors.New("no ingest worker for session")
	ErrQueueFull = errors.New("ingest queue full")
)

const defaultQueueSize = 256

// Submission is one arriving utterance from the upstream transcription
// collaborator.
type Submission struct {
	Speaker conversation.SpeakerID
	Text    string
	At      time.Time
}

// Options tune pipeline behavior.
type Options struct {
	QueueSize int
	RedactPII bool
}

// Service runs one ingest worker per session. The worker is the only writer
// to its session log, so appends are serialized by construction; sentiment
// scoring happens in the worker before the log is touched and never holds
// the log's lock.
type Service struct {
	scorer     sentiment.Scorer
	classifier *risk.Classifier
	store      archive.Store
	metrics    *observability.Metrics
	stages     *observability.StageWindow
	opts       Options

	mu      sync.Mutex
	workers map[string]*worker
}

func NewService(scorer sentiment.Scorer, classifier *risk.Classifier, store archive.Store, metrics *observability.Metrics, stages *observability.StageWindow, opts Options) *Service {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	return &Service{
		scorer:     scorer,
		classifier: classifier,
		store:      store,
		metrics:    metrics,
		stages:     stages,
		opts:       opts,
		workers:    make(map[string]*worker),
	}
}

type worker struct {
	sess   *conversation.Session
	in     chan Submission
	cancel context.CancelFunc
	done   chan struct{}

	subMu   sync.Mutex
	subs    map[int]chan any
	nextSub int
}

// StartSession launches the ingest worker for a session. Idempotent per
// session ID.
func (s *Service) StartSession(ctx context.Context, sess *conversation.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workers[sess.ID]; ok {
		return
	}

	wctx, cancel := context.WithCancel(ctx)
	w := &worker{
		sess:   sess,
		in:     make(chan Submission, s.opts.QueueSize),
		cancel: cancel,
		done:   make(chan struct{}),
		subs:   make(map[int]chan any),
	}
	sess.Log.SetDropHook(s.metrics.EscalationsDropped.Inc)
	s.workers[sess.ID] = w

	go func() {
		defer close(w.done)
		for {
			select {
			case <-wctx.Done():
				return
			case sub := <-w.in:
				s.process(wctx, w, sub)
			}
		}
	}()
}

// StopSession stops and removes the session's worker. Queued submissions
// that have not been processed yet are discarded.
func (s *Service) StopSession(sessionID string) {
	s.mu.Lock()
	w, ok := s.workers[sessionID]
	if ok {
		delete(s.workers, sessionID)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	w.cancel()
	<-w.done

	w.subMu.Lock()
	for id, ch := range w.subs {
		close(ch)
		delete(w.subs, id)
	}
	w.subMu.Unlock()
}

// Submit enqueues one utterance for the session's worker. Never blocks; a
// saturated queue is reported so the transport can apply backpressure.
func (s *Service) Submit(sessionID string, sub Submission) error {
	s.mu.Lock()
	w, ok := s.workers[sessionID]
	s.mu.Unlock()
	if !ok {
		return ErrNoWorker
	}
	select {
	case w.in <- sub:
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe registers a live feed of pipeline events (transcript entries,
// risk updates, escalation alerts) for the session. The returned cancel
// function must be called when the consumer goes away.
func (s *Service) Subscribe(sessionID string) (<-chan any, func(), error) {
	s.mu.Lock()
	w, ok := s.workers[sessionID]
	s.mu.Unlock()
	if !ok {
		return nil, nil, ErrNoWorker
	}

	w.subMu.Lock()
	defer w.subMu.Unlock()
	id := w.nextSub
	w.nextSub++
	ch := make(chan any, 64)
	w.subs[id] = ch

	cancel := func() {
		w.subMu.Lock()
		defer w.subMu.Unlock()
		if existing, ok := w.subs[id]; ok {
			delete(w.subs, id)
			close(existing)
		}
	}
	return ch, cancel, nil
}

func (s *Service) process(ctx context.Context, w *worker, sub Submission) {
	text := strings.TrimSpace(sub.Text)
	if text == "" {
		// Blank transcriptions are dropped upstream of the classifier; this
		// is a filtering rule, not an error.
		s.metrics.BlankTranscripts.Inc()
		s.stages.ObserveIndicator("blank_dropped")
		return
	}

	started := time.Now()
	at := sub.At
	if at.IsZero() {
		at = started.UTC()
	}

	// At most one scoring call per utterance; failure degrades to
	// keyword-only classification rather than halting the stream.
	scoreStart := time.Now()
	res, err := s.scorer.Score(ctx, text)
	s.metrics.ObserveSentimentLatency(time.Since(scoreStart))
	s.stages.Observe("sentiment_score", float64(time.Since(scoreStart).Microseconds())/1000)
	if err != nil {
		log.Printf("session %s: sentiment unavailable, keyword-only classification: %v", w.sess.ID, err)
		s.metrics.SentimentFailures.Inc()
		s.stages.ObserveIndicator("sentiment_fallback")
		res = sentiment.Result{}
	}

	classifyStart := time.Now()
	tier := s.classifier.Classify(text, res.Label, res.Confidence)
	s.stages.Observe("classify", float64(time.Since(classifyStart).Microseconds())/1000)

	stored := text
	if s.opts.RedactPII {
		stored, _ = policy.RedactPII(text)
	}

	appendStart := time.Now()
	u, err := w.sess.Log.Append(sub.Speaker, stored, res.Label, res.Confidence, tier, at)
	s.stages.Observe("append", float64(time.Since(appendStart).Microseconds())/1000)
	if err != nil {
		log.Printf("session %s: append rejected: %v", w.sess.ID, err)
		w.publish(protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: w.sess.ID,
			Code:      "unknown_speaker",
			Source:    "ingest",
			Retryable: false,
			Detail:    err.Error(),
		})
		return
	}

	s.metrics.UtterancesIngested.WithLabelValues(string(u.Tier)).Inc()

	if s.store != nil {
		archiveErr := s.store.SaveUtterance(ctx, archive.Record{
			SessionID:      w.sess.ID,
			Speaker:        string(u.Speaker),
			Text:           u.Text,
			SentimentLabel: string(u.SentimentLabel),
			SentimentScore: u.SentimentScore,
			RiskTier:       string(u.Tier),
			CreatedAt:      u.Timestamp,
		})
		if archiveErr != nil {
			log.Printf("session %s: archive write failed: %v", w.sess.ID, archiveErr)
		}
	}

	w.publish(protocol.TranscriptEntry{
		Type:           protocol.TypeTranscriptEntry,
		SessionID:      w.sess.ID,
		Speaker:        string(u.Speaker),
		Text:           u.Text,
		SentimentLabel: string(u.SentimentLabel),
		SentimentScore: u.SentimentScore,
		RiskTier:       string(u.Tier),
		TSMs:           u.Timestamp.UnixMilli(),
	})
	w.publish(protocol.RiskUpdate{
		Type:      protocol.TypeRiskUpdate,
		SessionID: w.sess.ID,
		RiskTier:  string(w.sess.Log.LastTier()),
	})

	// The log raised at most one escalation for this append; forward it.
	select {
	case esc := <-w.sess.Log.Escalations():
		s.metrics.EscalationsTotal.Inc()
		w.publish(protocol.EscalationAlert{
			Type:      protocol.TypeEscalationAlert,
			SessionID: w.sess.ID,
			Speaker:   string(esc.Speaker),
			Text:      esc.Text,
			TSMs:      esc.Timestamp.UnixMilli(),
		})
	default:
	}

	s.stages.Observe("utterance_total", float64(time.Since(started).Microseconds())/1000)
}

// publish fans an event out to subscribers without ever blocking the worker.
func (w *worker) publish(event any) {
	w.subMu.Lock()
	defer w.subMu.Unlock()
	for _, ch := range w.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
