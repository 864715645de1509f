// Package export renders a session's history to a durable text artifact.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/careloop/vigil/internal/conversation"
)

// ErrEmptySession reports an export attempt with no history. Callers surface
// this as a no-op notice, not a hard failure.
var ErrEmptySession = errors.New("session has no utterances to export")

const timestampLayout = "2006-01-02 15:04:05"

// Exporter writes conversation artifacts into a fixed directory. Artifact
// names are derived from the export time; repeated exports always produce
// independent artifacts and never overwrite an earlier one.
type Exporter struct {
	dir string
	now func() time.Time
}

func NewExporter(dir string) *Exporter {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	return &Exporter{dir: dir, now: time.Now}
}

// Export serializes the log's history in insertion order and returns the
// artifact path.
func (e *Exporter) Export(log *conversation.Log) (string, error) {
	history := log.History()
	if len(history) == 0 {
		return "", ErrEmptySession
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	var b strings.Builder
	for _, u := range history {
		fmt.Fprintf(&b, "%s - %s: %s\n", u.Timestamp.Format(timestampLayout), u.Speaker, u.Text)
		fmt.Fprintf(&b, "Risk Level: %s - Sentiment: %.2f\n\n", u.Tier, u.SentimentScore)
	}

	path, err := e.artifactPath()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return path, nil
}

// artifactPath picks conversation_<YYYYMMDD_HHMMSS>.txt, suffixing _1, _2, …
// when two exports land in the same second.
func (e *Exporter) artifactPath() (string, error) {
	stamp := e.now().Format("20060102_150405")
	base := filepath.Join(e.dir, fmt.Sprintf("conversation_%s", stamp))

	candidate := base + ".txt"
	for i := 1; ; i++ {
		_, err := os.Stat(candidate)
		if errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("probe artifact path: %w", err)
		}
		candidate = fmt.Sprintf("%s_%d.txt", base, i)
	}
}
