package risk

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// DefaultKeywords returns the built-in high-risk phrase list. Matching is a
// case-insensitive substring scan against the lower-cased utterance.
func DefaultKeywords() []string {
	return []string{
		"suicide", "kill", "hurt", "harm", "die", "end my life",
		"self harm", "cut myself", "overdose", "pills",
	}
}

// LoadKeywords reads a newline-delimited phrase list. Blank lines and lines
// starting with '#' are skipped, so the list can be adjusted in deployment
// without touching classification logic.
func LoadKeywords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open keywords file: %w", err)
	}
	defer f.Close()

	var keywords []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keywords = append(keywords, strings.ToLower(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read keywords file: %w", err)
	}
	if len(keywords) == 0 {
		return nil, fmt.Errorf("keywords file %s contains no phrases", path)
	}
	return keywords, nil
}
