package memory

import (
	"fmt"
	"os"
	"strings"

	"github.com/sandevgo/membot/internal/core"
)

// Parse splits markdown text into one entry per heading section. Every
// heading level starts a new section; depth carries no nesting semantics.
// Text before the first heading and sections whose body trims to nothing are
// dropped.
func Parse(text, sourceID string) []core.Entry {
	var (
		entries []core.Entry
		section string
		body    []string
		started bool
	)

	flush := func() {
		if !started {
			return
		}
		content := strings.TrimSpace(strings.Join(body, "\n"))
		if content == "" {
			return
		}
		entries = append(entries, core.Entry{
			SourceID: sourceID,
			Section:  section,
			Content:  content,
		})
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, "#") {
			flush()
			section = strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			body = body[:0]
			started = true
			continue
		}
		body = append(body, line)
	}
	flush()

	return entries
}

// ParseFile parses a markdown file; the file path becomes the source id.
func ParseFile(path string) ([]core.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file %s: %w", path, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(string(data), path), nil
}
