package harvest

import (
	"fmt"
	"os"
	"strings"

	"github.com/pdiddy/paper-harvest/pkg/types"
)

const (
	logFileName   = "log.txt"
	logTitleRunes = 60
	logDateLayout = "01-02 15:04"
	logRuleWidth  = 50
)

// LogFile is the plaintext per-session log: a header followed by one line
// per downloaded paper.
type LogFile struct {
	path string
}

// createLog writes the header and returns the log handle. An existing file
// is truncated.
func createLog(path, timestamp string, maxPerQuery int, window Window) (*LogFile, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Paper harvest log - %s\n", timestamp)
	fmt.Fprintf(&b, "Max downloads per query: %d\n", maxPerQuery)
	fmt.Fprintf(&b, "Published on or after: %s (UTC)\n", window)
	b.WriteString(strings.Repeat("=", logRuleWidth) + "\n")

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return nil, fmt.Errorf("writing log header: %w", err)
	}
	return &LogFile{path: path}, nil
}

// Path returns the log file path.
func (l *LogFile) Path() string { return l.path }

// Append adds the line for a downloaded paper.
func (l *LogFile) Append(p types.Paper) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	if _, err := f.WriteString(LogLine(p)); err != nil {
		f.Close()
		return fmt.Errorf("appending to log: %w", err)
	}
	return f.Close()
}

// LogLine formats a paper as "<short id> | <title, 60 runes max> | <MM-DD HH:MM>".
func LogLine(p types.Paper) string {
	title := []rune(p.Title)
	if len(title) > logTitleRunes {
		title = title[:logTitleRunes]
	}
	published := ""
	if !p.Published.IsZero() {
		published = p.Published.UTC().Format(logDateLayout)
	}
	return fmt.Sprintf("%s | %s | %s\n", p.ShortID, string(title), published)
}
