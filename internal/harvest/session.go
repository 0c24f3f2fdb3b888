// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-harvest/pkg/types"
)

const (
	// SessionLayout names session directories: YYYY-MM-DD_HH-MM-SS, local time.
	SessionLayout    = "2006-01-02_15-04-05"
	manifestFileName = "session.yaml"
)

// Session is one timestamped output directory holding topic folders, the
// plaintext log, and the manifest.
type Session struct {
	// Timestamp is the directory name.
	Timestamp string

	// Dir is the session directory path.
	Dir string

	// Log is the session's plaintext log.
	Log *LogFile
}

// NewSession creates rootDir/<timestamp> and writes the log header.
func NewSession(rootDir string, now time.Time, maxPerQuery int, window Window) (*Session, error) {
	ts := now.Local().Format(SessionLayout)
	dir := filepath.Join(rootDir, ts)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating session directory %s: %w", dir, err)
	}

	log, err := createLog(filepath.Join(dir, logFileName), ts, maxPerQuery, window)
	if err != nil {
		return nil, err
	}
	return &Session{Timestamp: ts, Dir: dir, Log: log}, nil
}

// TopicDir returns the folder for a topic. It is created on the first
// download into it.
func (s *Session) TopicDir(topic string) string {
	return filepath.Join(s.Dir, topic)
}

// Manifest is the machine-readable record of a session, written as
// session.yaml next to log.txt.
type Manifest struct {
	RunID       string          `yaml:"run_id"`
	StartedAt   time.Time       `yaml:"started_at"`
	FinishedAt  time.Time       `yaml:"finished_at"`
	Cutoff      string          `yaml:"cutoff"`
	MaxPerQuery int             `yaml:"max_per_query"`
	Interrupted bool            `yaml:"interrupted,omitempty"`
	Totals      types.RunRecord `yaml:"totals"`
	Queries     []QueryResult   `yaml:"queries"`
}

// WriteManifest saves m to the session directory.
func (s *Session) WriteManifest(m Manifest) error {
	data, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(s.Dir, manifestFileName), data, 0o644)
}

// ReadManifest loads a session manifest from a session directory.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFileName))
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}
