//go:build mage

// Package main contains Mage build targets for paper-harvest developer tooling.
package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir      = "bin"
	binName     = "paper-harvest"
	cmdPkg      = "./cmd/paper-harvest"
	rootDir     = "pdf"
	queriesFile = "queries.txt"
)

// sampleQueries seeds queries.txt on Init. One query per line; # starts a comment.
const sampleQueries = `# One arXiv query per line. Field syntax (ti:, au:, cat:) is passed through.
graph neural networks
causal representation learning
time series foundation models
large language model agents
continual learning
`

// Init creates the output directory and a sample query file.
func Init() error {
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", rootDir, err)
	}
	fmt.Println("  ", rootDir)

	if _, err := os.Stat(queriesFile); os.IsNotExist(err) {
		if err := os.WriteFile(queriesFile, []byte(sampleQueries), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", queriesFile, err)
		}
		fmt.Println("  ", queriesFile)
	}
	fmt.Println("Project initialized.")
	return nil
}

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || version == "" {
		version = "dev"
	}
	if err := sh.RunV("go", "build", "-ldflags", "-X main.version="+version, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Harvest builds the CLI and runs a harvest with the local configuration.
func Harvest() error {
	mg.Deps(Init, Build)
	return sh.RunV(filepath.Join(binDir, binName), "run")
}

// Stats prints project metrics: Go production/test LOC and harvested PDFs per topic.
func Stats() error {
	prodLines, testLines, err := countGoLines(".")
	if err != nil {
		return err
	}
	fmt.Printf("Lines of code (Go, production): %d\n", prodLines)
	fmt.Printf("Lines of code (Go, tests):      %d\n", testLines)

	perTopic, err := countPDFs(rootDir)
	if err != nil {
		return err
	}
	if len(perTopic) == 0 {
		fmt.Println("No harvested PDFs.")
		return nil
	}
	topics := make([]string, 0, len(perTopic))
	for t := range perTopic {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	fmt.Println("PDFs per topic:")
	for _, t := range topics {
		fmt.Printf("  %-26s %d\n", t, perTopic[t])
	}
	return nil
}

// countGoLines counts non-blank lines in production and test Go files,
// skipping hidden and underscore-prefixed directories.
func countGoLines(root string) (prod, test int, err error) {
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			name := info.Name()
			if path != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		n := 0
		for _, line := range bytes.Split(data, []byte("\n")) {
			if len(bytes.TrimSpace(line)) > 0 {
				n++
			}
		}
		if strings.HasSuffix(path, "_test.go") {
			test += n
		} else {
			prod += n
		}
		return nil
	})
	return prod, test, err
}

// countPDFs counts PDFs by topic folder across all session directories
// (<root>/<session>/<topic>/*.pdf).
func countPDFs(root string) (map[string]int, error) {
	matches, err := filepath.Glob(filepath.Join(root, "*", "*", "*.pdf"))
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, m := range matches {
		counts[filepath.Base(filepath.Dir(m))]++
	}
	return counts, nil
}
