// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify maps queries to topic folders by keyword matching.
package classify

import (
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/paper-harvest/pkg/types"
)

// Fallback is the folder for queries that match no rule.
const Fallback = "others"

// DefaultRules returns the built-in topic rules in match order.
func DefaultRules() []types.TopicRule {
	return []types.TopicRule{
		{Folder: "gnn-diffusion", Keywords: []string{"graph", "gnn", "geometric", "equivariant", "diffusion"}},
		{Folder: "causal-representation", Keywords: []string{"causal", "invariant", "disentanglement"}},
		{Folder: "time-series-dynamics", Keywords: []string{"time", "temporal", "dynamics", "kinetic"}},
		{Folder: "llm-rl-generation", Keywords: []string{"large language", "llm", "reinforcement", "molecule generation"}},
		{Folder: "agent-cl-autonomous", Keywords: []string{"agent", "continual", "lifelong", "autonomous", "closed-loop"}},
	}
}

// Classifier assigns a query to the first rule with a matching keyword.
type Classifier struct {
	rules []types.TopicRule
}

// New validates rules and returns a Classifier. Keywords are lowercased and
// blank keywords dropped. An empty rule set yields DefaultRules.
func New(rules []types.TopicRule) (*Classifier, error) {
	if len(rules) == 0 {
		rules = DefaultRules()
	}

	seen := make(map[string]bool)
	normalized := make([]types.TopicRule, 0, len(rules))
	for i, r := range rules {
		folder := strings.TrimSpace(r.Folder)
		if err := validFolder(folder); err != nil {
			return nil, fmt.Errorf("topic rule %d: %w", i+1, err)
		}
		if seen[folder] {
			return nil, fmt.Errorf("topic rule %d: duplicate folder %q", i+1, folder)
		}
		seen[folder] = true

		var kws []string
		for _, kw := range r.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				kws = append(kws, kw)
			}
		}
		if len(kws) == 0 {
			return nil, fmt.Errorf("topic rule %d (%s): no keywords", i+1, folder)
		}
		normalized = append(normalized, types.TopicRule{Folder: folder, Keywords: kws})
	}
	return &Classifier{rules: normalized}, nil
}

// Rules returns the normalized rules in match order.
func (c *Classifier) Rules() []types.TopicRule {
	out := make([]types.TopicRule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Classify returns the topic folder for query.
func (c *Classifier) Classify(query string) string {
	folder, _ := c.Match(query)
	return folder
}

// Match returns the topic folder for query and the keyword that selected
// it. The keyword is empty when the query falls through to Fallback.
func (c *Classifier) Match(query string) (folder, keyword string) {
	q := strings.ToLower(query)
	for _, r := range c.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(q, kw) {
				return r.Folder, kw
			}
		}
	}
	return Fallback, ""
}

// Folders lists every folder the classifier can return, Fallback last.
func (c *Classifier) Folders() []string {
	folders := make([]string, 0, len(c.rules)+1)
	for _, r := range c.rules {
		folders = append(folders, r.Folder)
	}
	return append(folders, Fallback)
}

// FormatRules writes the rule table to w.
func (c *Classifier) FormatRules(w io.Writer) {
	fmt.Fprintf(w, "%-4s  %-26s  %s\n", "#", "Folder", "Keywords")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for i, r := range c.rules {
		fmt.Fprintf(w, "%-4d  %-26s  %s\n", i+1, r.Folder, strings.Join(r.Keywords, ", "))
	}
	fmt.Fprintf(w, "%-4s  %-26s  %s\n", "-", Fallback, "(no match)")
}

func validFolder(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("empty folder name")
	case name == "." || name == "..":
		return fmt.Errorf("invalid folder name %q", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("folder name %q contains a path separator", name)
	case name == Fallback:
		return fmt.Errorf("folder name %q is reserved for unmatched queries", name)
	}
	return nil
}
