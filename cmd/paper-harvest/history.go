// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-harvest/internal/harvest"
	"github.com/pdiddy/paper-harvest/internal/history"
	"github.com/pdiddy/paper-harvest/internal/search"
	"github.com/pdiddy/paper-harvest/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the record of harvested papers and runs",
	Long: `History reads the SQLite database written by run (default
<root-dir>/history.db). Papers recorded there are skipped by later runs;
forget removes a paper so the next run downloads it again.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List harvested papers, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List harvest runs, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryRuns,
}

var historyForgetCmd = &cobra.Command{
	Use:   "forget <arxiv-id>...",
	Short: "Remove papers from the history so they can be downloaded again",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runHistoryForget,
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export harvested papers as YAML, JSON, or CSL-YAML",
	Args:  cobra.NoArgs,
	RunE:  runHistoryExport,
}

func init() {
	historyCmd.PersistentFlags().String("db", "", "history database (default <root-dir>/history.db)")

	for _, c := range []*cobra.Command{historyListCmd, historyExportCmd} {
		c.Flags().String("query", "", "match words in title or abstract")
		c.Flags().String("topic", "", "filter by topic folder")
		c.Flags().String("run", "", "filter by run ID")
		c.Flags().String("since", "", "only papers harvested on or after this date")
	}
	historyListCmd.Flags().Int("limit", 50, "maximum papers to list (negative for all)")
	historyListCmd.Flags().Bool("json", false, "output as JSON")
	historyRunsCmd.Flags().Int("limit", 20, "maximum runs to list")
	historyExportCmd.Flags().String("format", "yaml", "output format: yaml, json, csl")
	historyExportCmd.Flags().StringP("output", "o", "", "write to file instead of stdout")

	historyCmd.AddCommand(historyListCmd, historyRunsCmd, historyForgetCmd, historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}

func openHistory(cmd *cobra.Command) (*history.Store, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return history.Open(p)
	}
	return openExistingHistory()
}

func listOptions(cmd *cobra.Command) (history.ListOptions, error) {
	var opts history.ListOptions
	opts.Query, _ = cmd.Flags().GetString("query")
	opts.Topic, _ = cmd.Flags().GetString("topic")
	opts.RunID, _ = cmd.Flags().GetString("run")
	if s, _ := cmd.Flags().GetString("since"); s != "" {
		since, err := harvest.ParseSince(s)
		if err != nil {
			return opts, err
		}
		opts.Since = since
	}
	return opts, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	opts, err := listOptions(cmd)
	if err != nil {
		return err
	}
	opts.Limit, _ = cmd.Flags().GetInt("limit")

	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	papers, err := store.List(cmd.Context(), opts)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(os.Stdout, papers)
	}
	formatPapers(papers, time.Now(), os.Stdout)
	return nil
}

func formatPapers(papers []types.Paper, now time.Time, w io.Writer) {
	if len(papers) == 0 {
		fmt.Fprintln(w, "No papers in history.")
		return
	}
	fmt.Fprintf(w, "%-18s  %-22s  %-14s  %8s  %s\n", "ID", "Topic", "Harvested", "Size", "Title")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, p := range papers {
		fmt.Fprintf(w, "%-18s  %-22s  %-14s  %8s  %s\n",
			p.ShortID,
			p.Topic,
			humanize.RelTime(p.HarvestedAt, now, "ago", "from now"),
			humanize.Bytes(uint64(p.Bytes)),
			p.Title,
		)
	}
	fmt.Fprintf(w, "\n%d papers\n", len(papers))
}

func runHistoryRuns(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs(cmd.Context(), limit)
	if err != nil {
		return err
	}
	formatRuns(runs, time.Now(), os.Stdout)
	return nil
}

func formatRuns(runs []types.RunRecord, now time.Time, w io.Writer) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	fmt.Fprintf(w, "%-36s  %-14s  %8s  %5s  %5s  %5s  %s\n",
		"Run", "Started", "Duration", "Down", "Skip", "Fail", "Session")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, r := range runs {
		duration := "running"
		if !r.FinishedAt.IsZero() {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		fmt.Fprintf(w, "%-36s  %-14s  %8s  %5d  %5d  %5d  %s\n",
			r.ID,
			humanize.RelTime(r.StartedAt, now, "ago", "from now"),
			duration,
			r.Downloaded, r.Skipped, r.Failed,
			r.SessionDir,
		)
	}
}

func runHistoryForget(cmd *cobra.Command, args []string) error {
	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, arg := range args {
		id, ok := search.ParseArxivID(arg)
		if !ok {
			fmt.Fprintf(os.Stdout, "warning: %q is not an arXiv ID\n", arg)
			continue
		}
		removed, err := store.Forget(cmd.Context(), id.ID)
		if err != nil {
			return err
		}
		if removed {
			fmt.Fprintf(os.Stdout, "forgot: %s\n", id.ID)
		} else {
			fmt.Fprintf(os.Stdout, "not found: %s\n", id.ID)
		}
	}
	return nil
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	opts, err := listOptions(cmd)
	if err != nil {
		return err
	}
	opts.Limit = -1
	format, _ := cmd.Flags().GetString("format")

	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	papers, err := store.List(cmd.Context(), opts)
	if err != nil {
		return err
	}

	if out, _ := cmd.Flags().GetString("output"); out != "" {
		err = exportToFile(papers, format, out)
	} else {
		err = exportPapers(papers, format, os.Stdout)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "exported: %d papers (%s)\n", len(papers), format)
	return nil
}

// exportToFile writes the export to path and reports a failed close.
func exportToFile(papers []types.Paper, format, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := exportPapers(papers, format, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

func exportPapers(papers []types.Paper, format string, w io.Writer) error {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(papers); err != nil {
			return fmt.Errorf("encoding YAML: %w", err)
		}
		return enc.Close()
	case "json":
		return writeJSON(w, papers)
	case "csl":
		return search.FormatCSL(papers, w)
	default:
		return fmt.Errorf("unknown export format %q (want yaml, json, or csl)", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
