package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-harvest/internal/search"
)

var topicsCmd = &cobra.Command{
	Use:   "topics [query...]",
	Short: "Show topic rules or classify queries",
	Long: `Topics prints the classification rules in match order. A query belongs to
the first rule with a keyword contained in the lowercased query; queries that
match nothing go to "others".

With arguments, each argument is classified and the matching keyword shown.
Use --queries to classify every line of a query file.`,
	RunE: runTopics,
}

func init() {
	topicsCmd.Flags().String("queries", "", "classify every query in this file")

	rootCmd.AddCommand(topicsCmd)
}

func runTopics(cmd *cobra.Command, args []string) error {
	classifier, err := loadClassifier()
	if err != nil {
		return err
	}

	queries := args
	if path, _ := cmd.Flags().GetString("queries"); path != "" {
		fromFile, err := search.ReadQueries(path)
		if err != nil {
			return err
		}
		queries = append(queries, fromFile...)
	}

	if len(queries) == 0 {
		classifier.FormatRules(os.Stdout)
		return nil
	}

	for _, q := range queries {
		folder, kw := classifier.Match(q)
		if kw == "" {
			kw = "-"
		}
		fmt.Printf("%-26s  %-20s  %s\n", folder, kw, strings.TrimSpace(q))
	}
	return nil
}
