package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evolutia/examgen/internal/material"
	"github.com/evolutia/examgen/internal/rag"
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Search the retrieval index",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		base, _ := cmd.Flags().GetString("base")
		topK, _ := cmd.Flags().GetInt("top")
		query := strings.Join(args, " ")
		ctx := cmd.Context()

		idx, err := rag.OpenSQLiteIndex(indexPath(base))
		if err != nil {
			return fmt.Errorf("open retrieval index: %w", err)
		}
		defer idx.Close()

		indexed, err := idx.IsIndexed(ctx)
		if err != nil {
			return err
		}
		if !indexed {
			ex := material.NewExtractor(base)
			exercises, readings, err := ex.ExtractAll()
			if err != nil {
				return err
			}
			if err := idx.IndexMaterials(ctx, exercises, readings, material.NewHeuristicAnalyzer(), true); err != nil {
				return fmt.Errorf("index material: %w", err)
			}
		}

		hits, err := idx.Search(ctx, query, topK)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(hits) == 0 {
			fmt.Fprintln(out, dimStyle.Render("No matches."))
			return nil
		}

		for i, h := range hits {
			header := fmt.Sprintf("[%d] %.2f", i+1, h.Similarity)
			if l := h.Metadata["label"]; l != "" {
				header += "  " + l
			} else if s := h.Metadata["source"]; s != "" {
				header += "  " + s
			}
			fmt.Fprintln(out, headingStyle.Render(header))
			fmt.Fprintln(out, snippet(h.Content, 240))
			fmt.Fprintln(out)
		}
		return nil
	},
}

func snippet(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}

func init() {
	queryCmd.Flags().Int("top", 5, "Number of results to show")
}
