package cmd

import (
	"fmt"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/evolutia/examgen/internal/material"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8B5CF6"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#14B8A6"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#94A3B8"))
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the exercises found in the course material",
	RunE: func(cmd *cobra.Command, args []string) error {
		base, _ := cmd.Flags().GetString("base")

		ex := material.NewExtractor(base)
		exercises, readings, err := ex.ExtractAll()
		if err != nil {
			return err
		}

		analyzer := material.NewHeuristicAnalyzer()
		out := cmd.OutOrStdout()

		byTopic := make(map[string][]material.Exercise)
		var topics []string
		for _, e := range exercises {
			if _, seen := byTopic[e.Topic]; !seen {
				topics = append(topics, e.Topic)
			}
			byTopic[e.Topic] = append(byTopic[e.Topic], e)
		}

		for _, topic := range topics {
			fmt.Fprintln(out, headingStyle.Render(topic))
			for _, e := range byTopic[topic] {
				an := analyzer.Analyze(e)
				label := e.Label
				if label == "" {
					label = "(unlabeled)"
				}
				fmt.Fprintf(out, "  %s  %s\n",
					labelStyle.Render(fmt.Sprintf("%-36s", label)),
					dimStyle.Render(fmt.Sprintf("%-12s complexity %.2f", an.Type, an.MathComplexity)))
			}
		}

		fmt.Fprintln(out, dimStyle.Render(
			fmt.Sprintf("\n%d exercises, %d readings", len(exercises), len(readings))))
		return nil
	},
}
