package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dshills/fitscat/internal/indexer"
	"github.com/dshills/fitscat/pkg/types"
)

// maxListedFailures bounds the failed files printed in a summary
const maxListedFailures = 10

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	greenStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	redStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("4")).
			Padding(0, 1)
)

// renderSummary formats the end-of-run report. Styling is applied only when
// color is set.
func renderSummary(stats *indexer.Statistics, color bool) string {
	style := func(s lipgloss.Style, text string) string {
		if !color {
			return text
		}
		return s.Render(text)
	}

	var b strings.Builder
	title := "Indexing complete"
	if stats.Cancelled {
		title = "Indexing cancelled"
	}
	fmt.Fprintf(&b, "%s\n", style(titleStyle, title))
	fmt.Fprintf(&b, "%s %s\n", style(dimStyle, "Directory:"), stats.Root)
	fmt.Fprintf(&b, "%s %d\n", style(dimStyle, "Files found:"), stats.TotalFiles)
	fmt.Fprintf(&b, "%s %s\n", style(dimStyle, "Created:"), style(greenStyle, fmt.Sprint(stats.Created)))
	fmt.Fprintf(&b, "%s %s\n", style(dimStyle, "Updated:"), style(greenStyle, fmt.Sprint(stats.Updated)))

	failed := fmt.Sprint(stats.Failed)
	if stats.Failed > 0 {
		failed = style(redStyle, failed)
	}
	fmt.Fprintf(&b, "%s %s\n", style(dimStyle, "Failed:"), failed)

	for _, o := range types.AllOutcomes {
		if o.IsError() && stats.Outcomes[o] > 0 {
			fmt.Fprintf(&b, "  %s %d\n", style(dimStyle, string(o)+":"), stats.Outcomes[o])
		}
	}
	fmt.Fprintf(&b, "%s %s", style(dimStyle, "Duration:"), stats.Duration.Round(time.Millisecond))

	msgs := stats.ErrorMessages()
	if len(msgs) > 0 {
		b.WriteString("\n")
		for i, msg := range msgs {
			if i == maxListedFailures {
				fmt.Fprintf(&b, "\n  ... and %d more", len(msgs)-maxListedFailures)
				break
			}
			fmt.Fprintf(&b, "\n  %s", style(redStyle, msg))
		}
	}

	if !color {
		return b.String()
	}
	return boxStyle.Render(b.String())
}
