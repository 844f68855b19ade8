package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/scribe/internal/document"
	"github.com/Iron-Ham/scribe/internal/router"
	"github.com/Iron-Ham/scribe/internal/usage"
)

// RenderSummary renders the end-of-run report for b, wrapped to width.
func RenderSummary(b *document.Bundle, files []string, width int) string {
	words, images := 0, 0
	for _, s := range b.Sections {
		words += s.WordCount
	}
	for _, si := range b.Images {
		images += len(si.Images)
	}
	m := b.Metadata
	r := b.Reviews

	rows := [][2]string{
		{"run", m.RunID},
		{"sections", fmt.Sprintf("%d (%d words)", len(b.Sections), words)},
		{"review", fmt.Sprintf("score %.1f, %d passes, %d rewrites", r.FinalScore, r.Passes, r.Rewrites)},
		{"images", fmt.Sprintf("%d", images)},
		{"tokens", router.FormatTokens(m.Usage.Total.TotalTokens())},
		{"cost", costLine(b)},
		{"elapsed", m.Elapsed.Round(time.Millisecond).String()},
	}
	if stages := stageLine(m.Stages); stages != "" {
		rows = append(rows, [2]string{"stages", stages})
	}
	for i, f := range files {
		label := ""
		if i == 0 {
			label = "files"
		}
		rows = append(rows, [2]string{label, f})
	}

	var lines []string
	lines = append(lines, Primary.Bold(true).Render(b.Brief.Title))
	for _, row := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, SummaryLabel.Render(row[0]), row[1]))
	}

	box := SummaryBox
	if width > 0 {
		box = box.Width(width - 2)
	}
	return box.Render(strings.Join(lines, "\n"))
}

func costLine(b *document.Bundle) string {
	o := b.Metadata.Optimization
	line := router.FormatCost(b.Metadata.Usage.Total.Cost)
	switch o.CostStatus {
	case "":
		return line
	case usage.StatusOK:
		return line + " " + Secondary.Render("("+o.CostStatusNote+")")
	default:
		return line + " " + Warning.Render("("+o.CostStatusNote+")")
	}
}

func stageLine(stages map[string]document.StageStatus) string {
	names := make([]string, 0, len(stages))
	for name := range stages {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%s", name, stages[name]))
	}
	return strings.Join(parts, " ")
}
