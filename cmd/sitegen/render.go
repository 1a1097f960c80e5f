package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/entrhq/sitegen/pkg/generation"
)

var (
	mintGreen  = lipgloss.Color("#A8E6CF")
	salmonPink = lipgloss.Color("#FFB3BA")
	amber      = lipgloss.Color("#FFD580")
	mutedGray  = lipgloss.Color("#6B7280")

	successStyle = lipgloss.NewStyle().Foreground(mintGreen).Bold(true)
	failureStyle = lipgloss.NewStyle().Foreground(salmonPink).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(amber)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedGray)
	labelStyle   = lipgloss.NewStyle().Bold(true).Width(10)

	resultBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

// renderResult formats one result for the terminal.
func renderResult(r *generation.Result) string {
	var lines []string

	if r.Success {
		lines = append(lines, successStyle.Render("✓ Preview ready"))
		lines = append(lines, row("URL", r.URL()))
		if r.Speculative {
			lines = append(lines, warnStyle.Render("! derived from the project id, not observed on the page"))
		}
	} else {
		lines = append(lines, failureStyle.Render("✗ Generation failed"))
		lines = append(lines, row("Error", r.ErrorMessage()))
		if r.LastError != "" {
			lines = append(lines, row("Last", r.LastError))
		}
	}

	lines = append(lines,
		row("Request", r.CorrelationID),
		row("Attempts", fmt.Sprintf("%d", r.Attempts)),
		row("Duration", r.Duration().Round(100*time.Millisecond).String()),
	)
	if r.Screenshot != "" {
		lines = append(lines, row("Shot", r.Screenshot))
	}

	border := mintGreen
	if !r.Success {
		border = salmonPink
	}
	return resultBoxStyle.BorderForeground(border).Render(strings.Join(lines, "\n"))
}

// renderBatch formats one line per result plus a total.
func renderBatch(results []*generation.Result) string {
	var b strings.Builder
	succeeded := 0
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.Success {
			succeeded++
			b.WriteString(successStyle.Render("✓ "))
			b.WriteString(fmt.Sprintf("%s  %s\n", r.CorrelationID, r.URL()))
		} else {
			b.WriteString(failureStyle.Render("✗ "))
			b.WriteString(fmt.Sprintf("%s  %s\n", r.CorrelationID, mutedStyle.Render(r.ErrorMessage())))
		}
	}
	b.WriteString(fmt.Sprintf("\n%d/%d succeeded", succeeded, len(results)))
	return b.String()
}

func row(label, value string) string {
	return labelStyle.Render(label) + " " + value
}
