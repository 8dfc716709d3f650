package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/microsoft/hat/bench"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#87CEEB"))

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
)

var tableColumns = []string{"function", "iterations", "mean", "median of means", "robust mean", "min of means"}

// renderResults lays the results out as a fixed-width table.
func renderResults(results []bench.FunctionResult) string {
	rows := make([][]string, 0, len(results))
	for _, fr := range results {
		if fr.Result == nil {
			rows = append(rows, []string{fr.Function, "-", failStyle.Render(errText(fr)), "-", "-", "-"})
			continue
		}
		r := fr.Result
		rows = append(rows, []string{
			fr.Function,
			fmt.Sprintf("%d", r.Iterations),
			formatDuration(r.Mean),
			formatDuration(r.MedianOfMeans),
			formatDuration(r.RobustMean),
			formatDuration(r.MinOfMeans),
		})
	}

	widths := make([]int, len(tableColumns))
	for i, c := range tableColumns {
		widths[i] = len(c)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	for i, c := range tableColumns {
		b.WriteString(headerStyle.Render(pad(c, widths[i])))
		b.WriteString("  ")
	}
	b.WriteString("\n")
	for _, row := range rows {
		for i, cell := range row {
			if i == 0 {
				cell = nameStyle.Render(pad(cell, widths[i]))
			} else {
				cell = pad(cell, widths[i])
			}
			b.WriteString(cell)
			b.WriteString("  ")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func pad(s string, w int) string {
	if n := w - lipgloss.Width(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

func errText(fr bench.FunctionResult) string {
	if fr.Err != nil {
		return fr.Err.Error()
	}
	return "no result"
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Microsecond:
		return fmt.Sprintf("%d ns", d.Nanoseconds())
	case d < time.Millisecond:
		return fmt.Sprintf("%.2f us", float64(d.Nanoseconds())/1e3)
	case d < time.Second:
		return fmt.Sprintf("%.2f ms", float64(d.Nanoseconds())/1e6)
	default:
		return fmt.Sprintf("%.3f s", d.Seconds())
	}
}
