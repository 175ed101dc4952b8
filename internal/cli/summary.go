package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/andywolf/csv2issues/internal/labels"
	"github.com/andywolf/csv2issues/internal/pipeline"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#3FB950"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1)
)

// renderSummary formats a run summary for the console.
func renderSummary(s *pipeline.Summary) string {
	if s.DryRun {
		return renderDryRun(s)
	}

	var b strings.Builder
	b.WriteString(headingStyle.Render("Summary") + "\n")
	fmt.Fprintf(&b, "Repository: %s\n", s.Repository)
	fmt.Fprintf(&b, "%s  %s",
		okStyle.Render(fmt.Sprintf("Created: %d", len(s.Created))),
		failStyle.Render(fmt.Sprintf("Failed: %d", len(s.Failed))),
	)
	if s.Skipped > 0 {
		b.WriteString("  " + mutedStyle.Render(fmt.Sprintf("Skipped: %d", s.Skipped)))
	}
	b.WriteString("\n")

	if len(s.Created) > 0 {
		b.WriteString("\n" + headingStyle.Render("Created issues") + "\n")
		for _, c := range s.Created {
			fmt.Fprintf(&b, "  #%d %s\n", c.Number, c.Title)
			b.WriteString("     " + mutedStyle.Render(c.URL) + "\n")
		}
	}

	if len(s.Failed) > 0 {
		b.WriteString("\n" + headingStyle.Render("Failed rows") + "\n")
		for _, f := range s.Failed {
			fmt.Fprintf(&b, "  row %d %s: %s\n", f.Row, f.Title, failStyle.Render(f.Err.Error()))
		}
	}

	if l := labelLine(s.Labels); l != "" {
		b.WriteString("\n" + mutedStyle.Render(l) + "\n")
	}

	if s.Interrupted {
		b.WriteString("\n" + failStyle.Render("Run interrupted: remaining rows were not processed") + "\n")
	}

	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func renderDryRun(s *pipeline.Summary) string {
	var b strings.Builder
	b.WriteString(headingStyle.Render("Dry run") + "\n")
	fmt.Fprintf(&b, "Repository: %s\n", s.Repository)
	fmt.Fprintf(&b, "Would create %d issues", len(s.Planned))
	if s.Skipped > 0 {
		fmt.Fprintf(&b, " (%d rows skipped)", s.Skipped)
	}
	b.WriteString("\n")

	if len(s.MissingLabels) > 0 {
		names := make([]string, 0, len(s.MissingLabels))
		for _, def := range s.MissingLabels {
			names = append(names, def.Name)
		}
		fmt.Fprintf(&b, "Would create %d labels: %s\n", len(names), strings.Join(names, ", "))
	}

	for _, p := range s.Planned {
		fmt.Fprintf(&b, "\n  %s\n", p.Title)
		b.WriteString("    " + mutedStyle.Render(strings.Join(p.Labels, ", ")) + "\n")
	}

	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func labelLine(r labels.Result) string {
	var parts []string
	if n := len(r.Created); n > 0 {
		parts = append(parts, fmt.Sprintf("%d created", n))
	}
	if n := len(r.Present) + len(r.Raced); n > 0 {
		parts = append(parts, fmt.Sprintf("%d already present", n))
	}
	if n := len(r.Failed); n > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", n))
	}
	if len(parts) == 0 {
		return ""
	}
	return "Labels: " + strings.Join(parts, ", ")
}
