package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/platinummonkey/pluginhost/pkg/plugins"
	"github.com/platinummonkey/pluginhost/pkg/registry"
	"github.com/platinummonkey/pluginhost/pkg/resolver"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// statusStyle colors a plugin status
func statusStyle(s plugins.Status) lipgloss.Style {
	switch s {
	case plugins.StatusActive, plugins.StatusLoaderBound, plugins.StatusOrdered:
		return okStyle
	case plugins.StatusDisabledByUser, plugins.StatusDisabledSelection:
		return warnStyle
	default:
		return errStyle
	}
}

func severityStyle(severity string) lipgloss.Style {
	if severity == resolver.SeverityWarning {
		return warnStyle
	}
	return errStyle
}

// renderSnapshot renders the human-readable resolve report
func renderSnapshot(snap *registry.Snapshot) string {
	var sections []string

	header := titleStyle.Render(fmt.Sprintf("Load order (%d plugins)", len(snap.Order())))
	meta := dimStyle.Render(fmt.Sprintf("run %s, build %q, %d cascade rounds, %s",
		snap.RunID, snap.Build, snap.Rounds(), snap.Duration.Round(time.Microsecond)))

	rows := make([]string, 0, len(snap.Plugins()))
	for i, rec := range snap.Plugins() {
		line := fmt.Sprintf("%3d  %-30s %s", i+1, rec.ID(), statusStyle(rec.Status()).Render(rec.Status().String()))
		if unit, ok := snap.Unit(rec.ID()); ok && len(unit.ParentIDs()) > 0 {
			line += dimStyle.Render("  <- " + strings.Join(unit.ParentIDs(), ", "))
		}
		rows = append(rows, line)
	}
	sections = append(sections, lipgloss.JoinVertical(lipgloss.Left, append([]string{header, meta}, rows...)...))

	if excluded := snap.Excluded(); len(excluded) > 0 {
		rows := []string{titleStyle.Render(fmt.Sprintf("Excluded (%d)", len(excluded)))}
		for _, rec := range excluded {
			id := rec.ID()
			if id == "" {
				id = "<no id>"
			}
			rows = append(rows, fmt.Sprintf("     %-30s %s %s",
				id, statusStyle(rec.Status()).Render(rec.Status().String()), dimStyle.Render(rec.Reason())))
		}
		sections = append(sections, lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	if cycles := snap.Cycles(); len(cycles) > 0 {
		rows := []string{titleStyle.Render("Tolerated cycles")}
		for _, cycle := range cycles {
			rows = append(rows, "     "+warnStyle.Render(strings.Join(cycle, " <-> ")))
		}
		sections = append(sections, lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	if problems := snap.Problems(); len(problems) > 0 {
		rows := []string{titleStyle.Render(fmt.Sprintf("Diagnostics (%d)", len(problems)))}
		for _, p := range problems {
			rows = append(rows, fmt.Sprintf("     %s %s", severityStyle(p.Severity).Render(p.Severity), p.Message))
		}
		sections = append(sections, lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	return strings.Join(sections, "\n\n") + "\n"
}

// renderFindings renders validation findings for one descriptor
func renderFindings(path string, findings []plugins.ValidationError) string {
	if len(findings) == 0 {
		return okStyle.Render("ok") + "    " + path + "\n"
	}

	mark := warnStyle.Render("warn")
	if plugins.HasErrors(findings) {
		mark = errStyle.Render("fail")
	}
	rows := []string{mark + "  " + path}
	for _, f := range findings {
		rows = append(rows, fmt.Sprintf("      %s %s: %s", severityStyle(f.Severity).Render(f.Severity), f.Field, f.Message))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...) + "\n"
}
