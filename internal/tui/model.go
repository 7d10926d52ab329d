// Package tui is a live progress view over a detect run's telemetry
// aggregator, refreshed on a tick the way ctrlscan-agent's dashboard model
// reloads its scan jobs.
package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/clonewatch/clonewatch/internal/telemetry"
)

const refreshInterval = 500 * time.Millisecond

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	headerRow  = lipgloss.NewStyle().Faint(true)
	barFull    = lipgloss.NewStyle().Foreground(lipgloss.Color("40"))
	barEmpty   = lipgloss.NewStyle().Faint(true)
	rowStyle   = lipgloss.NewStyle().Width(14)
)

// snapshotMsg carries a freshly-taken telemetry.Snapshot.
type snapshotMsg telemetry.Snapshot

// Model is a bubbletea program model rendering one row per pipeline stage.
type Model struct {
	agg  *telemetry.Aggregator
	snap telemetry.Snapshot
}

// New creates a Model polling agg every refreshInterval.
func New(agg *telemetry.Aggregator) Model {
	return Model{agg: agg, snap: agg.Snapshot()}
}

func (m Model) Init() tea.Cmd {
	return tickCmd(m.agg)
}

func tickCmd(agg *telemetry.Aggregator) tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return snapshotMsg(agg.Snapshot())
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.snap = telemetry.Snapshot(msg)
		return m, tickCmd(m.agg)
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) View() string {
	out := titleStyle.Render("clonewatch — "+m.snap.RunID) + "\n"
	out += headerRow.Render(fmt.Sprintf("elapsed %s", m.snap.Elapsed.Round(time.Second))) + "\n\n"
	out += headerRow.Render(fmt.Sprintf("%-14s %8s %8s %10s %12s", "stage", "in", "out", "rate", "per-hour")) + "\n"
	for _, s := range m.snap.Stages {
		out += fmt.Sprintf("%s %8d %8d %9.1f%% %12.1f\n",
			rowStyle.Render(string(s.Stage)), s.Input, s.Output, s.PassThroughRate*100, s.ProjectedHourly)
		out += progressBar(s.Input, s.Output) + "\n"
	}
	out += "\n" + headerRow.Render("press q to quit") + "\n"
	return out
}

func progressBar(input, output uint64) string {
	const width = 30
	var filled int
	if input > 0 {
		filled = int(float64(width) * float64(output) / float64(input))
	}
	if filled > width {
		filled = width
	}
	bar := ""
	if filled > 0 {
		bar += barFull.Render(repeat("█", filled))
	}
	if width-filled > 0 {
		bar += barEmpty.Render(repeat("░", width-filled))
	}
	return "  " + bar
}

func repeat(s string, n int) string {
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
