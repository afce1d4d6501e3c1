package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/miki725/subui/pkg/report"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// ReportListModel - Interactive report selection
// =============================================================================

// ReportListModel is the bubbletea model for interactive report browsing.
type ReportListModel struct {
	Reports  []*report.Transcript
	Cursor   int
	Selected *report.Transcript
	Height   int
	Offset   int
}

// NewReportListModel creates a new report list model.
func NewReportListModel(reports []*report.Transcript) ReportListModel {
	return ReportListModel{
		Reports: reports,
		Cursor:  0,
		Height:  15,
		Offset:  0,
	}
}

func (m ReportListModel) Init() tea.Cmd {
	return nil
}

func (m ReportListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Reports)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			m.Selected = m.Reports[m.Cursor]
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m ReportListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Report"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Reports) {
		end = len(m.Reports)
	}

	for i := m.Offset; i < end; i++ {
		t := m.Reports[i]

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}

		status := StyleSuccess.Render(iconSuccess)
		if !t.Passed {
			status = StyleError.Render(iconError)
		}

		line := fmt.Sprintf("%s%s %-20s %s  %s", cursor, status,
			t.Suite,
			listDimStyle.Render(t.StartedAt.Format("2006-01-02 15:04:05")),
			listDimStyle.Render(formatRelativeTime(t.StartedAt)),
		)

		if i == m.Cursor {
			b.WriteString(listSelectedStyle.Render(line))
		} else if !t.Passed {
			b.WriteString(listNormalStyle.Render(line))
		} else {
			b.WriteString(listDimStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Reports))))

	return b.String()
}

// =============================================================================
// Helpers
// =============================================================================

func formatRelativeTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
