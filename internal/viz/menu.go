package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// MenuItem is one selectable scenario.
type MenuItem struct {
	Name        string
	Description string
}

// Opener returns the world source for a chosen item.
type Opener func(name string) (Source, error)

var (
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
	descStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff"))
	idleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
	idleDescStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#444455"))
	keyStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#00aaaa")).Bold(true)
)

// Menu picks a scenario and then hands the screen to a live [Model]. Esc
// in the live view returns to the list.
type Menu struct {
	items  []MenuItem
	open   Opener
	opts   Options
	cursor int
	live   *Model
	err    error
}

func NewMenu(items []MenuItem, open Opener, opts Options) Menu {
	return Menu{items: items, open: open, opts: opts}
}

func (m Menu) Init() tea.Cmd { return nil }

func (m Menu) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.live != nil {
		if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
			m.live = nil
			return m, nil
		}
		next, cmd := m.live.Update(msg)
		live := next.(Model)
		m.live = &live
		return m, cmd
	}
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch k.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "enter", " ":
		if len(m.items) == 0 {
			return m, nil
		}
		item := m.items[m.cursor]
		src, err := m.open(item.Name)
		if err != nil {
			m.err = err
			return m, nil
		}
		opts := m.opts
		opts.Title = item.Name
		live := NewModel(src, opts)
		m.live, m.err = &live, nil
		return m, live.Init()
	}
	return m, nil
}

// Selected returns the highlighted item name.
func (m Menu) Selected() string {
	if len(m.items) == 0 {
		return ""
	}
	return m.items[m.cursor].Name
}

func (m Menu) View() string {
	if m.live != nil {
		return m.live.View()
	}
	var b strings.Builder
	b.WriteString("\n\n    " + GradientText("RIGIDSIM", "#00cccc", "#ff88ff") + "\n    " + Subtle.Render("rigid body sandbox") + "\n    " + Subtle.Render("─────────────────────────") + "\n\n")
	for i, item := range m.items {
		desc := item.Description
		if len(desc) > 40 {
			desc = desc[:37] + "..."
		}
		if i == m.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n", cursorStyle.Render("▸"), selectedStyle.Render(fmt.Sprintf("%-12s", item.Name)), descStyle.Render(desc)))
		} else {
			b.WriteString(fmt.Sprintf("    %s  %s\n", idleStyle.Render(fmt.Sprintf("  %-12s", item.Name)), idleDescStyle.Render(desc)))
		}
	}
	if m.err != nil {
		b.WriteString("\n    " + StatusFault.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n    " + keyStyle.Render("j/k") + idleStyle.Render(" navigate  ") + keyStyle.Render("enter") + idleStyle.Render(" run  ") + keyStyle.Render("esc") + idleStyle.Render(" back  ") + keyStyle.Render("q") + idleStyle.Render(" quit") + "\n")
	return b.String()
}

// RunMenu opens the scenario picker full screen.
func RunMenu(items []MenuItem, open Opener, opts Options) error {
	_, err := tea.NewProgram(NewMenu(items, open, opts), tea.WithAltScreen()).Run()
	return err
}
