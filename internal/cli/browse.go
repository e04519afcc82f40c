package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/jenny/pkg/webmodule"
)

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	paneStyle         = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorDim).
				Padding(0, 1)
)

// browseCommand opens the interactive module browser.
func (c *CLI) browseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse the site's modules interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.loadConfig()
			if err != nil {
				return err
			}
			s, err := c.openSite(cmd.Context(), store.Config())
			if err != nil {
				return err
			}
			defer s.Close()

			p := tea.NewProgram(newModuleBrowser(s.modules),
				tea.WithContext(cmd.Context()),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
				tea.WithAltScreen(),
			)
			_, err = p.Run()
			return err
		},
	}
}

// moduleBrowser is the bubbletea model of the module browser: a scrolling
// list on the left, the selected module's resources on the right.
type moduleBrowser struct {
	modules []*webmodule.Module
	cursor  int
	offset  int
	height  int
}

func newModuleBrowser(mods []*webmodule.Module) moduleBrowser {
	return moduleBrowser{modules: mods, height: 15}
}

func (m moduleBrowser) Init() tea.Cmd { return nil }

func (m moduleBrowser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.cursor < len(m.modules)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		case "home", "g":
			m.cursor, m.offset = 0, 0
		}
	case tea.WindowSizeMsg:
		m.height = max(msg.Height-6, 5)
	}
	return m, nil
}

func (m moduleBrowser) View() string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render("Modules"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  q quit"))
	b.WriteString("\n\n")

	if len(m.modules) == 0 {
		b.WriteString(listDimStyle.Render("no modules declared"))
		return b.String()
	}

	var list strings.Builder
	end := min(m.offset+m.height, len(m.modules))
	for i := m.offset; i < end; i++ {
		line := "  " + m.modules[i].Name()
		if i == m.cursor {
			list.WriteString(listSelectedStyle.Render("▸ " + m.modules[i].Name()))
		} else {
			list.WriteString(listNormalStyle.Render(line))
		}
		list.WriteString("\n")
	}
	if end < len(m.modules) {
		list.WriteString(listDimStyle.Render(fmt.Sprintf("  … %d more", len(m.modules)-end)))
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		paneStyle.Render(strings.TrimRight(list.String(), "\n")),
		" ",
		paneStyle.Render(moduleDetail(m.modules[m.cursor])),
	))
	return b.String()
}

// moduleDetail describes one module and its resources.
func moduleDetail(mod *webmodule.Module) string {
	var b strings.Builder
	row := moduleRow(mod)
	for i, h := range moduleHeaders {
		fmt.Fprintf(&b, "%s %s\n", listDimStyle.Width(10).Render(h), row[i])
	}
	b.WriteString("\n")

	rows := make([][]string, 0, len(mod.Resources()))
	for _, r := range mod.Resources() {
		where := r.URI()
		if r.Inline() {
			where = "inline"
		}
		rows = append(rows, []string{orDash(r.Path()), r.Kind().String(), r.Placement().String(), orDash(where)})
	}
	if len(rows) == 0 {
		b.WriteString(listDimStyle.Render("no resources"))
		return b.String()
	}
	b.WriteString(renderTable([]string{"Path", "Kind", "Placement", "URI"}, rows))
	return b.String()
}
