package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/etftools/etf/pkg/taxonomy"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// NodeListModel - Interactive taxonomy node selection
// =============================================================================

// NodeListModel is the bubbletea model for interactive node selection.
type NodeListModel struct {
	Tax      *taxonomy.Taxonomy
	Nodes    []taxonomy.ID
	Cursor   int
	Selected *taxonomy.Node
	Height   int
	Offset   int

	base int // depth of the shallowest listed node
}

// NewNodeListModel lists the subtrees of roots in taxonomy order, or every
// node when roots is empty.
func NewNodeListModel(tax *taxonomy.Taxonomy, roots []taxonomy.ID) NodeListModel {
	m := NodeListModel{Tax: tax, Height: 15}

	if len(roots) == 0 {
		for id := range tax.All() {
			m.Nodes = append(m.Nodes, id)
		}
	} else {
		seen := make(map[taxonomy.ID]bool)
		for _, r := range roots {
			for _, id := range tax.Subtree(r) {
				if !seen[id] {
					seen[id] = true
					m.Nodes = append(m.Nodes, id)
				}
			}
		}
	}

	m.base = -1
	for _, id := range m.Nodes {
		if d := tax.Node(id).Depth; m.base < 0 || d < m.base {
			m.base = d
		}
	}
	return m
}

func (m NodeListModel) Init() tea.Cmd {
	return nil
}

func (m NodeListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
			if m.Cursor < len(m.Nodes)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Nodes) == 0 {
				return m, nil
			}
			n := *m.Tax.Node(m.Nodes[m.Cursor])
			m.Selected = &n
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

func (m NodeListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Category"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Nodes))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		n := m.Tax.Node(m.Nodes[i])
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		indent := strings.Repeat("  ", n.Depth-m.base)
		vars := len(m.Tax.VariablesOf(m.Nodes[i : i+1]))
		rows = append(rows, []string{cursor, indent + n.FullName(), fmt.Sprint(vars)})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Category", "Vars").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return styleHeader
			case m.Offset+row == m.Cursor:
				return listSelectedStyle
			case m.Tax.Node(m.Nodes[m.Offset+row]).Prefix == "":
				return listDimStyle
			}
			return listNormalStyle
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Nodes))))

	return b.String()
}
