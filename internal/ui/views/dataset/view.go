package dataset

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	datasetdto "drawclass/internal/modules/dataset/dto"
	"drawclass/internal/platform/payload"
	"drawclass/internal/ui/theme"
)

// ─── port ────────────────────────────────────────────────────────────────────

type Port interface {
	AllCategories(ctx context.Context) ([]datasetdto.CategoryOutput, error)
	Preview(ctx context.Context, label string, limit int) (datasetdto.PreviewOutput, error)
}

// ─── messages ────────────────────────────────────────────────────────────────

type CategoriesLoadedMsg struct {
	Categories []datasetdto.CategoryOutput
	Err        error
}

type PreviewLoadedMsg struct {
	Preview datasetdto.PreviewOutput
	Err     error
}

// ─── list item ───────────────────────────────────────────────────────────────

type categoryItem struct {
	category datasetdto.CategoryOutput
}

func (i categoryItem) Title() string { return i.category.Label }
func (i categoryItem) Description() string {
	if i.category.Count == 1 {
		return "1 sample"
	}
	return fmt.Sprintf("%d samples", i.category.Count)
}
func (i categoryItem) FilterValue() string { return i.category.Label }

// ─── model ───────────────────────────────────────────────────────────────────

type Model struct {
	port        Port
	previewSize int
	list        list.Model
	preview     datasetdto.PreviewOutput
	detail      viewport.Model
	spinner     spinner.Model
	loading     bool
	width       int
	height      int
}

func New(port Port, previewSize int) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(theme.Lavender).BorderForeground(theme.Lavender)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(theme.Sapphire).BorderForeground(theme.Lavender)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Categories"
	l.Styles.Title = theme.Title
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	vp := viewport.New(0, 0)
	vp.Style = lipgloss.NewStyle().
		Background(theme.Mantle).
		Foreground(theme.Text).
		Padding(1)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Lavender)

	return Model{
		port:        port,
		previewSize: previewSize,
		list:        l,
		detail:      vp,
		spinner:     sp,
		loading:     true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.Reload(), m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case CategoriesLoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.detail.SetContent(theme.Hot.Render("Error: " + msg.Err.Error()))
			return m, nil
		}
		selected := m.SelectedLabel()
		keep := 0
		items := make([]list.Item, len(msg.Categories))
		for i, c := range msg.Categories {
			items[i] = categoryItem{category: c}
			if c.Label == selected {
				keep = i
			}
		}
		cmds = append(cmds, m.list.SetItems(items))
		m.list.Select(keep)
		if len(msg.Categories) == 0 {
			m.preview = datasetdto.PreviewOutput{}
			m.detail.SetContent(m.renderDetail())
		}
		if label := selectedOr(msg.Categories, selected); label != "" {
			cmds = append(cmds, m.loadPreviewCmd(label))
		}

	case PreviewLoadedMsg:
		if msg.Err == nil && msg.Preview.Label == m.SelectedLabel() {
			m.preview = msg.Preview
			m.detail.SetContent(m.renderDetail())
		}

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	if !m.loading {
		var lCmd tea.Cmd
		prevIdx := m.list.Index()
		m.list, lCmd = m.list.Update(msg)
		cmds = append(cmds, lCmd)
		if m.list.Index() != prevIdx {
			if label := m.SelectedLabel(); label != "" {
				cmds = append(cmds, m.loadPreviewCmd(label))
			}
		}

		var vCmd tea.Cmd
		m.detail, vCmd = m.detail.Update(msg)
		cmds = append(cmds, vCmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.loading {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			m.spinner.View()+" Loading dataset…")
	}

	listW := m.width * 4 / 10
	detailW := m.width - listW

	listPane := lipgloss.NewStyle().
		Width(listW).
		Height(m.height).
		Render(m.list.View())

	detailPane := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.Surface1).
		Background(theme.Mantle).
		Width(detailW - 2).
		Height(m.height - 2).
		Render(m.detail.View())

	return lipgloss.JoinHorizontal(lipgloss.Top, listPane, detailPane)
}

// Reload fetches the categories again, keeping the current selection.
func (m Model) Reload() tea.Cmd {
	return func() tea.Msg {
		categories, err := m.port.AllCategories(context.Background())
		return CategoriesLoadedMsg{Categories: categories, Err: err}
	}
}

// SelectedLabel returns the highlighted category, if any.
func (m Model) SelectedLabel() string {
	if item, ok := m.list.SelectedItem().(categoryItem); ok {
		return item.category.Label
	}
	return ""
}

// Filtering reports whether the list's search filter is currently active.
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

// ─── private ─────────────────────────────────────────────────────────────────

func (m *Model) resize() {
	listW := m.width * 4 / 10
	detailW := m.width - listW
	m.list.SetSize(listW, m.height)
	m.detail.Width = detailW - 4
	m.detail.Height = m.height - 4
}

func (m Model) renderDetail() string {
	p := m.preview
	if p.Label == "" {
		return theme.Muted.Render("Declare a category with :dataset:declare <label>")
	}
	var sb strings.Builder
	sb.WriteString(theme.Title.Render(p.Label) + "\n\n")
	sb.WriteString(fmt.Sprintf("%s%d\n\n", theme.Muted.Render("samples: "), p.Total))
	if len(p.Payloads) == 0 {
		sb.WriteString(theme.Muted.Render("no samples yet") + "\n")
	} else {
		sb.WriteString(theme.Muted.Render("latest samples, oldest first") + "\n")
	}
	for i, raw := range p.Payloads {
		info, err := payload.Inspect(raw)
		if err != nil {
			sb.WriteString(fmt.Sprintf("  %d  %s\n", i+1, theme.Hot.Render("unreadable")))
			continue
		}
		sb.WriteString(fmt.Sprintf("  %d  %-12s %7d bytes\n", i+1, info.MediaType, info.Bytes))
	}
	sb.WriteString("\n" + theme.Muted.Render("c: capture into this category  t: train"))
	return sb.String()
}

func (m Model) loadPreviewCmd(label string) tea.Cmd {
	return func() tea.Msg {
		preview, err := m.port.Preview(context.Background(), label, m.previewSize)
		return PreviewLoadedMsg{Preview: preview, Err: err}
	}
}

func selectedOr(categories []datasetdto.CategoryOutput, selected string) string {
	for _, c := range categories {
		if c.Label == selected {
			return selected
		}
	}
	if len(categories) > 0 {
		return categories[0].Label
	}
	return ""
}
