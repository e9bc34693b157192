package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	classifierdto "drawclass/internal/modules/classifier/dto"
	"drawclass/internal/ui/theme"
)

// ─── model ───────────────────────────────────────────────────────────────────

// Model renders a markdown summary of the last run and prediction.
type Model struct {
	run        *classifierdto.TrainOutput
	prediction *classifierdto.PredictOutput
	subject    string

	viewport viewport.Model
	renderer *glamour.TermRenderer
	width    int
	height   int
}

func New() Model {
	r, _ := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(0),
	)
	m := Model{viewport: viewport.New(0, 0), renderer: r}
	m.viewport.SetContent(m.render())
	return m
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = size.Width
		m.height = size.Height
		m.resize()
		m.viewport.SetContent(m.render())
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	footer := theme.Muted.Render(fmt.Sprintf("↑/↓: scroll  %.0f%%", m.viewport.ScrollPercent()*100))
	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), footer)
}

func (m *Model) SetRun(run classifierdto.TrainOutput) {
	m.run = &run
	m.prediction = nil
	m.subject = ""
	m.viewport.SetContent(m.render())
}

func (m *Model) SetPrediction(subject string, prediction classifierdto.PredictOutput) {
	m.subject = subject
	m.prediction = &prediction
	m.viewport.SetContent(m.render())
}

// ─── private ─────────────────────────────────────────────────────────────────

func (m *Model) resize() {
	m.viewport.Width = m.width
	m.viewport.Height = max(m.height-1, 1)
	if r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(m.width),
	); err == nil {
		m.renderer = r
	}
}

func (m Model) render() string {
	source := Markdown(m.run, m.subject, m.prediction)
	if m.renderer != nil {
		if rendered, err := m.renderer.Render(source); err == nil {
			return rendered
		}
	}
	return source
}

// Markdown describes a run and, when present, the latest prediction made
// with its model.
func Markdown(run *classifierdto.TrainOutput, subject string, prediction *classifierdto.PredictOutput) string {
	var sb strings.Builder
	sb.WriteString("# Training report\n\n")
	if run == nil {
		sb.WriteString("_No model has been trained in this session._\n")
		return sb.String()
	}

	fmt.Fprintf(&sb, "- **Run:** `%s`\n", run.RunID)
	fmt.Fprintf(&sb, "- **Trained at:** %s\n", run.TrainedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "- **Samples:** %d\n", run.Samples)
	fmt.Fprintf(&sb, "- **Categories:** %s\n\n", strings.Join(run.Categories, ", "))

	if len(run.Progress) > 0 {
		sb.WriteString("## Epochs\n\n")
		sb.WriteString("| Epoch | Loss | Accuracy |\n|---:|---:|---:|\n")
		for _, p := range run.Progress {
			fmt.Fprintf(&sb, "| %d | %.4f | %.1f%% |\n", p.Epoch, p.Loss, p.Accuracy*100)
		}
		sb.WriteString("\n")
	}

	if prediction == nil || len(prediction.Scores) == 0 {
		return sb.String()
	}
	fmt.Fprintf(&sb, "## Prediction: %s\n\n", subject)
	sb.WriteString("| Category | Probability |\n|---|---:|\n")
	for _, s := range prediction.Scores {
		fmt.Fprintf(&sb, "| %s | %.2f%% |\n", escapeCell(s.Label), s.Probability*100)
	}
	if len(prediction.Activations) > 0 {
		sb.WriteString("\n### Mean activations\n\n")
		for _, a := range prediction.Activations {
			fmt.Fprintf(&sb, "- `%s`: %.4f\n", a.Name, a.Mean)
		}
	}
	return sb.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
