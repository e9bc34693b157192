package predict

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	classifierdomain "drawclass/internal/modules/classifier/domain"
	classifierdto "drawclass/internal/modules/classifier/dto"
	visualizationdomain "drawclass/internal/modules/visualization/domain"
	"drawclass/internal/ui/components"
	"drawclass/internal/ui/theme"
)

// ─── model ───────────────────────────────────────────────────────────────────

// Model shows the last classification and replays the inference animation.
type Model struct {
	busy    bool
	subject string
	result  classifierdto.PredictOutput
	anim    visualizationdomain.AnimationState
	err     error

	spinner spinner.Model
	width   int
	height  int
}

func New() Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Lavender)
	return Model{
		spinner: sp,
		anim:    visualizationdomain.AnimationState{Active: visualizationdomain.NoLayer},
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case spinner.TickMsg:
		if m.busy {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m Model) View() string {
	var sb strings.Builder
	header := theme.Title.Render("Predict")
	if m.busy {
		header += "  " + m.spinner.View() + " classifying " + m.subject
	} else if m.subject != "" {
		header += "  " + theme.Muted.Render(m.subject)
	}
	sb.WriteString(header + "\n\n")
	sb.WriteString(components.LayerStrip(classifierdomain.InferenceStages, m.anim.Active, nil) + "\n\n")

	switch {
	case m.err != nil:
		sb.WriteString(theme.Hot.Render("error: "+m.err.Error()) + "\n")
	case len(m.result.Scores) == 0:
		sb.WriteString(theme.Muted.Render("No prediction yet. Train first, then press p to classify a capture.") + "\n")
	default:
		sb.WriteString(m.renderScores())
		sb.WriteString("\n" + m.renderActivations())
	}
	sb.WriteString("\n" + theme.Muted.Render("p: classify capture  :classify <file>  s: skip animation"))
	return lipgloss.NewStyle().Width(m.width).Height(m.height).Render(sb.String())
}

// Start marks a classification of subject as in flight.
func (m *Model) Start(subject string) tea.Cmd {
	m.busy = true
	m.subject = subject
	m.err = nil
	return m.spinner.Tick
}

func (m *Model) Finish(result classifierdto.PredictOutput, err error) {
	m.busy = false
	m.err = err
	if err == nil {
		m.result = result
	}
}

func (m Model) Result() classifierdto.PredictOutput { return m.result }

func (m Model) Subject() string { return m.subject }

// Animate records the latest highlight state of the prediction animator.
func (m *Model) Animate(state visualizationdomain.AnimationState) {
	m.anim = state
}

// ─── private ─────────────────────────────────────────────────────────────────

func (m Model) renderScores() string {
	labelW := 0
	for _, s := range m.result.Scores {
		labelW = max(labelW, lipgloss.Width(s.Label))
	}
	barW := max(m.width-labelW-14, 10)
	var sb strings.Builder
	for i, s := range m.result.Scores {
		label := fmt.Sprintf("%-*s", labelW, s.Label)
		if i == 0 {
			label = theme.Hot.Render(label)
		}
		sb.WriteString(fmt.Sprintf("%s  %s %6.2f%%\n", label, components.Bar(s.Probability, barW), s.Probability*100))
	}
	return sb.String()
}

func (m Model) renderActivations() string {
	if len(m.result.Activations) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(theme.Muted.Render("mean activation per layer") + "\n")
	for _, a := range m.result.Activations {
		sb.WriteString(fmt.Sprintf("  %-18s %.4f\n", a.Name, a.Mean))
	}
	return sb.String()
}
