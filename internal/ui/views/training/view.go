package training

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	classifierdomain "drawclass/internal/modules/classifier/domain"
	visualizationdomain "drawclass/internal/modules/visualization/domain"
	"drawclass/internal/ui/components"
	"drawclass/internal/ui/theme"
)

// ─── model ───────────────────────────────────────────────────────────────────

// Model shows the run in progress: phase, epoch bar, the layer being
// highlighted and the per-epoch metrics.
type Model struct {
	running bool
	runID   string
	phase   classifierdomain.Phase
	epochs  int
	log     []classifierdomain.Progress
	layers  classifierdomain.ActivationSnapshot
	anim    visualizationdomain.AnimationState
	err     error

	bar     progress.Model
	spinner spinner.Model
	table   viewport.Model
	width   int
	height  int
}

func New(epochs int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Lavender)

	return Model{
		epochs:  epochs,
		anim:    visualizationdomain.AnimationState{Active: visualizationdomain.NoLayer},
		bar:     progress.New(progress.WithGradient(string(theme.Sapphire), string(theme.Lavender))),
		spinner: sp,
		table:   viewport.New(0, 0),
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case spinner.TickMsg:
		if m.running {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	var vCmd tea.Cmd
	m.table, vCmd = m.table.Update(msg)
	cmds = append(cmds, vCmd)
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	header := m.renderHeader()
	bar := m.bar.ViewAs(m.percent())
	layers := components.LayerStrip(m.layerNames(), m.anim.Active, m.layerValues())
	footer := theme.Muted.Render("t: train  s: skip animation  ↑/↓: scroll epochs")

	used := lipgloss.Height(header) + lipgloss.Height(bar) + lipgloss.Height(layers) + lipgloss.Height(footer) + 2
	table := m.table
	table.Height = max(m.height-used, 1)

	return lipgloss.JoinVertical(lipgloss.Left, header, bar, "", layers, "", table.View(), footer)
}

// Start marks a run as requested and starts the spinner.
func (m *Model) Start() tea.Cmd {
	m.running = true
	m.err = nil
	m.runID = ""
	m.log = nil
	m.layers = nil
	m.phase = classifierdomain.PhaseCompiling
	m.table.SetContent(m.renderTable())
	return m.spinner.Tick
}

// Finish records the outcome of the run started with Start.
func (m *Model) Finish(err error) {
	m.running = false
	m.err = err
	if err != nil {
		m.phase = classifierdomain.PhaseFailed
	}
}

func (m Model) Running() bool { return m.running }

// Apply folds a classifier event into the view. Prediction events are ignored.
func (m *Model) Apply(event classifierdomain.Event) {
	switch event.Kind {
	case classifierdomain.EventPhase:
		m.phase = event.Phase
		if event.RunID != "" {
			m.runID = event.RunID
		}
		if event.Err != nil {
			m.err = event.Err
		}
	case classifierdomain.EventEpoch:
		m.phase = classifierdomain.PhaseEpoch
		m.runID = event.RunID
		if event.Epochs > 0 {
			m.epochs = event.Epochs
		}
		m.log = append(m.log, event.Progress)
		m.layers = event.Activations
		m.table.SetContent(m.renderTable())
		m.table.GotoBottom()
	}
}

// Animate records the latest highlight state of the training animator.
func (m *Model) Animate(state visualizationdomain.AnimationState) {
	m.anim = state
}

// ─── private ─────────────────────────────────────────────────────────────────

func (m *Model) resize() {
	m.bar.Width = max(m.width-4, 10)
	m.table.Width = m.width
}

func (m Model) percent() float64 {
	if m.epochs <= 0 || len(m.log) == 0 {
		return 0
	}
	return min(float64(m.log[len(m.log)-1].Epoch)/float64(m.epochs), 1)
}

func (m Model) layerNames() []string {
	names := make([]string, len(m.layers))
	for i, layer := range m.layers {
		names[i] = layer.Name
	}
	return names
}

func (m Model) layerValues() []string {
	values := make([]string, len(m.layers))
	for i, layer := range m.layers {
		values[i] = fmt.Sprintf("%.3f", layer.Mean)
	}
	return values
}

func (m Model) renderHeader() string {
	parts := []string{theme.Title.Render("Training")}
	if m.running {
		parts = append(parts, m.spinner.View())
	}
	if m.phase != "" {
		parts = append(parts, theme.Hot.Render(string(m.phase)))
	}
	if n := len(m.log); n > 0 {
		last := m.log[n-1]
		parts = append(parts, fmt.Sprintf("epoch %d/%d  loss %.4f  acc %.1f%%", last.Epoch, m.epochs, last.Loss, last.Accuracy*100))
	}
	if m.runID != "" {
		parts = append(parts, theme.Muted.Render("run "+shortID(m.runID)))
	}
	header := strings.Join(parts, "  ")
	if m.err != nil {
		header += "\n" + theme.Hot.Render("error: "+m.err.Error())
	}
	return header + "\n"
}

func (m Model) renderTable() string {
	if len(m.log) == 0 {
		return theme.Muted.Render("No epochs yet. Press t to train on the current dataset.")
	}
	var sb strings.Builder
	sb.WriteString(theme.Muted.Render(fmt.Sprintf("%6s  %10s  %9s", "epoch", "loss", "accuracy")) + "\n")
	for _, p := range m.log {
		sb.WriteString(fmt.Sprintf("%6d  %10.4f  %8.1f%%\n", p.Epoch, p.Loss, p.Accuracy*100))
	}
	return sb.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
