package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	capturedto "drawclass/internal/modules/capture/dto"
	classifierdomain "drawclass/internal/modules/classifier/domain"
	classifierdto "drawclass/internal/modules/classifier/dto"
	datasetdto "drawclass/internal/modules/dataset/dto"
	visualizationdomain "drawclass/internal/modules/visualization/domain"
	"drawclass/internal/ui/components"
	"drawclass/internal/ui/theme"
	datasetview "drawclass/internal/ui/views/dataset"
	predictview "drawclass/internal/ui/views/predict"
	reportview "drawclass/internal/ui/views/report"
	trainingview "drawclass/internal/ui/views/training"
)

// ─── ports ───────────────────────────────────────────────────────────────────
// Each port is the minimal interface that this orchestration layer requires.
// Sub-view ports are defined in their own packages and narrowed further.

type datasetPort interface {
	AllCategories(ctx context.Context) ([]datasetdto.CategoryOutput, error)
	Preview(ctx context.Context, label string, limit int) (datasetdto.PreviewOutput, error)
	AddSample(ctx context.Context, label, payload string) (datasetdto.AddSampleOutput, error)
	AddFile(ctx context.Context, label, path string) (datasetdto.AddSampleOutput, error)
	DeclareCategory(ctx context.Context, label string) error
	Clear(ctx context.Context) error
	ImportFile(ctx context.Context, path string) (datasetdto.ImportOutput, error)
	ExportFile(ctx context.Context, path string) (int, error)
}

type classifierPort interface {
	Train(ctx context.Context) (classifierdto.TrainOutput, error)
	ClassifyFile(ctx context.Context, path string) (classifierdto.PredictOutput, error)
	ClassifyCapture(ctx context.Context) (classifierdto.PredictOutput, error)
	SkipTraining(ctx context.Context) bool
	SkipPrediction(ctx context.Context) bool
}

type capturePort interface {
	Capture(ctx context.Context, source, device string) (capturedto.CaptureOutput, error)
}

// Deps wires the model to the application. Nil channels are never read.
type Deps struct {
	Dataset    datasetPort
	Classifier classifierPort
	Capture    capturePort

	Events              <-chan classifierdomain.Event
	TrainingAnimation   <-chan visualizationdomain.AnimationState
	PredictionAnimation <-chan visualizationdomain.AnimationState

	PreviewSize   int
	Epochs        int
	CaptureSource string
}

// ─── tab index ───────────────────────────────────────────────────────────────

type tabID int

const (
	tabDataset tabID = iota
	tabTraining
	tabPredict
	tabReport
	tabCount
)

var tabLabels = [tabCount]string{
	"Dataset", "Training", "Predict", "Report",
}

// ─── async messages ───────────────────────────────────────────────────────────

type classifierEventMsg struct {
	event classifierdomain.Event
}

type animationMsg struct {
	state visualizationdomain.AnimationState
	from  <-chan visualizationdomain.AnimationState
}

type datasetChangedMsg struct {
	status string
	err    error
}

type trainDoneMsg struct {
	out classifierdto.TrainOutput
	err error
}

type predictDoneMsg struct {
	subject string
	out     classifierdto.PredictOutput
	err     error
}

// ─── key bindings ─────────────────────────────────────────────────────────────

type keyMap struct {
	Tab      key.Binding
	Help     key.Binding
	Palette  key.Binding
	Quit     key.Binding
	Capture  key.Binding
	Train    key.Binding
	Classify key.Binding
	Skip     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Palette:  key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "palette")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
		Capture:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "capture into category")),
		Train:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "train")),
		Classify: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "classify capture")),
		Skip:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "skip animation")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Help, k.Palette, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.Capture, k.Train},
		{k.Classify, k.Skip},
		{k.Help, k.Palette, k.Quit},
	}
}

// ─── model ───────────────────────────────────────────────────────────────────

// Model is the root Bubble Tea model. It owns tab routing, the event
// subscriptions, the help overlay and the command palette. Work is delegated
// to the ports; rendering is delegated to sub-views.
type Model struct {
	deps Deps

	// sub-views (one per tab)
	datasetView  datasetview.Model
	trainingView trainingview.Model
	predictView  predictview.Model
	reportView   reportview.Model

	// global UI state
	activeTab    tabID
	keys         keyMap
	help         help.Model
	showHelp     bool
	palette      components.Palette
	confirmClear bool
	status       string
	width        int
	height       int
}

// ─── constructor ─────────────────────────────────────────────────────────────

func NewModel(deps Deps) Model {
	return Model{
		deps:         deps,
		datasetView:  datasetview.New(deps.Dataset, deps.PreviewSize),
		trainingView: trainingview.New(deps.Epochs),
		predictView:  predictview.New(),
		reportView:   reportview.New(),
		activeTab:    tabDataset,
		keys:         defaultKeys(),
		help:         help.New(),
		palette:      components.NewPalette(),
		status:       "ready",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.datasetView.Init(),
		waitEvent(m.deps.Events),
		waitAnimation(m.deps.TrainingAnimation),
		waitAnimation(m.deps.PredictionAnimation),
	)
}

// ─── update ───────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// The palette intercepts all input while open.
	if m.palette.Visible() {
		if _, ok := msg.(tea.KeyMsg); ok {
			var cmd tea.Cmd
			m.palette, cmd = m.palette.Update(msg)
			return m, cmd
		}
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.palette.SetWidth(min(m.width-4, 80))
		m.help.Width = m.width
		m.propagateSize()

	case classifierEventMsg:
		m.trainingView.Apply(msg.event)
		if msg.event.Kind == classifierdomain.EventPhase {
			m.status = "training: " + string(msg.event.Phase)
		}
		return m, waitEvent(m.deps.Events)

	case animationMsg:
		switch msg.from {
		case m.deps.TrainingAnimation:
			m.trainingView.Animate(msg.state)
		case m.deps.PredictionAnimation:
			m.predictView.Animate(msg.state)
		}
		return m, waitAnimation(msg.from)

	case datasetChangedMsg:
		if msg.err != nil {
			m.status = "dataset: " + msg.err.Error()
		} else {
			m.status = msg.status
		}
		return m, m.datasetView.Reload()

	case trainDoneMsg:
		m.trainingView.Finish(msg.err)
		if msg.err != nil {
			m.status = "training failed: " + msg.err.Error()
			return m, nil
		}
		m.reportView.SetRun(msg.out)
		m.status = fmt.Sprintf("trained on %d samples (%s)", msg.out.Samples, strings.Join(msg.out.Categories, ", "))
		return m, nil

	case predictDoneMsg:
		m.predictView.Finish(msg.out, msg.err)
		if msg.err != nil {
			m.status = "classify failed: " + msg.err.Error()
			return m, nil
		}
		m.reportView.SetPrediction(msg.subject, msg.out)
		if len(msg.out.Scores) > 0 {
			top := msg.out.Scores[0]
			m.status = fmt.Sprintf("%s: %s (%.1f%%)", msg.subject, top.Label, top.Probability*100)
		}
		return m, nil

	case components.PaletteSubmitMsg:
		return m.executePalette(msg.Input)

	case components.PaletteCancelMsg:
		m.status = "ready"

	case tea.KeyMsg:
		if m.showHelp {
			if msg.String() == "?" || msg.String() == "esc" {
				m.showHelp = false
			}
			return m, nil
		}

		if m.confirmClear {
			m.confirmClear = false
			if msg.String() == "y" {
				return m, m.clearCmd()
			}
			m.status = "clear cancelled"
			return m, nil
		}

		// Yield to sub-view when its search filter is active.
		if m.subViewFiltering() {
			break
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			m.activeTab = (m.activeTab + 1) % tabCount
		case "shift+tab":
			m.activeTab = (m.activeTab + tabCount - 1) % tabCount
		case "?":
			m.showHelp = !m.showHelp
		case ":":
			cmds = append(cmds, m.palette.Open())
			return m, tea.Batch(cmds...)
		case "c":
			if m.activeTab == tabDataset {
				return m.captureInto(m.datasetView.SelectedLabel())
			}
		case "t":
			return m.startTraining()
		case "p":
			return m.startPrediction("capture", m.classifyCaptureCmd())
		case "s":
			m.status = m.skip()
			return m, nil
		}
	}

	// Propagate the message to the active tab's sub-view.
	var tabCmd tea.Cmd
	switch m.activeTab {
	case tabDataset:
		m.datasetView, tabCmd = m.datasetView.Update(msg)
	case tabTraining:
		m.trainingView, tabCmd = m.trainingView.Update(msg)
	case tabPredict:
		m.predictView, tabCmd = m.predictView.Update(msg)
	case tabReport:
		m.reportView, tabCmd = m.reportView.Update(msg)
	}
	cmds = append(cmds, tabCmd)

	// Spinner ticks and dataset reloads reach their view while its tab is hidden.
	switch msg.(type) {
	case spinner.TickMsg:
		cmds = append(cmds, m.updateHidden(msg)...)
	case datasetview.CategoriesLoadedMsg, datasetview.PreviewLoadedMsg:
		if m.activeTab != tabDataset {
			m.datasetView, tabCmd = m.datasetView.Update(msg)
			cmds = append(cmds, tabCmd)
		}
	}

	return m, tea.Batch(cmds...)
}

// ─── view ────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	tabBar := m.renderTabBar()
	statusBar := m.renderStatusBar()
	tabBarH := lipgloss.Height(tabBar)
	statusBarH := lipgloss.Height(statusBar)

	contentH := m.height - tabBarH - statusBarH
	if contentH < 1 {
		contentH = 1
	}

	var content string
	switch {
	case m.showHelp:
		content = lipgloss.NewStyle().Width(m.width).Height(contentH).
			Render(m.help.View(m.keys))
	case m.palette.Visible():
		content = lipgloss.Place(m.width, contentH,
			lipgloss.Center, lipgloss.Center, m.palette.View())
	default:
		content = m.activeView()
	}

	return lipgloss.JoinVertical(lipgloss.Left, tabBar, content, statusBar)
}

func (m Model) activeView() string {
	switch m.activeTab {
	case tabDataset:
		return m.datasetView.View()
	case tabTraining:
		return m.trainingView.View()
	case tabPredict:
		return m.predictView.View()
	case tabReport:
		return m.reportView.View()
	}
	return ""
}

func (m Model) renderTabBar() string {
	parts := make([]string, tabCount)
	for i := tabID(0); i < tabCount; i++ {
		label := tabLabels[i]
		if i == m.activeTab {
			parts[i] = theme.Hot.Render(" " + label + " ")
		} else {
			parts[i] = theme.Muted.Render(" " + label + " ")
		}
	}
	sep := theme.Muted.Render(" │ ")
	bar := "drawclass  " + strings.Join(parts, sep)
	return lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar) + "\n"
}

func (m Model) renderStatusBar() string {
	left := m.status
	if m.trainingView.Running() {
		left = theme.Hot.Render("● training") + "  " + left
	}
	if m.confirmClear {
		left = theme.Hot.Render("clear the whole dataset? y/n")
	}
	right := theme.Muted.Render("?:help  tab:switch  :::palette  q:quit")
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	bar := left + strings.Repeat(" ", gap) + right
	return "\n" + lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar)
}

// ─── palette execution ────────────────────────────────────────────────────────

func (m Model) executePalette(input string) (tea.Model, tea.Cmd) {
	if strings.TrimSpace(input) == "" {
		return m, nil
	}
	parts := strings.Fields(input)

	switch parts[0] {
	case "dataset:declare":
		if len(parts) < 2 {
			m.status = "usage: dataset:declare <label>"
			return m, nil
		}
		label := strings.TrimSpace(strings.TrimPrefix(input, parts[0]))
		return m, m.datasetCmd(func(ctx context.Context) (string, error) {
			return "declared " + label, m.deps.Dataset.DeclareCategory(ctx, label)
		})

	case "dataset:add":
		if len(parts) != 3 {
			m.status = "usage: dataset:add <label> <file>"
			return m, nil
		}
		label, path := parts[1], parts[2]
		return m, m.datasetCmd(func(ctx context.Context) (string, error) {
			out, err := m.deps.Dataset.AddFile(ctx, label, path)
			return fmt.Sprintf("added to %s (%d samples)", out.Label, out.Count), err
		})

	case "dataset:capture":
		label := m.datasetView.SelectedLabel()
		if len(parts) >= 2 {
			label = strings.TrimSpace(strings.TrimPrefix(input, parts[0]))
		}
		return m.captureInto(label)

	case "dataset:import":
		if len(parts) != 2 {
			m.status = "usage: dataset:import <file>"
			return m, nil
		}
		path := parts[1]
		return m, m.datasetCmd(func(ctx context.Context) (string, error) {
			out, err := m.deps.Dataset.ImportFile(ctx, path)
			return fmt.Sprintf("imported %d categories, %d samples", out.Categories, out.Samples), err
		})

	case "dataset:export":
		path := ""
		if len(parts) >= 2 {
			path = parts[1]
		}
		return m, m.datasetCmd(func(ctx context.Context) (string, error) {
			n, err := m.deps.Dataset.ExportFile(ctx, path)
			return fmt.Sprintf("exported %d bytes", n), err
		})

	case "dataset:clear":
		m.confirmClear = true
		return m, nil

	case "train":
		return m.startTraining()

	case "classify":
		if len(parts) != 2 {
			m.status = "usage: classify <file>"
			return m, nil
		}
		path := parts[1]
		return m.startPrediction(path, func() tea.Msg {
			out, err := m.deps.Classifier.ClassifyFile(context.Background(), path)
			return predictDoneMsg{subject: path, out: out, err: err}
		})

	case "classify:capture":
		return m.startPrediction("capture", m.classifyCaptureCmd())

	case "skip":
		m.status = m.skip()
		return m, nil

	case "report":
		m.activeTab = tabReport
		return m, nil

	default:
		m.status = "unknown command: " + parts[0]
	}
	return m, nil
}

// ─── helpers ─────────────────────────────────────────────────────────────────

// subViewFiltering reports whether the active tab's list filter is open,
// in which case global key bindings must yield to allow free typing.
func (m Model) subViewFiltering() bool {
	if m.activeTab == tabDataset {
		return m.datasetView.Filtering()
	}
	return false
}

func (m *Model) updateHidden(msg tea.Msg) []tea.Cmd {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	if m.activeTab != tabDataset {
		m.datasetView, cmd = m.datasetView.Update(msg)
		cmds = append(cmds, cmd)
	}
	if m.activeTab != tabTraining {
		m.trainingView, cmd = m.trainingView.Update(msg)
		cmds = append(cmds, cmd)
	}
	if m.activeTab != tabPredict {
		m.predictView, cmd = m.predictView.Update(msg)
		cmds = append(cmds, cmd)
	}
	return cmds
}

func (m *Model) propagateSize() {
	sz := tea.WindowSizeMsg{Width: m.width, Height: m.height - 3}
	m.datasetView, _ = m.datasetView.Update(sz)
	m.trainingView, _ = m.trainingView.Update(sz)
	m.predictView, _ = m.predictView.Update(sz)
	m.reportView, _ = m.reportView.Update(sz)
}

func (m Model) startTraining() (tea.Model, tea.Cmd) {
	if m.trainingView.Running() {
		m.status = "training already running"
		return m, nil
	}
	m.activeTab = tabTraining
	m.status = "training started"
	tick := m.trainingView.Start()
	return m, tea.Batch(tick, m.trainCmd())
}

func (m Model) startPrediction(subject string, run tea.Cmd) (tea.Model, tea.Cmd) {
	m.activeTab = tabPredict
	m.status = "classifying " + subject
	tick := m.predictView.Start(subject)
	return m, tea.Batch(tick, run)
}

func (m Model) captureInto(label string) (tea.Model, tea.Cmd) {
	if label == "" {
		m.status = "no category selected"
		return m, nil
	}
	m.status = fmt.Sprintf("capturing from %s into %s", m.deps.CaptureSource, label)
	return m, m.datasetCmd(func(ctx context.Context) (string, error) {
		frame, err := m.deps.Capture.Capture(ctx, "", "")
		if err != nil {
			return "", err
		}
		out, err := m.deps.Dataset.AddSample(ctx, label, frame.Payload)
		return fmt.Sprintf("captured %dx%d into %s (%d samples)", frame.Width, frame.Height, out.Label, out.Count), err
	})
}

func (m Model) skip() string {
	ctx := context.Background()
	var skipped bool
	switch m.activeTab {
	case tabTraining:
		skipped = m.deps.Classifier.SkipTraining(ctx)
	case tabPredict:
		skipped = m.deps.Classifier.SkipPrediction(ctx)
	default:
		skipped = m.deps.Classifier.SkipTraining(ctx) || m.deps.Classifier.SkipPrediction(ctx)
	}
	if skipped {
		return "animation skipped"
	}
	return "no animation running"
}

// ─── async commands ───────────────────────────────────────────────────────────

func waitEvent(events <-chan classifierdomain.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		return classifierEventMsg{event: <-events}
	}
}

func waitAnimation(states <-chan visualizationdomain.AnimationState) tea.Cmd {
	if states == nil {
		return nil
	}
	return func() tea.Msg {
		return animationMsg{state: <-states, from: states}
	}
}

func (m Model) datasetCmd(fn func(ctx context.Context) (string, error)) tea.Cmd {
	return func() tea.Msg {
		status, err := fn(context.Background())
		return datasetChangedMsg{status: status, err: err}
	}
}

func (m Model) clearCmd() tea.Cmd {
	return m.datasetCmd(func(ctx context.Context) (string, error) {
		return "dataset cleared", m.deps.Dataset.Clear(ctx)
	})
}

func (m Model) trainCmd() tea.Cmd {
	return func() tea.Msg {
		out, err := m.deps.Classifier.Train(context.Background())
		return trainDoneMsg{out: out, err: err}
	}
}

func (m Model) classifyCaptureCmd() tea.Cmd {
	return func() tea.Msg {
		out, err := m.deps.Classifier.ClassifyCapture(context.Background())
		return predictDoneMsg{subject: "capture", out: out, err: err}
	}
}
