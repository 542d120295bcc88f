package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/rigidsim/internal/event"
	"github.com/san-kum/rigidsim/internal/metrics"
	"github.com/san-kum/rigidsim/internal/sim"
	"github.com/san-kum/rigidsim/internal/world"
)

const (
	width           = 60
	height          = 22
	historyCapacity = 300
	eventCapacity   = 8
	frameTime       = time.Second / 60
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(48)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
)

// Source builds a fresh world. The live view calls it at start and on
// every reset.
type Source func() (*world.World, error)

type Options struct {
	Title       string
	Dt          float64
	MaxSubsteps int
}

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frameTime, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// eventLog keeps the most recent notable events. It is shared by pointer so
// world handlers can append while the model is passed around by value.
type eventLog struct {
	lines []string
}

func (l *eventLog) add(t float64, e event.Event) {
	if e.Kind() == event.CollisionStay {
		return
	}
	style := eventCollision
	switch e.Kind() {
	case event.LinkBreak, event.ChainBreak, event.MeshDamage:
		style = eventBreak
	case event.LinkYield, event.LinkStretch:
		style = eventLink
	}
	l.lines = append(l.lines, style.Render(fmt.Sprintf("%6.2fs %s", t, world.Describe(e))))
	if len(l.lines) > eventCapacity {
		l.lines = l.lines[len(l.lines)-eventCapacity:]
	}
}

// Model steps a world in real time and draws it with summary statistics.
type Model struct {
	source   Source
	opts     Options
	world    *world.World
	clock    *sim.Clock
	renderer *Renderer
	energy   []float64
	contacts []float64
	log      *eventLog
	running  bool
	showHelp bool
	err      error
}

func NewModel(src Source, opts Options) Model {
	if !(opts.Dt > 0) {
		opts.Dt = 1.0 / 60
	}
	m := Model{
		source:   src,
		opts:     opts,
		renderer: NewRenderer(width, height),
		running:  true,
	}
	m.reset()
	return m
}

func (m *Model) reset() {
	m.log = &eventLog{}
	m.energy = make([]float64, 0, historyCapacity)
	m.contacts = make([]float64, 0, historyCapacity)
	m.clock = sim.NewClock(m.opts.Dt, m.opts.MaxSubsteps)
	m.err = nil
	w, err := m.source()
	if err != nil {
		m.world, m.err, m.running = nil, err, false
		return
	}
	log := m.log
	w.OnAll(func(e event.Event) { log.add(w.Time(), e) })
	m.world = w
	m.renderer.Camera.Fit(SceneBounds(w))
	m.record()
}

// World returns the world currently on screen, or nil after a failed reset.
func (m Model) World() *world.World { return m.world }

func (m *Model) record() {
	push := func(buf []float64, v float64) []float64 {
		if len(buf) == historyCapacity {
			buf = append(buf[:0], buf[1:]...)
		}
		return append(buf, v)
	}
	m.energy = push(m.energy, metrics.Kinetic(m.world)+metrics.Potential(m.world))
	m.contacts = push(m.contacts, float64(m.world.ContactCount()))
}

func (m *Model) step() {
	if m.world == nil || m.err != nil {
		return
	}
	if err := m.world.Step(m.clock.Dt); err != nil {
		m.err, m.running = err, false
		return
	}
	m.record()
}

// advance runs however many fixed steps one frame of wall time buys.
func (m *Model) advance(frame time.Duration) {
	for n := m.clock.Advance(frame.Seconds()); n > 0 && m.err == nil; n-- {
		m.step()
	}
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running && m.err == nil
		case "r":
			m.reset()
			m.running = m.err == nil
		case ".":
			if !m.running {
				m.step()
			}
		case "?":
			m.showHelp = !m.showHelp
		case "x":
			m.renderer.Camera.RotateX(0.1)
		case "X":
			m.renderer.Camera.RotateX(-0.1)
		case "y":
			m.renderer.Camera.RotateY(0.1)
		case "Y":
			m.renderer.Camera.RotateY(-0.1)
		case "+", "=":
			m.renderer.Camera.ZoomIn()
		case "-", "_":
			m.renderer.Camera.ZoomOut()
		case "f":
			if m.world != nil {
				m.renderer.Camera.Fit(SceneBounds(m.world))
			}
		}
	case TickMsg:
		if m.running {
			m.advance(frameTime)
		}
		return m, tick()
	}
	return m, nil
}

func (m Model) status() string {
	switch {
	case m.err != nil:
		return StatusFault.Render("ERROR")
	case m.running:
		return StatusRunning.Render("RUNNING")
	default:
		return StatusPaused.Render("PAUSED")
	}
}

func stat(label, value string) string {
	return MetricLabel.Render(label) + MetricValue.Render(value) + "\n"
}

func (m Model) View() string {
	var s strings.Builder
	title := m.opts.Title
	if title == "" {
		title = "rigidsim"
	}
	s.WriteString(GradientText(strings.ToUpper(title), "#00ffff", "#ff00ff") + "  " + m.status() + "\n\n")
	if m.err != nil {
		s.WriteString(StatusFault.Render(m.err.Error()) + "\n")
	}
	if w := m.world; w != nil {
		m.renderer.DrawWorld(w)
		faulted, active := 0, 0
		for _, b := range w.Bodies() {
			if b.Faulted() {
				faulted++
			}
		}
		links := w.Links()
		for _, l := range links {
			if l.Active() {
				active++
			}
		}
		s.WriteString(stat("Time", fmt.Sprintf("%.2fs (%d steps)", w.Time(), w.Steps())))
		s.WriteString(stat("Bodies", fmt.Sprintf("%d (%d faulted)", w.BodyCount(), faulted)))
		s.WriteString(stat("Links", fmt.Sprintf("%d/%d intact", active, len(links))))
		s.WriteString(stat("Contacts", fmt.Sprintf("%d", w.ContactCount())))
		s.WriteString(MetricLabel.Render("Integrity") + ProgressBar(w.Integrity(), 20) + MetricValue.Render(fmt.Sprintf(" %.0f%%", 100*w.Integrity())) + "\n")
		if d := m.clock.Dropped(); d > 0 {
			s.WriteString(stat("Dropped", fmt.Sprintf("%.3fs", d)))
		}
		if len(m.energy) > 1 {
			chart := asciigraph.Plot(m.energy, asciigraph.Height(4), asciigraph.Width(32), asciigraph.Caption("Energy"))
			s.WriteString(graphStyle.Render(chart) + "\n")
		}
		s.WriteString(MetricLabel.Render("Contacts") + SparklineChart(m.contacts, 32) + "\n")
	}
	s.WriteString("\n" + Separator(40) + "\n")
	if len(m.log.lines) == 0 {
		s.WriteString(Subtle.Render("no events yet") + "\n")
	}
	for _, line := range m.log.lines {
		s.WriteString(line + "\n")
	}
	s.WriteString("\n" + KeyHint.Render("SP:Pause R:Reset .:Step Q:Quit ?:Help"))

	view := lipgloss.JoinHorizontal(lipgloss.Top, canvasStyle.Render(m.renderer.String()), statsStyle.Render(s.String()))
	if m.showHelp {
		return helpText + "\n" + view
	}
	return view
}

const helpText = `
  Space  pause or resume      x/X  tilt camera
  R      rebuild the scene    y/Y  turn camera
  .      single step (paused) +/-  zoom
  F      refit the camera     Q    quit
`

// Run opens the live view full screen until the user quits.
func Run(src Source, opts Options) error {
	_, err := tea.NewProgram(NewModel(src, opts), tea.WithAltScreen()).Run()
	return err
}
