package viz

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/multibody/internal/controllers"
	"github.com/san-kum/multibody/internal/dynamics"
	"github.com/san-kum/multibody/internal/experiment"
	"github.com/san-kum/multibody/internal/models"
	"github.com/san-kum/multibody/internal/sim"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 600
	maxDofRows      = 8
)

// Snapshot is a recorded configuration for replay.
type Snapshot struct {
	Config dynamics.Configuration
	Time   float64
	Energy float64
}

type TickMsg time.Time

// Live is the interactive terminal view of a running experiment.
type Live struct {
	exp           *experiment.Experiment
	sim           *sim.Simulator
	ctx           context.Context
	frame         time.Duration
	stepsPerFrame int

	canvas *Canvas
	camera *Camera
	scale  float64
	follow bool
	theme  Theme
	styles styles

	running  bool
	showHelp bool
	err      error

	history  []Snapshot
	playHead int

	params    map[string]float64
	paramKeys []string
	selected  int

	// manual is set when the experiment runs the manual controller.
	manual    *controllers.Manual
	manualDof int
}

// NewLive wraps an experiment that has been set up. fps bounds the redraw
// rate; each frame advances the simulation by about one frame of time.
func NewLive(ctx context.Context, exp *experiment.Experiment, fps int) (*Live, error) {
	if exp.GetSimulator() == nil {
		return nil, experiment.ErrNotSetup
	}
	if fps < 1 {
		fps = 30
	}
	frame := time.Second / time.Duration(fps)
	steps := int(math.Round(frame.Seconds() / exp.Config().Dt))
	if steps < 1 {
		steps = 1
	}

	m := &Live{
		exp:           exp,
		ctx:           ctx,
		frame:         frame,
		stepsPerFrame: steps,
		canvas:        NewCanvas(width, height),
		camera:        NewCamera(),
		theme:         Themes[0],
		styles:        newStyles(Themes[0]),
		running:       true,
		playHead:      -1,
		params:        models.ParamValues(exp.Model()),
		paramKeys:     models.ParamNames(exp.Model()),
	}
	m.attach()
	return m, nil
}

// attach picks up the experiment's current simulator and restarts history.
func (m *Live) attach() {
	m.sim = m.exp.GetSimulator()
	skel := m.sim.Skeleton()
	m.follow = hasFreeJoint(skel)
	m.scale = fitScale(skel, m.canvas)
	m.manual, _ = m.sim.Controller().(*controllers.Manual)
	if m.manualDof >= skel.NumDofs() {
		m.manualDof = 0
	}
	m.history = m.history[:0]
	m.playHead = -1
	m.record()
}

func hasFreeJoint(skel *dynamics.Skeleton) bool {
	for _, j := range skel.Joints() {
		if _, ok := j.(*dynamics.RigidJoint); ok {
			return true
		}
	}
	return false
}

// fitScale sizes the view so the whole skeleton fits with some margin.
func fitScale(skel *dynamics.Skeleton, c *Canvas) float64 {
	reach := 0.0
	for _, s := range SkeletonSegments(skel) {
		reach = math.Max(reach, math.Max(s.A.Len(), s.B.Len()))
	}
	if hasFreeJoint(skel) || reach < 0.5 {
		reach = 1.5
	}
	w, h := c.Dots()
	return float64(min(w, h)) / (2.4 * reach)
}

func (m *Live) Init() tea.Cmd {
	return m.tick()
}

func (m *Live) tick() tea.Cmd {
	return tea.Tick(m.frame, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m *Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.toggle()
		case "r":
			m.reset()
		case "[":
			m.scrub(-1)
		case "]":
			m.scrub(1)
		case "tab":
			m.cycleParam()
		case "up", "k":
			m.adjustParam(1.05)
		case "down", "j":
			m.adjustParam(0.95)
		case "t":
			m.theme = NextTheme(m.theme.Name)
			m.styles = newStyles(m.theme)
		case "left", "h":
			m.camera.Orbit(-0.1, 0)
		case "right", "l":
			m.camera.Orbit(0.1, 0)
		case "w":
			m.camera.Orbit(0, 0.1)
		case "s":
			m.camera.Orbit(0, -0.1)
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		case "f":
			m.follow = !m.follow
			if !m.follow {
				m.camera.Target = mgl64.Vec3{}
			}
		case "z":
			m.nudge(-1)
		case "x":
			m.nudge(1)
		case "c":
			if m.manual != nil {
				m.manual.Clear()
			}
		case "v":
			if n := m.sim.Skeleton().NumDofs(); n > 0 {
				m.manualDof = (m.manualDof + 1) % n
			}
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			m.step()
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *Live) step() {
	for i := 0; i < m.stepsPerFrame; i++ {
		if _, err := m.sim.Step(m.ctx, m.exp.Config().Dt); err != nil {
			m.err = err
			m.running = false
			break
		}
	}
	m.record()
}

func (m *Live) record() {
	skel := m.sim.Skeleton()
	snap := Snapshot{
		Config: skel.Configuration(),
		Time:   m.sim.Time(),
		Energy: skel.KineticEnergy() + skel.PotentialEnergy(),
	}
	m.history = append(m.history, snap)
	if len(m.history) > historyCapacity {
		m.history = m.history[1:]
	}
}

// toggle pauses or resumes. Resuming during replay continues from the
// replayed snapshot and forgets everything after it.
func (m *Live) toggle() {
	if m.running {
		m.running = false
		return
	}
	if m.playHead >= 0 {
		m.history = m.history[:m.playHead+1]
		m.playHead = -1
	}
	m.err = nil
	m.running = true
}

// scrub steps through recorded snapshots while paused.
func (m *Live) scrub(dir int) {
	if len(m.history) == 0 {
		return
	}
	if m.playHead == -1 {
		m.playHead = len(m.history) - 1
		m.running = false
	}
	m.playHead += dir
	if m.playHead < 0 {
		m.playHead = 0
	}
	if m.playHead >= len(m.history) {
		m.playHead = len(m.history) - 1
	}
	snap := m.history[m.playHead]
	if err := m.sim.Skeleton().SetConfiguration(snap.Config); err != nil {
		m.err = err
		return
	}
	m.sim.SetTime(snap.Time)
}

func (m *Live) reset() {
	m.sim.Reset()
	m.err = nil
	m.history = m.history[:0]
	m.playHead = -1
	m.record()
}

func (m *Live) cycleParam() {
	if len(m.paramKeys) == 0 {
		return
	}
	m.selected = (m.selected + 1) % len(m.paramKeys)
}

// adjustParam scales the selected model parameter and rebuilds the
// experiment around it.
func (m *Live) adjustParam(factor float64) {
	if len(m.paramKeys) == 0 {
		return
	}
	key := m.paramKeys[m.selected]
	old := m.params[key]
	val := old * factor
	if old == 0 {
		val = (factor - 1) * 0.1
	}

	cfg := m.exp.Config()
	if cfg.Params == nil {
		cfg.Params = make(map[string]float64)
	}
	prev, had := cfg.Params[key]
	cfg.Params[key] = val
	if err := m.exp.Setup(); err != nil {
		if had {
			cfg.Params[key] = prev
		} else {
			delete(cfg.Params, key)
		}
		m.err = err
		return
	}
	m.params[key] = val
	m.err = nil
	m.attach()
}

func (m *Live) nudge(dir float64) {
	if m.manual != nil {
		m.manual.Nudge(m.manualDof, dir)
	}
}

func (m *Live) draw() {
	skel := m.sim.Skeleton()
	if m.follow {
		m.camera.Target = skel.COM()
	}
	m.canvas.Clear()
	Render(m.canvas, SkeletonSegments(skel), m.camera, m.scale)
}

func (m *Live) status() string {
	switch {
	case m.err != nil:
		return m.styles.err.Render("HALTED")
	case m.playHead >= 0:
		last := m.history[len(m.history)-1].Time
		return fmt.Sprintf("REPLAY (%.2fs)", m.history[m.playHead].Time-last)
	case !m.running:
		return "PAUSED"
	}
	return "RUNNING"
}

func (m *Live) energies() []float64 {
	out := make([]float64, len(m.history))
	for i, s := range m.history {
		out[i] = s.Energy
	}
	return out
}

func (m *Live) View() string {
	m.draw()
	st := m.styles
	skel := m.sim.Skeleton()

	var s strings.Builder
	s.WriteString(st.header.Render(strings.ToUpper(m.exp.Config().Model)) + "\n")
	s.WriteString(m.status() + "\n")
	if m.err != nil {
		s.WriteString(st.err.Render(m.err.Error()) + "\n")
	}

	if e := m.energies(); len(e) > 1 {
		chart := asciigraph.Plot(e, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Energy"))
		s.WriteString(st.graph.Render(chart) + "\n")
	}
	s.WriteString(st.label.Render("Time") + st.value.Render(fmt.Sprintf("%.2fs", m.sim.Time())) + "\n")
	if n := len(m.history); n > 0 {
		s.WriteString(st.label.Render("Energy") + st.value.Render(fmt.Sprintf("%.4f", m.history[n-1].Energy)) + "\n")
	}

	s.WriteString("\nDOFS\n")
	q, v := skel.Positions(), skel.Velocities()
	for i, d := range skel.Dofs() {
		if i == maxDofRows {
			s.WriteString(st.label.Render(fmt.Sprintf("  … %d more", len(q)-i)) + "\n")
			break
		}
		name, _ := skel.DofName(d)
		s.WriteString(st.label.Render(name) + st.value.Render(fmt.Sprintf("%8.3f %8.3f", q[i], v[i])) + "\n")
	}

	if m.manual != nil && skel.NumDofs() > 0 {
		name, _ := skel.DofName(skel.Dofs()[m.manualDof])
		s.WriteString("\nTORQUE\n")
		s.WriteString(st.active.Render(fmt.Sprintf("> %-12s %8.3f", name, m.manual.Command(m.manualDof))) + "\n")
	}

	s.WriteString("\nPARAMETERS\n")
	if len(m.paramKeys) == 0 {
		s.WriteString(st.label.Render("  (none)") + "\n")
	}
	for i, k := range m.paramKeys {
		line := fmt.Sprintf("%-12s %8.3f", k, m.params[k])
		if i == m.selected {
			s.WriteString(st.active.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + st.value.Render(line) + "\n")
		}
	}
	s.WriteString(st.help.Render("SP:Pause R:Reset Q:Quit ?:Help\n[ ]:Replay TAB/↑↓:Tune T:Theme"))

	view := lipgloss.JoinHorizontal(lipgloss.Top,
		st.canvas.Render(m.canvas.String()),
		st.stats.Render(s.String()))
	if m.showHelp {
		return helpText + "\n" + view
	}
	return view
}

const helpText = `
  Space     pause / resume (resuming a replay continues from it)
  R         reset to the initial configuration
  [ ]       step back / forward through recorded frames
  Tab       select a model parameter
  Up/Down   scale it by ±5% and rebuild
  ←/→ W/S   orbit the camera    +/-  zoom    F  follow the body
  Z/X       push the selected DOF (manual controller)
  V         select the pushed DOF   C  release
  T         cycle themes        Q    quit
`

// RunLive runs the view until the user quits.
func RunLive(ctx context.Context, exp *experiment.Experiment, fps int) error {
	m, err := NewLive(ctx, exp, fps)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
