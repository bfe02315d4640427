package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/team3238/testdrive/pkg/camera"
	"github.com/team3238/testdrive/pkg/dashboard"
	"github.com/team3238/testdrive/pkg/drive"
	"github.com/team3238/testdrive/pkg/joystick"
	"github.com/team3238/testdrive/pkg/robot"
	"github.com/team3238/testdrive/pkg/sim"
	"github.com/team3238/testdrive/pkg/spark"
	"github.com/team3238/testdrive/pkg/teleop"
)

type DriveCommand struct {
	Hz   int    `long:"hz" description:"Control loop frequency (default from config)"`
	Mode string `long:"mode" default:"disabled" choice:"disabled" choice:"teleop" description:"Mode entered after init"`
	Sim  bool   `long:"sim" description:"Use simulated motors; arrow keys drive when no joystick is found"`
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Series colors, one per dashboard key
var seriesColors = map[string]string{
	drive.KeyThrottle:   "196", // red
	drive.KeyTwist:      "226", // yellow
	drive.KeyLeftPower:  "46",  // green
	drive.KeyRightPower: "51",  // cyan
}

var seriesOrder = []string{drive.KeyThrottle, drive.KeyTwist, drive.KeyLeftPower, drive.KeyRightPower}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	modeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
)

// keyboard stands in for the joystick in simulation.
type keyboard struct {
	mu       sync.Mutex
	throttle float64
	twist    float64
}

func (k *keyboard) RawAxis(index int) (float64, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	switch index {
	case drive.DefaultTuning.Throttle.Index:
		return k.throttle, nil
	case drive.DefaultTuning.Twist.Index:
		return k.twist, nil
	}
	return 0, nil
}

func (k *keyboard) nudge(throttle, twist float64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.throttle = max(-1, min(1, k.throttle+throttle))
	k.twist = max(-1, min(1, k.twist+twist))
}

func (k *keyboard) center() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.throttle, k.twist = 0, 0
}

type driveModel struct {
	runner     *teleop.Runner
	table      *dashboard.Memory
	keys       *keyboard // nil when a joystick is attached
	errCh      <-chan error
	chart      *streamlinechart.Model
	width      int      // terminal width
	height     int      // terminal height
	logs       []string // last N log messages
	mode       teleop.Mode
	quitting   bool
	err        error
	lastValues map[string]float64 // track previous values to detect movement
}

func (m *driveModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// hasMovement checks if any value has changed since the last state
func (m *driveModel) hasMovement(values map[string]float64) bool {
	if m.lastValues == nil {
		return true // first reading, consider it movement
	}
	for key, v := range values {
		if last, ok := m.lastValues[key]; !ok || v != last {
			return true
		}
	}
	return false
}

// Messages from the runner
type stateMsg teleop.State
type logMsg string
type runnerDoneMsg struct{ err error }

func waitForState(r *teleop.Runner) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-r.States())
	}
}

func waitForLog(r *teleop.Runner) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-r.Logs())
	}
}

func waitForRunner(errCh <-chan error) tea.Cmd {
	return func() tea.Msg {
		return runnerDoneMsg{err: <-errCh}
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *driveModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = max(m.width-borderSize-2, 40)
	height = max(m.height-headerHeight-legendHeight-footerHeight-borderSize, 10)
	return width, height
}

func (m *driveModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialDriveModel(r *teleop.Runner, table *dashboard.Memory, keys *keyboard, errCh <-chan error) driveModel {
	// Mixed outputs reach 1.4 before the controllers clip them.
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(-1.5, 1.5),
	)

	for _, key := range seriesOrder {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(seriesColors[key]))
		chart.SetDataSetStyles(key, runes.ThinLineStyle, style)
	}

	return driveModel{
		runner: r,
		table:  table,
		keys:   keys,
		errCh:  errCh,
		chart:  &chart,
		mode:   r.Mode(),
	}
}

func (m driveModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.runner),
		waitForLog(m.runner),
		waitForRunner(m.errCh),
	)
}

func (m driveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "t":
			m.runner.SetMode(teleop.Teleop)
		case "d", " ":
			m.runner.SetMode(teleop.Disabled)
			if m.keys != nil {
				m.keys.center()
			}
		case "up":
			m.nudge(-0.1, 0) // forward is negative
		case "down":
			m.nudge(0.1, 0)
		case "left":
			m.nudge(0, -0.1)
		case "right":
			m.nudge(0, 0.1)
		case "c":
			if m.keys != nil {
				m.keys.center()
			}
		}
		return m, nil

	case stateMsg:
		state := teleop.State(msg)
		m.mode = state.Mode
		values := m.table.Snapshot()
		if len(values) > 0 && m.hasMovement(values) {
			// Only update chart if there's movement (freeze when idle)
			for _, key := range seriesOrder {
				m.chart.PushDataSet(key, values[key])
			}
			m.chart.DrawAll()
			m.lastValues = values
		}
		return m, waitForState(m.runner)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.runner)

	case runnerDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.err = msg.err
		}
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *driveModel) nudge(throttle, twist float64) {
	if m.keys != nil {
		m.keys.nudge(throttle, twist)
	}
}

func (m driveModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("testdrive"))
	sb.WriteString(fmt.Sprintf(" - %d Hz - ", m.runner.Hz()))
	sb.WriteString(modeStyle.Render(m.mode.String()))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderLegend(m.lastValues))
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20)).
		Foreground(lipgloss.Color("9")) // bright red

	var logLines string
	if len(m.logs) == 0 {
		help := "t: teleop  d/space: disable  q: quit"
		if m.keys != nil {
			help += "  arrows: drive  c: center"
		}
		logLines = statusStyle.Render(help)
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderLegend(values map[string]float64) string {
	var items []string
	for _, key := range seriesOrder {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(seriesColors[key])).Bold(true)
		item := colorStyle.Render("━━") + fmt.Sprintf(" %s %+.3f", key, values[key])
		items = append(items, item)
	}
	return strings.Join(items, "  ")
}

func (c *DriveCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.Sim)
	if err != nil {
		fmt.Fprintf(os.Stderr, "No usable configuration (%v). Run 'testdrive setup' first.\n", err)
		os.Exit(1)
	}
	if !c.Sim && !cfg.IsComplete() {
		fmt.Fprintln(os.Stderr, "Hardware not configured. Run 'testdrive setup' first.")
		os.Exit(1)
	}
	if c.Hz > 0 {
		cfg.Hz = c.Hz
	}
	// The TUI owns the terminal.
	if cfg.LogFile == "" {
		cfg.LogFile = "testdrive.log"
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	mode, err := teleop.ParseMode(c.Mode)
	if err != nil {
		return err
	}

	var open robot.Opener
	var bus *spark.Bus
	if c.Sim {
		open = sim.NewFleet().Open
	} else {
		bus, err = spark.Open(cfg.CANInterface, log)
		if err != nil {
			return fmt.Errorf("open CAN bus: %w", err)
		}
		defer bus.Close()
		open = bus.Open
	}

	dt, err := robot.NewDrivetrain(drive.DefaultTuning.Layout, open)
	if err != nil {
		return err
	}
	defer dt.Close()
	if bus != nil {
		bus.Enable(dt.Layout().IDs())
	}

	var device drive.Device
	var keys *keyboard
	stick, err := joystick.Open(cfg.JoystickPort)
	switch {
	case err == nil:
		defer stick.Close()
		log.Infow("joystick opened", "port", stick.Port(), "name", stick.Name())
		device = stick
	case c.Sim:
		log.Infow("no joystick, using keyboard", "error", err)
		keys = &keyboard{}
		device = keys
	default:
		return err
	}

	table := dashboard.NewMemory(0)
	tables, closeTables := openDashboards(cfg, table, log)
	defer closeTables()

	var cam drive.Camera = camera.Disabled{}
	if len(cfg.Camera.Command) > 0 {
		cam = camera.NewCommand(cfg.Camera.Command, log)
	}

	program := drive.NewRobot(cam, dt, device, tables, drive.DefaultTuning, log)
	runner := teleop.NewRunner(program, teleop.Config{
		Hz:     cfg.Hz,
		Mode:   mode,
		Logger: log,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- runner.Start(ctx)
	}()

	p := tea.NewProgram(initialDriveModel(runner, table, keys, errCh), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("run TUI: %w", err)
	}

	if dm, ok := final.(driveModel); ok && dm.err != nil {
		return fmt.Errorf("drive stopped: %w", dm.err)
	}

	cancel()
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Println("Drive stopped.")
	return nil
}

// openDashboards returns the table the drive program publishes to, which
// always includes local.
func openDashboards(cfg *robot.Config, local *dashboard.Memory, log *zap.SugaredLogger) (dashboard.Multi, func()) {
	tables := dashboard.Multi{local}
	var closers []func()

	if broker := cfg.Dashboard.MQTTBroker; broker != "" {
		m := dashboard.DialMQTT(broker, "testdrive", cfg.Dashboard.MQTTPrefix, log)
		tables = append(tables, m)
		closers = append(closers, m.Close)
	}

	if addr := cfg.Dashboard.WebSocketListen; addr != "" {
		hub := dashboard.NewHub(log)
		mux := http.NewServeMux()
		mux.Handle("/dashboard", hub)
		srv := &http.Server{Addr: addr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorw("dashboard server", "addr", addr, "error", err)
			}
		}()
		tables = append(tables, hub)
		closers = append(closers, func() { srv.Close() })
	}

	return tables, func() {
		for _, c := range closers {
			c()
		}
	}
}
