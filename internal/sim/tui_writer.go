package sim

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"geostream-sim/internal/ingest"
	"geostream-sim/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
	Quit()
}

// logMsg carries a log line for the viewport.
type logMsg struct{ line string }

// eventMsg carries a worker event for the vehicle table.
type eventMsg struct{ Event }

const (
	maxLogLines    = 500
	messageColumn  = 24
	minTableHeight = 3
)

// TUIWriter renders the fleet in a bubbletea TUI. It is both an EventWriter
// and an io.Writer so the logger can print into the log pane.
type TUIWriter struct {
	program teaProgram
	done    chan struct{}
}

// NewTUIWriter starts the TUI. onQuit runs once the user leaves it.
func NewTUIWriter(runID, target string, onQuit func()) *TUIWriter {
	p := tea.NewProgram(newTUIModel(runID, target), tea.WithAltScreen())
	w := &TUIWriter{program: p, done: make(chan struct{})}
	go func() {
		_, _ = p.Run()
		close(w.done)
		if onQuit != nil {
			onQuit()
		}
	}()
	return w
}

// WriteEvent implements EventWriter.
func (w *TUIWriter) WriteEvent(ev Event) error {
	w.program.Send(eventMsg{ev})
	return nil
}

// Write implements io.Writer; each call is one log line.
func (w *TUIWriter) Write(p []byte) (int, error) {
	w.program.Send(logMsg{line: strings.TrimRight(string(p), "\n")})
	return len(p), nil
}

// Close stops the TUI and waits for the terminal to be restored.
func (w *TUIWriter) Close() {
	w.program.Quit()
	if w.done != nil {
		<-w.done
	}
}

type vehicleRow struct {
	state    State
	pos      telemetry.GeoPosition
	speed    float64
	temp     float64
	accepted int
	rejected int
	failed   int
	last     string
}

type tuiModel struct {
	runID  string
	target string
	table  table.Model
	vp     viewport.Model
	rows   map[telemetry.VehicleID]*vehicleRow
	logs   []string
	totals map[ingest.Outcome]int
	width  int
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	borderStyle = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("8"))
)

func newTUIModel(runID, target string) tuiModel {
	cols := []table.Column{
		{Title: "Vehicle", Width: 10},
		{Title: "State", Width: 10},
		{Title: "Lat", Width: 10},
		{Title: "Lon", Width: 10},
		{Title: "Speed", Width: 6},
		{Title: "Temp", Width: 6},
		{Title: "OK", Width: 5},
		{Title: "Rej", Width: 5},
		{Title: "Err", Width: 5},
		{Title: "Last", Width: messageColumn},
	}
	return tuiModel{
		runID:  runID,
		target: target,
		table:  table.New(table.WithColumns(cols), table.WithHeight(minTableHeight), table.WithFocused(true)),
		vp:     viewport.New(0, 0),
		rows:   make(map[telemetry.VehicleID]*vehicleRow),
		totals: make(map[ingest.Outcome]int),
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		tableHeight := max(msg.Height/2-4, minTableHeight)
		m.table.SetHeight(tableHeight)
		m.vp.Width = msg.Width
		m.vp.Height = max(msg.Height-tableHeight-8, 1)
		m.refreshLogs()
	case eventMsg:
		m.apply(msg.Event)
		m.table.SetRows(m.tableRows())
		return m, nil
	case logMsg:
		m.logs = append(m.logs, msg.line)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		m.refreshLogs()
		return m, nil
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m tuiModel) apply(ev Event) {
	r, ok := m.rows[ev.VehicleID]
	if !ok {
		r = &vehicleRow{}
		m.rows[ev.VehicleID] = r
	}
	r.state = ev.State
	if ev.Kind != EventTick {
		return
	}
	m.totals[ev.Outcome]++
	switch ev.Outcome {
	case ingest.OutcomeAccepted:
		r.accepted++
		r.last = ev.Message
	case ingest.OutcomeRejected:
		r.rejected++
		r.last = ev.Message
	case ingest.OutcomeTransport, ingest.OutcomeFatal:
		r.failed++
		r.last = ev.Error
	}
	if ev.Outcome != ingest.OutcomeFatal && ev.Outcome != ingest.OutcomeCanceled {
		r.pos = ev.Reading.Position
		r.speed = ev.Reading.Speed
		r.temp = ev.Reading.EngineTemp
	}
}

func (m tuiModel) tableRows() []table.Row {
	ids := make([]telemetry.VehicleID, 0, len(m.rows))
	for id := range m.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	rows := make([]table.Row, 0, len(ids))
	for _, id := range ids {
		r := m.rows[id]
		rows = append(rows, table.Row{
			id.String(),
			r.state.String(),
			fmt.Sprintf("%.5f", r.pos.Lat),
			fmt.Sprintf("%.5f", r.pos.Lon),
			fmt.Sprintf("%.1f", r.speed),
			fmt.Sprintf("%.0f", r.temp),
			fmt.Sprint(r.accepted),
			fmt.Sprint(r.rejected),
			fmt.Sprint(r.failed),
			truncate.StringWithTail(r.last, messageColumn, "…"),
		})
	}
	return rows
}

func (m *tuiModel) refreshLogs() {
	if m.vp.Width <= 0 {
		return
	}
	lines := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		lines = append(lines, wordwrap.String(l, m.vp.Width))
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	m.vp.GotoBottom()
}

func (m tuiModel) View() string {
	header := titleStyle.Render("geostream-sim") + " " +
		dimStyle.Render(fmt.Sprintf("run %s → %s", m.runID, m.target))
	summary := strings.Join([]string{
		okStyle.Render(fmt.Sprintf("accepted %d", m.totals[ingest.OutcomeAccepted])),
		warnStyle.Render(fmt.Sprintf("rejected %d", m.totals[ingest.OutcomeRejected])),
		errStyle.Render(fmt.Sprintf("errors %d", m.totals[ingest.OutcomeTransport]+m.totals[ingest.OutcomeFatal])),
	}, "  ")
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		summary,
		borderStyle.Render(m.table.View()),
		m.vp.View(),
		dimStyle.Render("q: quit"),
	)
}
