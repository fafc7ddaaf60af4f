package sim

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"geostream-sim/internal/ingest"
	"geostream-sim/internal/telemetry"
)

type fakeProgram struct {
	msgs []tea.Msg
	quit bool
}

func (f *fakeProgram) Send(msg tea.Msg) { f.msgs = append(f.msgs, msg) }
func (f *fakeProgram) Quit()            { f.quit = true }

func TestTUIWriterMessages(t *testing.T) {
	p := &fakeProgram{}
	w := &TUIWriter{program: p}
	if err := w.WriteEvent(Event{VehicleID: "TRUCK-001"}); err != nil {
		t.Fatalf("write event: %v", err)
	}
	if _, ok := p.msgs[0].(eventMsg); !ok {
		t.Fatalf("expected eventMsg, got %T", p.msgs[0])
	}
	n, err := w.Write([]byte("reading accepted\n"))
	if err != nil || n != len("reading accepted\n") {
		t.Fatalf("write: n=%d err=%v", n, err)
	}
	lm, ok := p.msgs[1].(logMsg)
	if !ok || lm.line != "reading accepted" {
		t.Fatalf("expected trimmed logMsg, got %#v", p.msgs[1])
	}
	w.Close()
	if !p.quit {
		t.Fatal("Close did not quit the program")
	}
}

func TestTUIModelTable(t *testing.T) {
	m := newTUIModel("run-1", "localhost:50051")
	mi, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = mi.(tuiModel)

	events := []Event{
		{Kind: EventState, VehicleID: "TRUCK-002", State: StateConnected},
		{Kind: EventTick, VehicleID: "TRUCK-001", State: StateSending, Outcome: ingest.OutcomeAccepted,
			Message: "Data received successfully", Reading: telemetry.Reading{Position: telemetry.GeoPosition{Lat: 40.7130, Lon: -74.0061}, Speed: 47.5}},
		{Kind: EventTick, VehicleID: "TRUCK-001", State: StateSending, Outcome: ingest.OutcomeRejected, Message: "duplicate"},
	}
	for _, ev := range events {
		mi, _ = m.Update(eventMsg{ev})
		m = mi.(tuiModel)
	}

	rows := m.table.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "TRUCK-001" || rows[1][0] != "TRUCK-002" {
		t.Fatalf("rows not ordered by vehicle: %v", rows)
	}
	if rows[0][6] != "1" || rows[0][7] != "1" || rows[0][9] != "duplicate" {
		t.Errorf("unexpected counters: %v", rows[0])
	}
	if !strings.Contains(m.View(), "accepted 1") {
		t.Errorf("summary missing from view")
	}
}

func TestTUIModelLogsCapped(t *testing.T) {
	m := newTUIModel("run-1", "x")
	mi, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	m = mi.(tuiModel)
	for i := 0; i < maxLogLines+10; i++ {
		mi, _ = m.Update(logMsg{line: "line"})
		m = mi.(tuiModel)
	}
	if len(m.logs) != maxLogLines {
		t.Fatalf("expected %d log lines, got %d", maxLogLines, len(m.logs))
	}
}

func TestTUIModelQuit(t *testing.T) {
	m := newTUIModel("run-1", "x")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected QuitMsg")
	}
}
