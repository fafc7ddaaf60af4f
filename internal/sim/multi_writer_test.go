package sim

import (
	"errors"
	"sync"
	"testing"
)

type recordingWriter struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (w *recordingWriter) WriteEvent(ev Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = append(w.events, ev)
	return w.err
}

func (w *recordingWriter) snapshot() []Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Event(nil), w.events...)
}

func TestMultiWriterFansOut(t *testing.T) {
	boom := errors.New("boom")
	failing := &recordingWriter{err: boom}
	ok := &recordingWriter{}
	mw := NewMultiWriter(failing, nil, ok)

	err := mw.WriteEvent(Event{VehicleID: "TRUCK-001"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(ok.snapshot()) != 1 {
		t.Fatalf("event not forwarded past failing writer")
	}
}
