package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// JSONWriter prints every event as one JSON line.
type JSONWriter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewJSONWriter creates a JSONWriter writing to w, or os.Stdout when w is nil.
func NewJSONWriter(w io.Writer) *JSONWriter {
	if w == nil {
		w = os.Stdout
	}
	return &JSONWriter{out: w}
}

// WriteEvent implements EventWriter.
func (w *JSONWriter) WriteEvent(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}
