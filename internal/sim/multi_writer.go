package sim

import "errors"

// MultiWriter fans events out to several writers.
type MultiWriter struct {
	writers []EventWriter
}

// NewMultiWriter creates a new MultiWriter. Nil writers are skipped.
func NewMultiWriter(ws ...EventWriter) *MultiWriter {
	mw := &MultiWriter{}
	for _, w := range ws {
		if w != nil {
			mw.writers = append(mw.writers, w)
		}
	}
	return mw
}

// WriteEvent sends ev to every writer. A failing writer does not keep the
// event from the others; all errors are returned joined.
func (mw *MultiWriter) WriteEvent(ev Event) error {
	var errs []error
	for _, w := range mw.writers {
		if err := w.WriteEvent(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
