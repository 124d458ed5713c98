package report

import (
	"fmt"
	"io"
	"os"

	"volume-reconcile/src/reconcile"
)

// AuditWriter appends one outcome line per processed object, in processing
// order. The trail is write-only for the tool; it exists for operators.
type AuditWriter struct {
	w io.Writer
}

// NewAuditWriter writes the trail to w.
func NewAuditWriter(w io.Writer) *AuditWriter {
	return &AuditWriter{w: w}
}

// OpenAuditFile opens (creating if needed) path for appending and returns
// a writer over it. The caller closes the file.
func OpenAuditFile(path string) (*AuditWriter, *os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return &AuditWriter{w: f}, f, nil
}

// Report appends one line: status, object id, detail.
func (a *AuditWriter) Report(o reconcile.Outcome) error {
	_, err := fmt.Fprintf(a.w, "%s\t%s\t%s\n", o.Status, o.ObjectID, o.Detail)
	return err
}
