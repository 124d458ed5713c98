package progress

import (
	"fmt"
	"io"
)

// Stepper writes one-line progress updates for a sequential loop of known
// length. A nil output writer disables it.
type Stepper struct {
	out      io.Writer
	label    string
	total    int
	done     int
	finished bool
}

// NewStepper creates a stepper for total steps. If total is 0 nothing is
// ever printed.
func NewStepper(out io.Writer, label string, total int) *Stepper {
	return &Stepper{out: out, label: label, total: total}
}

// Step records completion of one step and rewrites the progress line.
func (s *Stepper) Step(name string) {
	s.done++
	s.print(name)
}

// Finish terminates the progress line. Safe to call more than once.
func (s *Stepper) Finish() {
	if s.out == nil || s.total == 0 || s.done == 0 || s.finished {
		return
	}
	s.finished = true
	fmt.Fprint(s.out, "\n")
}

func (s *Stepper) print(name string) {
	if s.out == nil || s.total == 0 {
		return
	}
	fmt.Fprintf(s.out, "\r[%s] %d/%d %s", s.label, s.done, s.total, name)
}
