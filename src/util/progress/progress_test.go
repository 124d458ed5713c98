package progress

import (
	"bytes"
	"strings"
	"testing"
)

func TestStepperWritesProgressLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewStepper(&buf, "reconcile", 2)
	s.Step("ds1:a")
	s.Step("ds1:b")
	s.Finish()

	out := buf.String()
	if !strings.Contains(out, "[reconcile] 1/2 ds1:a") {
		t.Fatalf("missing first step: %q", out)
	}
	if !strings.Contains(out, "[reconcile] 2/2 ds1:b") {
		t.Fatalf("missing second step: %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Fatalf("Finish should terminate the line: %q", out)
	}
}

func TestStepperFinishIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	s := NewStepper(&buf, "x", 1)
	s.Step("a")
	s.Finish()
	s.Finish()
	if strings.Count(buf.String(), "\n") != 1 {
		t.Fatalf("expected a single newline: %q", buf.String())
	}
}

func TestStepperDisabled(t *testing.T) {
	s := NewStepper(nil, "x", 3)
	s.Step("a") // must not panic
	s.Finish()

	var buf bytes.Buffer
	s = NewStepper(&buf, "x", 0)
	s.Step("a")
	s.Finish()
	if buf.Len() != 0 {
		t.Fatalf("zero-total stepper must stay silent: %q", buf.String())
	}
}
