package viewer

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"xlogd/pkg/record"
)

func prefix(el string) record.Prefix {
	return record.Prefix{
		Version:  record.Version,
		ID:       "nx01",
		SubID:    "0001",
		ErrLevel: el,
		SubLevel: "_",
	}
}

func TestConsole_RendersMessage(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleTo(&buf)

	ev := record.Event{"_msg": "disk full"}
	if err := c.Render(prefix("4"), ev); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"nx01", "0001", "4", "disk full"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestConsole_MissingMessage(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleTo(&buf)

	if err := c.Render(prefix("2"), record.Event{}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "None") {
		t.Errorf("output %q, want None placeholder", buf.String())
	}
}

func TestLevelStyle_NonNumericLevel(t *testing.T) {
	// Letter levels (e.g. unix severities) fall back to the extra style
	// rather than erroring.
	var buf bytes.Buffer
	c := NewConsoleTo(&buf)
	if err := c.Render(prefix("a"), record.Event{"_msg": "x"}); err != nil {
		t.Fatalf("Render: %v", err)
	}
}

type failViewer struct{ calls int }

func (f *failViewer) Render(record.Prefix, record.Event) error {
	f.calls++
	return errors.New("broken")
}

type okViewer struct{ calls int }

func (o *okViewer) Render(record.Prefix, record.Event) error {
	o.calls++
	return nil
}

func TestFanOut_RunsAllViewers(t *testing.T) {
	bad := &failViewer{}
	good := &okViewer{}
	f := NewFanOut(bad, good)

	err := f.Render(prefix("2"), record.Event{"_msg": "x"})
	if err == nil {
		t.Error("FanOut swallowed the error")
	}
	if bad.calls != 1 || good.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", bad.calls, good.calls)
	}
}
