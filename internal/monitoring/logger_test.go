package monitoring

import (
	"fmt"
	"strings"
	"testing"
)

func TestSetLogger(t *testing.T) {
	defer SetLogger(nil)

	var got []string
	SetLogger(func(format string, v ...interface{}) {
		got = append(got, fmt.Sprintf(format, v...))
	})

	Progressf("converted %d demos", 3)
	if len(got) != 1 {
		t.Fatalf("expected 1 log line, got %d", len(got))
	}
	if !strings.HasPrefix(got[0], "[demoset] ") {
		t.Errorf("missing prefix: %q", got[0])
	}
	if !strings.Contains(got[0], "converted 3 demos") {
		t.Errorf("unexpected line: %q", got[0])
	}
}

func TestSetLoggerNilMutes(t *testing.T) {
	SetLogger(nil)
	defer SetLogger(nil)

	// Must not panic.
	Logf("dropped %s", "line")
	Progressf("dropped")
}
