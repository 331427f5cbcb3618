package logging

import "testing"

func TestNew_Levels(t *testing.T) {
	for _, lvl := range []string{"", "debug", "info", "warn", "error"} {
		logger, err := New(lvl)
		if err != nil {
			t.Fatalf("New(%q) failed: %v", lvl, err)
		}
		if logger == nil {
			t.Fatalf("New(%q) returned nil logger", lvl)
		}
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New("loud"); err == nil {
		t.Error("expected error for invalid level")
	}
}
