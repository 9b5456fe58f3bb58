package logging

import "testing"

func TestTestLoggerObservesWarnings(t *testing.T) {
	logger, logs := NewTestLogger(t)
	logger.Infow("ready")
	logger.Warnw("index out of range", "joint", "elbow", "index", 3)

	if logs.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", logs.Len())
	}
	warn := logs.FilterMessage("index out of range").All()
	if len(warn) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warn))
	}
	if got := warn[0].ContextMap()["joint"]; got != "elbow" {
		t.Errorf("expected joint elbow, got %v", got)
	}
}
