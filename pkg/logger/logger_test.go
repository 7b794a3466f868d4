package logger

import "testing"

func TestInitReturnsUsableLogger(t *testing.T) {
	log := Init(Config{Level: "DEBUG", Format: "JSON"})
	if log == nil {
		t.Fatalf("expected a non-nil logger")
	}
	// Should not panic and should route through the trace handler.
	log.Info("test message", "k", "v")
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if parseLevel("bogus") != parseLevel("INFO") {
		t.Fatalf("expected unknown level to default to INFO")
	}
}
