package monitoring

import "testing"

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) { got = format })
	Logf("welch fallback %d", 1)
	if got != "welch fallback %d" {
		t.Errorf("custom logger not invoked, got %q", got)
	}

	// nil installs a no-op; calling it must not panic or call the old logger.
	called := false
	SetLogger(func(string, ...interface{}) { called = true })
	SetLogger(nil)
	Logf("muted")
	if called {
		t.Error("no-op logger invoked the previous logger")
	}
}

func TestLogfDefault(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf must have a default")
	}
}
