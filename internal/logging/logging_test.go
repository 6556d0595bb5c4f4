package logging

import "testing"

func TestNew(t *testing.T) {
	t.Parallel()

	logger, err := New()
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if logger == nil {
		t.Fatal("expected a logger instance")
	}
	logger.Debug("smoke")
	_ = logger.Sync()
}
