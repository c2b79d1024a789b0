package logger

import "testing"

func TestNoOpLogger(t *testing.T) {
	logger := NewNoOpLogger()

	logger.Debugw("debug message", "key", "value")
	logger.Infow("info message", "key", "value")
	logger.Warnw("warn message", "key", "value")
	logger.Errorw("error message", "key", "value")

	enriched := logger.With("key", "value")
	enriched.Infow("enriched message")

	compLogger := logger.WithComponent("test")
	compLogger.Infow("component message")

	chainedLogger := logger.WithComponent("test").With("key", "value")
	chainedLogger.Infow("chained message")
}

func TestNoOpLogger_Overrides(t *testing.T) {
	var gotMsg string
	logger := &NoOpLogger{
		InfowFunc: func(msg string, kvs ...any) { gotMsg = msg },
	}
	logger.Infow("hello")
	if gotMsg != "hello" {
		t.Errorf("expected override to capture message, got %q", gotMsg)
	}
}
