package timeouts

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestConfigure_KeepsUnsetValues(t *testing.T) {
	t.Cleanup(Reset)

	Configure(Config{Short: time.Second, Long: time.Minute})

	if got := Short(); got != time.Second {
		t.Errorf("Short() = %v, want 1s", got)
	}
	if got := Medium(); got != DefaultMedium {
		t.Errorf("Medium() = %v, want default %v", got, DefaultMedium)
	}
	if got := Long(); got != time.Minute {
		t.Errorf("Long() = %v, want 1m", got)
	}
	if got := Ping(); got != DefaultPing {
		t.Errorf("Ping() = %v, want default %v", got, DefaultPing)
	}

	Configure(Config{Medium: -time.Second})
	if got := Medium(); got != DefaultMedium {
		t.Errorf("negative override changed Medium() to %v", got)
	}
}

func TestWithTimeout_LogsOnlyOnDeadline(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	log := zap.New(core)

	ctx, cancel := WithTimeout(context.Background(), time.Hour, log, "fast")
	if _, ok := ctx.Deadline(); !ok {
		t.Fatal("context has no deadline")
	}
	cancel()
	if logs.Len() != 0 {
		t.Fatalf("logged %d entries for an operation that finished in time", logs.Len())
	}

	ctx, cancel = WithTimeout(context.Background(), time.Millisecond, log, "fan-out")
	<-ctx.Done()
	cancel()
	entries := logs.FilterMessage("operation timed out").All()
	if len(entries) != 1 {
		t.Fatalf("timeout warnings = %d, want 1", len(entries))
	}
	if op := entries[0].ContextMap()["operation"]; op != "fan-out" {
		t.Errorf("operation field = %v, want fan-out", op)
	}
}

func TestWithTimeout_NilLogger(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), time.Millisecond, nil, "sweep")
	<-ctx.Done()
	cancel()
}
