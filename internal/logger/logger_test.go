package logger

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestInit(t *testing.T) {
	logger := Init("test-service", slog.LevelInfo)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestCycleID_RoundTrip(t *testing.T) {
	ctx := context.Background()

	// No cycle ID set
	if cid := CycleID(ctx); cid != "" {
		t.Errorf("expected empty cycle id, got %q", cid)
	}

	// Set and retrieve
	ctx = WithCycleID(ctx, "cycle-7-123")
	if cid := CycleID(ctx); cid != "cycle-7-123" {
		t.Errorf("expected 'cycle-7-123', got %q", cid)
	}
}

func TestGenerateCycleID(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 30, 0, 123456789, time.UTC)
	cid := GenerateCycleID(42, ts)

	if cid == "" {
		t.Fatal("expected non-empty cycle id")
	}
	if !strings.HasPrefix(cid, "cycle-42-") {
		t.Errorf("expected cycle id to start with 'cycle-42-', got %s", cid)
	}
	if !strings.Contains(cid, "123456789") {
		t.Errorf("expected cycle id to contain nanoseconds, got %s", cid)
	}
}

func TestWithCycle(t *testing.T) {
	ctx := context.Background()

	attrs := WithCycle(ctx)
	if attrs != nil {
		t.Errorf("expected nil attrs when no cycle id, got %v", attrs)
	}

	ctx = WithCycleID(ctx, "cycle-1-99")
	attrs = WithCycle(ctx)
	if len(attrs) == 0 {
		t.Fatal("expected non-empty attrs with cycle id set")
	}
}
