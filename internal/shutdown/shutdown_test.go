package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/loglens/loglens/internal/logging"
)

func TestShutdownRunsHooksInReverseOrder(t *testing.T) {
	m := New(Config{Logger: logging.Nop()})

	var order []string
	for _, name := range []string{"store", "alerts", "http"} {
		name := name
		m.Register(name, func(ctx context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	m.Shutdown()

	want := []string{"http", "alerts", "store"}
	if len(order) != len(want) {
		t.Fatalf("ran %d hooks, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestShutdownRunsOnce(t *testing.T) {
	m := New(Config{Logger: logging.Nop()})

	calls := 0
	m.Register("counter", func(ctx context.Context) error {
		calls++
		return nil
	})

	m.Shutdown()
	m.Shutdown()
	if calls != 1 {
		t.Errorf("hook ran %d times, want 1", calls)
	}
}

func TestShutdownContinuesPastFailingHook(t *testing.T) {
	m := New(Config{Logger: logging.Nop()})

	ran := false
	m.Register("survivor", func(ctx context.Context) error {
		ran = true
		return nil
	})
	m.Register("broken", func(ctx context.Context) error {
		return errors.New("flush failed")
	})

	m.Shutdown()
	if !ran {
		t.Error("a failing hook stopped the remaining hooks")
	}
}

func TestShutdownTimeoutSkipsRemainingHooks(t *testing.T) {
	m := New(Config{Logger: logging.Nop(), Timeout: 30 * time.Millisecond})

	skipped := true
	m.Register("late", func(ctx context.Context) error {
		skipped = false
		return nil
	})
	m.Register("slow", func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
		}
		return ctx.Err()
	})

	m.Shutdown()
	if !skipped {
		t.Error("hook ran after the shutdown deadline")
	}
}

func TestDoneAndInitiatedChannels(t *testing.T) {
	m := New(Config{Logger: logging.Nop()})

	select {
	case <-m.Initiated():
		t.Fatal("Initiated closed before Shutdown")
	default:
	}

	m.Shutdown()

	select {
	case <-m.Initiated():
	default:
		t.Error("Initiated not closed after Shutdown")
	}
	select {
	case <-m.Done():
	case <-time.After(time.Second):
		t.Error("Done not closed after Shutdown")
	}
}
