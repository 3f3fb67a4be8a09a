package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samirrijal/srimap/internal/pkg/retry"
)

var errTransient = errors.New("transient")
var errFatal = errors.New("fatal")

func fastPolicy(maxRetries uint64) retry.Policy {
	return retry.Policy{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		Retryable:  func(err error) bool { return errors.Is(err, errTransient) },
	}
}

func TestPolicy_Delays(t *testing.T) {
	p := retry.Policy{MaxRetries: 3, BaseDelay: 3 * time.Second, MaxDelay: 10 * time.Second}
	got := p.Delays()
	want := []time.Duration{3 * time.Second, 6 * time.Second, 10 * time.Second}
	if len(got) != len(want) {
		t.Fatalf("expected %d delays, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delay %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	var waits []time.Duration

	out, err := retry.Do(context.Background(), fastPolicy(2), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errTransient
		}
		return "ok", nil
	}, func(err error, wait time.Duration) {
		waits = append(waits, wait)
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "ok" || calls != 3 {
		t.Errorf("expected ok after 3 calls, got %q after %d", out, calls)
	}
	if len(waits) != 2 {
		t.Errorf("expected 2 notifications, got %d", len(waits))
	}
}

func TestDo_GivesUp(t *testing.T) {
	calls := 0
	_, err := retry.Do(context.Background(), fastPolicy(2), func(ctx context.Context) (int, error) {
		calls++
		return 0, errTransient
	}, nil)

	if !errors.Is(err, errTransient) {
		t.Fatalf("expected the last error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 1 attempt plus 2 retries, got %d calls", calls)
	}
}

func TestDo_PermanentErrorNotRetried(t *testing.T) {
	calls := 0
	_, err := retry.Do(context.Background(), fastPolicy(5), func(ctx context.Context) (int, error) {
		calls++
		return 0, errFatal
	}, nil)

	if !errors.Is(err, errFatal) {
		t.Fatalf("expected errFatal, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single call, got %d", calls)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := fastPolicy(10)
	p.BaseDelay = time.Hour
	p.MaxDelay = time.Hour

	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := retry.Do(ctx, p, func(ctx context.Context) (int, error) {
			calls++
			return 0, errTransient
		}, nil)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected an error after cancellation")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
	if calls != 1 {
		t.Errorf("expected a single call before cancellation, got %d", calls)
	}
}
