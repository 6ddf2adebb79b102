package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestStart_EmptySpecDisables(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	stop, err := Start(context.Background(), "", nil, func(context.Context) error {
		runs.Add(1)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	stop()
	if runs.Load() != 0 {
		t.Fatal("disabled scheduler must not run the job")
	}
}

func TestStart_InvalidSpec(t *testing.T) {
	t.Parallel()

	_, err := Start(context.Background(), "every now and then", nil, func(context.Context) error { return nil })
	if err == nil {
		t.Fatal("expected error for invalid spec")
	}
}

func TestStart_RunsJob(t *testing.T) {
	t.Parallel()

	ran := make(chan struct{}, 8)
	stop, err := Start(context.Background(), "@every 1s", time.UTC, func(context.Context) error {
		ran <- struct{}{}
		return errors.New("keeps going")
	})
	if err != nil {
		t.Fatal(err)
	}
	defer stop()

	for i := 0; i < 2; i++ {
		select {
		case <-ran:
		case <-time.After(5 * time.Second):
			t.Fatalf("job run %d did not happen", i+1)
		}
	}
}

func TestStop_CancelsRunningJob(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{}, 1)
	stop, err := Start(context.Background(), "@every 1s", nil, func(ctx context.Context) error {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return ctx.Err()
	})
	if err != nil {
		t.Fatal(err)
	}

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("job never started")
	}

	done := make(chan struct{})
	go func() {
		stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stop did not return after cancelling the job")
	}
}
