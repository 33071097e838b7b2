package cli

import (
	"context"
	"testing"
	"time"
)

func TestSpinnerBasic(t *testing.T) {
	s := newSpinner("Setting up...")
	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	select {
	case <-s.stopped:
	default:
		t.Error("spinner goroutine still running after Stop")
	}
}

func TestSpinnerWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s := newSpinnerWithContext(ctx, "Cloning...")
	s.Start()
	cancel()
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("spinner should be cancelled after context cancellation")
	}
}

func TestSpinnerSetMessage(t *testing.T) {
	s := newSpinner("a short message")
	s.Start()
	s.SetMessage("a much longer replacement message")
	s.SetMessage("short again")
	s.Stop()

	if s.width < len("a much longer replacement message") {
		t.Errorf("width = %d, want at least the longest message", s.width)
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s := newSpinner("Extracting...")
	s.Start()

	s.Stop()
	s.Stop()
	s.Stop()
}

func TestSpinnerStopWithSuccess(t *testing.T) {
	s := newSpinner("Installing...")
	s.Start()
	time.Sleep(50 * time.Millisecond)
	s.StopWithSuccess("Done!")
}

func TestSpinnerStopWithError(t *testing.T) {
	s := newSpinner("Installing...")
	s.Start()
	time.Sleep(50 * time.Millisecond)
	s.StopWithError("Failed!")
}
