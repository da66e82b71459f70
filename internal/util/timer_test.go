package util

import (
	"testing"
	"time"
)

func TestTimer(t *testing.T) {
	var zero Timer
	if zero.ElapsedMs() != 0 {
		t.Fatalf("unstarted timer should report zero")
	}

	timer := StartTimer()
	time.Sleep(5 * time.Millisecond)
	if timer.ElapsedMs() < 5 {
		t.Fatalf("expected at least 5ms got %d", timer.ElapsedMs())
	}
	if timer.Started().After(time.Now()) {
		t.Fatalf("start is in the future")
	}
}
