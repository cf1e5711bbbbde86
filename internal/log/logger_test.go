package log

import (
	"sync"
	"testing"
)

func TestAppendAndReadAll(t *testing.T) {
	l, err := NewLogger(t.TempDir())
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	if err := l.Append(LogEvent{Event: EventSessionStarted, SessionID: "s-1", Group: "A"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := l.Append(LogEvent{Event: EventAudioCheckFailed, SessionID: "s-1", Attempt: 2}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	events, err := l.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Time.IsZero() {
		t.Error("Time should be stamped on Append")
	}
	if events[1].Event != EventAudioCheckFailed || events[1].Attempt != 2 {
		t.Errorf("second event = %+v, want audio_check_failed attempt 2", events[1])
	}
}

func TestReadAllMissingFile(t *testing.T) {
	l, err := NewLogger(t.TempDir())
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	events, err := l.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}
}

func TestAppendConcurrent(t *testing.T) {
	l, err := NewLogger(t.TempDir())
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = l.Append(LogEvent{Event: EventPhaseEntered, Phase: i%4 + 1})
		}(i)
	}
	wg.Wait()

	events, err := l.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(events) != 20 {
		t.Errorf("got %d events, want 20", len(events))
	}
}
