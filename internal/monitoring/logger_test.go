package monitoring

import (
	"fmt"
	"sync"
	"testing"
)

func captureLogs(t *testing.T) *[]string {
	t.Helper()
	original := Logf
	t.Cleanup(func() { Logf = original })

	var mu sync.Mutex
	lines := []string{}
	SetLogger(func(format string, v ...interface{}) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	return &lines
}

func TestSetLogger(t *testing.T) {
	lines := captureLogs(t)

	Logf("hello %d", 1)
	if len(*lines) != 1 || (*lines)[0] != "hello 1" {
		t.Fatalf("custom logger got %v", *lines)
	}

	SetLogger(nil)
	// no-op logger must not panic
	Logf("dropped")
}

func TestOnce_LogsFirstOccurrenceOnly(t *testing.T) {
	lines := captureLogs(t)
	var once Once

	if !once.Logf("picked", "[Task] Item picked") {
		t.Error("first Logf should report true")
	}
	if once.Logf("picked", "[Task] Item picked") {
		t.Error("second Logf with the same key should report false")
	}
	once.Logf("consumed", "[Task] Item is consumed successfully")

	if len(*lines) != 2 {
		t.Fatalf("expected 2 lines, got %v", *lines)
	}
	if !once.Seen("picked") || once.Seen("other") {
		t.Error("Seen does not reflect logged keys")
	}
}

func TestOnce_Concurrent(t *testing.T) {
	lines := captureLogs(t)
	var once Once

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			once.Logf("gate", "[Node] Please create a subscriber to the marker")
		}()
	}
	wg.Wait()

	if len(*lines) != 1 {
		t.Errorf("expected exactly one line, got %d", len(*lines))
	}
}
