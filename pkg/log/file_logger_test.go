package log

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/adsim-project/adsim-go/pkg/wire"
)

func createTestLogFile(t *testing.T, events []Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test"+FileExtension)

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create test log: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

func TestFileLoggerCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.alog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("log file was not created")
	}
}

func TestFileLoggerAppends(t *testing.T) {
	path := createTestLogFile(t, []Event{{ConnectionID: "first"}})

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	logger.Log(Event{ConnectionID: "second"})
	if logger.Written() != 1 {
		t.Errorf("Written() = %d, want 1", logger.Written())
	}
	logger.Close()

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	events, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(events) != 2 || events[0].ConnectionID != "first" || events[1].ConnectionID != "second" {
		t.Errorf("events = %+v", events)
	}
}

func TestFileLoggerCloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.alog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	if err := logger.Close(); err != nil {
		t.Errorf("first Close() error = %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	// Ignored after close.
	logger.Log(Event{ConnectionID: "late"})
	if logger.Written() != 0 {
		t.Errorf("Written() = %d after close, want 0", logger.Written())
	}
}

func TestFileLoggerConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.alog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				logger.Log(RequestEvent("conn", &wire.Request{MessageID: uint32(i + 1), Command: wire.CmdRead, Module: 1, Sensor: 1}))
			}
		}()
	}
	wg.Wait()
	logger.Close()

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	count := 0
	for {
		_, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed after %d events: %v", count, err)
		}
		count++
	}
	if count != 500 {
		t.Errorf("read %d events, want 500", count)
	}
}

func TestReaderFilters(t *testing.T) {
	base := time.Unix(1000, 0)
	read := RequestEvent("conn-1", &wire.Request{MessageID: 1, Command: wire.CmdRead, Module: 1, Sensor: 1})
	read.Timestamp = base
	write := RequestEvent("conn-2", &wire.Request{MessageID: 2, Command: wire.CmdWrite, Module: 2, Sensor: 1})
	write.Timestamp = base.Add(time.Second)
	failed := ResponseEvent("conn-2", &wire.Response{MessageID: 2, Command: wire.CmdWrite, Status: wire.StatusSymbolNotFound}, 0)
	failed.Timestamp = base.Add(2 * time.Second)
	state := Event{Timestamp: base.Add(3 * time.Second), ConnectionID: "conn-1", Category: CategoryState,
		StateChange: &StateChangeEvent{Entity: StateEntityConnection, NewState: "closed"}}

	path := createTestLogFile(t, []Event{read, write, failed, state})

	cmdWrite := wire.CmdWrite
	module1 := uint16(1)
	out := DirectionOut
	categoryState := CategoryState
	end := base.Add(2 * time.Second)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 4},
		{"connection", Filter{ConnectionID: "conn-1"}, 2},
		{"command", Filter{Command: &cmdWrite}, 2},
		{"module", Filter{Module: &module1}, 1},
		{"direction", Filter{Direction: &out}, 1},
		{"category", Filter{Category: &categoryState}, 1},
		{"errors only", Filter{ErrorsOnly: true}, 1},
		{"time window", Filter{TimeStart: &base, TimeEnd: &end}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader, err := NewFilteredReader(path, tt.filter)
			if err != nil {
				t.Fatalf("NewFilteredReader failed: %v", err)
			}
			defer reader.Close()

			events, err := reader.ReadAll()
			if err != nil {
				t.Fatalf("ReadAll failed: %v", err)
			}
			if len(events) != tt.want {
				t.Errorf("got %d events, want %d", len(events), tt.want)
			}
		})
	}
}

func TestReaderMissingFile(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "missing.alog")); err == nil {
		t.Error("NewReader of a missing file should fail")
	}
}
