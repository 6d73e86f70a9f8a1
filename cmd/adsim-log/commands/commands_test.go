package commands

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/adsim-project/adsim-go/pkg/log"
	"github.com/adsim-project/adsim-go/pkg/wire"
)

var baseTime = time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)

func sampleEvents() []log.Event {
	read := log.RequestEvent("conn-aaaaaaaa", &wire.Request{MessageID: 1, Command: wire.CmdRead, Module: 1, Sensor: 2, Length: 4})
	read.Timestamp = baseTime

	ok := log.ResponseEvent("conn-aaaaaaaa", &wire.Response{MessageID: 1, Command: wire.CmdRead, Data: wire.EncodeFloat32(12.5)}, 2*time.Millisecond)
	ok.Timestamp = baseTime.Add(time.Millisecond)

	miss := log.ResponseEvent("conn-bbbbbbbb", &wire.Response{MessageID: 7, Command: wire.CmdRead, Status: wire.StatusSymbolNotFound}, time.Millisecond)
	miss.Timestamp = baseTime.Add(2 * time.Second)

	state := log.Event{
		Timestamp:    baseTime.Add(3 * time.Second),
		ConnectionID: "conn-bbbbbbbb",
		Direction:    log.DirectionIn,
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		RemoteAddr:   "127.0.0.1:50000",
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			OldState: "CONNECTED",
			NewState: "DISCONNECTED",
			Reason:   "EOF",
		},
	}
	return []log.Event{read, ok, miss, state}
}

func writeLog(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session"+log.FileExtension)
	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return path
}

func TestFormatRequestEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sampleEvents()[0])
	output := buf.String()

	for _, want := range []string{
		"2026-01-28T10:15:32.123456Z",
		"[conn:conn-aaa]",
		"IN ",
		"WIRE",
		"REQUEST",
		"Command: Read (2)",
		"Address: 1/2",
		"Length: 4",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestFormatResponseEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sampleEvents()[2])
	output := buf.String()

	if !strings.Contains(output, "Status: SYMBOL_NOT_FOUND (0x710)") {
		t.Errorf("expected status line, got:\n%s", output)
	}
	if !strings.Contains(output, "Duration: 1.000ms") {
		t.Errorf("expected duration line, got:\n%s", output)
	}
}

func TestFormatStateEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sampleEvents()[3])
	output := buf.String()

	for _, want := range []string{"State", "CONNECTION", "CONNECTED -> DISCONNECTED", "Reason: EOF", "Remote: 127.0.0.1:50000"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Nanosecond, "0.500us"},
		{1500 * time.Microsecond, "1.500ms"},
		{2 * time.Second, "2.000s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFilterFlagsBuild(t *testing.T) {
	f, err := FilterFlags{
		Direction: "OUT",
		Category:  "message",
		Command:   "Read",
		Module:    3,
		Since:     "2026-01-28T10:00:00Z",
	}.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if f.Direction == nil || *f.Direction != log.DirectionOut {
		t.Errorf("Direction = %v, want OUT", f.Direction)
	}
	if f.Category == nil || *f.Category != log.CategoryMessage {
		t.Errorf("Category = %v, want MESSAGE", f.Category)
	}
	if f.Command == nil || *f.Command != wire.CmdRead {
		t.Errorf("Command = %v, want Read", f.Command)
	}
	if f.Module == nil || *f.Module != 3 {
		t.Errorf("Module = %v, want 3", f.Module)
	}
	if f.TimeStart == nil || f.TimeEnd != nil {
		t.Errorf("time bounds = %v..%v, want start only", f.TimeStart, f.TimeEnd)
	}
}

func TestFilterFlagsBuildErrors(t *testing.T) {
	tests := []struct {
		name  string
		flags FilterFlags
	}{
		{"direction", FilterFlags{Module: -1, Direction: "sideways"}},
		{"category", FilterFlags{Module: -1, Category: "frame"}},
		{"command", FilterFlags{Module: -1, Command: "read"}},
		{"module", FilterFlags{Module: 70000}},
		{"since", FilterFlags{Module: -1, Since: "yesterday"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.flags.Build(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRunViewFilters(t *testing.T) {
	path := writeLog(t, sampleEvents())

	filter, err := FilterFlags{Module: -1, ErrorsOnly: true}.Build()
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := RunView(path, filter, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	output := buf.String()
	if strings.Count(output, "RESPONSE") != 1 {
		t.Errorf("expected exactly one failed response, got:\n%s", output)
	}
	if strings.Contains(output, "REQUEST") {
		t.Errorf("request should be filtered out:\n%s", output)
	}
}

func TestRunViewMissingFile(t *testing.T) {
	err := RunView(filepath.Join(t.TempDir(), "missing.alog"), log.Filter{}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestRunExportJSONL(t *testing.T) {
	path := writeLog(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunExport(path, "jsonl", log.Filter{}, &buf); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4", len(lines))
	}
	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	if first["ConnectionID"] != "conn-aaaaaaaa" {
		t.Errorf("ConnectionID = %v", first["ConnectionID"])
	}
}

func TestRunExportCSV(t *testing.T) {
	path := writeLog(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunExport(path, "csv", log.Filter{}, &buf); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("got %d records, want header + 4", len(records))
	}
	if records[0][0] != "timestamp" {
		t.Errorf("header = %v", records[0])
	}
	ok := records[2]
	if ok[7] != "Read" || ok[10] != "SUCCESS" || ok[11] != "12.5" {
		t.Errorf("response row = %v", ok)
	}
}

func TestRunExportUnknownFormat(t *testing.T) {
	path := writeLog(t, sampleEvents())
	if err := RunExport(path, "xml", log.Filter{}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestRunFilter(t *testing.T) {
	input := writeLog(t, sampleEvents())
	output := filepath.Join(t.TempDir(), "filtered"+log.FileExtension)

	filter := log.Filter{ConnectionID: "conn-bbbbbbbb"}
	n, err := RunFilter(input, output, filter)
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if n != 2 {
		t.Errorf("RunFilter wrote %d events, want 2", n)
	}

	reader, err := log.NewReader(output)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()
	events, err := reader.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range events {
		if e.ConnectionID != "conn-bbbbbbbb" {
			t.Errorf("unexpected connection %q in filtered file", e.ConnectionID)
		}
	}
}

func TestRunFilterSameFile(t *testing.T) {
	path := writeLog(t, sampleEvents())
	if _, err := RunFilter(path, path, log.Filter{}); err == nil {
		t.Fatal("expected error when output equals input")
	}
}

func TestCollectStats(t *testing.T) {
	path := writeLog(t, sampleEvents())

	stats, err := CollectStats(path, log.Filter{})
	if err != nil {
		t.Fatalf("CollectStats failed: %v", err)
	}
	if stats.Events != 4 || stats.Requests != 1 || stats.Responses != 2 {
		t.Errorf("counts = %d/%d/%d, want 4/1/2", stats.Events, stats.Requests, stats.Responses)
	}
	if stats.Statuses[wire.StatusSymbolNotFound] != 1 {
		t.Errorf("SymbolNotFound count = %d, want 1", stats.Statuses[wire.StatusSymbolNotFound])
	}
	if len(stats.Connections) != 2 {
		t.Errorf("connections = %d, want 2", len(stats.Connections))
	}
}

func TestRunStatsOutput(t *testing.T) {
	path := writeLog(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunStats(path, log.Filter{}, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()
	for _, want := range []string{"Events:        4", "By command:", "Read", "SYMBOL_NOT_FOUND (0x710)", "conn-bbb"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestRunStatsEmptyFile(t *testing.T) {
	path := writeLog(t, nil)

	var buf bytes.Buffer
	if err := RunStats(path, log.Filter{}, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "Events:        0" {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}
