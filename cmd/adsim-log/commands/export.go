package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/adsim-project/adsim-go/pkg/log"
)

// RunExport writes matching events to w as JSON lines or CSV.
func RunExport(path, format string, filter log.Filter, w io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	switch format {
	case "jsonl":
		return exportJSONL(reader, w)
	case "csv":
		return exportCSV(reader, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
}

var csvHeader = []string{
	"timestamp", "connection_id", "direction", "layer", "category",
	"type", "message_id", "command", "module", "sensor", "status", "value",
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := cw.Write(csvRow(event)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(event log.Event) []string {
	row := []string{
		event.Timestamp.UTC().Format(timeLayout),
		event.ConnectionID,
		event.Direction.String(),
		event.Layer.String(),
		event.Category.String(),
		eventLabel(event),
		"", "", "", "", "", "",
	}

	msg := event.Message
	if msg == nil {
		return row
	}
	row[6] = strconv.FormatUint(uint64(msg.MessageID), 10)
	if msg.Command != nil {
		row[7] = msg.Command.String()
	}
	if msg.Module != nil {
		row[8] = strconv.Itoa(int(*msg.Module))
	}
	if msg.Sensor != nil {
		row[9] = strconv.Itoa(int(*msg.Sensor))
	}
	if msg.Status != nil {
		row[10] = msg.Status.String()
	}
	if msg.Value != nil {
		row[11] = strconv.FormatFloat(*msg.Value, 'g', -1, 64)
	}
	return row
}
