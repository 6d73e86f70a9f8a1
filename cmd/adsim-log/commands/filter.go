package commands

import (
	"fmt"
	"io"

	"github.com/adsim-project/adsim-go/pkg/log"
)

// RunFilter copies matching events from input into a new log file and
// returns how many were written.
func RunFilter(input, output string, filter log.Filter) (int, error) {
	if input == output {
		return 0, fmt.Errorf("output must differ from input")
	}

	reader, err := log.NewFilteredReader(input, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	writer, err := log.NewFileLogger(output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}

	count := 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			writer.Close()
			return count, fmt.Errorf("failed to read event: %w", err)
		}
		writer.Log(event)
		count++
	}
	return count, writer.Close()
}
