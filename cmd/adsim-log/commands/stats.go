package commands

import (
	"cmp"
	"fmt"
	"io"
	"slices"

	"github.com/adsim-project/adsim-go/pkg/log"
)

// CollectStats reads every matching event into a summary.
func CollectStats(path string, filter log.Filter) (*log.Stats, error) {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := log.NewStats()
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("failed to read event: %w", err)
		}
		stats.Add(event)
	}
}

// RunStats prints the summary of a log file.
func RunStats(path string, filter log.Filter, w io.Writer) error {
	stats, err := CollectStats(path, filter)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, s *log.Stats) {
	fmt.Fprintf(w, "Events:        %d\n", s.Events)
	if s.Events == 0 {
		return
	}
	fmt.Fprintf(w, "Time range:    %s .. %s (%s)\n",
		s.First.UTC().Format(timeLayout), s.Last.UTC().Format(timeLayout), s.Last.Sub(s.First))
	fmt.Fprintf(w, "Connections:   %d\n", len(s.Connections))
	fmt.Fprintf(w, "Requests:      %d\n", s.Requests)
	fmt.Fprintf(w, "Responses:     %d (avg %s)\n", s.Responses, formatDuration(s.AverageProcessing()))
	fmt.Fprintf(w, "Notifications: %d\n", s.Notifications)
	fmt.Fprintf(w, "Errors:        %d\n", s.Errors)

	if len(s.Commands) > 0 {
		fmt.Fprintln(w, "\nBy command:")
		for _, cmd := range sortedKeys(s.Commands) {
			fmt.Fprintf(w, "  %-20s %d\n", cmd.String(), s.Commands[cmd])
		}
	}
	if len(s.Statuses) > 0 {
		fmt.Fprintln(w, "\nBy status:")
		for _, st := range sortedKeys(s.Statuses) {
			fmt.Fprintf(w, "  %-20s %d\n", fmt.Sprintf("%s (0x%X)", st.String(), uint16(st)), s.Statuses[st])
		}
	}
	if len(s.Connections) > 0 {
		fmt.Fprintln(w, "\nBy connection:")
		for _, id := range sortedKeys(s.Connections) {
			fmt.Fprintf(w, "  %-20s %d\n", shortenConnID(id), s.Connections[id])
		}
	}
}

func sortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
