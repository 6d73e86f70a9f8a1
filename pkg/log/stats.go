package log

import (
	"time"

	"github.com/adsim-project/adsim-go/pkg/wire"
)

// Stats summarizes a sequence of events.
type Stats struct {
	Events        int
	Requests      int
	Responses     int
	Notifications int
	Errors        int
	Connections   map[string]int
	Commands      map[wire.Command]int
	Statuses      map[wire.Status]int
	First         time.Time
	Last          time.Time

	// TotalProcessing sums response processing times.
	TotalProcessing time.Duration
}

// NewStats creates an empty summary.
func NewStats() *Stats {
	return &Stats{
		Connections: make(map[string]int),
		Commands:    make(map[wire.Command]int),
		Statuses:    make(map[wire.Status]int),
	}
}

// Add folds one event into the summary.
func (s *Stats) Add(event Event) {
	s.Events++
	if s.First.IsZero() || event.Timestamp.Before(s.First) {
		s.First = event.Timestamp
	}
	if event.Timestamp.After(s.Last) {
		s.Last = event.Timestamp
	}
	if event.ConnectionID != "" {
		s.Connections[event.ConnectionID]++
	}
	if event.Error != nil {
		s.Errors++
	}

	m := event.Message
	if m == nil {
		return
	}
	switch m.Type {
	case MessageTypeRequest:
		s.Requests++
		if m.Command != nil {
			s.Commands[*m.Command]++
		}
	case MessageTypeResponse:
		s.Responses++
		if m.Status != nil {
			s.Statuses[*m.Status]++
		}
		if m.ProcessingTime != nil {
			s.TotalProcessing += *m.ProcessingTime
		}
	case MessageTypeNotification:
		s.Notifications++
	}
}

// AverageProcessing returns the mean response processing time.
func (s *Stats) AverageProcessing() time.Duration {
	if s.Responses == 0 {
		return 0
	}
	return s.TotalProcessing / time.Duration(s.Responses)
}
