package dispatch

import "time"

type Status string

const (
	StatusSent      Status = "sent"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Event journals one job enqueue attempt so operators can audit what the
// scheduler pushed to the queue and when.
type Event struct {
	DispatchID   string
	JobName      string
	JobPath      string
	BlockNumber  int
	Status       Status
	Payload      map[string]any
	ErrorMessage string
	OccurredAt   time.Time
	TraceID      string
	SpanID       string
}
