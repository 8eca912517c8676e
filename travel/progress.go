package travel

import "sync"

// ProgressStatus is the lifecycle state a worker reports.
type ProgressStatus string

const (
	StatusRunning  ProgressStatus = "running"
	StatusComplete ProgressStatus = "complete"
	StatusWarning  ProgressStatus = "warning"
)

// ProgressEvent is one structured status update keyed by worker name.
type ProgressEvent struct {
	Worker  string         `json:"agent"`
	Status  ProgressStatus `json:"status"`
	Message string         `json:"message"`
}

// ProgressSink receives progress events from pipeline stages. Delivery
// is best-effort: implementations must swallow any delivery failure and
// return promptly, and Notify must be safe to call concurrently from
// the fan-out goroutines. The orchestrator passes the sink handle
// explicitly into each parallel task; goroutines never rely on ambient
// state, so a later run can never leak events into a stale observer.
type ProgressSink interface {
	Notify(worker string, status ProgressStatus, message string)
}

// NoOpSink discards all events.
type NoOpSink struct{}

func (NoOpSink) Notify(worker string, status ProgressStatus, message string) {}

// ChannelSink forwards events to a buffered channel without ever
// blocking the caller: if the buffer is full or the sink is closed the
// event is dropped. The consumer reads until the channel closes.
type ChannelSink struct {
	mu     sync.Mutex
	ch     chan ProgressEvent
	closed bool
}

// NewChannelSink creates a sink and the receive side of its channel.
func NewChannelSink(buffer int) (*ChannelSink, <-chan ProgressEvent) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan ProgressEvent, buffer)
	return &ChannelSink{ch: ch}, ch
}

// Notify delivers an event if there is room, and drops it otherwise.
func (s *ChannelSink) Notify(worker string, status ProgressStatus, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- ProgressEvent{Worker: worker, Status: status, Message: message}:
	default:
		// Observer is not keeping up; progress events are advisory.
	}
}

// Close releases the channel. Notify calls after Close are no-ops.
func (s *ChannelSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
