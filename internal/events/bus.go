package events

import "sync"

// RecordProcessed is published after a payload normalizes cleanly.
type RecordProcessed struct {
	Vendor        string
	CallID        string
	SchemaVersion string
	Sequence      int64
	Warnings      int
}

// RecordRejected is published when a payload fails fatally and lands in
// quarantine.
type RecordRejected struct {
	Vendor string
	Reason string
}

// Bus provides simple in-process pub/sub for observability.
type Bus struct {
	mu   sync.RWMutex
	subs []chan any
}

func NewBus() *Bus { return &Bus{} }

func (b *Bus) Subscribe() <-chan any {
	ch := make(chan any, 16)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, ch)
	return ch
}

// Publish delivers to every subscriber; a slow subscriber loses the event
// rather than blocking the pipeline.
func (b *Bus) Publish(ev any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
