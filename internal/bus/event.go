package bus

import "time"

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// DocChanged is the kind prefix published after a committed store write.
// The full kind is DocChanged + collection, e.g. "doc.changed.calls".
const DocChanged = "doc.changed."
