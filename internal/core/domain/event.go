package domain

// Event is a chain event delivered to subscribers.
type Event struct {
	Type           string
	AccountAddress string
	SequenceNumber string
	Version        string
	CreationNumber string
	// Data is the decoded event payload, usually a map[string]any.
	Data any
}
