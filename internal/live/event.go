// Package live pushes sales queue changes to open dashboards.
package live

import "time"

// Channel is the Redis pub/sub channel carrying queue events.
const Channel = "greenlife:sales"

// Event types.
const (
	TypeTransition = "transition"
	TypeQueue      = "queue_changed"
	TypeConnected  = "connected"
)

// Event is one change to the sales queues.
type Event struct {
	Type       string    `json:"type"`
	Transition string    `json:"transition,omitempty"`
	SaleID     string    `json:"saleId,omitempty"`
	BatchRef   string    `json:"batchRef,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	Pending    int       `json:"pending,omitempty"`
	At         time.Time `json:"at"`
}
