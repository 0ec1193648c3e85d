package dispatch

import "time"

// Record captures one wagon leaving a siding on an outbound train.
type Record struct {
	// ID is a UUID assigned at creation.
	ID string `json:"id"`

	// Siding the wagon departed from.
	Siding string `json:"siding"`

	// WagonNumber is the display number of the dispatched wagon.
	WagonNumber string `json:"wagon_number"`

	// Destination is the delivery target, when known.
	Destination *string `json:"destination,omitempty"`

	// DispatchedAt is the departure time, UTC at second resolution.
	DispatchedAt time.Time `json:"dispatched_at"`
}
