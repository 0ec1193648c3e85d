package wagon

import "time"

// Record represents one wagon parked on a siding and its loading progress.
//
// Records are created by the ingestion path with a zero bag count and no
// display number. The loading scheduler is the only writer afterwards: the
// assigner sets WagonNumber once, the driver increments LoadedBagCount and
// stamps the timestamps. A complete record is never mutated again except by
// the whole-system reset.
type Record struct {
	// ID is the internal persistent identity, assigned by the store.
	ID int64 `json:"id"`

	// Siding identifies the physical siding this wagon is parked on.
	// Loading sessions are scoped to one siding.
	Siding string `json:"siding"`

	// TowerNumber is the physical track-tower position. It defines the
	// processing order within a siding.
	TowerNumber int `json:"tower_number"`

	// WagonNumber is the human-facing display identifier (e.g., WGN-001).
	// Nil until assigned; never reassigned within a reset epoch.
	WagonNumber *string `json:"wagon_number"`

	// LoadedBagCount is the number of bags loaded so far. Monotone
	// non-decreasing, bounded by the session's max bag count.
	LoadedBagCount int `json:"loaded_bag_count"`

	// LoadingComplete is set together with LoadingEndTime when the wagon
	// reaches the target count.
	LoadingComplete bool `json:"loading_complete"`

	// LoadingStartTime is stamped when the first bag is loaded.
	LoadingStartTime *time.Time `json:"loading_start_time"`

	// LoadingEndTime is stamped when the last bag is loaded.
	LoadingEndTime *time.Time `json:"loading_end_time"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Pending reports whether the wagon still has loading work outstanding.
func (r *Record) Pending() bool {
	return !r.LoadingComplete
}

// Numbered reports whether the wagon has a display number assigned.
func (r *Record) Numbered() bool {
	return r.WagonNumber != nil && *r.WagonNumber != ""
}
