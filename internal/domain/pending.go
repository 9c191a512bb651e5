package domain

import "time"

// PendingDelivery is a company whose webhook delivery failed and is queued
// for retry on a later run. Its ID is always also in the known set: a
// company is only queued after being recognized as new.
type PendingDelivery struct {
	Company       Company   `json:"company"`
	Attempts      int       `json:"attempts"`
	FirstFailedAt time.Time `json:"first_failed_at"`
	LastError     string    `json:"last_error,omitempty"`
}
