package domain

import "time"

// PaymentStatus enumerates settlement states.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// Payment is a per-user payment record. Captures always start pending;
// no code path moves a record past that state.
type Payment struct {
	ID        string
	UserID    string
	Amount    int64
	Status    PaymentStatus
	CreatedAt time.Time
}
