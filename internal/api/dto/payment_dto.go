package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// RecordPaymentRequest is the payload for capturing a payment.
type RecordPaymentRequest struct {
	Amount int64 `json:"amount"`
}

// PaymentResponse is the wire form of a payment record.
type PaymentResponse struct {
	ID        string               `json:"id"`
	Amount    int64                `json:"amount"`
	Status    domain.PaymentStatus `json:"status"`
	CreatedAt time.Time            `json:"created_at"`
}
