package service

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// PaymentService keeps per-user payment records. Captures always start
// pending; nothing here talks to a gateway or settles a record.
type PaymentService struct {
	payments repository.PaymentRepository
}

// NewPaymentService constructs the service.
func NewPaymentService(payments repository.PaymentRepository) *PaymentService {
	return &PaymentService{payments: payments}
}

// ListFor returns the actor's own payment records.
func (s *PaymentService) ListFor(ctx context.Context, actor domain.Actor) ([]domain.Payment, error) {
	if !auth.Authorize(actor.Role, auth.ActionViewPayments) {
		return nil, apperrors.NewForbidden("not allowed to view payments")
	}
	list, err := s.payments.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return list, nil
}

// Record captures a pending payment for the actor.
func (s *PaymentService) Record(ctx context.Context, actor domain.Actor, amount int64) (*domain.Payment, error) {
	if !auth.Authorize(actor.Role, auth.ActionRecordPayment) {
		return nil, apperrors.NewForbidden("not allowed to record payments")
	}
	if amount <= 0 {
		return nil, apperrors.NewValidationError("amount must be positive", map[string]any{"amount": amount})
	}

	payment := &domain.Payment{
		UserID: actor.ID,
		Amount: amount,
		Status: domain.PaymentStatusPending,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, apperrors.MapError(err)
	}
	return payment, nil
}
