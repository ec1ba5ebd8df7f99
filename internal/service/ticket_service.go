package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// TicketService owns ticket creation, assignment and status transitions.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	UserRepo    repository.UserRepository
	HistoryRepo repository.TicketHistoryRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// TicketListFilter narrows listings at the caller's request.
type TicketListFilter struct {
	AssignedToMe bool
	Statuses     []domain.TicketStatus
	Limit        int
	Offset       int
}

// Create files a new ticket for the actor. Title must be non-empty;
// description may be empty.
func (s *TicketService) Create(ctx context.Context, actor domain.Actor, title, description string) (*domain.Ticket, error) {
	if !auth.Authorize(actor.Role, auth.ActionCreateTicket) {
		return nil, apperrors.NewForbidden("not allowed to create tickets")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}

	ticket := &domain.Ticket{
		ReferenceKey: generateReferenceKey(),
		Title:        title,
		Description:  strings.TrimSpace(description),
		Status:       domain.TicketStatusOpen,
		CreatedBy:    actor.ID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:    events.EventTicketCreated,
		ActorID: actor.ID,
		Payload: events.TicketCreatedPayload{
			TicketID:     ticket.ID,
			ReferenceKey: ticket.ReferenceKey,
			Title:        ticket.Title,
		},
	})
	return ticket, nil
}

// ListFor returns tickets visible to the actor. Users and supervisors see
// tickets they created or are assigned to; admins see everything. The
// AssignedToMe flag narrows the same set at the caller's request.
func (s *TicketService) ListFor(ctx context.Context, actor domain.Actor, filter TicketListFilter) ([]domain.Ticket, error) {
	if !auth.Authorize(actor.Role, auth.ActionListTickets) {
		return nil, apperrors.NewForbidden("not allowed to list tickets")
	}

	repoFilter := repository.TicketFilter{
		Statuses: filter.Statuses,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}
	if actor.Role != domain.RoleAdmin {
		involved := actor.ID
		repoFilter.InvolvedUserID = &involved
	}
	if filter.AssignedToMe {
		assignee := actor.ID
		repoFilter.AssigneeID = &assignee
	}

	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// Get fetches a single ticket visible to the actor.
func (s *TicketService) Get(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.fetch(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.canView(actor, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

// Assign hands the ticket to a directory member. Admin only. The status
// column is left untouched: an open ticket with an assignee is treated as
// assigned by the transition graph. Reassignment is last-write-wins.
func (s *TicketService) Assign(ctx context.Context, actor domain.Actor, ticketID, assigneeID string) (*domain.Ticket, error) {
	if !auth.Authorize(actor.Role, auth.ActionAssignTicket) {
		return nil, apperrors.NewForbidden("only admins may assign tickets")
	}

	assignee, err := s.users.GetByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("assignee", map[string]any{"user_id": assigneeID})
		}
		return nil, apperrors.MapError(err)
	}
	if assignee.Role != domain.RoleSupervisor && assignee.Role != domain.RoleAdmin {
		return nil, apperrors.NewValidationError("assignee is not a supervisor or admin", map[string]any{"user_id": assigneeID})
	}

	ticket, err := s.fetch(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.EffectiveStatus() == domain.TicketStatusDone {
		return nil, apperrors.NewValidationError("ticket already done", map[string]any{"ticket_id": ticketID})
	}

	previous := ticket.AssignedTo
	ticket.AssignedTo = &assignee.ID
	if err := s.update(ctx, ticket); err != nil {
		return nil, err
	}
	s.recordChange(ctx, actor.ID, ticket.ID, domain.ChangeTypeAssignee,
		map[string]any{"assigned_to": previous},
		map[string]any{"assigned_to": ticket.AssignedTo},
	)

	s.publish(ctx, events.Event{
		Type:    events.EventTicketAssigned,
		ActorID: actor.ID,
		Payload: events.TicketAssignedPayload{
			TicketID:   ticket.ID,
			AssigneeID: assignee.ID,
			PreviousID: previous,
		},
	})
	return ticket, nil
}

// UpdateStatus moves the ticket through its lifecycle. Supervisors and
// admins only. Illegal targets and illegal transitions are rejected; the
// source system accepted any target state, this service does not.
func (s *TicketService) UpdateStatus(ctx context.Context, actor domain.Actor, ticketID string, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	if !auth.Authorize(actor.Role, auth.ActionUpdateTicketStatus) {
		return nil, apperrors.NewForbidden("only supervisors or admins may update status")
	}
	if !domain.IsValidTicketStatus(newStatus) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": newStatus})
	}

	ticket, err := s.fetch(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	current := ticket.EffectiveStatus()
	if !domain.CanTransition(current, newStatus) {
		return nil, apperrors.NewValidationError("illegal status transition", map[string]any{
			"from": current,
			"to":   newStatus,
		})
	}
	if current == newStatus && ticket.Status == newStatus {
		return ticket, nil
	}

	oldStatus := ticket.Status
	ticket.Status = newStatus
	if err := s.update(ctx, ticket); err != nil {
		return nil, err
	}
	s.recordChange(ctx, actor.ID, ticket.ID, domain.ChangeTypeStatus,
		map[string]any{"status": oldStatus},
		map[string]any{"status": newStatus},
	)

	s.publish(ctx, events.Event{
		Type:    events.EventTicketStatusChanged,
		ActorID: actor.ID,
		Payload: events.TicketStatusChangedPayload{
			TicketID:  ticket.ID,
			OldStatus: oldStatus,
			NewStatus: newStatus,
		},
	})
	return ticket, nil
}

// History returns the change trail for a ticket the actor may view.
func (s *TicketService) History(ctx context.Context, actor domain.Actor, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	if !auth.Authorize(actor.Role, auth.ActionViewTicketHistory) {
		return nil, apperrors.NewForbidden("not allowed to view history")
	}
	if s.history == nil {
		return []domain.TicketHistory{}, nil
	}
	ticket, err := s.fetch(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.canView(actor, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	entries, err := s.history.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func (s *TicketService) fetch(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) update(ctx context.Context, ticket *domain.Ticket) error {
	if err := s.tickets.Update(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrVersionMismatch) {
			return apperrors.NewConflict("ticket was modified concurrently", map[string]any{"ticket_id": ticket.ID})
		}
		return apperrors.MapError(err)
	}
	return nil
}

func (s *TicketService) canView(actor domain.Actor, ticket *domain.Ticket) bool {
	if actor.Role == domain.RoleAdmin {
		return true
	}
	if ticket.CreatedBy == actor.ID {
		return true
	}
	return ticket.AssignedTo != nil && *ticket.AssignedTo == actor.ID
}

// recordChange appends to the audit trail best-effort. By the time it
// runs the ticket update has already committed, so a failed insert is
// logged rather than reported as a failure of the whole operation.
func (s *TicketService) recordChange(ctx context.Context, actorID, ticketID string, changeType domain.TicketChangeType, oldValue, newValue map[string]any) {
	if s.history == nil {
		return
	}
	err := s.history.Create(ctx, &domain.TicketHistory{
		TicketID:   ticketID,
		ChangedBy:  actorID,
		ChangeType: changeType,
		OldValue:   oldValue,
		NewValue:   newValue,
	})
	if err != nil {
		s.logger.Warn("history record failed",
			zap.String("ticket_id", ticketID),
			zap.String("change_type", string(changeType)),
			zap.Error(err),
		)
	}
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func generateReferenceKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
