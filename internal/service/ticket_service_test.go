package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// --- fakes ---

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]domain.Ticket
	seq     int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]domain.Ticket)}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	ticket.ID = fmt.Sprintf("tkt-%d", r.seq)
	ticket.Version = 1
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != ticket.Version {
		return repository.ErrVersionMismatch
	}
	ticket.Version++
	ticket.UpdatedAt = time.Now()
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := stored
	return &copied, nil
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.InvolvedUserID != nil {
			involved := ticket.CreatedBy == *filter.InvolvedUserID ||
				(ticket.AssignedTo != nil && *ticket.AssignedTo == *filter.InvolvedUserID)
			if !involved {
				continue
			}
		}
		if filter.AssigneeID != nil {
			if ticket.AssignedTo == nil || *ticket.AssignedTo != *filter.AssigneeID {
				continue
			}
		}
		result = append(result, ticket)
	}
	return result, nil
}

type fakeUserRepo struct {
	users map[string]domain.User
	seq   int
}

func newFakeUserRepo(users ...domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]domain.User)}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	if user.ID == "" {
		r.seq++
		user.ID = fmt.Sprintf("user-%d", r.seq)
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) ListAssignable(_ context.Context) ([]domain.User, error) {
	var result []domain.User
	for _, user := range r.users {
		if user.Role == domain.RoleSupervisor || user.Role == domain.RoleAdmin {
			result = append(result, user)
		}
	}
	return result, nil
}

type fakeHistoryRepo struct {
	entries []domain.TicketHistory
}

func (r *fakeHistoryRepo) Create(_ context.Context, entry *domain.TicketHistory) error {
	entry.ID = fmt.Sprintf("hist-%d", len(r.entries)+1)
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeHistoryRepo) ListByTicket(_ context.Context, ticketID string, _, _ int) ([]domain.TicketHistory, error) {
	var result []domain.TicketHistory
	for _, entry := range r.entries {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return result, nil
}

// --- helpers ---

var (
	actorUser       = domain.Actor{ID: "user-a", Role: domain.RoleUser}
	actorSupervisor = domain.Actor{ID: "sup-b", Role: domain.RoleSupervisor}
	actorAdmin      = domain.Actor{ID: "adm-c", Role: domain.RoleAdmin}
)

func newTicketServiceForTest() (*TicketService, *fakeTicketRepo, *fakeHistoryRepo) {
	tickets := newFakeTicketRepo()
	history := &fakeHistoryRepo{}
	users := newFakeUserRepo(
		domain.User{ID: "user-a", Email: "a@example.com", Role: domain.RoleUser},
		domain.User{ID: "sup-b", Email: "b@example.com", Role: domain.RoleSupervisor},
		domain.User{ID: "sup-d", Email: "d@example.com", Role: domain.RoleSupervisor},
		domain.User{ID: "adm-c", Email: "c@example.com", Role: domain.RoleAdmin},
	)
	svc := NewTicketService(TicketDependencies{
		TicketRepo:  tickets,
		UserRepo:    users,
		HistoryRepo: history,
	})
	return svc, tickets, history
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	return apperrors.ToDomainError(err).Code
}

// --- tests ---

func TestCreateTicket(t *testing.T) {
	svc, _, _ := newTicketServiceForTest()
	ctx := context.Background()

	ticket, err := svc.Create(ctx, actorUser, "Printer down", "jams")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ticket.Status != domain.TicketStatusOpen {
		t.Errorf("status = %s, want OPEN", ticket.Status)
	}
	if ticket.AssignedTo != nil {
		t.Errorf("assignedTo = %v, want nil", *ticket.AssignedTo)
	}
	if ticket.CreatedBy != actorUser.ID {
		t.Errorf("createdBy = %s, want %s", ticket.CreatedBy, actorUser.ID)
	}
	if ticket.ReferenceKey == "" {
		t.Error("reference key not generated")
	}
}

func TestCreateTicketEmptyTitle(t *testing.T) {
	svc, _, _ := newTicketServiceForTest()
	ctx := context.Background()

	for _, title := range []string{"", "   ", "\t"} {
		_, err := svc.Create(ctx, actorUser, title, "x")
		if code := errCode(t, err); code != "VALIDATION_FAILED" {
			t.Errorf("title %q: code = %s, want VALIDATION_FAILED", title, code)
		}
	}
}

func TestCreateTicketDescriptionMayBeEmpty(t *testing.T) {
	svc, _, _ := newTicketServiceForTest()

	if _, err := svc.Create(context.Background(), actorUser, "No details yet", ""); err != nil {
		t.Fatalf("Create with empty description: %v", err)
	}
}

func TestAssignTicketRequiresAdmin(t *testing.T) {
	svc, repo, _ := newTicketServiceForTest()
	ctx := context.Background()

	ticket, _ := svc.Create(ctx, actorUser, "Printer down", "jams")

	for _, actor := range []domain.Actor{actorUser, actorSupervisor} {
		_, err := svc.Assign(ctx, actor, ticket.ID, "sup-b")
		if code := errCode(t, err); code != "FORBIDDEN" {
			t.Errorf("actor %s: code = %s, want FORBIDDEN", actor.Role, code)
		}
	}

	stored, _ := repo.GetByID(ctx, ticket.ID)
	if stored.AssignedTo != nil {
		t.Errorf("assignedTo changed by rejected assignment: %v", *stored.AssignedTo)
	}
}

func TestAssignTicket(t *testing.T) {
	svc, _, history := newTicketServiceForTest()
	ctx := context.Background()

	ticket, _ := svc.Create(ctx, actorUser, "Printer down", "jams")

	assigned, err := svc.Assign(ctx, actorAdmin, ticket.ID, "sup-b")
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if assigned.AssignedTo == nil || *assigned.AssignedTo != "sup-b" {
		t.Fatalf("assignedTo = %v, want sup-b", assigned.AssignedTo)
	}
	if assigned.Status != domain.TicketStatusOpen {
		t.Errorf("status = %s, want OPEN (assignment leaves status untouched)", assigned.Status)
	}

	// Reassignment is last-write-wins, no error.
	reassigned, err := svc.Assign(ctx, actorAdmin, ticket.ID, "sup-d")
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if *reassigned.AssignedTo != "sup-d" {
		t.Errorf("assignedTo = %s, want sup-d", *reassigned.AssignedTo)
	}

	if len(history.entries) != 2 {
		t.Errorf("history entries = %d, want 2", len(history.entries))
	}
}

func TestAssignTicketNotFound(t *testing.T) {
	svc, _, _ := newTicketServiceForTest()

	_, err := svc.Assign(context.Background(), actorAdmin, "missing", "sup-b")
	if code := errCode(t, err); code != "NOT_FOUND" {
		t.Errorf("code = %s, want NOT_FOUND", code)
	}
}

func TestAssignTicketRefusesDoneTicket(t *testing.T) {
	svc, repo, _ := newTicketServiceForTest()
	ctx := context.Background()

	ticket, _ := svc.Create(ctx, actorUser, "Printer down", "jams")
	if _, err := svc.Assign(ctx, actorAdmin, ticket.ID, "sup-b"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, actorSupervisor, ticket.ID, domain.TicketStatusDone); err != nil {
		t.Fatalf("to done: %v", err)
	}

	_, err := svc.Assign(ctx, actorAdmin, ticket.ID, "sup-d")
	if code := errCode(t, err); code != "VALIDATION_FAILED" {
		t.Errorf("code = %s, want VALIDATION_FAILED", code)
	}

	stored, _ := repo.GetByID(ctx, ticket.ID)
	if *stored.AssignedTo != "sup-b" {
		t.Errorf("assignedTo = %s, want sup-b untouched", *stored.AssignedTo)
	}
}

func TestAssignTicketRejectsNonSupervisor(t *testing.T) {
	svc, _, _ := newTicketServiceForTest()
	ctx := context.Background()

	ticket, _ := svc.Create(ctx, actorUser, "Printer down", "jams")

	_, err := svc.Assign(ctx, actorAdmin, ticket.ID, "user-a")
	if code := errCode(t, err); code != "VALIDATION_FAILED" {
		t.Errorf("code = %s, want VALIDATION_FAILED", code)
	}
}

func TestUpdateStatusRequiresSupervisorOrAdmin(t *testing.T) {
	svc, _, _ := newTicketServiceForTest()
	ctx := context.Background()

	ticket, _ := svc.Create(ctx, actorUser, "Printer down", "jams")

	_, err := svc.UpdateStatus(ctx, actorUser, ticket.ID, domain.TicketStatusDone)
	if code := errCode(t, err); code != "FORBIDDEN" {
		t.Errorf("code = %s, want FORBIDDEN", code)
	}
}

func TestUpdateStatusRejectsUnknownState(t *testing.T) {
	svc, _, _ := newTicketServiceForTest()
	ctx := context.Background()

	ticket, _ := svc.Create(ctx, actorUser, "Printer down", "jams")

	_, err := svc.UpdateStatus(ctx, actorSupervisor, ticket.ID, domain.TicketStatus("ESCALATED"))
	if code := errCode(t, err); code != "VALIDATION_FAILED" {
		t.Errorf("code = %s, want VALIDATION_FAILED", code)
	}
}

func TestUpdateStatusRejectsIllegalTransitions(t *testing.T) {
	svc, _, _ := newTicketServiceForTest()
	ctx := context.Background()

	// Unassigned open ticket cannot jump straight to done or extended.
	ticket, _ := svc.Create(ctx, actorUser, "Printer down", "jams")
	for _, target := range []domain.TicketStatus{domain.TicketStatusDone, domain.TicketStatusExtended} {
		_, err := svc.UpdateStatus(ctx, actorSupervisor, ticket.ID, target)
		if code := errCode(t, err); code != "VALIDATION_FAILED" {
			t.Errorf("open -> %s: code = %s, want VALIDATION_FAILED", target, code)
		}
	}

	// Done is terminal.
	done, _ := svc.Create(ctx, actorUser, "Other", "")
	if _, err := svc.Assign(ctx, actorAdmin, done.ID, "sup-b"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, actorSupervisor, done.ID, domain.TicketStatusDone); err != nil {
		t.Fatalf("to done: %v", err)
	}
	for _, target := range []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusAssigned, domain.TicketStatusExtended} {
		_, err := svc.UpdateStatus(ctx, actorSupervisor, done.ID, target)
		if code := errCode(t, err); code != "VALIDATION_FAILED" {
			t.Errorf("done -> %s: code = %s, want VALIDATION_FAILED", target, code)
		}
	}
}

func TestTicketLifecycleScenario(t *testing.T) {
	svc, _, _ := newTicketServiceForTest()
	ctx := context.Background()

	ticket, err := svc.Create(ctx, actorUser, "Printer down", "jams")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	listed, err := svc.ListFor(ctx, actorUser, TicketListFilter{})
	if err != nil {
		t.Fatalf("ListFor: %v", err)
	}
	if !containsTicket(listed, ticket.ID) {
		t.Fatal("creator does not see own ticket")
	}

	if _, err := svc.Assign(ctx, actorAdmin, ticket.ID, actorSupervisor.ID); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	listed, _ = svc.ListFor(ctx, actorUser, TicketListFilter{})
	if !containsTicket(listed, ticket.ID) {
		t.Fatal("creator lost visibility after assignment")
	}

	// The assignee sees the ticket too.
	listed, _ = svc.ListFor(ctx, actorSupervisor, TicketListFilter{AssignedToMe: true})
	if !containsTicket(listed, ticket.ID) {
		t.Fatal("assignee does not see assigned ticket")
	}

	if _, err := svc.UpdateStatus(ctx, actorSupervisor, ticket.ID, domain.TicketStatusDone); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	listed, _ = svc.ListFor(ctx, actorUser, TicketListFilter{})
	for _, item := range listed {
		if item.ID == ticket.ID && item.Status != domain.TicketStatusDone {
			t.Errorf("status = %s, want DONE", item.Status)
		}
	}
}

func TestListForAdminSeesAll(t *testing.T) {
	svc, _, _ := newTicketServiceForTest()
	ctx := context.Background()

	first, _ := svc.Create(ctx, actorUser, "First", "")
	second, _ := svc.Create(ctx, domain.Actor{ID: "user-z", Role: domain.RoleUser}, "Second", "")

	listed, err := svc.ListFor(ctx, actorAdmin, TicketListFilter{})
	if err != nil {
		t.Fatalf("ListFor: %v", err)
	}
	if !containsTicket(listed, first.ID) || !containsTicket(listed, second.ID) {
		t.Errorf("admin listing missing tickets: got %d", len(listed))
	}

	// Another user sees neither.
	listed, _ = svc.ListFor(ctx, domain.Actor{ID: "user-q", Role: domain.RoleUser}, TicketListFilter{})
	if len(listed) != 0 {
		t.Errorf("unrelated user sees %d tickets, want 0", len(listed))
	}
}

// stalingTicketRepo bumps the stored version behind every read, so the
// service's compare-and-swap always loses the race.
type stalingTicketRepo struct {
	*fakeTicketRepo
}

func (r *stalingTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := r.fakeTicketRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	stored := r.tickets[id]
	stored.Version++
	r.tickets[id] = stored
	r.mu.Unlock()
	return ticket, nil
}

func TestUpdateConflictSurfacesAsConflict(t *testing.T) {
	base := newFakeTicketRepo()
	users := newFakeUserRepo(
		domain.User{ID: "sup-b", Email: "b@example.com", Role: domain.RoleSupervisor},
	)
	svc := NewTicketService(TicketDependencies{
		TicketRepo:  &stalingTicketRepo{base},
		UserRepo:    users,
		HistoryRepo: &fakeHistoryRepo{},
	})
	ctx := context.Background()

	ticket, err := svc.Create(ctx, actorUser, "Printer down", "jams")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = svc.Assign(ctx, actorAdmin, ticket.ID, "sup-b")
	if code := errCode(t, err); code != "CONFLICT" {
		t.Errorf("code = %s, want CONFLICT", code)
	}
}

func TestHistoryRecordsChanges(t *testing.T) {
	svc, _, _ := newTicketServiceForTest()
	ctx := context.Background()

	ticket, _ := svc.Create(ctx, actorUser, "Printer down", "jams")
	_, _ = svc.Assign(ctx, actorAdmin, ticket.ID, "sup-b")
	_, _ = svc.UpdateStatus(ctx, actorSupervisor, ticket.ID, domain.TicketStatusDone)

	entries, err := svc.History(ctx, actorUser, ticket.ID, 100, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("history entries = %d, want 2", len(entries))
	}
	if entries[0].ChangeType != domain.ChangeTypeAssignee || entries[1].ChangeType != domain.ChangeTypeStatus {
		t.Errorf("unexpected change types: %s, %s", entries[0].ChangeType, entries[1].ChangeType)
	}
}

type failingHistoryRepo struct{}

func (r *failingHistoryRepo) Create(context.Context, *domain.TicketHistory) error {
	return errors.New("history table unavailable")
}

func (r *failingHistoryRepo) ListByTicket(context.Context, string, int, int) ([]domain.TicketHistory, error) {
	return nil, errors.New("history table unavailable")
}

func TestHistoryFailureDoesNotFailMutation(t *testing.T) {
	tickets := newFakeTicketRepo()
	users := newFakeUserRepo(
		domain.User{ID: "sup-b", Email: "b@example.com", Role: domain.RoleSupervisor},
	)
	svc := NewTicketService(TicketDependencies{
		TicketRepo:  tickets,
		UserRepo:    users,
		HistoryRepo: &failingHistoryRepo{},
	})
	ctx := context.Background()

	ticket, _ := svc.Create(ctx, actorUser, "Printer down", "jams")

	assigned, err := svc.Assign(ctx, actorAdmin, ticket.ID, "sup-b")
	if err != nil {
		t.Fatalf("Assign with failing history: %v", err)
	}
	if *assigned.AssignedTo != "sup-b" {
		t.Errorf("assignedTo = %s, want sup-b", *assigned.AssignedTo)
	}

	updated, err := svc.UpdateStatus(ctx, actorSupervisor, ticket.ID, domain.TicketStatusDone)
	if err != nil {
		t.Fatalf("UpdateStatus with failing history: %v", err)
	}
	if updated.Status != domain.TicketStatusDone {
		t.Errorf("status = %s, want DONE", updated.Status)
	}
}

func containsTicket(tickets []domain.Ticket, id string) bool {
	for _, ticket := range tickets {
		if ticket.ID == id {
			return true
		}
	}
	return false
}
