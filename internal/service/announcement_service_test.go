package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

type fakeAnnouncementRepo struct {
	announcements map[string]*domain.Announcement
	order         []string
	seq           int
}

func newFakeAnnouncementRepo() *fakeAnnouncementRepo {
	return &fakeAnnouncementRepo{announcements: make(map[string]*domain.Announcement)}
}

func (r *fakeAnnouncementRepo) Create(_ context.Context, announcement *domain.Announcement) error {
	r.seq++
	announcement.ID = fmt.Sprintf("ann-%d", r.seq)
	announcement.CreatedAt = time.Now()
	stored := *announcement
	r.announcements[announcement.ID] = &stored
	r.order = append(r.order, announcement.ID)
	return nil
}

func (r *fakeAnnouncementRepo) List(_ context.Context) ([]domain.Announcement, error) {
	result := make([]domain.Announcement, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		result = append(result, *r.announcements[r.order[i]])
	}
	return result, nil
}

func (r *fakeAnnouncementRepo) GetByID(_ context.Context, id string) (*domain.Announcement, error) {
	stored, ok := r.announcements[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *stored
	copied.ReadBy = append([]string(nil), stored.ReadBy...)
	return &copied, nil
}

func (r *fakeAnnouncementRepo) MarkRead(_ context.Context, id, readerID string) (bool, error) {
	stored, ok := r.announcements[id]
	if !ok {
		return false, pgx.ErrNoRows
	}
	for _, existing := range stored.ReadBy {
		if existing == readerID {
			return false, nil
		}
	}
	stored.ReadBy = append(stored.ReadBy, readerID)
	return true, nil
}

func (r *fakeAnnouncementRepo) CountUnread(_ context.Context, readerID string) (int, error) {
	count := 0
	for _, stored := range r.announcements {
		if !stored.IsReadBy(readerID) {
			count++
		}
	}
	return count, nil
}

func newAnnouncementServiceForTest() (*AnnouncementService, *fakeAnnouncementRepo) {
	repo := newFakeAnnouncementRepo()
	svc := NewAnnouncementService(AnnouncementDependencies{AnnouncementRepo: repo})
	return svc, repo
}

func TestPostAnnouncementRequiresAdmin(t *testing.T) {
	svc, _ := newAnnouncementServiceForTest()
	ctx := context.Background()

	for _, actor := range []domain.Actor{actorUser, actorSupervisor} {
		_, err := svc.Post(ctx, actor, "Maintenance window", "Friday night")
		if code := errCode(t, err); code != "FORBIDDEN" {
			t.Errorf("actor %s: code = %s, want FORBIDDEN", actor.Role, code)
		}
	}
}

func TestPostAnnouncement(t *testing.T) {
	svc, _ := newAnnouncementServiceForTest()

	announcement, err := svc.Post(context.Background(), actorAdmin, "  Maintenance window  ", "Friday night")
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if announcement.Title != "Maintenance window" {
		t.Errorf("title = %q, want trimmed", announcement.Title)
	}
	if len(announcement.ReadBy) != 0 {
		t.Errorf("new announcement readBy = %v, want empty", announcement.ReadBy)
	}
}

func TestPostAnnouncementEmptyTitle(t *testing.T) {
	svc, _ := newAnnouncementServiceForTest()

	_, err := svc.Post(context.Background(), actorAdmin, "   ", "body")
	if code := errCode(t, err); code != "VALIDATION_FAILED" {
		t.Errorf("code = %s, want VALIDATION_FAILED", code)
	}
}

func TestMarkReadIsIdempotent(t *testing.T) {
	svc, _ := newAnnouncementServiceForTest()
	ctx := context.Background()

	announcement, _ := svc.Post(ctx, actorAdmin, "Maintenance window", "")

	for i := 0; i < 3; i++ {
		updated, err := svc.MarkRead(ctx, actorUser, announcement.ID)
		if err != nil {
			t.Fatalf("MarkRead #%d: %v", i+1, err)
		}
		if len(updated.ReadBy) != 1 || updated.ReadBy[0] != actorUser.ID {
			t.Fatalf("MarkRead #%d: readBy = %v, want [%s]", i+1, updated.ReadBy, actorUser.ID)
		}
	}
}

func TestMarkReadTwoReaders(t *testing.T) {
	svc, _ := newAnnouncementServiceForTest()
	ctx := context.Background()

	announcement, _ := svc.Post(ctx, actorAdmin, "Maintenance window", "")

	// Interleaved and duplicated marks by two readers still yield exactly
	// one receipt per reader.
	readers := []domain.Actor{actorUser, actorSupervisor, actorUser, actorSupervisor, actorUser}
	var updated *domain.Announcement
	for _, reader := range readers {
		var err error
		updated, err = svc.MarkRead(ctx, reader, announcement.ID)
		if err != nil {
			t.Fatalf("MarkRead by %s: %v", reader.ID, err)
		}
	}

	if len(updated.ReadBy) != 2 {
		t.Fatalf("readBy = %v, want exactly 2 readers", updated.ReadBy)
	}
	if !updated.IsReadBy(actorUser.ID) || !updated.IsReadBy(actorSupervisor.ID) {
		t.Errorf("readBy = %v, want both %s and %s", updated.ReadBy, actorUser.ID, actorSupervisor.ID)
	}
}

func TestMarkReadUnknownAnnouncement(t *testing.T) {
	svc, _ := newAnnouncementServiceForTest()

	_, err := svc.MarkRead(context.Background(), actorUser, "missing")
	if code := errCode(t, err); code != "NOT_FOUND" {
		t.Errorf("code = %s, want NOT_FOUND", code)
	}
}

func TestUnreadBadgeTracksReads(t *testing.T) {
	svc, _ := newAnnouncementServiceForTest()
	ctx := context.Background()

	first, _ := svc.Post(ctx, actorAdmin, "First", "")
	second, _ := svc.Post(ctx, actorAdmin, "Second", "")

	count, err := svc.UnreadBadge(ctx, actorUser)
	if err != nil {
		t.Fatalf("UnreadBadge: %v", err)
	}
	if count != 2 {
		t.Fatalf("unread = %d, want 2", count)
	}

	if _, err := svc.MarkRead(ctx, actorUser, first.ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	count, _ = svc.UnreadBadge(ctx, actorUser)
	if count != 1 {
		t.Errorf("unread after first read = %d, want 1", count)
	}

	// A second reader's badge is independent.
	count, _ = svc.UnreadBadge(ctx, actorSupervisor)
	if count != 2 {
		t.Errorf("other viewer unread = %d, want 2", count)
	}

	if _, err := svc.MarkRead(ctx, actorUser, second.ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	count, _ = svc.UnreadBadge(ctx, actorUser)
	if count != 0 {
		t.Errorf("unread after all read = %d, want 0", count)
	}
}

func TestListAnnouncementsNewestFirst(t *testing.T) {
	svc, _ := newAnnouncementServiceForTest()
	ctx := context.Background()

	_, _ = svc.Post(ctx, actorAdmin, "First", "")
	_, _ = svc.Post(ctx, actorAdmin, "Second", "")

	list, err := svc.List(ctx, actorUser)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].Title != "Second" || list[1].Title != "First" {
		t.Errorf("order = [%s, %s], want newest first", list[0].Title, list[1].Title)
	}
}
