package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// AnnouncementService owns the broadcast feed and its read receipts.
type AnnouncementService struct {
	announcements repository.AnnouncementRepository
	dispatcher    events.Dispatcher
	cache         *redis.Client
	badgeTTL      time.Duration
	logger        *zap.Logger
}

// AnnouncementDependencies bundles collaborators for the feed.
type AnnouncementDependencies struct {
	AnnouncementRepo repository.AnnouncementRepository
	Dispatcher       events.Dispatcher
	Cache            *redis.Client
	BadgeTTL         time.Duration
	Logger           *zap.Logger
}

// NewAnnouncementService constructs the service.
func NewAnnouncementService(deps AnnouncementDependencies) *AnnouncementService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnnouncementService{
		announcements: deps.AnnouncementRepo,
		dispatcher:    deps.Dispatcher,
		cache:         deps.Cache,
		badgeTTL:      deps.BadgeTTL,
		logger:        logger,
	}
}

// Post publishes a new announcement. Admin only; the check lives here at
// the service boundary, not just in the UI.
func (s *AnnouncementService) Post(ctx context.Context, actor domain.Actor, title, description string) (*domain.Announcement, error) {
	if !auth.Authorize(actor.Role, auth.ActionPostAnnouncement) {
		return nil, apperrors.NewForbidden("only admins may post announcements")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}

	announcement := &domain.Announcement{
		Title:       title,
		Description: strings.TrimSpace(description),
		CreatedBy:   actor.ID,
		ReadBy:      []string{},
	}
	if err := s.announcements.Create(ctx, announcement); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventAnnouncementPosted,
			ActorID:   actor.ID,
			Timestamp: time.Now(),
			Payload: events.AnnouncementPostedPayload{
				AnnouncementID: announcement.ID,
				Title:          announcement.Title,
			},
		})
	}
	return announcement, nil
}

// List returns all announcements, newest first, with their read sets.
func (s *AnnouncementService) List(ctx context.Context, actor domain.Actor) ([]domain.Announcement, error) {
	if !auth.Authorize(actor.Role, auth.ActionReadAnnouncements) {
		return nil, apperrors.NewForbidden("not allowed to read announcements")
	}
	list, err := s.announcements.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return list, nil
}

// MarkRead acknowledges the announcement for the actor. Idempotent: a
// repeat call is a no-op and the read set never shrinks.
func (s *AnnouncementService) MarkRead(ctx context.Context, actor domain.Actor, announcementID string) (*domain.Announcement, error) {
	if !auth.Authorize(actor.Role, auth.ActionReadAnnouncements) {
		return nil, apperrors.NewForbidden("not allowed to read announcements")
	}
	if _, err := s.announcements.GetByID(ctx, announcementID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("announcement", map[string]any{"announcement_id": announcementID})
		}
		return nil, apperrors.MapError(err)
	}

	inserted, err := s.announcements.MarkRead(ctx, announcementID, actor.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if inserted {
		s.dropBadge(ctx, actor.ID)
	}

	updated, err := s.announcements.GetByID(ctx, announcementID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return updated, nil
}

// UnreadBadge returns the viewer's unread count, served from the Redis
// cache when fresh. The count is always recomputable from the rows, so a
// stale badge self-corrects within the TTL.
func (s *AnnouncementService) UnreadBadge(ctx context.Context, actor domain.Actor) (int, error) {
	if !auth.Authorize(actor.Role, auth.ActionReadAnnouncements) {
		return 0, apperrors.NewForbidden("not allowed to read announcements")
	}

	key := badgeKey(actor.ID)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key).Result(); err == nil {
			if count, convErr := strconv.Atoi(cached); convErr == nil {
				return count, nil
			}
		}
	}

	count, err := s.announcements.CountUnread(ctx, actor.ID)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	if s.cache != nil && s.badgeTTL > 0 {
		if err := s.cache.Set(ctx, key, strconv.Itoa(count), s.badgeTTL).Err(); err != nil {
			s.logger.Warn("badge cache set failed", zap.Error(err))
		}
	}
	return count, nil
}

func (s *AnnouncementService) dropBadge(ctx context.Context, viewerID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, badgeKey(viewerID)).Err(); err != nil {
		s.logger.Warn("badge cache invalidation failed", zap.Error(err))
	}
}

func badgeKey(viewerID string) string {
	return fmt.Sprintf("announcements:unread:%s", viewerID)
}
