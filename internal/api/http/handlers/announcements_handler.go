package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// AnnouncementsHandler manages the broadcast feed endpoints.
type AnnouncementsHandler struct {
	service *service.AnnouncementService
}

// NewAnnouncementsHandler constructs handler.
func NewAnnouncementsHandler(announcementService *service.AnnouncementService) *AnnouncementsHandler {
	return &AnnouncementsHandler{service: announcementService}
}

// Post POST /announcements.
func (h *AnnouncementsHandler) Post(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateAnnouncementRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	announcement, err := h.service.Post(c.UserContext(), actor, req.Title, req.Description)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": announcementResponse(announcement, actor.ID)})
}

// List GET /announcements.
func (h *AnnouncementsHandler) List(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	announcements, err := h.service.List(c.UserContext(), actor)
	if err != nil {
		return err
	}
	items := make([]dto.AnnouncementResponse, 0, len(announcements))
	for i := range announcements {
		items = append(items, announcementResponse(&announcements[i], actor.ID))
	}
	return c.JSON(fiber.Map{"data": items})
}

// MarkRead POST /announcements/:id/read.
func (h *AnnouncementsHandler) MarkRead(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	announcement, err := h.service.MarkRead(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": announcementResponse(announcement, actor.ID)})
}

// UnreadBadge GET /announcements/unread-count.
func (h *AnnouncementsHandler) UnreadBadge(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	count, err := h.service.UnreadBadge(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.UnreadBadgeResponse{Unread: count}})
}

func announcementResponse(announcement *domain.Announcement, viewerID string) dto.AnnouncementResponse {
	readBy := announcement.ReadBy
	if readBy == nil {
		readBy = []string{}
	}
	return dto.AnnouncementResponse{
		ID:          announcement.ID,
		Title:       announcement.Title,
		Description: announcement.Description,
		CreatedBy:   announcement.CreatedBy,
		ReadBy:      readBy,
		Read:        announcement.IsReadBy(viewerID),
		CreatedAt:   announcement.CreatedAt,
	}
}
