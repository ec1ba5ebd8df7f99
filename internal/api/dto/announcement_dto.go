package dto

import "time"

// CreateAnnouncementRequest is the payload for posting an announcement.
type CreateAnnouncementRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// AnnouncementResponse is the wire form of an announcement, including the
// viewer's read flag.
type AnnouncementResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"created_by"`
	ReadBy      []string  `json:"read_by"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}

// UnreadBadgeResponse carries the viewer's unread count.
type UnreadBadgeResponse struct {
	Unread int `json:"unread"`
}
