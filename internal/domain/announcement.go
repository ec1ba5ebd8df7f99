package domain

import "time"

// Announcement is a broadcast message with per-reader read receipts.
type Announcement struct {
	ID          string
	Title       string
	Description string
	CreatedBy   string
	ReadBy      []string
	CreatedAt   time.Time
}

// IsReadBy reports whether the reader has acknowledged the announcement.
func (a *Announcement) IsReadBy(readerID string) bool {
	for _, id := range a.ReadBy {
		if id == readerID {
			return true
		}
	}
	return false
}

// UnreadCountFor counts announcements the viewer has not acknowledged.
// Pure function over the provided list, never a stored value.
func UnreadCountFor(viewerID string, announcements []Announcement) int {
	count := 0
	for i := range announcements {
		if !announcements[i].IsReadBy(viewerID) {
			count++
		}
	}
	return count
}
