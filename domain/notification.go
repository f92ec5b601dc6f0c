package domain

import "time"

type NotificationType string

const (
	NotificationNewMessage   NotificationType = "new_message"
	NotificationTaskStatus   NotificationType = "task_status"
	NotificationTaskAssigned NotificationType = "task_assigned"
)

// Notification is a durable per-user record of something that happened
// while the user may not have been connected. Read flips to true exactly
// once and never reverts.
type Notification struct {
	ID          string           `json:"id"`
	UserID      string           `json:"userId"`
	Text        string           `json:"text"`
	ReferenceID string           `json:"referenceId"`
	Type        NotificationType `json:"type"`
	CreatedAt   time.Time        `json:"createdAt"`
	Read        bool             `json:"read"`
}
