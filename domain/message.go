package domain

import "time"

// Message is an immutable chat entry. Lang is the ISO 639-1 code detected
// at ingestion time, empty when detection was inconclusive.
type Message struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content"`
	Lang      string    `json:"lang,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
