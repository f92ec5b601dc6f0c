package event

import "notifyhub/domain"

type NewMessage struct {
	ProjectID string         `json:"projectId"`
	Message   domain.Message `json:"message"`
}

type TaskCreated struct {
	ProjectID string      `json:"projectId"`
	Task      domain.Task `json:"task"`
}

type TaskUpdated struct {
	ProjectID string      `json:"projectId"`
	Task      domain.Task `json:"task"`
}

type NotificationPushed struct {
	Notification domain.Notification `json:"notification"`
}

// Error is reported only to the connection whose command failed.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (NewMessage) Kind() string         { return "newMessage" }
func (TaskCreated) Kind() string        { return "taskCreated" }
func (TaskUpdated) Kind() string        { return "taskUpdated" }
func (NotificationPushed) Kind() string { return "notification" }
func (Error) Kind() string              { return "error" }
