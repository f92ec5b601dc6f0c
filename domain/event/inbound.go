package event

// JoinProject subscribes the connection to a project channel.
type JoinProject struct {
	ProjectID string `json:"projectId" validate:"required"`
}

// JoinUserChannel subscribes the connection to the channel of the user it
// authenticated as. The user id is implicit, taken from the connection.
type JoinUserChannel struct{}

type SendMessage struct {
	ProjectID string `json:"projectId" validate:"required"`
	Text      string `json:"text" validate:"required"`
}

type CreateTask struct {
	ProjectID   string `json:"projectId" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type UpdateTaskStatus struct {
	TaskID string `json:"taskId" validate:"required"`
	Status string `json:"status" validate:"required,oneof=todo inprogress done"`
}

type AssignTask struct {
	TaskID string `json:"taskId" validate:"required"`
	UserID string `json:"userId" validate:"required"`
}

func (JoinProject) isInbound()      {}
func (JoinUserChannel) isInbound()  {}
func (SendMessage) isInbound()      {}
func (CreateTask) isInbound()       {}
func (UpdateTaskStatus) isInbound() {}
func (AssignTask) isInbound()       {}
