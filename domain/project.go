package domain

// Project groups tasks, messages and members. Membership maps a user id
// to the role they hold in this project.
type Project struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Members     map[string]Role `json:"members"`
}

func (p Project) IsMember(userID string) bool {
	_, ok := p.Members[userID]
	return ok
}

// Owners returns the ids of every user holding the owner role.
func (p Project) Owners() []string {
	var owners []string
	for userID, role := range p.Members {
		if role == RoleOwner {
			owners = append(owners, userID)
		}
	}
	return owners
}
