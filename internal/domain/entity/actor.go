package entity

// Role identifies an approval authority within the intranet
type Role string

const (
	RoleEmployee        Role = "employee"
	RoleAuthor          Role = "author"
	RoleAuditor         Role = "auditor"
	RoleQualityManager  Role = "quality_manager"
	RoleBoard           Role = "board"
	RoleBudgetOwner     Role = "budget_owner"
	RoleHRManager       Role = "hr_manager"
	RoleTrainingManager Role = "training_manager"
	RoleAdmin           Role = "admin"
)

var validRoles = map[Role]bool{
	RoleEmployee:        true,
	RoleAuthor:          true,
	RoleAuditor:         true,
	RoleQualityManager:  true,
	RoleBoard:           true,
	RoleBudgetOwner:     true,
	RoleHRManager:       true,
	RoleTrainingManager: true,
	RoleAdmin:           true,
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// IsValid returns true if the role is one of the known authority roles
func (r Role) IsValid() bool {
	return validRoles[r]
}

// Actor is the identity firing a transition. Identity and role are supplied
// by the identity collaborator; no authentication happens at this layer.
type Actor struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	Role       Role   `json:"role"`
	Department string `json:"department,omitempty"`
}

// User is a directory entry returned by the directory collaborator
type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Role       Role   `json:"role"`
}
