package roles

import "time"

// Role groups permissions granted to users.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Permissions []string  `json:"permissions,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Input is the create/update payload.
type Input struct {
	Name        string `json:"name" validate:"required,max=60"`
	Description string `json:"description" validate:"max=255"`
}

// PermissionsInput replaces a role's permission set by slug.
type PermissionsInput struct {
	Permissions []string `json:"permissions" validate:"dive,required,max=100"`
}
