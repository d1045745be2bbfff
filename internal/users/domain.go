package users

import "time"

// User is a back-office account as exposed to administrators.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateInput is the payload for creating an account.
type CreateInput struct {
	Email    string  `json:"email" validate:"required,email,max=255"`
	Name     string  `json:"name" validate:"required,max=120"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
	IsActive *bool   `json:"is_active"`
	RoleIDs  []int64 `json:"role_ids" validate:"omitempty,dive,gt=0"`
}

// UpdateInput changes profile fields; a nil password keeps the current hash.
type UpdateInput struct {
	Email    string  `json:"email" validate:"required,email,max=255"`
	Name     string  `json:"name" validate:"required,max=120"`
	Password *string `json:"password" validate:"omitempty,min=8,max=72"`
	IsActive *bool   `json:"is_active"`
}

// RolesInput replaces the roles of a user.
type RolesInput struct {
	RoleIDs []int64 `json:"role_ids" validate:"dive,gt=0"`
}

// ListFilters narrows user listings.
type ListFilters struct {
	Search string
	Page   int
	Limit  int
}
