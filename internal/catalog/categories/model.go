package categories

import "time"

// Category groups products; categories form a tree through ParentID.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	ParentID  *int64    `json:"parent_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Input is the create/update payload.
type Input struct {
	Name     string `json:"name" validate:"required,max=120"`
	Slug     string `json:"slug" validate:"omitempty,max=140"`
	ParentID *int64 `json:"parent_id" validate:"omitempty,gt=0"`
}
