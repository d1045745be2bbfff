package rbac

import "time"

// Permission represents an atomic capability identified by its slug.
type Permission struct {
	ID          int64     `json:"id"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
