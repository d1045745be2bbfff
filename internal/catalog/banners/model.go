package banners

import "time"

// Banner is a promotional slide shown on the storefront.
type Banner struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Subtitle   string    `json:"subtitle"`
	LinkURL    string    `json:"link_url"`
	ImageURL   string    `json:"image_url"`
	StorageKey string    `json:"-"`
	Position   int       `json:"position"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Fields are the editable banner attributes.
type Fields struct {
	Title    string
	Subtitle string
	LinkURL  string
	Position int
	Active   bool
}
