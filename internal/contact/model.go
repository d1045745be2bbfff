package contact

import "time"

// Message is an inquiry submitted through the public contact form.
type Message struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	Subject   string     `json:"subject"`
	Body      string     `json:"message"`
	Handled   bool       `json:"handled"`
	HandledAt *time.Time `json:"handled_at"`
	HandledBy *int64     `json:"handled_by"`
	CreatedAt time.Time  `json:"created_at"`
}

// Input is the public submission payload.
type Input struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email,max=255"`
	Phone   string `json:"phone" validate:"max=40"`
	Subject string `json:"subject" validate:"max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

// ListFilters narrows the admin inbox.
type ListFilters struct {
	Handled *bool
	Page    int
	Limit   int
}
