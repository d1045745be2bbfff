package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog item row.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	CategoryID  *int64          `json:"category_id"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Image is a stored picture owned by exactly one product.
type Image struct {
	ID         int64     `json:"id"`
	ProductID  int64     `json:"product_id"`
	URL        string    `json:"url"`
	StorageKey string    `json:"-"`
	IsMain     bool      `json:"is_main"`
	CreatedAt  time.Time `json:"created_at"`
}

// View is the read model returned by list and detail endpoints.
type View struct {
	Product
	CategoryName *string          `json:"category_name"`
	MainImage    *string          `json:"main_image"`
	FinalPrice   decimal.Decimal  `json:"final_price"`
	Discount     *AppliedDiscount `json:"discount"`
	Images       []Image          `json:"images,omitempty"`
}

// ListFilters narrows product listings.
type ListFilters struct {
	Page       int
	Limit      int
	Search     string
	SortBy     string
	SortDir    string
	CategoryID *int64
}
