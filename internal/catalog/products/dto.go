package products

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alesteb/alesteb-api/internal/platform/storage"
	"github.com/alesteb/alesteb-api/internal/shared"
)

// Fields are the editable product attributes.
type Fields struct {
	Name        string
	Price       decimal.Decimal
	Stock       int
	CategoryID  *int64
	Description string
}

// CreateInput is the payload for Service.Create.
type CreateInput struct {
	Fields
	Images []storage.Upload
}

// UpdateInput is the payload for Service.Update.
type UpdateInput struct {
	Fields
	DeletedImageIDs []int64
	NewImages       []storage.Upload
}

// CreateResponse is returned on 201.
type CreateResponse struct {
	ID int64 `json:"id"`
}

// DeleteResponse is returned by the delete endpoint. CleanupPending counts
// stored objects whose removal was deferred to the worker.
type DeleteResponse struct {
	Deleted        int64 `json:"deleted"`
	CleanupPending int   `json:"cleanup_pending"`
}

func (f *Fields) normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Description = strings.TrimSpace(f.Description)
}

func (f Fields) validate() error {
	switch {
	case f.Name == "":
		return fmt.Errorf("%w: name is required", shared.ErrValidation)
	case len([]rune(f.Name)) > 150:
		return fmt.Errorf("%w: name must be at most 150 characters", shared.ErrValidation)
	case f.Price.IsNegative():
		return fmt.Errorf("%w: price must not be negative", shared.ErrValidation)
	case f.Stock < 0:
		return fmt.Errorf("%w: stock must not be negative", shared.ErrValidation)
	case f.CategoryID != nil && *f.CategoryID <= 0:
		return fmt.Errorf("%w: category_id must be positive", shared.ErrValidation)
	case len([]rune(f.Description)) > 2000:
		return fmt.Errorf("%w: description must be at most 2000 characters", shared.ErrValidation)
	}
	return nil
}

func (f Fields) product(id int64) Product {
	return Product{
		ID:          id,
		Name:        f.Name,
		Price:       f.Price,
		Stock:       f.Stock,
		CategoryID:  f.CategoryID,
		Description: f.Description,
	}
}
