package products

import (
	"fmt"

	"github.com/alesteb/alesteb-api/internal/shared"
)

// Catalog rule violations.
var (
	ErrImageRequired = fmt.Errorf("%w: a product must keep at least one image", shared.ErrValidation)
	ErrTooManyImages = fmt.Errorf("%w: too many images", shared.ErrValidation)
	ErrNotFound      = fmt.Errorf("%w: product not found", shared.ErrNotFound)
)
