package shared

import "errors"

// Error taxonomy shared by every module. Packages wrap these with context,
// e.g. fmt.Errorf("%w: name is required", shared.ErrValidation), and the
// HTTP layer maps them to status codes with errors.Is.
var (
	// ErrValidation indicates malformed input or an unsatisfied business rule.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates the referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized indicates a missing or invalid credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates a valid credential without enough privilege.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict indicates a uniqueness violation.
	ErrConflict = errors.New("conflict")
	// ErrDatabase wraps any other persistence failure.
	ErrDatabase = errors.New("database error")
	// ErrExternalService indicates an image store or mail provider failure.
	ErrExternalService = errors.New("external service error")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// UserSafeMessage returns a message that can be shown to API clients
// regardless of environment.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrForbidden),
		errors.Is(err, ErrUnauthorized):
		return err.Error()
	case errors.Is(err, ErrExternalService):
		return "upstream service unavailable"
	default:
		return "internal server error"
	}
}
