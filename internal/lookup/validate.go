package lookup

import "errors"

// Local input validation. These are rejected before any network call; the
// caller shows the message and the user re-triggers the action.
var (
	ErrEmptyEAN     = errors.New("ean must not be empty")
	ErrEmptyName    = errors.New("name must not be empty")
	ErrInvalidQty   = errors.New("quantity must be greater than zero")
	ErrEmptyPayload = errors.New("image payload must not be empty")
)

// ValidateSave checks an edited article before it is sent to the store.
func ValidateSave(ean, name string, qty float64) error {
	if ean == "" {
		return ErrEmptyEAN
	}
	if name == "" {
		return ErrEmptyName
	}
	if qty <= 0 {
		return ErrInvalidQty
	}
	return nil
}
