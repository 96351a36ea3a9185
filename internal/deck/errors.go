package deck

import "errors"

var (
	// ErrStoreUnavailable wraps failures to open or read the backing store
	// while a deck is loaded. No deck state is kept when it is returned.
	ErrStoreUnavailable = errors.New("deck: store unavailable")
	// ErrInvalidConfiguration is returned by setters that reject a value.
	// The previous configuration stays in effect.
	ErrInvalidConfiguration = errors.New("deck: invalid configuration")
	// ErrInvalidEase is returned for grades outside 1..4.
	ErrInvalidEase = errors.New("deck: invalid ease")
	// ErrCardNotFound is returned when a card id does not exist.
	ErrCardNotFound = errors.New("deck: card not found")
)
