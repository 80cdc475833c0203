package billing

import "errors"

var (
	// ErrInvalidDraft is matched by every InvalidDraftError.
	ErrInvalidDraft = errors.New("invalid draft")

	// ErrInvalidItem means an admin edit carried an unusable value.
	ErrInvalidItem = errors.New("invalid item")
)

// InvalidDraftError reports why a draft could not be committed.
type InvalidDraftError struct {
	Reason string
}

func (e *InvalidDraftError) Error() string {
	return "cannot generate bill: " + e.Reason
}

func (e *InvalidDraftError) Unwrap() error {
	return ErrInvalidDraft
}
