package domain

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrUserNotFound          = errors.New("user not found")
	ErrUnknownBusiness       = errors.New("unknown business")
	ErrUnknownRecommendation = errors.New("unknown recommendation")
	ErrInvalidText           = errors.New("recommendation text must be between 1 and 140 characters")
	ErrInvalidImageRef       = errors.New("image must be an uploaded object store reference")
	ErrInvalidReferrer       = errors.New("referrer is not the creator of the recommendation")
	ErrAlreadyClaimed        = errors.New("offer already claimed")
	ErrInvalidBusiness       = errors.New("business id and name are required")
)

// IsValidation reports whether err is a caller error that must not be retried.
func IsValidation(err error) bool {
	return errors.Is(err, ErrUnknownBusiness) ||
		errors.Is(err, ErrUnknownRecommendation) ||
		errors.Is(err, ErrInvalidText) ||
		errors.Is(err, ErrInvalidImageRef) ||
		errors.Is(err, ErrInvalidReferrer) ||
		errors.Is(err, ErrInvalidBusiness) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrNotFound)
}

// IsConflict reports whether err is a terminal business outcome such as a
// second claim of the same offer.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyClaimed)
}
