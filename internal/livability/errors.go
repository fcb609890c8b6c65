package livability

import "errors"

var (
	// Client input errors.
	ErrEmptyQuery        = errors.New("query parameter is required")
	ErrLocationNotFound  = errors.New("address/location not found, please try again")
	ErrInvalidCoordinate = errors.New("coordinate out of range")
	ErrUnknownZip        = errors.New("zip code not found")

	// ErrNoMatch means no reference record lies within the distance threshold.
	ErrNoMatch = errors.New("no reference zip within distance threshold")
	// ErrNoData means a joiner found no matching row for its key.
	ErrNoData = errors.New("no matching data")

	ErrReferenceUnavailable = errors.New("reference data not loaded")
	ErrUnparseableReply     = errors.New("oracle reply has no parseable score object")
	ErrScoreOutOfRange      = errors.New("oracle score out of range")
	ErrScoring              = errors.New("failed to generate score")
)

// IsClientInput reports whether err should be surfaced as a client error.
func IsClientInput(err error) bool {
	return errors.Is(err, ErrEmptyQuery) ||
		errors.Is(err, ErrLocationNotFound) ||
		errors.Is(err, ErrInvalidCoordinate) ||
		errors.Is(err, ErrUnknownZip)
}
