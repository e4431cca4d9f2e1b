package ranking

import (
	"errors"
	"fmt"
)

// ErrInvalidInput matches every *InvalidInputError via errors.Is.
var ErrInvalidInput = errors.New("invalid ranking input")

// InvalidInputError reports the first record that made a ranking call unusable.
// FamilyID is empty when the disaster location itself is invalid.
type InvalidInputError struct {
	FamilyID string
	Index    int
	Field    string
	Reason   string
}

func (e *InvalidInputError) Error() string {
	if e.FamilyID == "" && e.Field == "disaster" {
		return fmt.Sprintf("invalid ranking input: disaster: %s", e.Reason)
	}
	return fmt.Sprintf("invalid ranking input: family %q (index %d): %s: %s", e.FamilyID, e.Index, e.Field, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}
