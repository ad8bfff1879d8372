package licence

import (
	"errors"
	"fmt"
)

// ValidationError rejects a malformed grant request. Requests failing
// validation persist nothing and are never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("licence: invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a grant validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
