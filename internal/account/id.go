package account

import (
	"fmt"

	"github.com/google/uuid"
)

// ID identifies an account aggregate. It is a canonical lowercase UUID string.
type ID string

// NewID generates a fresh random account identifier.
func NewID() ID {
	return ID(uuid.NewString())
}

// ParseID validates s as a UUID and returns its canonical form.
func ParseID(s string) (ID, error) {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return ID(parsed.String()), nil
}

func (id ID) String() string {
	return string(id)
}
