package repository

import (
	"errors"

	"github.com/google/uuid"
)

// Sentinel errors shared by every repository implementation. Handlers map
// them to 404 and 409 at the HTTP boundary.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// validUUID reports whether s can be bound to a uuid column. The postgres
// repositories cast id params with ::uuid, so a malformed id must
// short-circuit to the same not-found/empty result the memory
// implementations give instead of surfacing a cast error.
func validUUID(s string) bool {
	return uuid.Validate(s) == nil
}

// OptionalString carries a tri-state string for partial updates:
// absent (Set=false), explicit NULL (Set=true, Value=nil), or a value.
type OptionalString struct {
	Set   bool
	Value *string
}

// SetString returns an OptionalString holding the given value.
func SetString(s string) OptionalString {
	return OptionalString{Set: true, Value: &s}
}

// SetNull returns an OptionalString that clears the column.
func SetNull() OptionalString {
	return OptionalString{Set: true}
}
