package selector

import (
	"errors"
	"fmt"
)

var (
	// ErrEntityNotInformed is returned when the root entity is nil.
	ErrEntityNotInformed = errors.New("Entity not informed.")
	// ErrNoFieldsInformed is returned when no usable path remains after
	// trimming and filtering the field input.
	ErrNoFieldsInformed = errors.New("You must inform at least one field.")
	// ErrFieldNotFound matches every *FieldNotFoundError and *MergeError.
	ErrFieldNotFound = errors.New("field not found")
	// ErrEntityNotObject is returned when the root entity is a list or a
	// scalar instead of an object.
	ErrEntityNotObject = errors.New("entity must be an object")
)

// FieldNotFoundError reports a path segment that matches neither an alias
// nor a literal attribute name of the node it was resolved against.
type FieldNotFoundError struct {
	Field string
}

func (e *FieldNotFoundError) Error() string {
	return fmt.Sprintf("Field '%s' not found.", e.Field)
}

func (e *FieldNotFoundError) Is(target error) bool { return target == ErrFieldNotFound }

// InvalidPathError reports a path containing an empty segment, such as
// "author..id" or "author.".
type InvalidPathError struct {
	Path string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid path '%s': empty segment", e.Path)
}

// MergeError reports two projections of the same collection that disagree
// on its length. Projections of one source graph never produce this; it
// signals a malformed merge.
type MergeError struct {
	Key  string
	Want int
	Got  int
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("cannot merge '%s': list length %d does not match %d", e.Key, e.Got, e.Want)
}

func (e *MergeError) Is(target error) bool { return target == ErrFieldNotFound }
