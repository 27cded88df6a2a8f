package domain

import (
	"errors"
	"fmt"
)

// ErrStructuralViolation is returned when a mutation would break the tree shape
// (cycles, operations on content-less nodes, removing the root).
var ErrStructuralViolation = errors.New("structural violation")

// ErrValidation is returned when a persisted tree is malformed.
var ErrValidation = errors.New("validation error")

// ErrStaleHandle is returned when a handle refers to an element that no longer exists.
var ErrStaleHandle = errors.New("stale handle")

// ErrTreeNotFound is returned when a tree name cannot be found in the store.
var ErrTreeNotFound = errors.New("tree not found")

// ErrTreeExists is returned when creating a tree under a name that is already taken.
var ErrTreeExists = errors.New("tree already exists")

// ErrLockHeld is returned when another editor session holds the tree.
var ErrLockHeld = errors.New("tree is locked by another session")

// ErrLockLost is returned when a held lock expired before it could be renewed.
var ErrLockLost = errors.New("tree lock was lost")

// StructuralError describes a rejected mutation. The tree is left unmodified.
type StructuralError struct {
	Op     string
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrStructuralViolation, e.Op, e.Reason)
}

func (e *StructuralError) Unwrap() error {
	return ErrStructuralViolation
}

// Violation is a shorthand for building a StructuralError.
func Violation(op, format string, args ...any) error {
	return &StructuralError{Op: op, Reason: fmt.Sprintf(format, args...)}
}
