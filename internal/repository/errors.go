package repository

import "errors"

// Sentinel errors the service layer translates into coded application
// errors. Not-found covers both absent rows and rows owned by another
// user, since every query here is owner-scoped.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrTaskNotFound = errors.New("task not found")
	ErrTagNotFound  = errors.New("tag not found")

	// ErrDuplicate is returned on unique-constraint violations such as a
	// second tag with the same name for one user.
	ErrDuplicate = errors.New("duplicate row")
)
