package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique constraint (username or email)
// would be violated.
var ErrDuplicate = errors.New("duplicate identity")

// ErrAlreadyReviewed is returned when a review is attempted against a
// submission that has already left the pending state.
var ErrAlreadyReviewed = errors.New("already reviewed")
