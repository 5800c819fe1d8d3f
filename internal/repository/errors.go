// Package repository defines the MySQL-backed credential store and the
// sentinel errors it returns. Higher layers use these values to tell a
// missing record from a uniqueness violation without inspecting driver
// errors themselves.
package repository

import "errors"

// ErrNotFound is returned when no account matches the lookup key.
var ErrNotFound = errors.New("account not found")

// ErrDuplicateAccount is returned when an insert collides with the unique
// username or email index. The collision is detected by the database, so two
// concurrent registrations can never both succeed.
var ErrDuplicateAccount = errors.New("account already exists")
