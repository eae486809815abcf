package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRoomExists     = errors.New("room already registered")
	ErrRoomNotFound   = errors.New("room not found")
	ErrNotInVoice     = errors.New("not in a voice channel")
	ErrNotTempRoom    = errors.New("not a temporary room")
	ErrTargetAbsent   = errors.New("target is not in the room")
	ErrChannelMissing = errors.New("channel does not exist")
	ErrEmptyName      = errors.New("name empty")
)

// AuthorizationError means the caller lacks the ownership, co-ownership or
// absence condition an operation requires. No state was changed.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string { return "not authorized: " + e.Reason }

// NotFoundError means the room or target the operation needs could not be resolved.
type NotFoundError struct {
	What string
	Err  error
}

func (e *NotFoundError) Error() string { return e.What + " not found" }

func (e *NotFoundError) Unwrap() error { return e.Err }

// PlatformError wraps a failed call to the chat platform.
type PlatformError struct {
	Op  string
	Err error
}

func (e *PlatformError) Error() string { return fmt.Sprintf("platform %s: %v", e.Op, e.Err) }

func (e *PlatformError) Unwrap() error { return e.Err }

// PersistenceError means the store flush after an in-memory mutation failed.
// The mutation itself stays applied.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string { return "persist: " + e.Err.Error() }

func (e *PersistenceError) Unwrap() error { return e.Err }

func Unauthorized(reason string) error { return &AuthorizationError{Reason: reason} }

func NotFound(what string, err error) error { return &NotFoundError{What: what, Err: err} }

func Platform(op string, err error) error { return &PlatformError{Op: op, Err: err} }
