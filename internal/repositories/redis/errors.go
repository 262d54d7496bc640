package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Error implements repositories.RepositoryError for Redis backed repositories.
type Error struct {
	op          string
	err         error
	notFound    bool
	conflict    bool
	unavailable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.op != "" {
		return fmt.Sprintf("%s: %v", e.op, e.err)
	}
	return e.err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// IsNotFound reports whether the error represents a missing key.
func (e *Error) IsNotFound() bool {
	return e != nil && e.notFound
}

// IsConflict reports whether the error represents a concurrent update.
func (e *Error) IsConflict() bool {
	return e != nil && e.conflict
}

// IsUnavailable reports whether the error represents a backend outage.
func (e *Error) IsUnavailable() bool {
	return e != nil && e.unavailable
}

func notFoundError(op string) error {
	return &Error{op: op, err: errors.New("key not found"), notFound: true}
}

func conflictError(op string) error {
	return &Error{op: op, err: errors.New("concurrent modification"), conflict: true}
}

// WrapError annotates Redis errors with repository semantics. Context
// cancellations are passed through.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var repoErr *Error
	if errors.As(err, &repoErr) {
		if op != "" && repoErr.op == "" {
			repoErr.op = op
		}
		return repoErr
	}

	e := &Error{op: op, err: err}
	switch {
	case errors.Is(err, redis.Nil):
		e.notFound = true
	case errors.Is(err, redis.TxFailedErr):
		e.conflict = true
	default:
		e.unavailable = true
	}
	return e
}
