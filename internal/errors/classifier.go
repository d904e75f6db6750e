package errors

import (
	"errors"
	"syscall"

	badger "github.com/dgraph-io/badger/v4"
)

// Category buckets errors for retry decisions.
type Category int

const (
	CategoryTransient  Category = iota // retry with backoff
	CategoryPermanent                  // no retry
	CategoryCritical                   // system-level, surface immediately
	CategoryValidation                 // bad input, no retry
)

func (c Category) String() string {
	switch c {
	case CategoryTransient:
		return "transient"
	case CategoryPermanent:
		return "permanent"
	case CategoryCritical:
		return "critical"
	case CategoryValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Classify buckets an error. Optimistic-transaction conflicts from the
// storage layer are the main transient case; everything unknown defaults
// to permanent so nothing retries by accident.
func Classify(err error) Category {
	if err == nil {
		return CategoryPermanent
	}

	if errors.Is(err, badger.ErrConflict) {
		return CategoryTransient
	}

	var sysErr syscall.Errno
	if errors.As(err, &sysErr) {
		switch sysErr {
		case syscall.EAGAIN, syscall.ENOMEM, syscall.ETIMEDOUT:
			return CategoryTransient
		case syscall.EIO, syscall.ENOSPC:
			return CategoryCritical
		}
	}

	switch {
	case errors.Is(err, ErrSchemaViolation), errors.Is(err, ErrInvalidDocument):
		return CategoryValidation
	case errors.Is(err, ErrDocExists),
		errors.Is(err, ErrDocNotFound),
		errors.Is(err, ErrPreconditionFailed),
		errors.Is(err, ErrEngineClosed),
		errors.Is(err, ErrQueryBusy):
		return CategoryPermanent
	}

	return CategoryPermanent
}

// ShouldRetry reports whether an error is worth retrying.
func ShouldRetry(err error) bool {
	return Classify(err) == CategoryTransient
}
