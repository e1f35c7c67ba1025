// Package retry classifies failures into a closed taxonomy and retries the
// recoverable ones with exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strings"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// Kind is the failure category.
type Kind string

const (
	KindInsufficientData Kind = "insufficient-data"
	KindCalculation      Kind = "calculation-error"
	KindNetwork          Kind = "network-error"
	KindPermission       Kind = "permission-error"
	KindUnknown          Kind = "unknown"
)

// DefaultMinDataPoints is the fewest check-ins analytics can be built from.
const DefaultMinDataPoints = 1

var (
	// ErrInsufficientData marks a habit without enough history.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrPermissionDenied marks a rejected read of someone's records.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrOffline is returned when a fetch is skipped because the device is offline.
	ErrOffline = errors.New("network unavailable: device is offline")
)

// InsufficientDataError reports how much data was found versus required.
type InsufficientDataError struct {
	Required int
	Actual   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d data points, need %d", e.Actual, e.Required)
}

// Is lets errors.Is match ErrInsufficientData.
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// Error is a classified failure.
type Error struct {
	Kind          Kind
	Message       string
	CanRetry      bool
	MinDataPoints int

	// Set once retries are exhausted.
	Attempts  int
	Operation string
	FailedAt  time.Time

	Err error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Attempts > 0 {
		return fmt.Sprintf("%s failed after %d attempts: %s", e.Operation, e.Attempts, msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a classified error.
func New(kind Kind, err error, canRetry bool) *Error {
	return &Error{Kind: kind, Message: messageFor(kind, 0), CanRetry: canRetry, Err: err}
}

func messageFor(kind Kind, minDataPoints int) string {
	switch kind {
	case KindInsufficientData:
		if minDataPoints <= 0 {
			minDataPoints = DefaultMinDataPoints
		}
		return fmt.Sprintf("Not enough data to calculate analytics. At least %d check-ins are required.",
			minDataPoints)
	case KindCalculation:
		return "Analytics could not be calculated"
	case KindNetwork:
		return "Network problem while loading analytics"
	case KindPermission:
		return "You do not have permission to view these analytics"
	default:
		return "Unexpected error while loading analytics"
	}
}

// mongo server error codes for failed authentication and authorization.
var mongoPermissionCodes = []int{13, 18}

// Classify maps any error onto the taxonomy. Already classified errors are
// returned unchanged.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	var insufficient *InsufficientDataError
	if errors.As(err, &insufficient) {
		e := New(KindInsufficientData, err, false)
		e.MinDataPoints = insufficient.Required
		e.Message = messageFor(KindInsufficientData, insufficient.Required)
		return e
	}
	if errors.Is(err, ErrInsufficientData) {
		e := New(KindInsufficientData, err, false)
		e.MinDataPoints = DefaultMinDataPoints
		return e
	}

	if errors.Is(err, context.Canceled) {
		return New(KindUnknown, err, false)
	}

	if isPermission(err) {
		return New(KindPermission, err, false)
	}
	if isNetwork(err) {
		return New(KindNetwork, err, true)
	}

	return New(KindUnknown, err, true)
}

func isPermission(err error) bool {
	if errors.Is(err, ErrPermissionDenied) || errors.Is(err, fs.ErrPermission) {
		return true
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		for _, code := range mongoPermissionCodes {
			if se.HasErrorCode(code) {
				return true
			}
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "permission") ||
		strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "forbidden")
}

func isNetwork(err error) bool {
	if errors.Is(err, ErrOffline) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "network") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection")
}
