package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownDataset is returned for ids outside the fixed dataset set.
	ErrUnknownDataset = errors.New("unknown dataset")
	// ErrNotFound means the backing resource of a dataset does not exist.
	ErrNotFound = errors.New("dataset resource not found")
	// ErrNetwork means the backing resource could not be read.
	ErrNetwork = errors.New("dataset resource unreachable")
	// ErrParse means the resource is not a GeoJSON FeatureCollection.
	ErrParse = errors.New("malformed dataset")
	// ErrInvalidQuery is returned for out-of-range coordinates or radii.
	ErrInvalidQuery = errors.New("invalid query")

	ErrEmptyMessage    = errors.New("message must not be empty")
	ErrSessionNotFound = errors.New("chat session not found")
)

// IsDatasetUnavailable reports whether err is a fetch or parse failure.
func IsDatasetUnavailable(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrNetwork) || errors.Is(err, ErrParse)
}

// RemoteErrorKind classifies failures of the remote answer service.
type RemoteErrorKind string

const (
	RemoteAuth        RemoteErrorKind = "auth"
	RemoteForbidden   RemoteErrorKind = "forbidden"
	RemoteRateLimit   RemoteErrorKind = "rate_limit"
	RemoteServer      RemoteErrorKind = "server"
	RemoteRejected    RemoteErrorKind = "rejected"
	RemoteNetwork     RemoteErrorKind = "network"
	RemoteMalformed   RemoteErrorKind = "malformed"
	RemoteUnavailable RemoteErrorKind = "unavailable"
)

// RemoteServiceError is returned by AnswerService implementations.
type RemoteServiceError struct {
	Kind       RemoteErrorKind
	StatusCode int
	Err        error
}

func (e *RemoteServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote answer service: %s (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("remote answer service: %s: %v", e.Kind, e.Err)
}

func (e *RemoteServiceError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient.
func (e *RemoteServiceError) Retryable() bool {
	switch e.Kind {
	case RemoteRateLimit, RemoteServer, RemoteNetwork:
		return true
	}
	return false
}

// IsRetryableRemote reports whether err is a transient remote failure.
func IsRetryableRemote(err error) bool {
	var rerr *RemoteServiceError
	return errors.As(err, &rerr) && rerr.Retryable()
}
