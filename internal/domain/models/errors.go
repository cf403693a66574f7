package models

import "errors"

var (
	// ErrConflict is returned when a baseline changed between read and write.
	ErrConflict = errors.New("baseline version conflict")

	// ErrUnknownMetric is returned for metric types missing from the catalog.
	ErrUnknownMetric = errors.New("unknown metric type")

	// ErrInvalidObservation rejects non-finite values and empty identities.
	ErrInvalidObservation = errors.New("invalid observation")

	ErrInvalidThreshold = errors.New("invalid threshold override")

	// ErrBaselineNotFound is returned by operations that require an existing baseline.
	ErrBaselineNotFound = errors.New("baseline not found")
)
