package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrEmptyBaseURL is returned when no page base URL is configured.
	ErrEmptyBaseURL = errors.New("invalid base URL: must not be empty")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid worker count: must be positive")

	// ErrInvalidTimeout is returned when the per-fetch timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is not positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")

	// ErrEmptyRootKey is returned when the tree root key is empty.
	ErrEmptyRootKey = errors.New("invalid root key: must not be empty")

	// ErrNoOutputFormat is returned when no output format is selected.
	ErrNoOutputFormat = errors.New("no output format selected")

	// ErrUnknownFormat is returned for an output format mdscrape cannot write.
	ErrUnknownFormat = errors.New("unknown output format: use csv, json, xlsx or markdown")

	// ErrEmptyDBDir is returned when saving to the database without a directory.
	ErrEmptyDBDir = errors.New("database directory must not be empty when saving runs")
)
