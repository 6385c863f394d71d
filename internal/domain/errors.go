package domain

import "errors"

// Sentinel errors for list operations
var (
	// ErrMalformedResponse indicates a fetched payload is not array-shaped after conversion
	ErrMalformedResponse = errors.New("malformed response: payload is not a list")

	// ErrStaleRequest indicates a result belongs to a superseded epoch
	ErrStaleRequest = errors.New("request superseded by a newer query")

	// ErrSourceOffline indicates the data source is unreachable
	ErrSourceOffline = errors.New("data source is unreachable")

	// ErrAuthFailed indicates the data source rejected the credentials
	ErrAuthFailed = errors.New("authentication token is invalid")

	// ErrNoDataSource indicates the list has no data source configured
	ErrNoDataSource = errors.New("no data source configured")

	// ErrListReset indicates the epoch being waited on was reset before it finished
	ErrListReset = errors.New("list reset before lifecycle done")
)
