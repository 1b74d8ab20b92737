package endpoints

import "errors"

var (
	// ErrSetNotFound indicates the provider has no endpoint set with the requested name.
	ErrSetNotFound = errors.New("endpoints: set not found")
	// ErrProviderUnavailable indicates the provider could not be reached or used.
	ErrProviderUnavailable = errors.New("endpoints: provider unavailable")
	// ErrFetchFailed indicates a provider failure other than unavailability.
	ErrFetchFailed = errors.New("endpoints: fetch failed")
)
