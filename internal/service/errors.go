package service

import "errors"

var (
	ErrNoModelInput     = errors.New("for a 3D model, provide photo URLs or a video URL")
	ErrRetryNotAllowed  = errors.New("3D processing can only be retried for a failed listing")
	ErrListingNotFound  = errors.New("listing not found")
	ErrInvalidListings  = errors.New("invalid listing ids")
	ErrQueueUnavailable = errors.New("3D processing could not be queued")
	ErrAssetNotOwned    = errors.New("asset does not belong to seller")
)
