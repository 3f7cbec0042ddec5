package domain

import "errors"

var (
	ErrInvalidCommunity = errors.New("invalid_community")
	ErrInvalidPeriod    = errors.New("invalid_period")
	ErrSnapshotNotFound = errors.New("snapshot_not_found")
	ErrSyncInProgress   = errors.New("sync_in_progress")
	ErrNotFound         = errors.New("not_found")
)
