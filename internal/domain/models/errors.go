package models

import "errors"

var (
	// ErrFetchFailed marks an instrument whose history could not be obtained.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrComputeFailed marks an instrument whose indicators could not be computed.
	ErrComputeFailed = errors.New("compute failed")
	// ErrEmptyResult is returned by sources that answered without observations.
	ErrEmptyResult = errors.New("empty result")
	// ErrBatchFailed is returned when no instrument in a run succeeded.
	ErrBatchFailed = errors.New("batch failed: no instrument succeeded")
)
