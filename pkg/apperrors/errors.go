package apperrors

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrGroupNotPending    = errors.New("group is not pending")
	ErrInvalidMergeTarget = errors.New("merge target is not a member of the group")
	ErrScanInProgress     = errors.New("a scan is already in progress")
)
