package domain

import "errors"

var (
	ErrRefreshInProgress = errors.New("a refresh is already in progress")
	ErrRunNotFound       = errors.New("refresh run not found")
	ErrProjectNotFound   = errors.New("project not found")
)
