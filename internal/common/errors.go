package common

import "errors"

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrForbidden      = errors.New("you do not have permission to perform this action")
)
