package admin

import "errors"

var (
	ErrInvalidEvent = errors.New("invalid event")
	ErrEmptyPlan    = errors.New("empty section plan")
)
