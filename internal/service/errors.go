package service

import "errors"

var (
	ErrScheduleConflict  = errors.New("schedule conflicts with an existing booking")
	ErrEmptySchedule     = errors.New("booking has no days to book")
	ErrPastDate          = errors.New("booking date is in the past")
	ErrDateTooFar        = errors.New("booking date is too far in the future")
	ErrInvalidTransition = errors.New("invalid booking status transition")
)
