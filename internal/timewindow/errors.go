package timewindow

import "errors"

var (
	ErrMalformedTime        = errors.New("time of day must be HH:MM or HH:MM:SS")
	ErrMalformedDay         = errors.New("day must be a weekday name or a YYYY-MM-DD date")
	ErrNonPositiveIncrement = errors.New("time increment must be positive")
	ErrEndBeforeStart       = errors.New("end day and time must not be before start day and time")
	ErrWeekdayMismatch      = errors.New("generic weekday windows must start and end on the same weekday")
	ErrMixedDayKinds        = errors.New("start and end day must both be weekdays or both be dates")
	ErrTooManyTimestamps    = errors.New("analysis window yields too many timestamps")
)
