package coverage

import "errors"

var (
	ErrNonPositiveCellSize = errors.New("cell size must be positive")
	ErrGridTooLarge        = errors.New("grid exceeds the maximum cell count")
	ErrEmptyGeometry       = errors.New("time slice has no polygon geometry")
	ErrInvalidGeometry     = errors.New("time slice geometry has non-finite coordinates")
	ErrInvalidThreshold    = errors.New("threshold percentage must be in (0, 100]")
	ErrNoTimeSlices        = errors.New("total time slices must be positive")
	ErrMixedGroups         = errors.New("slices from different facility groups cannot share a grid")
)
