package solver

import "errors"

var (
	ErrNoSolution          = errors.New("no solution found")
	ErrUnknownKind         = errors.New("unknown solver kind")
	ErrMissingKeyField     = errors.New("observation is missing a key field")
	ErrMissingValue        = errors.New("observation has no numeric value")
	ErrDuplicateOrigin     = errors.New("duplicate origin id")
	ErrDuplicateDest       = errors.New("duplicate destination id")
	ErrNegativeWeight      = errors.New("destination weight must not be negative")
	ErrUnknownOrigin       = errors.New("observation names an origin outside the dataset")
	ErrUnknownDestination  = errors.New("observation names a destination outside the dataset")
	ErrReadingReplay       = errors.New("failed to read replay file")
	ErrInvalidReplay       = errors.New("invalid replay file")
	ErrReplayFatal         = errors.New("recorded solve failed fatally")
	ErrReadingPolygons     = errors.New("failed to read time lapse polygons")
	ErrInvalidPolygonInput = errors.New("invalid time lapse polygon feature")
)
