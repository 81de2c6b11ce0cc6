package pipeline

import "errors"

var (
	ErrSolveFailed      = errors.New("network solve failed")
	ErrNoTimestamps     = errors.New("analysis window yields no timestamps")
	ErrAllUnitsFailed   = errors.New("every unit of work failed")
	ErrUnknownTool      = errors.New("unknown analysis tool")
	ErrLoadingInput     = errors.New("failed to load input")
	ErrWritingOutput    = errors.New("failed to write output")
	ErrComputingMetrics = errors.New("failed to compute accessibility")
)
