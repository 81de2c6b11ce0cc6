package sink

import "errors"

var (
	ErrUnknownDriver   = errors.New("unsupported SQL driver")
	ErrOpeningDatabase = errors.New("failed to open output database")
	ErrCreatingTable   = errors.New("failed to create output table")
	ErrWritingRows     = errors.New("failed to write output rows")
	ErrPublishing      = errors.New("failed to publish output records")
	ErrWritingFile     = errors.New("failed to write output file")
	ErrNoSinks         = errors.New("no output sink configured")
)
