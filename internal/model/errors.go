package model

import "errors"

// Fatal error classes. Both abort the run before any tiling work starts;
// everything else in the pipeline is contained at the tile boundary and
// recorded as a FailureRecord instead.
var (
	// ErrResolution marks a location that cannot be geocoded to a unique area.
	ErrResolution = errors.New("location resolution failed")

	// ErrInvalidConfig marks a bad run parameter such as a non-positive
	// tile size or an unknown driving side.
	ErrInvalidConfig = errors.New("invalid configuration")
)
