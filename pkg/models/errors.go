package models

import "errors"

// ErrInvalidConfig is returned for non-positive counts, out-of-range levels
// and unknown granularity, metric, trend or category tokens.
var ErrInvalidConfig = errors.New("invalid configuration")
