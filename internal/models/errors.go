package models

import (
	"errors"
	"fmt"
)

// ErrEmptySeries is returned when a backtest is started on a zero-length
// bar series.
var ErrEmptySeries = errors.New("bar series is empty")

// DataShapeError reports a bar series that does not satisfy the required
// OHLCV shape. It is fatal: no partial run is attempted.
type DataShapeError struct {
	Index  int
	Field  string
	Reason string
}

func (e *DataShapeError) Error() string {
	return fmt.Sprintf("invalid bar data at index %d: %s: %s", e.Index, e.Field, e.Reason)
}

// InvalidParameterError reports a strategy or portfolio parameter rejected
// at construction time.
type InvalidParameterError struct {
	Name   string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Name, e.Reason)
}
