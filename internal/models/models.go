package models

import (
	"fmt"
	"time"
)

// Signal is the directional trading decision derived for a single bar.
type Signal int8

const (
	Sell Signal = -1
	Hold Signal = 0
	Buy  Signal = 1
)

func (s Signal) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// Position tracks directional exposure after a bar has been processed.
// The base ledger only ever uses Flat/Long; Short exists for the
// mean reversion strategy's intended exposure.
type Position int8

const (
	Short Position = -1
	Flat  Position = 0
	Long  Position = 1
)

func (p Position) String() string {
	switch p {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// Bar is a single OHLCV observation for a fixed time interval.
type Bar struct {
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// BarSeries is a chronologically ordered sequence of bars. Treated as
// immutable once loaded; nothing in the kernel ever appends to it.
type BarSeries []Bar

// Validate checks the OHLCV shape of every bar: positive prices,
// non-negative volume and strictly increasing timestamps.
func (bs BarSeries) Validate() error {
	var prev time.Time
	for i, b := range bs {
		if b.OpenTime.IsZero() {
			return &DataShapeError{Index: i, Field: "open_time", Reason: "missing timestamp"}
		}
		if i > 0 && !b.OpenTime.After(prev) {
			return &DataShapeError{Index: i, Field: "open_time", Reason: "timestamps not strictly increasing"}
		}
		prev = b.OpenTime
		for _, f := range [...]struct {
			name  string
			value float64
		}{
			{"open", b.Open},
			{"high", b.High},
			{"low", b.Low},
			{"close", b.Close},
		} {
			if f.value <= 0 {
				return &DataShapeError{Index: i, Field: f.name, Reason: "price must be positive"}
			}
		}
		if b.Volume < 0 {
			return &DataShapeError{Index: i, Field: "volume", Reason: "volume must be non-negative"}
		}
	}
	return nil
}

// Closes extracts the close price column.
func (bs BarSeries) Closes() []float64 {
	closes := make([]float64, len(bs))
	for i, b := range bs {
		closes[i] = b.Close
	}
	return closes
}

// Annotation is the per-bar output of a strategy: the computed indicator
// set, the derived signal and the intended exposure after the bar.
// Undefined indicator values are NaN.
type Annotation struct {
	Signal     Signal
	Position   Position
	Indicators map[string]float64
}

// Trade is an immutable record of one executed order. Created only by the
// portfolio on successful execution.
type Trade struct {
	Timestamp  time.Time `json:"timestamp"`
	Side       Signal    `json:"side"`
	Price      float64   `json:"price"`
	Shares     int64     `json:"shares"`
	Commission float64   `json:"commission"`
}

// Value returns the total trade value including commission.
func (t Trade) Value() float64 {
	return t.Price*float64(t.Shares) + t.Commission
}

func (t Trade) String() string {
	return fmt.Sprintf("%s %s %d @ %.4f (commission %.4f)",
		t.Timestamp.Format(time.RFC3339), t.Side, t.Shares, t.Price, t.Commission)
}

// EquityPoint is one snapshot of total portfolio value, aligned one-to-one
// with processed bars.
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}
