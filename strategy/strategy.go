// Package strategy contains the signal generation rules that drive the
// backtest engine. Every strategy maps a bar series to one Annotation per
// bar; the engine decides what to execute.
package strategy

import (
	"math"

	"github.com/adamdenes/tradesim/internal/models"
)

// Strategy is the contract every trading rule must satisfy.
type Strategy interface {
	// GetName returns the strategy identifier used in logs and reports.
	GetName() string

	// MinBars returns the number of bars the strategy needs before it can
	// emit its first defined signal. Bars before that always annotate as
	// Hold/Flat.
	MinBars() int

	// GenerateSignals computes the indicator set, signal and intended
	// position for every bar of the series. It fails with a DataShapeError
	// when the series does not satisfy the OHLCV shape.
	GenerateSignals(series models.BarSeries) ([]models.Annotation, error)
}

// validateData checks the OHLCV shape before any signal is produced.
// Shared by all strategies so a malformed series never yields a partial run.
func validateData(series models.BarSeries) error {
	return series.Validate()
}

// newAnnotations allocates one Hold/Flat annotation per bar with the given
// indicator keys preset to NaN.
func newAnnotations(n int, keys ...string) []models.Annotation {
	anns := make([]models.Annotation, n)
	for i := range anns {
		indicators := make(map[string]float64, len(keys))
		for _, k := range keys {
			indicators[k] = math.NaN()
		}
		anns[i] = models.Annotation{
			Signal:     models.Hold,
			Position:   models.Flat,
			Indicators: indicators,
		}
	}
	return anns
}

// forwardFillPositions derives the intended exposure for directional
// strategies: the position after each bar is carried from the last
// non-Hold signal, where Buy opens Long and Sell returns to Flat.
func forwardFillPositions(anns []models.Annotation) {
	position := models.Flat
	for i := range anns {
		switch anns[i].Signal {
		case models.Buy:
			position = models.Long
		case models.Sell:
			position = models.Flat
		}
		anns[i].Position = position
	}
}

// crossedOver reports a strict upward cross: at or below on the previous
// bar, strictly above on the current one.
func crossedOver(prevA, prevB, curA, curB float64) bool {
	return prevA <= prevB && curA > curB
}

// crossedUnder is the symmetric downward cross.
func crossedUnder(prevA, prevB, curA, curB float64) bool {
	return prevA >= prevB && curA < curB
}
