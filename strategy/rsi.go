package strategy

import (
	"github.com/adamdenes/tradesim/internal/indicator"
	"github.com/adamdenes/tradesim/internal/models"
)

// RSIStrategy trades overbought/oversold conditions: Buy while the RSI is
// below the oversold threshold, Sell while it is above the overbought one.
type RSIStrategy struct {
	name       string
	period     int
	oversold   float64
	overbought float64
}

func NewRSIStrategy(period int, oversold, overbought float64) (*RSIStrategy, error) {
	if period < 2 {
		return nil, &models.InvalidParameterError{Name: "period", Reason: "must be at least 2"}
	}
	if oversold >= overbought {
		return nil, &models.InvalidParameterError{
			Name:   "oversold",
			Reason: "oversold threshold must be below overbought threshold",
		}
	}
	return &RSIStrategy{
		name:       "rsi",
		period:     period,
		oversold:   oversold,
		overbought: overbought,
	}, nil
}

func (s *RSIStrategy) GetName() string { return s.name }

// MinBars is period+1 because the RSI consumes one bar priming the first
// price change.
func (s *RSIStrategy) MinBars() int { return s.period + 1 }

func (s *RSIStrategy) GenerateSignals(series models.BarSeries) ([]models.Annotation, error) {
	if err := validateData(series); err != nil {
		return nil, err
	}

	anns := newAnnotations(len(series), "rsi")
	rsi := indicator.NewRSI(s.period)

	for i, bar := range series {
		value, ok := rsi.Update(bar.Close)
		if !ok {
			continue
		}
		anns[i].Indicators["rsi"] = value
		switch {
		case value < s.oversold:
			anns[i].Signal = models.Buy
		case value > s.overbought:
			anns[i].Signal = models.Sell
		}
	}

	forwardFillPositions(anns)
	return anns, nil
}
