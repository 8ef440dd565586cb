package strategy

import (
	"github.com/adamdenes/tradesim/internal/indicator"
	"github.com/adamdenes/tradesim/internal/models"
)

// BollingerStrategy fades band touches: Buy when the close is at or below
// the lower band, Sell when it is at or above the upper band. While a
// position is open, a recross of the middle band flattens it early, which
// is a tighter exit than waiting for the opposite band.
type BollingerStrategy struct {
	name   string
	period int
	stdDev float64
}

func NewBollingerStrategy(period int, stdDev float64) (*BollingerStrategy, error) {
	if period < 2 {
		return nil, &models.InvalidParameterError{Name: "period", Reason: "must be at least 2"}
	}
	if stdDev <= 0 {
		return nil, &models.InvalidParameterError{Name: "std_dev", Reason: "must be positive"}
	}
	return &BollingerStrategy{
		name:   "bollinger",
		period: period,
		stdDev: stdDev,
	}, nil
}

func (s *BollingerStrategy) GetName() string { return s.name }

func (s *BollingerStrategy) MinBars() int { return s.period }

func (s *BollingerStrategy) GenerateSignals(series models.BarSeries) ([]models.Annotation, error) {
	if err := validateData(series); err != nil {
		return nil, err
	}

	anns := newAnnotations(len(series), "bb_upper", "bb_middle", "bb_lower", "bb_width")
	bb := indicator.NewBollinger(s.period, s.stdDev)

	position := models.Flat
	for i, bar := range series {
		bands, ok := bb.Update(bar.Close)
		if !ok {
			continue
		}
		anns[i].Indicators["bb_upper"] = bands.Upper
		anns[i].Indicators["bb_middle"] = bands.Middle
		anns[i].Indicators["bb_lower"] = bands.Lower
		anns[i].Indicators["bb_width"] = bands.Width

		switch {
		case bar.Close <= bands.Lower:
			anns[i].Signal = models.Buy
			position = models.Long
		case bar.Close >= bands.Upper:
			anns[i].Signal = models.Sell
			position = models.Flat
		case position == models.Long && bar.Close > bands.Middle:
			// Middle band recross while long: flatten instead of riding
			// the move to the upper band.
			anns[i].Signal = models.Sell
			position = models.Flat
		}
		anns[i].Position = position
	}

	return anns, nil
}
