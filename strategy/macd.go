package strategy

import (
	"github.com/adamdenes/tradesim/internal/indicator"
	"github.com/adamdenes/tradesim/internal/models"
)

// MACDStrategy trades crossings of the MACD line against its signal line:
// Buy on the bar where the MACD line crosses above, Sell on the downward
// cross. Every other bar is Hold.
type MACDStrategy struct {
	name         string
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

func NewMACDStrategy(fastPeriod, slowPeriod, signalPeriod int) (*MACDStrategy, error) {
	if fastPeriod < 1 || slowPeriod < 1 || signalPeriod < 1 {
		return nil, &models.InvalidParameterError{Name: "period", Reason: "periods must be positive"}
	}
	if fastPeriod >= slowPeriod {
		return nil, &models.InvalidParameterError{
			Name:   "fast_period",
			Reason: "fast period must be shorter than slow period",
		}
	}
	return &MACDStrategy{
		name:         "macd",
		fastPeriod:   fastPeriod,
		slowPeriod:   slowPeriod,
		signalPeriod: signalPeriod,
	}, nil
}

func (s *MACDStrategy) GetName() string { return s.name }

// MinBars covers the slow EMA seed plus the signal line seed and the prior
// bar needed for crossing detection.
func (s *MACDStrategy) MinBars() int { return s.slowPeriod + s.signalPeriod }

func (s *MACDStrategy) GenerateSignals(series models.BarSeries) ([]models.Annotation, error) {
	if err := validateData(series); err != nil {
		return nil, err
	}

	anns := newAnnotations(len(series), "macd", "macd_signal", "macd_hist")
	macd := indicator.NewMACD(s.fastPeriod, s.slowPeriod, s.signalPeriod)

	var prev indicator.MACDValue
	havePrev := false
	for i, bar := range series {
		value, ok := macd.Update(bar.Close)
		if !ok {
			continue
		}
		anns[i].Indicators["macd"] = value.MACD
		anns[i].Indicators["macd_signal"] = value.Signal
		anns[i].Indicators["macd_hist"] = value.Histogram

		if havePrev {
			if crossedOver(prev.MACD, prev.Signal, value.MACD, value.Signal) {
				anns[i].Signal = models.Buy
			} else if crossedUnder(prev.MACD, prev.Signal, value.MACD, value.Signal) {
				anns[i].Signal = models.Sell
			}
		}
		prev = value
		havePrev = true
	}

	forwardFillPositions(anns)
	return anns, nil
}
