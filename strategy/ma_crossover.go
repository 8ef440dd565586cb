package strategy

import (
	"strings"

	"github.com/adamdenes/tradesim/internal/indicator"
	"github.com/adamdenes/tradesim/internal/models"
)

// movingAverage is the common shape of the SMA/EMA accumulators so the
// crossover strategy can swap them freely.
type movingAverage interface {
	Update(float64) (float64, bool)
}

// MACrossoverStrategy is the classic trend follower: Buy when the fast
// moving average crosses above the slow one (golden cross), Sell on the
// death cross. The averages are simple or exponential, selectable at
// construction.
type MACrossoverStrategy struct {
	name        string
	shortWindow int
	longWindow  int
	maType      string
}

func NewMACrossoverStrategy(shortWindow, longWindow int, maType string) (*MACrossoverStrategy, error) {
	if shortWindow < 1 || longWindow < 1 {
		return nil, &models.InvalidParameterError{Name: "window", Reason: "windows must be positive"}
	}
	if shortWindow >= longWindow {
		return nil, &models.InvalidParameterError{
			Name:   "short_window",
			Reason: "short window must be shorter than long window",
		}
	}
	maType = strings.ToUpper(maType)
	if maType != "SMA" && maType != "EMA" {
		return nil, &models.InvalidParameterError{Name: "ma_type", Reason: "must be SMA or EMA"}
	}
	return &MACrossoverStrategy{
		name:        "ma-crossover",
		shortWindow: shortWindow,
		longWindow:  longWindow,
		maType:      maType,
	}, nil
}

func (s *MACrossoverStrategy) GetName() string { return s.name }

// MinBars is one past the long window: the first defined pair cannot cross
// without a prior defined pair.
func (s *MACrossoverStrategy) MinBars() int { return s.longWindow + 1 }

func (s *MACrossoverStrategy) newMA(window int) movingAverage {
	if s.maType == "EMA" {
		return indicator.NewEMA(window)
	}
	return indicator.NewSMA(window)
}

func (s *MACrossoverStrategy) GenerateSignals(series models.BarSeries) ([]models.Annotation, error) {
	if err := validateData(series); err != nil {
		return nil, err
	}

	anns := newAnnotations(len(series), "ma_short", "ma_long")
	fast := s.newMA(s.shortWindow)
	slow := s.newMA(s.longWindow)

	var prevFast, prevSlow float64
	havePrev := false
	for i, bar := range series {
		fastVal, _ := fast.Update(bar.Close)
		slowVal, okSlow := slow.Update(bar.Close)
		if !okSlow {
			continue
		}
		anns[i].Indicators["ma_short"] = fastVal
		anns[i].Indicators["ma_long"] = slowVal

		if havePrev {
			if crossedOver(prevFast, prevSlow, fastVal, slowVal) {
				anns[i].Signal = models.Buy
			} else if crossedUnder(prevFast, prevSlow, fastVal, slowVal) {
				anns[i].Signal = models.Sell
			}
		}
		prevFast, prevSlow = fastVal, slowVal
		havePrev = true
	}

	forwardFillPositions(anns)
	return anns, nil
}
