package strategy

import (
	"github.com/adamdenes/tradesim/internal/indicator"
	"github.com/adamdenes/tradesim/internal/models"
)

// MeanReversionStrategy bets on the z-score of the close price reverting
// to zero. A position is opened only from Flat once |z| exceeds the entry
// threshold and closed only when z recrosses within the exit threshold of
// zero, so entry and exit form a hysteresis loop. This is the one strategy
// that cannot be expressed as a per-bar rule: the decision at each bar
// depends on the position carried from the previous one.
type MeanReversionStrategy struct {
	name     string
	lookback int
	zEntry   float64
	zExit    float64
}

func NewMeanReversionStrategy(lookback int, zEntry, zExit float64) (*MeanReversionStrategy, error) {
	if lookback < 2 {
		return nil, &models.InvalidParameterError{Name: "lookback", Reason: "must be at least 2"}
	}
	if zEntry <= 0 || zExit < 0 {
		return nil, &models.InvalidParameterError{Name: "z_entry", Reason: "thresholds must be positive"}
	}
	if zExit >= zEntry {
		return nil, &models.InvalidParameterError{
			Name:   "z_exit",
			Reason: "exit threshold must be inside the entry threshold",
		}
	}
	return &MeanReversionStrategy{
		name:     "mean-reversion",
		lookback: lookback,
		zEntry:   zEntry,
		zExit:    zExit,
	}, nil
}

func (s *MeanReversionStrategy) GetName() string { return s.name }

func (s *MeanReversionStrategy) MinBars() int { return s.lookback }

func (s *MeanReversionStrategy) GenerateSignals(series models.BarSeries) ([]models.Annotation, error) {
	if err := validateData(series); err != nil {
		return nil, err
	}

	anns := newAnnotations(len(series), "z_score")
	zscore := indicator.NewZScore(s.lookback)

	position := models.Flat
	for i, bar := range series {
		z, ok := zscore.Update(bar.Close)
		if !ok {
			// Undefined z-score never changes the position.
			anns[i].Position = position
			continue
		}
		anns[i].Indicators["z_score"] = z

		switch position {
		case models.Flat:
			if z < -s.zEntry {
				// Price stretched below the mean: buy the dip.
				anns[i].Signal = models.Buy
				position = models.Long
			} else if z > s.zEntry {
				// Price stretched above the mean: sell short.
				anns[i].Signal = models.Sell
				position = models.Short
			}
		case models.Long:
			if z > -s.zExit {
				anns[i].Signal = models.Sell
				position = models.Flat
			}
		case models.Short:
			if z < s.zExit {
				anns[i].Signal = models.Buy
				position = models.Flat
			}
		}
		anns[i].Position = position
	}

	return anns, nil
}
