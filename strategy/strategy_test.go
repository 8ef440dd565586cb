package strategy

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/adamdenes/tradesim/internal/models"
)

func testSeries(closes ...float64) models.BarSeries {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	series := make(models.BarSeries, len(closes))
	for i, c := range closes {
		series[i] = models.Bar{
			OpenTime: start.AddDate(0, 0, i),
			Open:     c,
			High:     c,
			Low:      c,
			Close:    c,
			Volume:   1000,
		}
	}
	return series
}

// wavySeries oscillates around a level so every strategy eventually has
// something to react to.
func wavySeries(n int) models.BarSeries {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + 20*math.Sin(float64(i)/3)
	}
	return testSeries(closes...)
}

func TestConstructorValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		build func() (Strategy, error)
	}{
		{"rsi period too small", func() (Strategy, error) { return NewRSIStrategy(1, 30, 70) }},
		{"rsi thresholds inverted", func() (Strategy, error) { return NewRSIStrategy(14, 70, 30) }},
		{"macd zero period", func() (Strategy, error) { return NewMACDStrategy(0, 26, 9) }},
		{"macd fast not below slow", func() (Strategy, error) { return NewMACDStrategy(26, 12, 9) }},
		{"crossover windows inverted", func() (Strategy, error) { return NewMACrossoverStrategy(200, 50, "SMA") }},
		{"crossover bad ma type", func() (Strategy, error) { return NewMACrossoverStrategy(50, 200, "WMA") }},
		{"bollinger period too small", func() (Strategy, error) { return NewBollingerStrategy(1, 2.0) }},
		{"bollinger non-positive stddev", func() (Strategy, error) { return NewBollingerStrategy(20, 0) }},
		{"mean reversion exit outside entry", func() (Strategy, error) { return NewMeanReversionStrategy(20, 1.0, 2.0) }},
		{"mean reversion negative entry", func() (Strategy, error) { return NewMeanReversionStrategy(20, -1.0, 0.5) }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := tt.build()
			var paramErr *models.InvalidParameterError
			if !errors.As(err, &paramErr) {
				t.Errorf("got %v, want InvalidParameterError", err)
			}
		})
	}
}

func TestWarmupEmitsNoSignals(t *testing.T) {
	t.Parallel()

	series := wavySeries(40)

	strategies := []Strategy{
		mustStrategy(NewRSIStrategy(5, 30, 70)),
		mustStrategy(NewMACDStrategy(3, 6, 3)),
		mustStrategy(NewMACrossoverStrategy(3, 6, "SMA")),
		mustStrategy(NewBollingerStrategy(5, 2.0)),
		mustStrategy(NewMeanReversionStrategy(5, 1.5, 0.5)),
	}

	for _, strat := range strategies {
		anns, err := strat.GenerateSignals(series)
		if err != nil {
			t.Fatalf("%s: GenerateSignals() error: %v", strat.GetName(), err)
		}
		if len(anns) != len(series) {
			t.Fatalf("%s: got %d annotations, want %d", strat.GetName(), len(anns), len(series))
		}
		for i := 0; i < strat.MinBars()-1; i++ {
			if anns[i].Signal != models.Hold {
				t.Errorf("%s: signal at warmup bar %d = %v, want HOLD", strat.GetName(), i, anns[i].Signal)
			}
			if anns[i].Position != models.Flat {
				t.Errorf("%s: position at warmup bar %d = %v, want FLAT", strat.GetName(), i, anns[i].Position)
			}
		}
	}
}

func TestGenerateSignalsRejectsMalformedSeries(t *testing.T) {
	t.Parallel()

	series := testSeries(10, 11, 12)
	series[1].Close = -5

	strat := mustStrategy(NewRSIStrategy(2, 30, 70))
	_, err := strat.GenerateSignals(series)

	var shapeErr *models.DataShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("got %v, want DataShapeError", err)
	}
	if shapeErr.Index != 1 {
		t.Errorf("error index = %d, want 1", shapeErr.Index)
	}
}

func TestRSISignalsOnThresholds(t *testing.T) {
	t.Parallel()

	strat := mustStrategy(NewRSIStrategy(2, 30, 70))

	// Straight decline: RSI pins to 0 once defined.
	anns, err := strat.GenerateSignals(testSeries(10, 9, 8, 7))
	if err != nil {
		t.Fatal(err)
	}
	if anns[2].Signal != models.Buy {
		t.Errorf("signal on decline = %v, want BUY", anns[2].Signal)
	}
	if anns[3].Position != models.Long {
		t.Errorf("position after BUY = %v, want LONG", anns[3].Position)
	}

	// Straight climb: RSI pins to 100.
	anns, err = strat.GenerateSignals(testSeries(7, 8, 9, 10))
	if err != nil {
		t.Fatal(err)
	}
	if anns[2].Signal != models.Sell {
		t.Errorf("signal on climb = %v, want SELL", anns[2].Signal)
	}
	if anns[3].Position != models.Flat {
		t.Errorf("position after SELL = %v, want FLAT", anns[3].Position)
	}
}

func TestDefaultFactory(t *testing.T) {
	t.Parallel()

	names := []string{"rsi", "macd", "ma-crossover", "bollinger", "mean-reversion"}
	for _, name := range names {
		strat, err := Default(name)
		if err != nil {
			t.Errorf("Default(%q) error: %v", name, err)
			continue
		}
		if strat.GetName() != name {
			t.Errorf("Default(%q).GetName() = %q", name, strat.GetName())
		}
	}

	if _, err := Default("martingale"); err == nil {
		t.Error("Default() accepted an unknown strategy")
	}
}

func mustStrategy[S Strategy](s S, err error) S {
	if err != nil {
		panic(err)
	}
	return s
}
