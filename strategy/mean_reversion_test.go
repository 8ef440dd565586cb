package strategy

import (
	"testing"

	"github.com/adamdenes/tradesim/internal/models"
)

func TestMeanReversionHysteresis(t *testing.T) {
	t.Parallel()

	strat := mustStrategy(NewMeanReversionStrategy(3, 0.9, 0.5))

	// z-scores per bar: bar 2 stretches below the mean, bar 3 reverts,
	// bar 4 stretches above it, bar 5 reverts again.
	series := testSeries(10, 11, 9, 10.5, 12, 10.4)
	anns, err := strat.GenerateSignals(series)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		bar      int
		signal   models.Signal
		position models.Position
	}{
		{2, models.Buy, models.Long},
		{3, models.Sell, models.Flat},
		{4, models.Sell, models.Short},
		{5, models.Buy, models.Flat},
	}
	for _, tt := range tests {
		if got := anns[tt.bar].Signal; got != tt.signal {
			t.Errorf("signal[%d] = %v, want %v", tt.bar, got, tt.signal)
		}
		if got := anns[tt.bar].Position; got != tt.position {
			t.Errorf("position[%d] = %v, want %v", tt.bar, got, tt.position)
		}
	}
}

func TestMeanReversionHoldsThroughUndefinedZScore(t *testing.T) {
	t.Parallel()

	strat := mustStrategy(NewMeanReversionStrategy(3, 0.9, 0.5))

	// Bar 2 opens a long; the window then flattens out, making the
	// z-score undefined at bar 4. The position must carry through.
	series := testSeries(10, 11, 9, 9, 9)
	anns, err := strat.GenerateSignals(series)
	if err != nil {
		t.Fatal(err)
	}

	if anns[2].Position != models.Long {
		t.Fatalf("position[2] = %v, want LONG", anns[2].Position)
	}
	if anns[4].Signal != models.Hold {
		t.Errorf("signal[4] = %v, want HOLD", anns[4].Signal)
	}
	if anns[4].Position != models.Long {
		t.Errorf("position[4] = %v, want LONG", anns[4].Position)
	}
}
