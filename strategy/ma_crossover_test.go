package strategy

import (
	"testing"

	"github.com/adamdenes/tradesim/internal/models"
)

func TestMACrossoverGoldenAndDeathCross(t *testing.T) {
	t.Parallel()

	strat := mustStrategy(NewMACrossoverStrategy(2, 3, "SMA"))

	// fast SMA leaps above the slow one at bar 3 and collapses back
	// under it at bar 5.
	series := testSeries(3, 2, 1, 10, 1, 1)
	anns, err := strat.GenerateSignals(series)
	if err != nil {
		t.Fatal(err)
	}

	want := []models.Signal{
		models.Hold, models.Hold, models.Hold,
		models.Buy, models.Hold, models.Sell,
	}
	for i, w := range want {
		if anns[i].Signal != w {
			t.Errorf("signal[%d] = %v, want %v", i, anns[i].Signal, w)
		}
	}

	if anns[3].Position != models.Long {
		t.Errorf("position after golden cross = %v, want LONG", anns[3].Position)
	}
	if anns[5].Position != models.Flat {
		t.Errorf("position after death cross = %v, want FLAT", anns[5].Position)
	}
}

func TestMACrossoverAcceptsLowercaseMAType(t *testing.T) {
	t.Parallel()

	strat, err := NewMACrossoverStrategy(2, 3, "ema")
	if err != nil {
		t.Fatalf("NewMACrossoverStrategy(ema) error: %v", err)
	}
	if strat.maType != "EMA" {
		t.Errorf("maType = %q, want EMA", strat.maType)
	}
}

func TestMACrossoverNoRepeatSignalWithoutRecross(t *testing.T) {
	t.Parallel()

	strat := mustStrategy(NewMACrossoverStrategy(2, 3, "SMA"))

	// After the cross at bar 3 the fast average stays above: no
	// further Buy may fire.
	series := testSeries(3, 2, 1, 10, 11, 12, 13)
	anns, err := strat.GenerateSignals(series)
	if err != nil {
		t.Fatal(err)
	}

	for i := 4; i < len(anns); i++ {
		if anns[i].Signal != models.Hold {
			t.Errorf("signal[%d] = %v, want HOLD", i, anns[i].Signal)
		}
		if anns[i].Position != models.Long {
			t.Errorf("position[%d] = %v, want LONG", i, anns[i].Position)
		}
	}
}
