package backtest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/adamdenes/tradesim/internal/models"
)

// scriptedStrategy replays a fixed signal sequence, padding with Hold.
type scriptedStrategy struct {
	signals []models.Signal
}

func (s *scriptedStrategy) GetName() string { return "scripted" }
func (s *scriptedStrategy) MinBars() int    { return 1 }

func (s *scriptedStrategy) GenerateSignals(series models.BarSeries) ([]models.Annotation, error) {
	anns := make([]models.Annotation, len(series))
	for i := range anns {
		if i < len(s.signals) {
			anns[i].Signal = s.signals[i]
		}
	}
	return anns, nil
}

func barSeries(closes ...float64) models.BarSeries {
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

func TestEngineExecutesSignals(t *testing.T) {
	t.Parallel()

	strat := &scriptedStrategy{signals: []models.Signal{models.Buy, models.Sell, models.Hold}}
	engine, err := NewEngine("TEST", strat, 1000, 0, 1.0)
	if err != nil {
		t.Fatal(err)
	}

	res, err := engine.Run(context.Background(), barSeries(100, 110, 90))
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Trades) != 2 {
		t.Fatalf("len(Trades) = %d, want 2", len(res.Trades))
	}
	if res.Trades[0].Side != models.Buy || res.Trades[0].Shares != 10 {
		t.Errorf("first trade = %v, want BUY of 10 shares", res.Trades[0])
	}
	if res.Trades[1].Side != models.Sell || res.Trades[1].Price != 110 {
		t.Errorf("second trade = %v, want SELL at 110", res.Trades[1])
	}
	if math.Abs(res.FinalEquity-1100) > 1e-9 {
		t.Errorf("FinalEquity = %v, want 1100", res.FinalEquity)
	}
	if math.Abs(res.TotalReturn-0.10) > 1e-9 {
		t.Errorf("TotalReturn = %v, want 0.10", res.TotalReturn)
	}
	// buy & hold over the same window lost 10%
	if math.Abs(res.BenchmarkReturn-(-0.10)) > 1e-9 {
		t.Errorf("BenchmarkReturn = %v, want -0.10", res.BenchmarkReturn)
	}
	if res.WinRate != 1.0 {
		t.Errorf("WinRate = %v, want 1.0", res.WinRate)
	}
}

func TestEngineFlatSeriesDegradesToZero(t *testing.T) {
	t.Parallel()

	strat := &scriptedStrategy{}
	engine, err := NewEngine("TEST", strat, 1000, 0, 1.0)
	if err != nil {
		t.Fatal(err)
	}

	res, err := engine.Run(context.Background(), barSeries(100, 100.0001, 100.0002, 100.0003))
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Trades) != 0 {
		t.Errorf("len(Trades) = %d, want 0", len(res.Trades))
	}
	if res.SharpeRatio != 0 {
		t.Errorf("SharpeRatio = %v, want 0", res.SharpeRatio)
	}
	if res.MaxDrawdown != 0 {
		t.Errorf("MaxDrawdown = %v, want 0", res.MaxDrawdown)
	}
	if res.TotalReturn != 0 {
		t.Errorf("TotalReturn = %v, want 0", res.TotalReturn)
	}
	if res.ProfitFactor != 0 {
		t.Errorf("ProfitFactor = %v, want 0", res.ProfitFactor)
	}
}

func TestEngineForcesFinalLiquidation(t *testing.T) {
	t.Parallel()

	strat := &scriptedStrategy{signals: []models.Signal{models.Buy}}
	engine, err := NewEngine("TEST", strat, 1000, 0, 1.0)
	if err != nil {
		t.Fatal(err)
	}

	series := barSeries(100, 105, 120)
	res, err := engine.Run(context.Background(), series)
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Trades) != 2 {
		t.Fatalf("len(Trades) = %d, want forced close as second trade", len(res.Trades))
	}
	last := res.Trades[1]
	if last.Side != models.Sell {
		t.Errorf("forced trade side = %v, want SELL", last.Side)
	}
	if !last.Timestamp.Equal(series[2].OpenTime) {
		t.Errorf("forced trade timestamp = %v, want %v", last.Timestamp, series[2].OpenTime)
	}
	if last.Price != 120 {
		t.Errorf("forced trade price = %v, want 120", last.Price)
	}
	if math.Abs(res.FinalEquity-1200) > 1e-9 {
		t.Errorf("FinalEquity = %v, want 1200", res.FinalEquity)
	}
}

func TestEngineMarksToMarketOncePerBar(t *testing.T) {
	t.Parallel()

	// A run ending Long triggers the forced close; the equity curve must
	// still carry exactly one snapshot per bar with matching timestamps.
	strat := &scriptedStrategy{signals: []models.Signal{models.Buy}}
	engine, err := NewEngine("TEST", strat, 1000, 0.5, 1.0)
	if err != nil {
		t.Fatal(err)
	}

	series := barSeries(100, 105, 110)
	res, err := engine.Run(context.Background(), series)
	if err != nil {
		t.Fatal(err)
	}

	if len(res.EquityCurve) != len(series) {
		t.Fatalf("equity curve has %d points for %d bars", len(res.EquityCurve), len(series))
	}
	for i := range series {
		if !res.EquityCurve[i].Timestamp.Equal(series[i].OpenTime) {
			t.Errorf("equity[%d] timestamp = %v, want %v",
				i, res.EquityCurve[i].Timestamp, series[i].OpenTime)
		}
	}
}

func TestEngineRejectsEmptySeries(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine("TEST", &scriptedStrategy{}, 1000, 0, 1.0)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := engine.Run(context.Background(), nil); !errors.Is(err, models.ErrEmptySeries) {
		t.Errorf("Run(empty) error = %v, want ErrEmptySeries", err)
	}
}

func TestEngineIsSingleUse(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine("TEST", &scriptedStrategy{}, 1000, 0, 1.0)
	if err != nil {
		t.Fatal(err)
	}

	series := barSeries(100, 101)
	if _, err := engine.Run(context.Background(), series); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Run(context.Background(), series); err == nil {
		t.Error("second Run() succeeded, want error")
	}
}

func TestEngineStreamsEquity(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine("TEST", &scriptedStrategy{}, 1000, 0, 1.0)
	if err != nil {
		t.Fatal(err)
	}

	var seen []models.EquityPoint
	engine.OnEquity = func(pt models.EquityPoint) { seen = append(seen, pt) }

	series := barSeries(100, 101, 102)
	res, err := engine.Run(context.Background(), series)
	if err != nil {
		t.Fatal(err)
	}

	if len(seen) != len(res.EquityCurve) {
		t.Errorf("streamed %d points, result has %d", len(seen), len(res.EquityCurve))
	}
	for i := range seen {
		if seen[i] != res.EquityCurve[i] {
			t.Errorf("streamed point %d = %v, want %v", i, seen[i], res.EquityCurve[i])
		}
	}
}

func TestEngineHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine("TEST", &scriptedStrategy{}, 1000, 0, 1.0)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := engine.Run(ctx, barSeries(100, 101)); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}
