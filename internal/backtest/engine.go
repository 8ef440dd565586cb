package backtest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/adamdenes/tradesim/internal/logger"
	"github.com/adamdenes/tradesim/internal/models"
	"github.com/adamdenes/tradesim/strategy"
)

type engineState int

const (
	stateNotStarted engineState = iota
	stateRunning
	stateClosed
)

const (
	DefaultInitialCapital = 100_000.0
	DefaultCommission     = 0.001
	DefaultPositionSize   = 0.95
)

// Engine replays a bar series through a strategy, executing the
// resulting signals against a Portfolio and producing a Result. An
// Engine is single-use: Run transitions NotStarted -> Running ->
// Closed and a second Run returns an error.
type Engine struct {
	symbol    string
	strategy  strategy.Strategy
	portfolio *Portfolio
	state     engineState

	// OnEquity, when set, is invoked with each equity snapshot as the
	// replay marks to market. Used to stream progress over a socket.
	OnEquity func(models.EquityPoint)
}

func NewEngine(
	symbol string,
	strat strategy.Strategy,
	initialCapital, commission, positionSize float64,
) (*Engine, error) {
	p, err := NewPortfolio(initialCapital, commission, positionSize)
	if err != nil {
		return nil, err
	}
	return &Engine{
		symbol:    symbol,
		strategy:  strat,
		portfolio: p,
		state:     stateNotStarted,
	}, nil
}

// Run drives the full backtest: generate signals for every bar, walk
// the series executing Buy from flat and Sell from long at each bar's
// close, and force-liquidate any position left open at the final bar.
func (e *Engine) Run(ctx context.Context, series models.BarSeries) (*Result, error) {
	if e.state != stateNotStarted {
		return nil, &models.InvalidParameterError{
			Name:   "engine",
			Reason: "already run, create a new engine",
		}
	}
	if len(series) == 0 {
		return nil, models.ErrEmptySeries
	}
	if err := series.Validate(); err != nil {
		return nil, err
	}
	e.state = stateRunning

	start := time.Now()
	anns, err := e.strategy.GenerateSignals(series)
	if err != nil {
		e.state = stateClosed
		return nil, err
	}

	for i, bar := range series {
		select {
		case <-ctx.Done():
			e.state = stateClosed
			return nil, ctx.Err()
		default:
		}

		switch anns[i].Signal {
		case models.Buy:
			e.portfolio.Buy(bar.OpenTime, bar.Close)
		case models.Sell:
			e.portfolio.Sell(bar.OpenTime, bar.Close)
		}
		pt := e.portfolio.MarkToMarket(bar.OpenTime, bar.Close)
		if e.OnEquity != nil {
			e.OnEquity(pt)
		}
	}

	// Open positions do not count as realized performance: flatten at
	// the last close so every buy has a matching sell. The last bar has
	// already been marked to market; the curve stays one snapshot per bar.
	last := series[len(series)-1]
	if e.portfolio.CanSell() {
		e.portfolio.Sell(last.OpenTime, last.Close)
	}
	e.state = stateClosed

	res := buildResult(uuid.New(), e.symbol, e.strategy.GetName(), e.portfolio, series, anns)
	res.Duration = time.Since(start)

	logger.Info.Printf(
		"backtest %s done: symbol=%s strategy=%s trades=%d return=%.2f%%\n",
		res.RunID, e.symbol, res.Strategy, len(res.Trades), res.TotalReturn*100,
	)
	return res, nil
}
