package backtest

import (
	"math"
	"sort"
	"time"

	"github.com/adamdenes/tradesim/internal/logger"
	"github.com/adamdenes/tradesim/internal/models"
)

const (
	RiskFreeRate   = 0.02
	PeriodsPerYear = 252
)

// Every metric degrades to 0.0 when the inputs cannot support it (too
// few returns, zero variance, no trades) rather than returning NaN.

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

// sampleStdev with ddof=1; zero when fewer than two samples.
func sampleStdev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// SharpeRatio annualizes the mean excess return over its volatility.
func SharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	rf := RiskFreeRate / PeriodsPerYear
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - rf
	}
	sd := sampleStdev(excess)
	if sd == 0 {
		return 0
	}
	return math.Sqrt(PeriodsPerYear) * mean(excess) / sd
}

// SortinoRatio penalizes only downside deviation.
func SortinoRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	rf := RiskFreeRate / PeriodsPerYear
	var excess, downside []float64
	for _, r := range returns {
		e := r - rf
		excess = append(excess, e)
		if e < 0 {
			downside = append(downside, e)
		}
	}
	sd := sampleStdev(downside)
	if sd == 0 {
		return 0
	}
	return math.Sqrt(PeriodsPerYear) * mean(excess) / sd
}

// MaxDrawdown returns the largest peak-to-trough decline of the equity
// curve as a positive fraction, with the timestamps of the peak and
// the trough that realized it.
func MaxDrawdown(equity []models.EquityPoint) (dd float64, peak, trough time.Time) {
	if len(equity) == 0 {
		return 0, time.Time{}, time.Time{}
	}
	runPeak := equity[0]
	for _, pt := range equity {
		if pt.Value > runPeak.Value {
			runPeak = pt
		}
		if runPeak.Value <= 0 {
			continue
		}
		d := (runPeak.Value - pt.Value) / runPeak.Value
		if d > dd {
			dd = d
			peak = runPeak.Timestamp
			trough = pt.Timestamp
		}
	}
	return dd, peak, trough
}

// CalmarRatio is annualized return over max drawdown; zero when the
// curve never draws down.
func CalmarRatio(returns []float64, equity []models.EquityPoint) float64 {
	dd, _, _ := MaxDrawdown(equity)
	if dd == 0 || len(returns) == 0 {
		return 0
	}
	return mean(returns) * PeriodsPerYear / dd
}

// percentile computes the q-th percentile (0..100) of xs with linear
// interpolation between closest ranks.
func percentile(xs []float64, q float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	pos := q / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// ValueAtRisk is the return at the (1-confidence) percentile: the loss
// threshold not exceeded with the given confidence.
func ValueAtRisk(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	return percentile(returns, (1-confidence)*100)
}

// ConditionalVaR is the mean of the returns at or below the VaR cut.
func ConditionalVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	cut := ValueAtRisk(returns, confidence)
	var tail []float64
	for _, r := range returns {
		if r <= cut {
			tail = append(tail, r)
		}
	}
	return mean(tail)
}

// Volatility is the annualized standard deviation of returns.
func Volatility(returns []float64) float64 {
	return sampleStdev(returns) * math.Sqrt(PeriodsPerYear)
}

// OmegaRatio is the ratio of gains to losses around a zero threshold.
func OmegaRatio(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	var gains, losses float64
	for _, r := range returns {
		if r > 0 {
			gains += r
		} else {
			losses += -r
		}
	}
	if losses == 0 {
		if gains > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return gains / losses
}

// tradePair is one completed round trip.
type tradePair struct {
	entry models.Trade
	exit  models.Trade
}

// netProfit is the round trip's PnL after both commissions.
func (p tradePair) netProfit() float64 {
	return float64(p.exit.Shares)*p.exit.Price - float64(p.entry.Shares)*p.entry.Price -
		p.entry.Commission - p.exit.Commission
}

// tradePairs walks the trade log as entry/exit pairs. Trades must
// alternate buy/sell; a malformed pair is logged and skipped.
func tradePairs(trades []models.Trade) []tradePair {
	var pairs []tradePair
	for i := 0; i+1 < len(trades); i += 2 {
		entry, exit := trades[i], trades[i+1]
		if entry.Side != models.Buy || exit.Side != models.Sell {
			logger.Warning.Printf(
				"skipping malformed trade pair at %d: %s/%s\n", i, entry.Side, exit.Side,
			)
			continue
		}
		pairs = append(pairs, tradePair{entry: entry, exit: exit})
	}
	return pairs
}

// WinRate is the fraction of completed round trips that exited above
// their entry price. Commission is deliberately excluded here; the
// other trade metrics account for it.
func WinRate(trades []models.Trade) float64 {
	pairs := tradePairs(trades)
	if len(pairs) == 0 {
		return 0
	}
	var wins int
	for _, p := range pairs {
		if p.exit.Price > p.entry.Price {
			wins++
		}
	}
	return float64(wins) / float64(len(pairs))
}

// ProfitFactor is gross profit over gross loss, net of commission.
// All-winning trades yield +Inf; no completed trades (or all-zero
// profits) yield 0.
func ProfitFactor(trades []models.Trade) float64 {
	var grossProfit, grossLoss float64
	for _, pair := range tradePairs(trades) {
		p := pair.netProfit()
		if p > 0 {
			grossProfit += p
		} else {
			grossLoss += -p
		}
	}
	if grossLoss == 0 {
		if grossProfit > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return grossProfit / grossLoss
}

// AvgTradeReturn is the mean net profit per completed round trip.
func AvgTradeReturn(trades []models.Trade) float64 {
	pairs := tradePairs(trades)
	profits := make([]float64, len(pairs))
	for i, p := range pairs {
		profits[i] = p.netProfit()
	}
	return mean(profits)
}

// CumulativeReturns compounds the per-bar returns into a growth series:
// element i is the total return realized through bar i+1.
func CumulativeReturns(returns []float64) []float64 {
	if len(returns) == 0 {
		return nil
	}
	cum := make([]float64, len(returns))
	growth := 1.0
	for i, r := range returns {
		growth *= 1 + r
		cum[i] = growth - 1
	}
	return cum
}
