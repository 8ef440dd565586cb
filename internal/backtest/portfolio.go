package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/adamdenes/tradesim/internal/logger"
	"github.com/adamdenes/tradesim/internal/models"
)

// Portfolio is the cash/shares ledger a backtest run executes against.
// It never goes negative: buys are sized so that cost plus per-share
// commission fits inside the allotted cash, and sells require shares.
type Portfolio struct {
	initialCapital float64
	cash           float64
	shares         int64
	commission     float64 // per share
	positionSize   float64 // fraction of cash committed per buy, (0, 1]

	trades []models.Trade
	equity []models.EquityPoint
}

func NewPortfolio(initialCapital, commission, positionSize float64) (*Portfolio, error) {
	if initialCapital <= 0 || math.IsNaN(initialCapital) {
		return nil, &models.InvalidParameterError{
			Name:   "initialCapital",
			Reason: fmt.Sprintf("must be positive, got %v", initialCapital),
		}
	}
	if commission < 0 || math.IsNaN(commission) {
		return nil, &models.InvalidParameterError{
			Name:   "commission",
			Reason: fmt.Sprintf("must be non-negative, got %v", commission),
		}
	}
	if positionSize <= 0 || positionSize > 1 || math.IsNaN(positionSize) {
		return nil, &models.InvalidParameterError{
			Name:   "positionSize",
			Reason: fmt.Sprintf("must be in (0, 1], got %v", positionSize),
		}
	}
	return &Portfolio{
		initialCapital: initialCapital,
		cash:           initialCapital,
		commission:     commission,
		positionSize:   positionSize,
	}, nil
}

// shareCount sizes a buy: the largest whole-share count whose cost plus
// commission fits within positionSize of the available cash. Floating
// point can overshoot the floor by a share, so walk back until it fits.
func (p *Portfolio) shareCount(price float64) int64 {
	alloc := p.cash * p.positionSize
	perShare := price + p.commission
	n := int64(math.Floor(alloc / perShare))
	for n > 0 && float64(n)*perShare > p.cash {
		n--
	}
	return n
}

func (p *Portfolio) CanBuy(price float64) bool {
	return price > 0 && p.shares == 0 && p.shareCount(price) > 0
}

// Buy opens a long position at price, spending up to positionSize of
// the current cash. Reports whether a trade was executed.
func (p *Portfolio) Buy(ts time.Time, price float64) bool {
	if !p.CanBuy(price) {
		return false
	}
	n := p.shareCount(price)
	cost := float64(n)*price + float64(n)*p.commission

	p.cash -= cost
	p.shares = n
	p.trades = append(p.trades, models.Trade{
		Timestamp:  ts,
		Side:       models.Buy,
		Price:      price,
		Shares:     n,
		Commission: float64(n) * p.commission,
	})
	logger.Debug.Printf("BUY filled! shares=%d price=%.4f cash=%.2f\n", n, price, p.cash)
	return true
}

func (p *Portfolio) CanSell() bool {
	return p.shares > 0
}

// Sell liquidates the entire position at price. Reports whether a
// trade was executed.
func (p *Portfolio) Sell(ts time.Time, price float64) bool {
	if !p.CanSell() || price <= 0 {
		return false
	}
	n := p.shares
	proceeds := float64(n)*price - float64(n)*p.commission

	p.cash += proceeds
	p.shares = 0
	p.trades = append(p.trades, models.Trade{
		Timestamp:  ts,
		Side:       models.Sell,
		Price:      price,
		Shares:     n,
		Commission: float64(n) * p.commission,
	})
	logger.Debug.Printf("SELL filled! shares=%d price=%.4f cash=%.2f\n", n, price, p.cash)
	return true
}

// MarkToMarket appends an equity snapshot valued at price.
func (p *Portfolio) MarkToMarket(ts time.Time, price float64) models.EquityPoint {
	pt := models.EquityPoint{Timestamp: ts, Value: p.TotalValue(price)}
	p.equity = append(p.equity, pt)
	return pt
}

// TotalValue is cash plus the position valued at price.
func (p *Portfolio) TotalValue(price float64) float64 {
	return p.cash + float64(p.shares)*price
}

func (p *Portfolio) Cash() float64                { return p.cash }
func (p *Portfolio) Shares() int64                { return p.shares }
func (p *Portfolio) InitialCapital() float64      { return p.initialCapital }
func (p *Portfolio) Trades() []models.Trade       { return p.trades }
func (p *Portfolio) Equity() []models.EquityPoint { return p.equity }

// PortfolioSummary is a point-in-time snapshot of the ledger state.
type PortfolioSummary struct {
	Cash   float64 `json:"cash"`
	Shares int64   `json:"shares"`
	Trades int     `json:"trades"`
	Equity float64 `json:"equity"`
}

// Summary reports the ledger state with the position valued at price.
func (p *Portfolio) Summary(price float64) PortfolioSummary {
	return PortfolioSummary{
		Cash:   p.cash,
		Shares: p.shares,
		Trades: len(p.trades),
		Equity: p.TotalValue(price),
	}
}

// Returns computes the bar-over-bar percentage change of the equity
// curve. The first snapshot has no predecessor and is dropped.
func (p *Portfolio) Returns() []float64 {
	if len(p.equity) < 2 {
		return nil
	}
	rets := make([]float64, 0, len(p.equity)-1)
	for i := 1; i < len(p.equity); i++ {
		prev := p.equity[i-1].Value
		if prev == 0 {
			rets = append(rets, 0)
			continue
		}
		rets = append(rets, p.equity[i].Value/prev-1)
	}
	return rets
}
