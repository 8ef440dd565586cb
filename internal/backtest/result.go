package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/adamdenes/tradesim/internal/models"
)

const varConfidence = 0.95

// Result is the full outcome of one backtest run: the realized trade
// log, the mark-to-market equity curve and the performance metrics
// derived from them.
type Result struct {
	RunID    uuid.UUID     `json:"run_id"`
	Symbol   string        `json:"symbol"`
	Strategy string        `json:"strategy"`
	Duration time.Duration `json:"duration"`

	InitialCapital   float64 `json:"initial_capital"`
	FinalEquity      float64 `json:"final_equity"`
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	BenchmarkReturn  float64 `json:"benchmark_return"`
	ExcessReturn     float64 `json:"excess_return"`

	SharpeRatio    float64   `json:"sharpe_ratio"`
	SortinoRatio   float64   `json:"sortino_ratio"`
	CalmarRatio    float64   `json:"calmar_ratio"`
	MaxDrawdown    float64   `json:"max_drawdown"`
	DrawdownPeak   time.Time `json:"drawdown_peak"`
	DrawdownTrough time.Time `json:"drawdown_trough"`
	ValueAtRisk    float64   `json:"value_at_risk"`
	ConditionalVaR float64   `json:"conditional_var"`
	Volatility     float64   `json:"volatility"`
	OmegaRatio     float64   `json:"omega_ratio"`

	WinRate        float64 `json:"win_rate"`
	ProfitFactor   float64 `json:"profit_factor"`
	AvgTradeReturn float64 `json:"avg_trade_return"`

	Trades            []models.Trade       `json:"trades"`
	EquityCurve       []models.EquityPoint `json:"equity_curve"`
	CumulativeReturns []float64            `json:"cumulative_returns"`
	Annotations       []models.Annotation  `json:"-"`
}

func buildResult(
	id uuid.UUID,
	symbol, strategyName string,
	p *Portfolio,
	series models.BarSeries,
	anns []models.Annotation,
) *Result {
	equity := p.Equity()
	returns := p.Returns()

	final := p.Cash()
	total := final/p.InitialCapital() - 1

	annualized := 0.0
	if n := len(returns); n > 0 && total > -1 {
		annualized = math.Pow(1+total, PeriodsPerYear/float64(n)) - 1
	}

	// Buy-and-hold over the same window is the benchmark.
	benchmark := 0.0
	if first := series[0].Close; first != 0 {
		benchmark = series[len(series)-1].Close/first - 1
	}

	dd, peak, trough := MaxDrawdown(equity)

	return &Result{
		RunID:    id,
		Symbol:   symbol,
		Strategy: strategyName,

		InitialCapital:   p.InitialCapital(),
		FinalEquity:      final,
		TotalReturn:      total,
		AnnualizedReturn: annualized,
		BenchmarkReturn:  benchmark,
		ExcessReturn:     total - benchmark,

		SharpeRatio:    SharpeRatio(returns),
		SortinoRatio:   SortinoRatio(returns),
		CalmarRatio:    CalmarRatio(returns, equity),
		MaxDrawdown:    dd,
		DrawdownPeak:   peak,
		DrawdownTrough: trough,
		ValueAtRisk:    ValueAtRisk(returns, varConfidence),
		ConditionalVaR: ConditionalVaR(returns, varConfidence),
		Volatility:     Volatility(returns),
		OmegaRatio:     OmegaRatio(returns),

		WinRate:        WinRate(p.Trades()),
		ProfitFactor:   ProfitFactor(p.Trades()),
		AvgTradeReturn: AvgTradeReturn(p.Trades()),

		Trades:            p.Trades(),
		EquityCurve:       equity,
		CumulativeReturns: CumulativeReturns(returns),
		Annotations:       anns,
	}
}

// WriteTradesCSV streams the trade log as CSV with a header row.
func (r *Result) WriteTradesCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "action", "price", "shares", "commission", "total"}); err != nil {
		return err
	}
	for _, t := range r.Trades {
		rec := []string{
			t.Timestamp.UTC().Format(time.RFC3339),
			t.Side.String(),
			strconv.FormatFloat(t.Price, 'f', -1, 64),
			strconv.FormatInt(t.Shares, 10),
			strconv.FormatFloat(t.Commission, 'f', -1, 64),
			strconv.FormatFloat(t.Value(), 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Report renders a human readable summary for the CLI.
func (r *Result) Report(w io.Writer) {
	fmt.Fprintf(w, "Run:               %s\n", r.RunID)
	fmt.Fprintf(w, "Symbol:            %s\n", r.Symbol)
	fmt.Fprintf(w, "Strategy:          %s\n", r.Strategy)
	fmt.Fprintf(w, "Initial capital:   %.2f\n", r.InitialCapital)
	fmt.Fprintf(w, "Final equity:      %.2f\n", r.FinalEquity)
	fmt.Fprintf(w, "Total return:      %.2f%%\n", r.TotalReturn*100)
	fmt.Fprintf(w, "Annualized return: %.2f%%\n", r.AnnualizedReturn*100)
	fmt.Fprintf(w, "Buy & hold:        %.2f%%\n", r.BenchmarkReturn*100)
	fmt.Fprintf(w, "Excess return:     %.2f%%\n", r.ExcessReturn*100)
	fmt.Fprintf(w, "Sharpe ratio:      %.4f\n", r.SharpeRatio)
	fmt.Fprintf(w, "Sortino ratio:     %.4f\n", r.SortinoRatio)
	fmt.Fprintf(w, "Calmar ratio:      %.4f\n", r.CalmarRatio)
	fmt.Fprintf(w, "Max drawdown:      %.2f%%\n", r.MaxDrawdown*100)
	fmt.Fprintf(w, "VaR (95%%):         %.4f\n", r.ValueAtRisk)
	fmt.Fprintf(w, "CVaR (95%%):        %.4f\n", r.ConditionalVaR)
	fmt.Fprintf(w, "Volatility:        %.4f\n", r.Volatility)
	fmt.Fprintf(w, "Omega ratio:       %.4f\n", r.OmegaRatio)
	fmt.Fprintf(w, "Win rate:          %.2f%%\n", r.WinRate*100)
	fmt.Fprintf(w, "Profit factor:     %.4f\n", r.ProfitFactor)
	fmt.Fprintf(w, "Avg trade return:  %.2f\n", r.AvgTradeReturn)
	fmt.Fprintf(w, "Trades:            %d\n", len(r.Trades))
}
