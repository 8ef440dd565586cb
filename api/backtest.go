package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/adamdenes/tradesim/internal/backtest"
	"github.com/adamdenes/tradesim/internal/models"
	"github.com/adamdenes/tradesim/strategy"
)

// BacktestRequest describes one run. Bars may be supplied inline; when
// absent they are fetched from storage over [Start, End]. Zero-valued
// knobs fall back to the engine and strategy defaults.
type BacktestRequest struct {
	Symbol   string           `json:"symbol"`
	Strategy string           `json:"strategy"`
	Bars     models.BarSeries `json:"bars,omitempty"`
	Start    time.Time        `json:"start,omitempty"`
	End      time.Time        `json:"end,omitempty"`

	InitialCapital float64 `json:"initial_capital,omitempty"`
	Commission     float64 `json:"commission,omitempty"`
	PositionSize   float64 `json:"position_size,omitempty"`

	// Strategy knobs; which ones apply depends on Strategy.
	Period     int     `json:"period,omitempty"`
	Oversold   float64 `json:"oversold,omitempty"`
	Overbought float64 `json:"overbought,omitempty"`

	FastPeriod   int `json:"fast_period,omitempty"`
	SlowPeriod   int `json:"slow_period,omitempty"`
	SignalPeriod int `json:"signal_period,omitempty"`

	ShortWindow int    `json:"short_window,omitempty"`
	LongWindow  int    `json:"long_window,omitempty"`
	MAType      string `json:"ma_type,omitempty"`

	StdDev float64 `json:"std_dev,omitempty"`

	Lookback int     `json:"lookback,omitempty"`
	ZEntry   float64 `json:"z_entry,omitempty"`
	ZExit    float64 `json:"z_exit,omitempty"`
}

func (br *BacktestRequest) buildStrategy() (strategy.Strategy, error) {
	pick := func(v, def int) int {
		if v > 0 {
			return v
		}
		return def
	}
	pickF := func(v, def float64) float64 {
		if v > 0 {
			return v
		}
		return def
	}

	switch br.Strategy {
	case "rsi":
		return strategy.NewRSIStrategy(
			pick(br.Period, strategy.DefaultRSIPeriod),
			pickF(br.Oversold, strategy.DefaultOversold),
			pickF(br.Overbought, strategy.DefaultOverbought),
		)
	case "macd":
		return strategy.NewMACDStrategy(
			pick(br.FastPeriod, strategy.DefaultFastPeriod),
			pick(br.SlowPeriod, strategy.DefaultSlowPeriod),
			pick(br.SignalPeriod, strategy.DefaultSignalPeriod),
		)
	case "ma-crossover":
		maType := br.MAType
		if maType == "" {
			maType = strategy.DefaultMAType
		}
		return strategy.NewMACrossoverStrategy(
			pick(br.ShortWindow, strategy.DefaultShortWindow),
			pick(br.LongWindow, strategy.DefaultLongWindow),
			maType,
		)
	case "bollinger":
		return strategy.NewBollingerStrategy(
			pick(br.Period, strategy.DefaultBollingerPeriod),
			pickF(br.StdDev, strategy.DefaultBollingerStdDev),
		)
	case "mean-reversion":
		zExit := br.ZExit
		if zExit == 0 {
			zExit = strategy.DefaultZExit
		}
		return strategy.NewMeanReversionStrategy(
			pick(br.Lookback, strategy.DefaultLookback),
			pickF(br.ZEntry, strategy.DefaultZEntry),
			zExit,
		)
	default:
		return nil, &models.InvalidParameterError{
			Name: "strategy", Reason: "unknown strategy " + br.Strategy,
		}
	}
}

func (br *BacktestRequest) capital() float64 {
	if br.InitialCapital > 0 {
		return br.InitialCapital
	}
	return backtest.DefaultInitialCapital
}

func (br *BacktestRequest) commissionOrDefault() float64 {
	if br.Commission > 0 {
		return br.Commission
	}
	return backtest.DefaultCommission
}

func (br *BacktestRequest) positionSizeOrDefault() float64 {
	if br.PositionSize > 0 {
		return br.PositionSize
	}
	return backtest.DefaultPositionSize
}

// resolveBars prefers inline bars and falls back to the store.
func (s *Server) resolveBars(r *http.Request, br *BacktestRequest) (models.BarSeries, error) {
	if len(br.Bars) > 0 {
		return br.Bars, nil
	}
	if s.store == nil {
		return nil, models.ErrEmptySeries
	}
	return s.store.FetchBars(r.Context(), br.Symbol, br.Start, br.End)
}

func (s *Server) runBacktest(r *http.Request, br *BacktestRequest, onEquity func(models.EquityPoint)) (*backtest.Result, error) {
	strat, err := br.buildStrategy()
	if err != nil {
		return nil, err
	}

	series, err := s.resolveBars(r, br)
	if err != nil {
		return nil, err
	}

	engine, err := backtest.NewEngine(
		br.Symbol,
		strat,
		br.capital(),
		br.commissionOrDefault(),
		br.positionSizeOrDefault(),
	)
	if err != nil {
		return nil, err
	}
	engine.OnEquity = onEquity

	res, err := engine.Run(r.Context(), series)
	if err != nil {
		return nil, err
	}

	if s.store != nil {
		if err := s.store.SaveResult(r.Context(), res); err != nil {
			s.errorLog.Printf("failed to persist run %s: %v\n", res.RunID, err)
		}
	}
	return res, nil
}

func (s *Server) backtestHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.clientError(w, http.StatusMethodNotAllowed)
		return
	}

	br := &BacktestRequest{}
	if err := json.NewDecoder(r.Body).Decode(br); err != nil {
		s.errorLog.Println(err)
		s.clientError(w, http.StatusBadRequest)
		return
	}

	res, err := s.runBacktest(r, br, nil)
	if err != nil {
		s.writeRunError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, res); err != nil {
		s.serverError(w, err)
	}
}

// backtestStreamHandler upgrades to a websocket, reads one
// BacktestRequest, streams every equity snapshot as the replay
// progresses and finishes with the full result.
func (s *Server) backtestStreamHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.serverError(w, err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "backtest aborted")

	ctx := r.Context()

	br := &BacktestRequest{}
	if err := wsjson.Read(ctx, conn, br); err != nil {
		s.errorLog.Printf("WebSocket read error: %v\n", err)
		return
	}

	res, err := s.runBacktest(r, br, func(pt models.EquityPoint) {
		if err := wsjson.Write(ctx, conn, pt); err != nil {
			s.errorLog.Printf("Error writing data to WebSocket: %v\n", err)
		}
	})
	if err != nil {
		_ = wsjson.Write(ctx, conn, map[string]string{"error": err.Error()})
		conn.Close(websocket.StatusPolicyViolation, "backtest failed")
		return
	}

	if err := wsjson.Write(ctx, conn, res); err != nil {
		s.errorLog.Printf("Error writing result to WebSocket: %v\n", err)
		return
	}
	conn.Close(websocket.StatusNormalClosure, "backtest complete")
}

// tradesHandler serves the trade log of a finished run as CSV.
func (s *Server) tradesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.clientError(w, http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		s.notFound(w)
		return
	}

	runID, err := uuid.Parse(r.URL.Query().Get("run_id"))
	if err != nil {
		s.clientError(w, http.StatusBadRequest)
		return
	}

	trades, err := s.store.FetchTrades(r.Context(), runID)
	if err != nil {
		s.serverError(w, err)
		return
	}
	if len(trades) == 0 {
		s.notFound(w)
		return
	}

	res := &backtest.Result{Trades: trades}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=trades-"+runID.String()+".csv")
	if err := res.WriteTradesCSV(w); err != nil {
		s.errorLog.Println(err)
	}
}

// writeRunError maps validation failures to 400 and everything else
// to 500.
func (s *Server) writeRunError(w http.ResponseWriter, err error) {
	var (
		paramErr *models.InvalidParameterError
		dataErr  *models.DataShapeError
	)
	switch {
	case errors.As(err, &paramErr), errors.As(err, &dataErr), errors.Is(err, models.ErrEmptySeries):
		s.errorLog.Println(err)
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.serverError(w, err)
	}
}
