package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/adamdenes/tradesim/internal/backtest"
	"github.com/adamdenes/tradesim/internal/logger"
	"github.com/adamdenes/tradesim/internal/models"
)

type PostgresDB struct {
	db *sql.DB
}

func NewPostgresDB(dsn string) (*PostgresDB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PostgresDB{db: db}, nil
}

func (p *PostgresDB) Init() error {
	if _, err := p.db.Exec("CREATE SCHEMA IF NOT EXISTS tradesim"); err != nil {
		return err
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS tradesim.bar_data (
			id serial PRIMARY KEY,
			symbol VARCHAR(16) NOT NULL,
			open_time TIMESTAMPTZ NOT NULL,
			open NUMERIC(18, 8) NOT NULL,
			high NUMERIC(18, 8) NOT NULL,
			low NUMERIC(18, 8) NOT NULL,
			close NUMERIC(18, 8) NOT NULL,
			volume NUMERIC(18, 8) NOT NULL,
			UNIQUE (symbol, open_time)
		);`,
		`CREATE TABLE IF NOT EXISTS tradesim.backtest_run (
			run_id UUID PRIMARY KEY,
			symbol VARCHAR(16) NOT NULL,
			strategy VARCHAR(32) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			initial_capital NUMERIC(18, 8) NOT NULL,
			final_equity NUMERIC(18, 8) NOT NULL,
			total_return DOUBLE PRECISION NOT NULL,
			sharpe_ratio DOUBLE PRECISION NOT NULL,
			max_drawdown DOUBLE PRECISION NOT NULL,
			win_rate DOUBLE PRECISION NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tradesim.trade (
			id serial PRIMARY KEY,
			run_id UUID NOT NULL REFERENCES tradesim.backtest_run(run_id),
			executed_at TIMESTAMPTZ NOT NULL,
			side VARCHAR(4) NOT NULL,
			price NUMERIC(18, 8) NOT NULL,
			shares BIGINT NOT NULL,
			commission NUMERIC(18, 8) NOT NULL
		);`,
	}
	for _, q := range queries {
		if _, err := p.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (p *PostgresDB) Close() {
	p.db.Close()
}

func (p *PostgresDB) SaveBars(ctx context.Context, symbol string, series models.BarSeries) error {
	startTime := time.Now()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		pq.CopyInSchema(
			"tradesim",
			"bar_data",
			"symbol",
			"open_time",
			"open",
			"high",
			"low",
			"close",
			"volume",
		),
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, bar := range series {
		_, err = stmt.Exec(symbol, bar.OpenTime, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
		if err != nil {
			return err
		}
	}

	if _, err = stmt.Exec(); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}

	logger.Info.Printf("Finished copying %d bars to Postgres, it took %v\n", len(series), time.Since(startTime))
	return nil
}

func (p *PostgresDB) FetchBars(
	ctx context.Context,
	symbol string,
	start, end time.Time,
) (models.BarSeries, error) {
	t := time.Now()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	query := `SELECT open_time, open, high, low, close, volume
		FROM tradesim.bar_data
		WHERE symbol = $1 AND open_time >= $2 AND open_time <= $3
		ORDER BY open_time ASC`

	rows, err := p.db.QueryContext(ctx, query, symbol, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var series models.BarSeries
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.OpenTime, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		series = append(series, b)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	logger.Info.Printf("Fetched %d bars for %s, it took %v\n", len(series), symbol, time.Since(t))
	return series, nil
}

func (p *PostgresDB) SaveResult(ctx context.Context, res *backtest.Result) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tradesim.backtest_run (
			run_id, symbol, strategy, initial_capital, final_equity,
			total_return, sharpe_ratio, max_drawdown, win_rate
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		res.RunID,
		res.Symbol,
		res.Strategy,
		res.InitialCapital,
		res.FinalEquity,
		res.TotalReturn,
		res.SharpeRatio,
		res.MaxDrawdown,
		res.WinRate,
	)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		pq.CopyInSchema("tradesim", "trade",
			"run_id", "executed_at", "side", "price", "shares", "commission"),
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range res.Trades {
		_, err = stmt.Exec(res.RunID, t.Timestamp, t.Side.String(), t.Price, t.Shares, t.Commission)
		if err != nil {
			return err
		}
	}
	if _, err = stmt.Exec(); err != nil {
		return err
	}

	return tx.Commit()
}

func (p *PostgresDB) FetchTrades(ctx context.Context, runID uuid.UUID) ([]models.Trade, error) {
	query := `SELECT executed_at, side, price, shares, commission
		FROM tradesim.trade
		WHERE run_id = $1
		ORDER BY executed_at ASC, id ASC`

	rows, err := p.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var (
			t    models.Trade
			side string
		)
		if err := rows.Scan(&t.Timestamp, &side, &t.Price, &t.Shares, &t.Commission); err != nil {
			return nil, err
		}
		if side == "BUY" {
			t.Side = models.Buy
		} else {
			t.Side = models.Sell
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
