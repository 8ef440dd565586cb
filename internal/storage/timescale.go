package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/adamdenes/tradesim/internal/backtest"
	"github.com/adamdenes/tradesim/internal/logger"
	"github.com/adamdenes/tradesim/internal/models"
)

type TimescaleDB struct {
	db *sql.DB
}

func NewTimescaleDB(dsn string) (*TimescaleDB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &TimescaleDB{db: db}, nil
}

func (ts *TimescaleDB) Close() {
	ts.db.Close()
}

func (ts *TimescaleDB) Init() error {
	if _, err := ts.db.Exec("CREATE SCHEMA IF NOT EXISTS tradesim"); err != nil {
		return err
	}
	if err := ts.createBarTable(); err != nil {
		return err
	}
	if err := ts.createRunTables(); err != nil {
		return err
	}
	return ts.createDailyAggregate()
}

func (ts *TimescaleDB) createBarTable() error {
	tableQuery := `CREATE TABLE IF NOT EXISTS tradesim.bar (
		symbol TEXT NOT NULL,
		open_time TIMESTAMPTZ NOT NULL,
		open FLOAT NOT NULL,
		high FLOAT NOT NULL,
		low FLOAT NOT NULL,
		close FLOAT NOT NULL,
		volume FLOAT NOT NULL
	);`
	// Check if hypertable exists, if not create it
	hypertableQuery := `
	DO $$
	BEGIN
		IF NOT EXISTS (SELECT * FROM timescaledb_information.hypertables WHERE hypertable_schema = 'tradesim' AND hypertable_name = 'bar') THEN
			PERFORM create_hypertable('tradesim.bar', 'open_time');
		END IF;
	END $$;`

	if _, err := ts.db.Exec(tableQuery); err != nil {
		return err
	}
	_, err := ts.db.Exec(hypertableQuery)
	return err
}

func (ts *TimescaleDB) createRunTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS tradesim.backtest_run (
			run_id UUID PRIMARY KEY,
			symbol TEXT NOT NULL,
			strategy TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			initial_capital FLOAT NOT NULL,
			final_equity FLOAT NOT NULL,
			total_return FLOAT NOT NULL,
			sharpe_ratio FLOAT NOT NULL,
			max_drawdown FLOAT NOT NULL,
			win_rate FLOAT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tradesim.trade (
			id serial PRIMARY KEY,
			run_id UUID NOT NULL REFERENCES tradesim.backtest_run(run_id),
			executed_at TIMESTAMPTZ NOT NULL,
			side TEXT NOT NULL,
			price FLOAT NOT NULL,
			shares BIGINT NOT NULL,
			commission FLOAT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tradesim.equity (
			run_id UUID NOT NULL REFERENCES tradesim.backtest_run(run_id),
			snapshot_at TIMESTAMPTZ NOT NULL,
			value FLOAT NOT NULL
		);`,
	}
	for _, q := range queries {
		if _, err := ts.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (ts *TimescaleDB) createDailyAggregate() error {
	query := `
	CREATE MATERIALIZED VIEW IF NOT EXISTS tradesim.bar_daily WITH (timescaledb.continuous) AS
	SELECT
		symbol,
		time_bucket(INTERVAL '1 day', open_time) as bucket,
		FIRST(open, open_time) as open,
		MAX(high) as high,
		MIN(low) as low,
		LAST(close, open_time) as close,
		SUM(volume) as volume
	FROM tradesim.bar
	GROUP BY bucket, symbol;`

	_, err := ts.db.Exec(query)
	return err
}

func (ts *TimescaleDB) SaveBars(ctx context.Context, symbol string, series models.BarSeries) error {
	startTime := time.Now()

	conn, err := ts.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	err = conn.Raw(func(driverConn any) error {
		conn := driverConn.(*stdlib.Conn).Conn()

		src := &barCopySource{symbol: symbol, series: series, idx: -1}
		_, err := conn.CopyFrom(ctx,
			pgx.Identifier{"tradesim", "bar"},
			[]string{"symbol", "open_time", "open", "high", "low", "close", "volume"},
			src,
		)
		if err != nil {
			return fmt.Errorf("error CopyFrom: %v", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info.Printf("Finished copying %d bars to Timescale, it took %v\n", len(series), time.Since(startTime))
	return nil
}

func (ts *TimescaleDB) FetchBars(
	ctx context.Context,
	symbol string,
	start, end time.Time,
) (models.BarSeries, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	query := `SELECT open_time, open, high, low, close, volume
		FROM tradesim.bar
		WHERE symbol = $1 AND open_time >= $2 AND open_time <= $3
		ORDER BY open_time ASC`

	rows, err := ts.db.QueryContext(ctx, query, symbol, start, end)
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
	return series, rows.Err()
}

func (ts *TimescaleDB) SaveResult(ctx context.Context, res *backtest.Result) error {
	tx, err := ts.db.BeginTx(ctx, nil)
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

	for _, t := range res.Trades {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tradesim.trade (run_id, executed_at, side, price, shares, commission)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			res.RunID, t.Timestamp, t.Side.String(), t.Price, t.Shares, t.Commission,
		)
		if err != nil {
			return err
		}
	}

	for _, pt := range res.EquityCurve {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tradesim.equity (run_id, snapshot_at, value)
			VALUES ($1, $2, $3)`,
			res.RunID, pt.Timestamp, pt.Value,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (ts *TimescaleDB) FetchTrades(ctx context.Context, runID uuid.UUID) ([]models.Trade, error) {
	query := `SELECT executed_at, side, price, shares, commission
		FROM tradesim.trade
		WHERE run_id = $1
		ORDER BY executed_at ASC, id ASC`

	rows, err := ts.db.QueryContext(ctx, query, runID)
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

// Using CopyFromSource interface
type barCopySource struct {
	symbol string
	series models.BarSeries
	idx    int
}

func (bs *barCopySource) Next() bool {
	bs.idx++
	return bs.idx < len(bs.series)
}

func (bs *barCopySource) Values() ([]interface{}, error) {
	if bs.idx < 0 || bs.idx >= len(bs.series) {
		return nil, errors.New("no current record")
	}
	bar := bs.series[bs.idx]

	var (
		symbol   = pgtype.Text{}
		openTime = pgtype.Timestamptz{}
		open     = pgtype.Float8{}
		high     = pgtype.Float8{}
		low      = pgtype.Float8{}
		cloze    = pgtype.Float8{}
		volume   = pgtype.Float8{}
	)

	if err := symbol.Scan(bs.symbol); err != nil {
		return nil, err
	}
	if err := openTime.Scan(bar.OpenTime); err != nil {
		return nil, err
	}
	if err := open.Scan(bar.Open); err != nil {
		return nil, err
	}
	if err := high.Scan(bar.High); err != nil {
		return nil, err
	}
	if err := low.Scan(bar.Low); err != nil {
		return nil, err
	}
	if err := cloze.Scan(bar.Close); err != nil {
		return nil, err
	}
	if err := volume.Scan(bar.Volume); err != nil {
		return nil, err
	}

	return []interface{}{symbol, openTime, open, high, low, cloze, volume}, nil
}

func (bs *barCopySource) Err() error {
	return nil
}
