package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/adamdenes/tradesim/internal/backtest"
	"github.com/adamdenes/tradesim/internal/models"
)

// Storage persists bar data and backtest outcomes. Two backends are
// provided: PostgresDB over lib/pq and TimescaleDB over pgx, the
// latter with a hypertable for the bar history.
type Storage interface {
	Init() error
	Close()

	SaveBars(ctx context.Context, symbol string, series models.BarSeries) error
	FetchBars(ctx context.Context, symbol string, start, end time.Time) (models.BarSeries, error)

	SaveResult(ctx context.Context, res *backtest.Result) error
	FetchTrades(ctx context.Context, runID uuid.UUID) ([]models.Trade, error)
}
