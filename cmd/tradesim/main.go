package main

import (
	"context"
	"flag"
	"os"

	"github.com/adamdenes/tradesim/api"
	"github.com/adamdenes/tradesim/internal/backtest"
	"github.com/adamdenes/tradesim/internal/logger"
	"github.com/adamdenes/tradesim/internal/storage"
	"github.com/adamdenes/tradesim/strategy"
)

func main() {
	var (
		addr     = flag.String("addr", ":4000", "HTTP network address")
		serve    = flag.Bool("serve", false, "start the HTTP server instead of a one-shot run")
		dsn      = flag.String("dsn", os.Getenv("TRADESIM_DSN"), "Postgres/Timescale connection string")
		backend  = flag.String("backend", "timescale", "storage backend: postgres or timescale")
		csvPath  = flag.String("csv", "", "CSV file with OHLCV bars")
		symbol   = flag.String("symbol", "UNKNOWN", "instrument symbol")
		stratArg = flag.String("strategy", "rsi", "strategy: rsi, macd, ma-crossover, bollinger, mean-reversion")
		capital  = flag.Float64("capital", backtest.DefaultInitialCapital, "initial capital")
		comm     = flag.Float64("commission", backtest.DefaultCommission, "commission per share")
		posSize  = flag.Float64("position-size", backtest.DefaultPositionSize, "fraction of cash per buy")
		tradeCSV = flag.String("trades-out", "", "write the trade log as CSV to this file")
	)
	flag.Parse()

	logger.Init()

	var store storage.Storage
	if *dsn != "" {
		var err error
		switch *backend {
		case "postgres":
			store, err = storage.NewPostgresDB(*dsn)
		default:
			store, err = storage.NewTimescaleDB(*dsn)
		}
		if err != nil {
			logger.Error.Fatalf("error connecting to %s: %v", *backend, err)
		}
		defer store.Close()

		if err := store.Init(); err != nil {
			logger.Error.Fatalf("error initializing storage: %v", err)
		}
	}

	if *serve {
		server := api.NewServer(*addr, store)
		server.Run()
		return
	}

	if *csvPath == "" {
		logger.Error.Fatal("either -serve or -csv is required")
	}

	series, err := storage.LoadBarSeries(*csvPath)
	if err != nil {
		logger.Error.Fatalf("error loading bars: %v", err)
	}

	strat, err := strategy.Default(*stratArg)
	if err != nil {
		logger.Error.Fatal(err)
	}

	engine, err := backtest.NewEngine(*symbol, strat, *capital, *comm, *posSize)
	if err != nil {
		logger.Error.Fatal(err)
	}

	res, err := engine.Run(context.Background(), series)
	if err != nil {
		logger.Error.Fatalf("backtest failed: %v", err)
	}

	res.Report(os.Stdout)

	if *tradeCSV != "" {
		f, err := os.Create(*tradeCSV)
		if err != nil {
			logger.Error.Fatalf("error creating %s: %v", *tradeCSV, err)
		}
		defer f.Close()

		if err := res.WriteTradesCSV(f); err != nil {
			logger.Error.Fatalf("error writing trades: %v", err)
		}
	}

	if store != nil {
		if err := store.SaveBars(context.Background(), *symbol, series); err != nil {
			logger.Warning.Printf("could not persist bars: %v\n", err)
		}
		if err := store.SaveResult(context.Background(), res); err != nil {
			logger.Warning.Printf("could not persist result: %v\n", err)
		}
	}
}
