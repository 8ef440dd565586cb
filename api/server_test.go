package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/adamdenes/tradesim/internal/backtest"
	"github.com/adamdenes/tradesim/internal/models"
)

func testBars(closes ...float64) models.BarSeries {
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

func postBacktest(t *testing.T, req *BacktestRequest) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}

	s := NewServer(":0", nil)
	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/backtest", bytes.NewReader(body))
	s.routes().ServeHTTP(rr, r)
	return rr
}

func TestBacktestHandler(t *testing.T) {
	t.Parallel()

	closes := make([]float64, 0, 30)
	for i := 0; i < 30; i++ {
		closes = append(closes, 100+float64(i%7))
	}

	req := &BacktestRequest{
		Symbol:         "TEST",
		Strategy:       "rsi",
		Bars:           testBars(closes...),
		InitialCapital: 10_000,
		Commission:     0.001,
		PositionSize:   0.95,
		Period:         3,
	}

	rr := postBacktest(t, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}

	var res backtest.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if res.Symbol != "TEST" || res.Strategy != "rsi" {
		t.Errorf("result tags = %s/%s, want TEST/rsi", res.Symbol, res.Strategy)
	}
	if res.InitialCapital != 10_000 {
		t.Errorf("InitialCapital = %v, want 10000", res.InitialCapital)
	}
	if len(res.EquityCurve) < len(req.Bars) {
		t.Errorf("equity curve has %d points, want at least %d", len(res.EquityCurve), len(req.Bars))
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestBacktestHandlerRejectsBadInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  *BacktestRequest
		want int
	}{
		{
			name: "unknown strategy",
			req:  &BacktestRequest{Symbol: "TEST", Strategy: "martingale", Bars: testBars(100, 101)},
			want: http.StatusBadRequest,
		},
		{
			name: "no bars and no store",
			req:  &BacktestRequest{Symbol: "TEST", Strategy: "rsi"},
			want: http.StatusBadRequest,
		},
		{
			name: "invalid strategy params",
			req: &BacktestRequest{
				Symbol: "TEST", Strategy: "rsi", Bars: testBars(100, 101),
				Oversold: 80, Overbought: 20,
			},
			want: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rr := postBacktest(t, tt.req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestBacktestHandlerMethodNotAllowed(t *testing.T) {
	t.Parallel()

	s := NewServer(":0", nil)
	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/backtest", nil)
	s.routes().ServeHTTP(rr, r)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rr.Code)
	}
}

func TestTradesHandlerWithoutStore(t *testing.T) {
	t.Parallel()

	s := NewServer(":0", nil)
	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/trades?run_id=4d9c2073-3f4e-4a53-a8a1-6ff565b917aa", nil)
	s.routes().ServeHTTP(rr, r)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}
