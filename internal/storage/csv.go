package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/adamdenes/tradesim/internal/logger"
	"github.com/adamdenes/tradesim/internal/models"
)

// LoadBarSeries reads OHLCV bars from a CSV file. The expected layout
// is `timestamp,open,high,low,close,volume`; a header row is detected
// and skipped. Timestamps are RFC 3339, `2006-01-02` dates, or unix
// milliseconds. The returned series is validated.
func LoadBarSeries(path string) (models.BarSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	start := time.Now()
	series, err := ReadBarSeries(f)
	if err != nil {
		return nil, err
	}
	logger.Info.Printf("Loaded %d bars from %s in %v\n", len(series), path, time.Since(start))
	return series, nil
}

func ReadBarSeries(r io.Reader) (models.BarSeries, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 6

	var series models.BarSeries
	row := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV record: %v", err)
		}
		if row == 0 && isHeader(rec) {
			row++
			continue
		}

		bar, err := parseBar(rec, row)
		if err != nil {
			return nil, err
		}
		series = append(series, bar)
		row++
	}

	if len(series) == 0 {
		return nil, models.ErrEmptySeries
	}
	if err := series.Validate(); err != nil {
		return nil, err
	}
	return series, nil
}

func isHeader(rec []string) bool {
	_, err := strconv.ParseFloat(rec[1], 64)
	return err != nil
}

func parseBar(rec []string, row int) (models.Bar, error) {
	ts, err := parseTimestamp(rec[0])
	if err != nil {
		return models.Bar{}, &models.DataShapeError{
			Index: row, Field: "timestamp", Reason: err.Error(),
		}
	}

	fields := []string{"open", "high", "low", "close", "volume"}
	vals := make([]float64, len(fields))
	for i, name := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[i+1]), 64)
		if err != nil {
			return models.Bar{}, &models.DataShapeError{
				Index: row, Field: name, Reason: err.Error(),
			}
		}
		vals[i] = v
	}

	return models.Bar{
		OpenTime: ts,
		Open:     vals[0],
		High:     vals[1],
		Low:      vals[2],
		Close:    vals[3],
		Volume:   vals[4],
	}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", s)
}
