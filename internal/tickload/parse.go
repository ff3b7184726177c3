// Package tickload rebuilds the raw tick table from CSV objects in a bucket.
package tickload

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"stockpipe/internal/model"
)

var requiredColumns = []string{"ticker", "date", "open", "high", "low", "close", "volume"}

// Date layouts accepted in the Date column. Layouts without a zone are read
// in the parser's location.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ErrHeader marks an object whose header lacks a required column.
var ErrHeader = errors.New("tickload: bad csv header")

// RowError describes one rejected row.
type RowError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: column %s value %q: %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Parser reads Ticker,Date,Open,High,Low,Close,Volume CSV documents.
type Parser struct {
	Location *time.Location
}

// Parse streams rows of r into emit. Rejected rows go to reject and parsing
// continues. An emit error stops parsing and is returned.
func (p Parser) Parse(r io.Reader, emit func(model.Tick) error, reject func(*RowError)) error {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("tickload: read header: %w", err)
	}
	cols, err := indexHeader(header)
	if err != nil {
		return err
	}

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		line++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				reject(&RowError{Line: line, Err: err})
				continue
			}
			return fmt.Errorf("tickload: read row %d: %w", line, err)
		}
		tick, rowErr := parseRecord(record, cols, loc)
		if rowErr != nil {
			rowErr.Line = line
			reject(rowErr)
			continue
		}
		if err := emit(tick); err != nil {
			return err
		}
	}
}

func indexHeader(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
		cols[name] = i
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrHeader, strings.Join(missing, ","))
	}
	return cols, nil
}

func field(record []string, cols map[string]int, name string) string {
	i := cols[name]
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseRecord(record []string, cols map[string]int, loc *time.Location) (model.Tick, *RowError) {
	var tick model.Tick
	tick.Symbol = strings.ToUpper(field(record, cols, "ticker"))
	if tick.Symbol == "" {
		return tick, &RowError{Column: "Ticker", Err: errors.New("empty ticker")}
	}
	raw := field(record, cols, "date")
	ts, err := parseDate(raw, loc)
	if err != nil {
		return tick, &RowError{Column: "Date", Value: raw, Err: err}
	}
	tick.Time = ts

	prices := []struct {
		column string
		dst    *float64
	}{
		{"open", &tick.Open},
		{"high", &tick.High},
		{"low", &tick.Low},
		{"close", &tick.Close},
	}
	for _, pc := range prices {
		raw := field(record, cols, pc.column)
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return tick, &RowError{Column: pc.column, Value: raw, Err: err}
		}
		*pc.dst = v
	}

	if raw := field(record, cols, "volume"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return tick, &RowError{Column: "volume", Value: raw, Err: err}
		}
		tick.Volume = v
	}
	return tick, nil
}

func parseDate(raw string, loc *time.Location) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range dateLayouts {
		if ts, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date format")
}
