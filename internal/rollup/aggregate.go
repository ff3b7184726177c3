package rollup

import (
	"sort"
	"time"

	"stockpipe/internal/model"
)

// BucketStart returns floor(t, span) in loc. Minute buckets align to the
// unix epoch, day buckets to local midnight, week buckets to Monday and
// month buckets to multiples of the span counted from January.
func BucketStart(t time.Time, span Span, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	switch {
	case span.Minutes > 0:
		width := int64(span.Minutes) * 60
		_, offset := t.Zone()
		local := t.Unix() + int64(offset)
		floored := local - mod(local, width)
		return time.Unix(floored-int64(offset), 0).In(loc)
	case span.Days > 0 && span.Days%7 == 0:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		back := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -back)
	case span.Days > 0:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	case span.Months > 0:
		idx := t.Year()*12 + int(t.Month()) - 1
		idx -= int(mod(int64(idx), int64(span.Months)))
		return time.Date(idx/12, time.Month(idx%12+1), 1, 0, 0, 0, 0, loc)
	default:
		return t
	}
}

func mod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

type bucketKey struct {
	symbol string
	start  int64
}

// Aggregate folds ticks into candles of res. Open is the earliest tick's
// open, close the latest tick's close, high and low the extremes; volume
// follows res.Volume. Candles are ordered by symbol then bucket.
func Aggregate(ticks []model.Tick, res Resolution, loc *time.Location) []model.Candle {
	if len(ticks) == 0 {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}
	sorted := make([]model.Tick, len(ticks))
	copy(sorted, ticks)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	index := make(map[bucketKey]int)
	var candles []model.Candle
	for _, tk := range sorted {
		start := BucketStart(tk.Time, res.Bucket, loc)
		key := bucketKey{symbol: tk.Symbol, start: start.Unix()}
		i, ok := index[key]
		if !ok {
			index[key] = len(candles)
			candles = append(candles, model.Candle{
				Bucket: start.UTC(),
				Symbol: tk.Symbol,
				Open:   tk.Open,
				High:   tk.High,
				Low:    tk.Low,
				Close:  tk.Close,
				Volume: tk.Volume,
			})
			continue
		}
		c := &candles[i]
		if tk.High > c.High {
			c.High = tk.High
		}
		if tk.Low < c.Low {
			c.Low = tk.Low
		}
		c.Close = tk.Close
		if res.Volume == VolumeSum {
			c.Volume += tk.Volume
		} else {
			c.Volume = tk.Volume
		}
	}
	sort.SliceStable(candles, func(i, j int) bool {
		if candles[i].Symbol != candles[j].Symbol {
			return candles[i].Symbol < candles[j].Symbol
		}
		return candles[i].Bucket.Before(candles[j].Bucket)
	})
	return candles
}
