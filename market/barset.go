package market

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrNoData is returned when no bar file exists for a symbol, or the file
// yields zero usable bars. Callers treat it as a non-fatal skip.
var ErrNoData = errors.New("market: no bar data")

// BarSet is an ordered-by-time, deduplicated sequence of bars for one symbol.
type BarSet struct {
	Symbol   string
	Filepath string
	Bars     []Bar

	duplicates int
	badLines   int
	outOfOrder int
}

// LoadOptions controls trimming applied while loading a bar series.
type LoadOptions struct {
	// DaysBack keeps only the trailing N days of bars. 0 disables.
	DaysBack int
	// SessionStart/SessionEnd bound the UTC time of day ("07:00", "21:00").
	// Empty strings disable the session trim.
	SessionStart string
	SessionEnd   string
	// Now anchors the DaysBack cutoff; zero value means time.Now().
	Now time.Time
}

// NormalizeSymbol converts exchange notation to the flat form used in
// filenames, e.g. CYBER/USDT:USDT -> CYBERUSDT.
func NormalizeSymbol(sym string) string {
	if strings.Contains(sym, "/") && strings.Contains(sym, ":") {
		base := strings.SplitN(sym, "/", 2)[0]
		return base + "USDT"
	}
	return sym
}

// Load reads the minute bars for symbol from dataDir.
//
// Two filename conventions are accepted: {SYM}_1m.csv and
// BINANCE_1m_{SYM}.csv. Column headers may use long or single-letter names
// (time/t, open/o, ...). Timestamps may be ISO-8601 or unix milliseconds.
// Duplicate timestamps keep the first occurrence.
func Load(dataDir, symbol string, opts LoadOptions) (*BarSet, error) {
	base := NormalizeSymbol(symbol)
	candidates := []string{
		filepath.Join(dataDir, base+"_1m.csv"),
		filepath.Join(dataDir, "BINANCE_1m_"+base+".csv"),
	}

	var fn string
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			fn = p
			break
		}
	}
	if fn == "" {
		return nil, fmt.Errorf("%w for %s (%s)", ErrNoData, symbol, base)
	}

	bs := &BarSet{Symbol: symbol, Filepath: fn}
	if err := bs.readFile(fn); err != nil {
		return nil, err
	}

	bs.sortAndDedup()
	bs.trim(opts)

	if len(bs.Bars) == 0 {
		return nil, fmt.Errorf("%w for %s after trimming (%s)", ErrNoData, symbol, filepath.Base(fn))
	}

	if bs.badLines > 0 || bs.duplicates > 0 || bs.outOfOrder > 0 {
		log.Warn().Str("symbol", symbol).
			Int("bad_lines", bs.badLines).
			Int("duplicates", bs.duplicates).
			Int("out_of_order", bs.outOfOrder).
			Msg("bar ingest warnings")
	}
	log.Info().Str("symbol", symbol).Int("bars", len(bs.Bars)).
		Str("file", filepath.Base(fn)).Msg("bars loaded")

	return bs, nil
}

var columnAliases = map[string]string{
	"time": "time", "t": "time",
	"open": "open", "o": "open",
	"high": "high", "h": "high",
	"low": "low", "l": "low",
	"close": "close", "c": "close",
	"volume": "volume", "v": "volume",
}

func (bs *BarSet) readFile(fn string) error {
	f, err := os.Open(fn)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("read header %s: %w", fn, err)
	}

	idx := map[string]int{}
	for i, name := range header {
		if canon, ok := columnAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
			idx[canon] = i
		}
	}
	for _, req := range []string{"time", "open", "high", "low", "close", "volume"} {
		if _, ok := idx[req]; !ok {
			return fmt.Errorf("%s: missing column %q", fn, req)
		}
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			bs.badLines++
			continue
		}

		t, err := ParseTime(row[idx["time"]])
		if err != nil {
			bs.badLines++
			continue
		}

		var vals [5]float64
		bad := false
		for i, col := range []string{"open", "high", "low", "close", "volume"} {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[idx[col]]), 64)
			if err != nil {
				bad = true
				break
			}
			vals[i] = v
		}
		if bad {
			bs.badLines++
			continue
		}

		bs.Bars = append(bs.Bars, Bar{
			Time:   t,
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
		})
	}

	return nil
}

// ParseTime accepts ISO-8601 timestamps (with or without zone) and unix
// milliseconds. All results are UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	// Unix milliseconds, possibly with a fractional part.
	if ms, err := strconv.ParseFloat(s, 64); err == nil {
		return time.UnixMilli(int64(ms)).UTC(), nil
	}

	return time.Time{}, fmt.Errorf("unparsable timestamp %q", s)
}

func (bs *BarSet) sortAndDedup() {
	for i := 1; i < len(bs.Bars); i++ {
		if bs.Bars[i].Time.Before(bs.Bars[i-1].Time) {
			bs.outOfOrder++
		}
	}
	sort.SliceStable(bs.Bars, func(i, j int) bool {
		return bs.Bars[i].Time.Before(bs.Bars[j].Time)
	})

	// Keep-first policy for duplicate timestamps.
	out := bs.Bars[:0]
	for _, b := range bs.Bars {
		if len(out) > 0 && b.Time.Equal(out[len(out)-1].Time) {
			bs.duplicates++
			continue
		}
		out = append(out, b)
	}
	bs.Bars = out
}

func (bs *BarSet) trim(opts LoadOptions) {
	if opts.DaysBack > 0 {
		now := opts.Now
		if now.IsZero() {
			now = time.Now().UTC()
		}
		cutoff := now.UTC().AddDate(0, 0, -opts.DaysBack)
		i := sort.Search(len(bs.Bars), func(i int) bool {
			return !bs.Bars[i].Time.Before(cutoff)
		})
		bs.Bars = bs.Bars[i:]
	}

	if opts.SessionStart != "" && opts.SessionEnd != "" {
		start, err1 := parseClock(opts.SessionStart)
		end, err2 := parseClock(opts.SessionEnd)
		if err1 != nil || err2 != nil {
			return
		}
		out := bs.Bars[:0]
		for _, b := range bs.Bars {
			if inSession(b.Time, start, end) {
				out = append(out, b)
			}
		}
		bs.Bars = out
	}
}

// parseClock converts "HH:MM" to minutes past midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("bad clock %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// inSession checks the UTC time of day against [start, end]. A window with
// start > end wraps over midnight.
func inSession(t time.Time, start, end int) bool {
	hm := t.UTC().Hour()*60 + t.UTC().Minute()
	if start <= end {
		return hm >= start && hm <= end
	}
	return hm >= start || hm <= end
}

// SearchTime returns the index of the first bar whose timestamp is >= t,
// or len(Bars) if no such bar exists.
func (bs *BarSet) SearchTime(t time.Time) int {
	return sort.Search(len(bs.Bars), func(i int) bool {
		return !bs.Bars[i].Time.Before(t)
	})
}

// Stats summarizes what the loader kept and dropped.
type Stats struct {
	Bars       int
	Duplicates int
	BadLines   int
	OutOfOrder int
	First      time.Time
	Last       time.Time
}

func (bs *BarSet) Stats() Stats {
	s := Stats{
		Bars:       len(bs.Bars),
		Duplicates: bs.duplicates,
		BadLines:   bs.badLines,
		OutOfOrder: bs.outOfOrder,
	}
	if len(bs.Bars) > 0 {
		s.First = bs.Bars[0].Time
		s.Last = bs.Bars[len(bs.Bars)-1].Time
	}
	return s
}
