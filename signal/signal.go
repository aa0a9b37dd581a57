package signal

import (
	"strings"
	"time"

	"github.com/rustyeddy/sigbench/market"
)

// Entry is a candidate trade opportunity emitted by a scanner.
//
// Time may fall between bars; the backtest resolves it to the first bar at
// or after it. Price is the scanner's reference price and is not used as
// the fill price.
type Entry struct {
	Time    time.Time
	Price   float64
	Profile string
}

// Source produces entry candidates from a bar series. Implementations are
// external collaborators (scanners, model gates); order of the returned
// entries is not guaranteed.
type Source interface {
	Scan(bs *market.BarSet) []Entry
}

// IntervalScanner emits an entry every Step-th bar. It stands in for the
// real per-profile filter pipeline and is useful for sanity runs.
type IntervalScanner struct {
	Profile string
	Step    int
}

func (s IntervalScanner) Scan(bs *market.BarSet) []Entry {
	step := s.Step
	if step <= 0 {
		step = 500
	}

	var entries []Entry
	for i, b := range bs.Bars {
		if i%step != 0 {
			continue
		}
		entries = append(entries, Entry{
			Time:    b.Time,
			Price:   b.Close,
			Profile: s.Profile,
		})
	}
	return entries
}

// GroupByProfile buckets entries by their originating profile. Entries
// without a profile default to SAFE.
func GroupByProfile(entries []Entry) map[string][]Entry {
	out := map[string][]Entry{}
	for _, e := range entries {
		p := strings.ToUpper(strings.TrimSpace(e.Profile))
		if p == "" {
			p = "SAFE"
		}
		out[p] = append(out[p], e)
	}
	return out
}
