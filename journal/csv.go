package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rustyeddy/sigbench/market"
)

// csvHeader is the on-disk ledger schema. Older aggregation tooling keys
// on these exact column names; do not reorder.
var csvHeader = []string{
	"symbol", "side", "entry_price", "exit_price",
	"time_entry", "time_exit", "reason", "time_limit_applied",
	"equity_before", "equity_after",
	"account_pnl_usd", "account_pnl_pct", "R_multiple",
	"profile_run", "risk_perc_run",
}

type CSVJournal struct {
	w *csv.Writer
	f *os.File
}

func NewCSV(path string) (*CSVJournal, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, err
	}

	return &CSVJournal{w: w, f: f}, nil
}

func (j *CSVJournal) RecordRow(r Row) error {
	err := j.w.Write([]string{
		r.Symbol,
		r.Side,
		f(r.EntryPrice),
		f(r.ExitPrice),
		r.EntryTime.UTC().Format(time.RFC3339),
		r.ExitTime.UTC().Format(time.RFC3339),
		r.Reason,
		strconv.FormatBool(r.TimeLimitApplied),
		f(r.EquityBefore),
		f(r.EquityAfter),
		f(r.PnLUSD),
		f(r.PnLPct),
		f(r.RMultiple),
		r.ProfileRun,
		f(r.RiskPercRun),
	})
	if err != nil {
		return err
	}

	j.w.Flush()
	return j.w.Error()
}

func (j *CSVJournal) Close() error {
	j.w.Flush()
	if err := j.w.Error(); err != nil {
		return err
	}
	return j.f.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

// ReadCSV loads a ledger file back into rows. Rows with unparsable
// timestamps or numbers are skipped rather than failing the file.
func ReadCSV(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header %s: %w", path, err)
	}

	col := map[string]int{}
	for i, name := range header {
		col[name] = i
	}
	for _, req := range []string{"reason", "time_exit"} {
		if _, ok := col[req]; !ok {
			return nil, fmt.Errorf("%s: missing column %q", path, req)
		}
	}

	get := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}
	getF := func(row []string, name string) float64 {
		v, _ := strconv.ParseFloat(get(row, name), 64)
		return v
	}

	var rows []Row
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}

		exitT, err := market.ParseTime(get(rec, "time_exit"))
		if err != nil {
			continue
		}
		entryT, _ := market.ParseTime(get(rec, "time_entry"))

		rows = append(rows, Row{
			Symbol:           get(rec, "symbol"),
			Side:             get(rec, "side"),
			EntryPrice:       getF(rec, "entry_price"),
			ExitPrice:        getF(rec, "exit_price"),
			EntryTime:        entryT,
			ExitTime:         exitT,
			Reason:           get(rec, "reason"),
			TimeLimitApplied: get(rec, "time_limit_applied") == "true",
			EquityBefore:     getF(rec, "equity_before"),
			EquityAfter:      getF(rec, "equity_after"),
			PnLUSD:           getF(rec, "account_pnl_usd"),
			PnLPct:           getF(rec, "account_pnl_pct"),
			RMultiple:        getF(rec, "R_multiple"),
			ProfileRun:       get(rec, "profile_run"),
			RiskPercRun:      getF(rec, "risk_perc_run"),
		})
	}

	return rows, nil
}
