package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/sigbench/market"
	"github.com/rustyeddy/sigbench/signal"
)

type recordingSink struct {
	trades []Trade
}

func (s *recordingSink) Execute(t Trade) {
	s.trades = append(s.trades, t)
}

func runnerBars() *market.BarSet {
	return series(
		mb(0, 99, 101, 98, 100),
		mb(2, 100, 100, 93, 95),
		mb(10, 99, 101, 98, 100),
		mb(12, 100, 100, 93, 95),
	)
}

func TestRunnerCooldownFiltersSecondEntry(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	r := Runner{
		Bars:       runnerBars(),
		Thresholds: testThresholds,
		Governor:   newTestGovernor(10, 30),
		Sink:       sink,
	}

	// First entry exits at minute 2; the second signal at minute 10 is
	// inside the 30 minute cooldown and is silently filtered.
	n := r.Run([]signal.Entry{sig(0), sig(10)})

	assert.Equal(t, 1, n)
	assert.Len(t, sink.trades, 1)
	assert.Equal(t, ExitSL, sink.trades[0].Reason)
}

func TestRunnerForceAcceptBypassesGate(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	r := Runner{
		Bars:        runnerBars(),
		Thresholds:  testThresholds,
		Governor:    newTestGovernor(10, 30),
		Sink:        sink,
		ForceAccept: true,
	}

	n := r.Run([]signal.Entry{sig(0), sig(10)})
	assert.Equal(t, 2, n)

	// Registration still happened: the cooldown from the second exit
	// keeps gating later entries even though the gate was bypassed.
	assert.False(t, r.Governor.CanTrade(t0.Add(20*time.Minute), "BTCUSDT"))
}

func TestRunnerQuotaStopsLaterEntries(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	r := Runner{
		Bars:       runnerBars(),
		Thresholds: testThresholds,
		Governor:   newTestGovernor(1, 0),
		Sink:       sink,
	}

	n := r.Run([]signal.Entry{sig(0), sig(10)})
	assert.Equal(t, 1, n)
}

func TestRunnerDiscardedScanRegistersNothing(t *testing.T) {
	t.Parallel()

	// One bar, nothing triggers, no force-accept: the simulation is
	// dropped and the governor never sees a registration.
	bs := series(mb(0, 99, 101, 98, 100))
	gov := newTestGovernor(1, 30)
	sink := &recordingSink{}

	r := Runner{Bars: bs, Thresholds: testThresholds, Governor: gov, Sink: sink}
	n := r.Run([]signal.Entry{sig(0)})

	assert.Equal(t, 0, n)
	assert.Empty(t, sink.trades)
	assert.True(t, gov.CanTrade(t0.Add(time.Minute), "BTCUSDT"))
}

func TestRunnerSkipsZeroTimeEntries(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	r := Runner{
		Bars:       runnerBars(),
		Thresholds: testThresholds,
		Governor:   newTestGovernor(10, 0),
		Sink:       sink,
	}

	n := r.Run([]signal.Entry{{Price: 100, Profile: "SAFE"}})
	assert.Equal(t, 0, n)
}
