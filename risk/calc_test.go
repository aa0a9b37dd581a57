package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRealizedPct(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		side  int
		entry float64
		exit  float64
		want  float64
	}{
		{"long full stop", +1, 100, 94, -6},
		{"long tp2", +1, 100, 112, 12},
		{"short full stop", -1, 100, 106, -6},
		{"short tp2", -1, 100, 88, 12},
		{"breakeven", +1, 100, 100, 0},
		{"zero entry", +1, 0, 100, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, RealizedPct(tt.side, tt.entry, tt.exit), 1e-9)
		})
	}
}

func TestRMultiple(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, -1.0, RMultiple(-6, 6), 1e-9)
	assert.InDelta(t, 2.0, RMultiple(12, 6), 1e-9)
	assert.InDelta(t, 0.0, RMultiple(0, 6), 1e-9)
	assert.InDelta(t, 0.0, RMultiple(5, 0), 1e-9)
}

func TestNotional(t *testing.T) {
	t.Parallel()

	// Risking 1% of 10k over a 6% stop needs a 1666.67 notional.
	assert.InDelta(t, 100.0, RiskAmount(10000, 1), 1e-9)
	assert.InDelta(t, 10000.0/6, Notional(10000, 1, 6), 1e-6)
	assert.InDelta(t, 1.0/6, LeverageEquivalent(1, 6), 1e-9)
}

func TestMaxDrawdownPct(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		equity []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"monotone up", []float64{100, 110, 120}, 0},
		{"flat", []float64{100, 100, 100}, 0},
		{"single dip", []float64{100, 97, 104}, -3},
		{"late peak dip", []float64{100, 110, 99, 120}, -10},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := MaxDrawdownPct(tt.equity)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.LessOrEqual(t, got, 0.0)
		})
	}
}
