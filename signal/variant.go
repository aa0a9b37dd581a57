package signal

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Variant is one (strategy profile, risk percentage) configuration,
// simulated and reported independently.
type Variant struct {
	Profile string
	Risk    float64 // percent of equity risked per trade, e.g. 1.0
}

// ParseVariant parses a "PROFILE:risk" specifier such as "SAFE:1.0".
// The profile is upper-cased.
func ParseVariant(s string) (Variant, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return Variant{}, fmt.Errorf("bad variant %q (want PROFILE:risk)", s)
	}

	profile := strings.ToUpper(strings.TrimSpace(parts[0]))
	if profile == "" {
		return Variant{}, fmt.Errorf("bad variant %q: empty profile", s)
	}

	risk, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Variant{}, fmt.Errorf("bad variant %q: %w", s, err)
	}
	if risk <= 0 {
		return Variant{}, fmt.Errorf("bad variant %q: risk must be positive", s)
	}

	return Variant{Profile: profile, Risk: risk}, nil
}

// ParseVariants parses a list of specifiers, skipping malformed entries
// with a warning.
func ParseVariants(specs []string) []Variant {
	var out []Variant
	for _, s := range specs {
		v, err := ParseVariant(s)
		if err != nil {
			log.Warn().Err(err).Msg("skipping variant")
			continue
		}
		out = append(out, v)
	}
	return out
}

// String returns the canonical "PROFILE:risk" form.
func (v Variant) String() string {
	return fmt.Sprintf("%s:%s", v.Profile, strconv.FormatFloat(v.Risk, 'f', 1, 64))
}

// Label is the human-readable form used in summaries, e.g. "risk 1.0 safe".
func (v Variant) Label() string {
	return fmt.Sprintf("risk %.1f %s", v.Risk, strings.ToLower(v.Profile))
}
