package pricing

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Rounding is the rule applied to BAR before promotions in forward mode.
type Rounding string

const (
	RoundingNone     Rounding = "NONE"
	RoundingRound100 Rounding = "ROUND_100"
	RoundingCeil1000 Rounding = "CEIL_1000"
)

var thousand = decimal.NewFromInt(1000)

// Guardrail codes reported when forward pricing clamps BAR.
const (
	GuardrailMinRate = "MIN_RATE"
	GuardrailMaxRate = "MAX_RATE"
)

// ParseRounding normalises a rounding rule name; empty input means RoundingNone.
func ParseRounding(value string) (Rounding, error) {
	switch r := Rounding(strings.ToUpper(strings.TrimSpace(value))); r {
	case "", RoundingNone:
		return RoundingNone, nil
	case RoundingRound100, RoundingCeil1000:
		return r, nil
	default:
		return "", fmt.Errorf("%w: rounding %q", ErrInvalidSettings, value)
	}
}

func (r Rounding) apply(bar decimal.Decimal) decimal.Decimal {
	switch r {
	case RoundingRound100:
		return bar.Div(hundred).Round(0).Mul(hundred)
	case RoundingCeil1000:
		return bar.Div(thousand).Ceil().Mul(thousand)
	default:
		return bar
	}
}

// Settings is the per-request configuration snapshot injected into the engine.
// The caller owns loading and refreshing it.
type Settings struct {
	Rounding Rounding `json:"rounding,omitempty"`
	// NetOverrides replaces RoomType.NetPrice in forward mode, keyed by room type id.
	NetOverrides map[string]Money `json:"netOverrides,omitempty"`
	// OccupancyMultiplier scales NET before commission. Zero means no adjustment.
	OccupancyMultiplier decimal.Decimal `json:"occupancyMultiplier"`
	// MinRate and MaxRate clamp BAR in forward mode. Operator-entered prices are
	// never clamped; they only warn when outside the range.
	MinRate Money `json:"minRate,omitempty"`
	MaxRate Money `json:"maxRate,omitempty"`
}

// Validate checks the snapshot for configuration mistakes.
func (s Settings) Validate() error {
	if _, err := ParseRounding(string(s.Rounding)); err != nil {
		return err
	}
	if s.OccupancyMultiplier.IsNegative() {
		return fmt.Errorf("%w: occupancy multiplier %s", ErrInvalidSettings, s.OccupancyMultiplier)
	}
	if s.MinRate < 0 || s.MaxRate < 0 {
		return fmt.Errorf("%w: negative rate bound", ErrInvalidSettings)
	}
	if s.MaxRate > 0 && s.MinRate > s.MaxRate {
		return fmt.Errorf("%w: min rate %d above max rate %d", ErrInvalidSettings, s.MinRate, s.MaxRate)
	}
	for id, net := range s.NetOverrides {
		if net < 0 {
			return fmt.Errorf("%w: negative net override for room type %s", ErrInvalidSettings, id)
		}
	}
	return nil
}

func (s Settings) rounding() Rounding {
	if s.Rounding == "" {
		return RoundingNone
	}
	return s.Rounding
}

func (s Settings) rateWarnings(bar Money) []string {
	var warnings []string
	if s.MinRate > 0 && bar < s.MinRate {
		warnings = append(warnings, fmt.Sprintf("BAR %s below minimum rate %s", humanize.Comma(bar), humanize.Comma(s.MinRate)))
	}
	if s.MaxRate > 0 && bar > s.MaxRate {
		warnings = append(warnings, fmt.Sprintf("BAR %s above maximum rate %s", humanize.Comma(bar), humanize.Comma(s.MaxRate)))
	}
	return warnings
}
