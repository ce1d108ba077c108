package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value stored in minor units.
type Money = int64

// CompoundMode controls how a percentage is layered onto a running price.
type CompoundMode string

const (
	// CompoundProgressive applies each percentage to the current running price.
	CompoundProgressive CompoundMode = "PROGRESSIVE"
	// CompoundAdditive applies each percentage to a fixed base.
	CompoundAdditive CompoundMode = "ADDITIVE"
)

// ParseCompoundMode normalises a textual mode. Empty input is returned as-is.
func ParseCompoundMode(value string) (CompoundMode, error) {
	switch mode := CompoundMode(strings.ToUpper(strings.TrimSpace(value))); mode {
	case "", CompoundProgressive, CompoundAdditive:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: compound mode %q", ErrInvalidMode, value)
	}
}

// Group is a promotion stacking group. Values are declared in application priority order.
type Group int

const (
	GroupSeasonal Group = iota + 1
	GroupEssential
	GroupTargeted
	GroupPortfolio
	GroupCampaign
)

// Groups lists every stacking group in application priority order.
var Groups = []Group{GroupSeasonal, GroupEssential, GroupTargeted, GroupPortfolio, GroupCampaign}

func (g Group) String() string {
	switch g {
	case GroupSeasonal:
		return "SEASONAL"
	case GroupEssential:
		return "ESSENTIAL"
	case GroupTargeted:
		return "TARGETED"
	case GroupPortfolio:
		return "PORTFOLIO"
	case GroupCampaign:
		return "CAMPAIGN"
	default:
		return fmt.Sprintf("Group(%d)", int(g))
	}
}

// Label is the human readable group name used in exclusion reasons.
func (g Group) Label() string {
	switch g {
	case GroupSeasonal:
		return "Seasonal"
	case GroupEssential:
		return "Essential"
	case GroupTargeted:
		return "Targeted"
	case GroupPortfolio:
		return "Portfolio"
	case GroupCampaign:
		return "Campaign"
	default:
		return g.String()
	}
}

// Valid reports whether g is a declared group.
func (g Group) Valid() bool {
	return g >= GroupSeasonal && g <= GroupCampaign
}

// ParseGroup converts the canonical upper-case name into a Group.
func ParseGroup(value string) (Group, error) {
	name := strings.ToUpper(strings.TrimSpace(value))
	for _, g := range Groups {
		if g.String() == name {
			return g, nil
		}
	}
	return 0, fmt.Errorf("unknown promotion group %q", value)
}

// MarshalText implements encoding.TextMarshaler.
func (g Group) MarshalText() ([]byte, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("unknown promotion group %d", int(g))
	}
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Group) UnmarshalText(text []byte) error {
	parsed, err := ParseGroup(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// RoomType is a sellable room category with the hotel's take-home price.
type RoomType struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	NetPrice Money  `json:"netPrice"`
}

// Channel is an OTA distribution channel with its commission model.
type Channel struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Code              string          `json:"code"`
	CommissionPercent decimal.Decimal `json:"commissionPercent"`
	CommissionMode    CompoundMode    `json:"commissionMode"`
	Active            bool            `json:"isActive"`
	Boosters          []Booster       `json:"boosters,omitempty"`
}

// Booster is an optional commission programme (Agoda Growth Program, Booking
// Preferred) that raises the channel's commission while enabled.
type Booster struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Program string          `json:"program"`
	Percent decimal.Decimal `json:"boostPercent"`
	Enabled bool            `json:"enabled"`
}

// Boost is the sum of the enabled boosters.
func (c Channel) Boost() decimal.Decimal {
	total := decimal.Zero
	for _, b := range c.Boosters {
		if b.Enabled {
			total = total.Add(b.Percent)
		}
	}
	return total
}

// EffectiveCommission is the base commission plus every enabled booster.
func (c Channel) EffectiveCommission() decimal.Decimal {
	return c.CommissionPercent.Add(c.Boost())
}

// TraceStep documents one transformation applied to a price.
type TraceStep struct {
	Step        string `json:"step"`
	Description string `json:"description"`
	PriceAfter  Money  `json:"priceAfter"`
}

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

func fraction(pct decimal.Decimal) decimal.Decimal {
	return pct.Div(hundred)
}

func validPercent(pct decimal.Decimal) bool {
	return !pct.IsNegative() && pct.LessThan(hundred)
}

// roundMoney rounds half-up to whole minor units. Prices are never negative here.
func roundMoney(d decimal.Decimal) Money {
	return d.Round(0).IntPart()
}
