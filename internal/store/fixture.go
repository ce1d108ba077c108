package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/rms-pricing/internal/pricing"
)

// Fixture is the seed file format: one or more hotels with their reference data.
type Fixture struct {
	Hotels []Hotel `toml:"hotel"`
}

// Hotel is the writable form of a hotel's pricing reference data.
type Hotel struct {
	ID             string          `toml:"id"`
	Name           string          `toml:"name"`
	Rounding       string          `toml:"rounding"`
	MinRate        int64           `toml:"min_rate"`
	MaxRate        int64           `toml:"max_rate"`
	OccupancyPct   string          `toml:"occupancy_pct"`
	RoomTypes      []RoomType      `toml:"room_type"`
	Channels       []Channel       `toml:"channel"`
	OccupancyTiers []OccupancyTier `toml:"occupancy_tier"`
}

// RoomType is a seeded room type with optional reverse-mode target and season rates.
type RoomType struct {
	ID           string       `toml:"id"`
	Name         string       `toml:"name"`
	NetPrice     int64        `toml:"net_price"`
	DisplayPrice *int64       `toml:"display_price"`
	Seasons      []SeasonRate `toml:"season"`
}

// SeasonRate overrides the room type NET between two inclusive dates.
type SeasonRate struct {
	StartsOn string `toml:"starts_on"`
	EndsOn   string `toml:"ends_on"`
	NetPrice int64  `toml:"net_price"`
}

// OccupancyTier maps an occupancy range [Min, Max) to a NET multiplier.
type OccupancyTier struct {
	Min        string `toml:"min"`
	Max        string `toml:"max"`
	Multiplier string `toml:"multiplier"`
}

// Channel is a seeded OTA channel with its proposed promotions.
type Channel struct {
	ID                string      `toml:"id"`
	Name              string      `toml:"name"`
	Code              string      `toml:"code"`
	CommissionPercent string      `toml:"commission_percent"`
	CommissionMode    string      `toml:"commission_mode"`
	Active            *bool       `toml:"active"`
	Promotions        []Promotion `toml:"promotion"`
	Boosters          []Booster   `toml:"booster"`
}

// Booster is a commission programme enrolled on its channel.
type Booster struct {
	ID           string `toml:"id"`
	Name         string `toml:"name"`
	Program      string `toml:"program"`
	BoostPercent string `toml:"boost_percent"`
	Enabled      *bool  `toml:"enabled"`
}

func (b Booster) isEnabled() bool {
	return b.Enabled == nil || *b.Enabled
}

// Promotion proposes a catalog promotion on its channel.
type Promotion struct {
	ID          string `toml:"id"`
	PromotionID string `toml:"promotion_id"`
	Percent     string `toml:"percent"`
	Mode        string `toml:"mode"`
}

func (c Channel) isActive() bool {
	return c.Active == nil || *c.Active
}

// LoadFixture decodes and normalises a TOML seed file.
func LoadFixture(path string) (*Fixture, error) {
	var f Fixture
	meta, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("fixture %s: unknown key %q", path, undecoded[0].String())
	}
	for i := range f.Hotels {
		if err := f.Hotels[i].normalize(); err != nil {
			return nil, err
		}
	}
	return &f, nil
}

// normalize validates h and fills generated ids and default modes.
func (h *Hotel) normalize() error {
	h.Name = strings.TrimSpace(h.Name)
	if h.Name == "" {
		return fmt.Errorf("hotel %q: name is required", h.ID)
	}
	var err error
	if h.ID, err = ensureID(h.ID); err != nil {
		return fmt.Errorf("hotel %s: %w", h.Name, err)
	}
	if strings.TrimSpace(h.Rounding) != "" {
		rounding, err := pricing.ParseRounding(h.Rounding)
		if err != nil {
			return fmt.Errorf("hotel %s: %w", h.Name, err)
		}
		h.Rounding = string(rounding)
	}
	if h.MinRate < 0 || h.MaxRate < 0 || (h.MaxRate > 0 && h.MinRate > h.MaxRate) {
		return fmt.Errorf("hotel %s: invalid rate bounds", h.Name)
	}
	if err := checkDecimal(h.OccupancyPct, true); err != nil {
		return fmt.Errorf("hotel %s occupancy: %w", h.Name, err)
	}

	for i := range h.RoomTypes {
		rt := &h.RoomTypes[i]
		if rt.ID, err = ensureID(rt.ID); err != nil {
			return fmt.Errorf("room type %s: %w", rt.Name, err)
		}
		if rt.NetPrice < 0 || (rt.DisplayPrice != nil && *rt.DisplayPrice < 0) {
			return fmt.Errorf("room type %s: %w", rt.Name, pricing.ErrInvalidPrice)
		}
		for _, season := range rt.Seasons {
			start, err := time.Parse(time.DateOnly, season.StartsOn)
			if err != nil {
				return fmt.Errorf("room type %s season start: %w", rt.Name, err)
			}
			end, err := time.Parse(time.DateOnly, season.EndsOn)
			if err != nil {
				return fmt.Errorf("room type %s season end: %w", rt.Name, err)
			}
			if end.Before(start) || season.NetPrice < 0 {
				return fmt.Errorf("room type %s: invalid season %s..%s", rt.Name, season.StartsOn, season.EndsOn)
			}
		}
	}
	for _, tier := range h.OccupancyTiers {
		for _, v := range []string{tier.Min, tier.Max, tier.Multiplier} {
			if err := checkDecimal(v, false); err != nil {
				return fmt.Errorf("hotel %s occupancy tier: %w", h.Name, err)
			}
		}
	}
	for i := range h.Channels {
		ch := &h.Channels[i]
		if ch.ID, err = ensureID(ch.ID); err != nil {
			return fmt.Errorf("channel %s: %w", ch.Name, err)
		}
		if strings.TrimSpace(ch.Code) == "" {
			return fmt.Errorf("channel %s: code is required", ch.Name)
		}
		if ch.CommissionPercent == "" {
			ch.CommissionPercent = "0"
		}
		if err := checkDecimal(ch.CommissionPercent, false); err != nil {
			return fmt.Errorf("channel %s commission: %w", ch.Name, err)
		}
		mode, err := pricing.ParseCompoundMode(ch.CommissionMode)
		if err != nil {
			return fmt.Errorf("channel %s: %w", ch.Name, err)
		}
		if mode == "" {
			mode = pricing.CompoundProgressive
		}
		ch.CommissionMode = string(mode)
		for j := range ch.Promotions {
			p := &ch.Promotions[j]
			if p.ID, err = ensureID(p.ID); err != nil {
				return fmt.Errorf("channel %s promotion %s: %w", ch.Name, p.PromotionID, err)
			}
			if strings.TrimSpace(p.PromotionID) == "" {
				return fmt.Errorf("channel %s: promotion_id is required", ch.Name)
			}
			if err := checkDecimal(p.Percent, true); err != nil {
				return fmt.Errorf("channel %s promotion %s: %w", ch.Name, p.PromotionID, err)
			}
			pm, err := pricing.ParseCompoundMode(p.Mode)
			if err != nil {
				return fmt.Errorf("channel %s promotion %s: %w", ch.Name, p.PromotionID, err)
			}
			p.Mode = string(pm)
		}
		for j := range ch.Boosters {
			b := &ch.Boosters[j]
			if b.ID, err = ensureID(b.ID); err != nil {
				return fmt.Errorf("channel %s booster %s: %w", ch.Name, b.Name, err)
			}
			if strings.TrimSpace(b.Name) == "" {
				return fmt.Errorf("channel %s: booster name is required", ch.Name)
			}
			if err := checkDecimal(b.BoostPercent, false); err != nil {
				return fmt.Errorf("channel %s booster %s: %w", ch.Name, b.Name, err)
			}
		}
	}
	return nil
}

func ensureID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return uuid.NewString(), nil
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("invalid id %q", id)
	}
	return parsed.String(), nil
}

func checkDecimal(value string, optional bool) error {
	value = strings.TrimSpace(value)
	if value == "" {
		if optional {
			return nil
		}
		return fmt.Errorf("value is required")
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return err
	}
	if d.IsNegative() {
		return fmt.Errorf("negative value %s", value)
	}
	return nil
}
