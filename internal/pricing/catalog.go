package pricing

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// Tag marks a definition for channel policies that look beyond groups.
type Tag string

const (
	TagEarlyBird  Tag = "EARLY_BIRD"
	TagLastMinute Tag = "LAST_MINUTE"
	TagMember     Tag = "MEMBER"
)

// Definition is a read-only catalog entry describing one promotion type.
type Definition struct {
	ID          string              `json:"id"`
	Vendor      string              `json:"vendor"`
	Name        string              `json:"name"`
	Group       Group               `json:"group"`
	Subcategory string              `json:"subcategory,omitempty"`
	Variable    bool                `json:"isVariableRate"`
	DefaultPct  decimal.NullDecimal `json:"defaultPct"`
	Mode        CompoundMode        `json:"mode,omitempty"`
	Exclusive   bool                `json:"exclusive,omitempty"`
	Blocks      []Group             `json:"blocksGroups,omitempty"`
	Tags        []Tag               `json:"tags,omitempty"`
	// Precedence documents tie-break intent; it only appears in resolution notes.
	Precedence string `json:"precedence,omitempty"`

	order int
}

// Order is the declaration index inside its catalog.
func (d *Definition) Order() int {
	return d.order
}

// HasTag reports whether the definition carries tag.
func (d *Definition) HasTag(tag Tag) bool {
	return slices.Contains(d.Tags, tag)
}

func (d *Definition) blocks(g Group) bool {
	return slices.Contains(d.Blocks, g)
}

// Proposal is an operator request to run a catalog promotion on a channel.
type Proposal struct {
	ID          string              `json:"id"`
	PromotionID string              `json:"promotionId"`
	Percent     decimal.NullDecimal `json:"percent"`
	Mode        CompoundMode        `json:"mode,omitempty"`
}

// Instance is a definition bound to a channel with a concrete percentage.
type Instance struct {
	ID         string
	Definition *Definition
	Percent    decimal.Decimal
	Mode       CompoundMode
}

func (i Instance) name() string {
	if i.Definition == nil {
		return i.ID
	}
	return i.Definition.Name
}

// Catalog is an immutable registry of promotion definitions.
type Catalog struct {
	defs []*Definition
	byID map[string]*Definition
}

// NewCatalog validates defs and records their declaration order.
func NewCatalog(defs []Definition) (*Catalog, error) {
	c := &Catalog{
		defs: make([]*Definition, 0, len(defs)),
		byID: make(map[string]*Definition, len(defs)),
	}
	for i := range defs {
		def := defs[i]
		def.ID = strings.TrimSpace(def.ID)
		def.Vendor = NormalizeVendor(def.Vendor)
		if def.ID == "" {
			return nil, errors.New("catalog definition without id")
		}
		if _, dup := c.byID[def.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog definition %q", def.ID)
		}
		if !def.Group.Valid() {
			return nil, fmt.Errorf("catalog definition %q: invalid group", def.ID)
		}
		if _, err := ParseCompoundMode(string(def.Mode)); err != nil {
			return nil, fmt.Errorf("catalog definition %q: %w", def.ID, err)
		}
		if !def.Variable && !def.DefaultPct.Valid {
			return nil, fmt.Errorf("catalog definition %q: fixed rate without percent", def.ID)
		}
		def.order = i
		c.defs = append(c.defs, &def)
		c.byID[def.ID] = &def
	}
	return c, nil
}

// MustCatalog panics when defs do not form a valid catalog.
func MustCatalog(defs []Definition) *Catalog {
	c, err := NewCatalog(defs)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the definition registered under id.
func (c *Catalog) Lookup(id string) (*Definition, bool) {
	def, ok := c.byID[strings.TrimSpace(id)]
	return def, ok
}

// Definitions returns copies of the definitions for vendor in declaration order.
// An empty vendor returns the whole catalog.
func (c *Catalog) Definitions(vendor string) []Definition {
	vendor = NormalizeVendor(vendor)
	out := make([]Definition, 0, len(c.defs))
	for _, def := range c.defs {
		if vendor != "" && def.Vendor != vendor {
			continue
		}
		out = append(out, *def)
	}
	return out
}

// Instantiate binds a proposal to channel. Fixed-rate definitions always use the catalog
// percentage; variable ones use the proposal percentage and fall back to the default.
func (c *Catalog) Instantiate(channel Channel, p Proposal) (Instance, error) {
	def, ok := c.Lookup(p.PromotionID)
	if !ok {
		return Instance{}, fmt.Errorf("%w: %q", ErrUnknownPromotion, p.PromotionID)
	}
	if vendor := NormalizeVendor(channel.Code); vendor != def.Vendor {
		return Instance{}, fmt.Errorf("%w: %s on %s", ErrVendorMismatch, def.ID, vendor)
	}
	mode, err := ParseCompoundMode(string(p.Mode))
	if err != nil {
		return Instance{}, err
	}

	var pct decimal.Decimal
	switch {
	case !def.Variable:
		pct = def.DefaultPct.Decimal
	case p.Percent.Valid:
		pct = p.Percent.Decimal
	case def.DefaultPct.Valid:
		pct = def.DefaultPct.Decimal
	default:
		return Instance{}, fmt.Errorf("%w: %s", ErrMissingPercent, def.ID)
	}

	id := strings.TrimSpace(p.ID)
	if id == "" {
		id = def.ID
	}
	return Instance{ID: id, Definition: def, Percent: pct, Mode: mode}, nil
}
