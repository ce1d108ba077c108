package pricing

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// Policy holds the channel-specific stacking rules the resolver applies.
type Policy struct {
	Vendor string
	// SubcategoryScoped groups allow one winner per subcategory instead of one per group.
	SubcategoryScoped []Group
	// NonStackable lists tag pairs that never coexist in a winning set.
	NonStackable [][2]Tag
	// SingleDiscount keeps only the largest discount after the group rules.
	SingleDiscount bool
	// MemberPlusOne relaxes SingleDiscount to the best member deal plus the best public one.
	MemberPlusOne bool
	// MaxDiscountPercent caps the summed discount percentages. Zero means uncapped.
	MaxDiscountPercent decimal.Decimal
}

var vendorAliases = map[string]string{
	"booking.com": "booking",
	"bookingcom":  "booking",
	"ctrip":       "trip",
	"trip.com":    "trip",
	"tripcom":     "trip",
	"expedia.com": "expedia",
}

// NormalizeVendor maps channel codes to the vendor keys used by the catalog.
func NormalizeVendor(code string) string {
	vendor := strings.ToLower(strings.TrimSpace(code))
	if alias, ok := vendorAliases[vendor]; ok {
		return alias
	}
	return vendor
}

var earlyLate = [2]Tag{TagEarlyBird, TagLastMinute}

var policies = map[string]Policy{
	"agoda": {
		SubcategoryScoped:  []Group{GroupEssential, GroupTargeted},
		NonStackable:       [][2]Tag{earlyLate},
		MaxDiscountPercent: decimal.NewFromInt(80),
	},
	"booking": {
		SubcategoryScoped: []Group{GroupTargeted},
		NonStackable:      [][2]Tag{earlyLate},
	},
	"expedia": {
		SubcategoryScoped: []Group{GroupTargeted},
		NonStackable:      [][2]Tag{earlyLate},
		SingleDiscount:    true,
		MemberPlusOne:     true,
	},
	"trip": {
		SubcategoryScoped: []Group{GroupEssential, GroupTargeted},
		NonStackable:      [][2]Tag{earlyLate},
	},
}

// PolicyFor returns the stacking policy for a channel code. Unknown vendors get
// plain one-per-group stacking.
func PolicyFor(code string) Policy {
	vendor := NormalizeVendor(code)
	p, ok := policies[vendor]
	if !ok {
		p = Policy{NonStackable: [][2]Tag{earlyLate}}
	}
	p.Vendor = vendor
	return p
}

// GroupKey is the exclusivity key of def under this policy.
func (p Policy) GroupKey(def *Definition) string {
	if def.Subcategory != "" && slices.Contains(p.SubcategoryScoped, def.Group) {
		return def.Group.String() + "/" + def.Subcategory
	}
	return def.Group.String()
}
