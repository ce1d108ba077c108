package pricing

import (
	"sync"

	"github.com/shopspring/decimal"
)

func pct(value string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(value))
}

var (
	defaultCatalogOnce sync.Once
	defaultCatalog     *Catalog
)

// DefaultCatalog returns the built-in OTA promotion catalog.
func DefaultCatalog() *Catalog {
	defaultCatalogOnce.Do(func() {
		defs := make([]Definition, 0, len(agodaPromotions)+len(bookingPromotions)+len(expediaPromotions)+len(tripPromotions)+len(travelokaPromotions))
		defs = append(defs, agodaPromotions...)
		defs = append(defs, bookingPromotions...)
		defs = append(defs, expediaPromotions...)
		defs = append(defs, tripPromotions...)
		defs = append(defs, travelokaPromotions...)
		defaultCatalog = MustCatalog(defs)
	})
	return defaultCatalog
}

// Agoda: one seasonal sale, essentials stack per kind, targeted rates one per subcategory.
var agodaPromotions = []Definition{
	{ID: "agoda-seasonal-double-day", Vendor: "agoda", Name: "Double Day Sale", Group: GroupSeasonal, Variable: true, DefaultPct: pct("15")},
	{ID: "agoda-seasonal-payday", Vendor: "agoda", Name: "Payday Sale", Group: GroupSeasonal, Variable: true, DefaultPct: pct("12")},
	{ID: "agoda-seasonal-night-owl", Vendor: "agoda", Name: "Night Owl Sale", Group: GroupSeasonal, Variable: true, DefaultPct: pct("10")},
	{ID: "agoda-seasonal-summer", Vendor: "agoda", Name: "Summer Vibes", Group: GroupSeasonal, Variable: true, DefaultPct: pct("15")},
	{ID: "agoda-seasonal-abroad", Vendor: "agoda", Name: "Deals Abroad", Group: GroupSeasonal, Variable: true, DefaultPct: pct("12")},

	{ID: "agoda-essential-early-bird", Vendor: "agoda", Name: "Early Bird", Group: GroupEssential, Subcategory: "EARLY_BIRD", Variable: true, DefaultPct: pct("10"), Tags: []Tag{TagEarlyBird}},
	{ID: "agoda-essential-last-minute", Vendor: "agoda", Name: "Last-Minute", Group: GroupEssential, Subcategory: "LAST_MINUTE", Variable: true, DefaultPct: pct("8"), Tags: []Tag{TagLastMinute}},
	{ID: "agoda-essential-long-stay", Vendor: "agoda", Name: "Long Stay", Group: GroupEssential, Subcategory: "LENGTH_OF_STAY", Variable: true, DefaultPct: pct("15")},
	{ID: "agoda-essential-occupancy", Vendor: "agoda", Name: "Occupancy Promotion", Group: GroupEssential, Subcategory: "OCCUPANCY", Variable: true, DefaultPct: pct("10")},
	{ID: "agoda-essential-customized", Vendor: "agoda", Name: "Customized", Group: GroupEssential, Subcategory: "CUSTOM", Variable: true},

	{ID: "agoda-targeted-vip-silver", Vendor: "agoda", Name: "VIP Silver", Group: GroupTargeted, Subcategory: "LOYALTY", DefaultPct: pct("5"), Precedence: "lowest VIP tier"},
	{ID: "agoda-targeted-vip-gold", Vendor: "agoda", Name: "VIP Gold", Group: GroupTargeted, Subcategory: "LOYALTY", DefaultPct: pct("10")},
	{ID: "agoda-targeted-vip-platinum", Vendor: "agoda", Name: "VIP Platinum", Group: GroupTargeted, Subcategory: "LOYALTY", DefaultPct: pct("15"), Precedence: "highest VIP tier"},
	{ID: "agoda-targeted-mobile", Vendor: "agoda", Name: "Mobile Users", Group: GroupTargeted, Subcategory: "PLATFORM", Variable: true, DefaultPct: pct("8")},
	{ID: "agoda-targeted-geo", Vendor: "agoda", Name: "Country/Geo Target", Group: GroupTargeted, Subcategory: "GEOGRAPHY", Variable: true, DefaultPct: pct("10")},
	{ID: "agoda-targeted-package", Vendor: "agoda", Name: "Package / Bundle", Group: GroupTargeted, Subcategory: "PRODUCT", Variable: true, DefaultPct: pct("12")},
	{ID: "agoda-targeted-beds", Vendor: "agoda", Name: "Beds Network", Group: GroupTargeted, Subcategory: "BEDS_NETWORK", Variable: true, DefaultPct: pct("10")},
}

// Booking.com: one Genius level, one targeted rate, one portfolio promotion.
// Campaign deals shut out targeted rates and portfolio promotions.
var bookingPromotions = []Definition{
	{ID: "booking-genius-level1", Vendor: "booking", Name: "Genius Level 1", Group: GroupTargeted, Subcategory: "GENIUS", DefaultPct: pct("10")},
	{ID: "booking-genius-level2", Vendor: "booking", Name: "Genius Level 2", Group: GroupTargeted, Subcategory: "GENIUS", DefaultPct: pct("15")},
	{ID: "booking-genius-level3", Vendor: "booking", Name: "Genius Level 3", Group: GroupTargeted, Subcategory: "GENIUS", DefaultPct: pct("20")},
	{ID: "booking-mobile-rate", Vendor: "booking", Name: "Mobile Rate", Group: GroupTargeted, Subcategory: "TARGETED_RATE", Variable: true, DefaultPct: pct("10"), Precedence: "declared before country rate"},
	{ID: "booking-country-rate", Vendor: "booking", Name: "Country Rate", Group: GroupTargeted, Subcategory: "TARGETED_RATE", Variable: true, DefaultPct: pct("10")},
	{ID: "booking-business-bookers", Vendor: "booking", Name: "Business Bookers", Group: GroupTargeted, Subcategory: "BUSINESS_BOOKERS", Variable: true, DefaultPct: pct("10"), Exclusive: true},

	{ID: "booking-early-booker", Vendor: "booking", Name: "Early Booker Deal", Group: GroupPortfolio, Variable: true, DefaultPct: pct("15"), Tags: []Tag{TagEarlyBird}},
	{ID: "booking-last-minute", Vendor: "booking", Name: "Last Minute Deal", Group: GroupPortfolio, Variable: true, DefaultPct: pct("15"), Tags: []Tag{TagLastMinute}},
	{ID: "booking-basic-deal", Vendor: "booking", Name: "Basic Deal", Group: GroupPortfolio, Variable: true, DefaultPct: pct("10")},
	{ID: "booking-secret-deal", Vendor: "booking", Name: "Secret Deal", Group: GroupPortfolio, Variable: true, DefaultPct: pct("10")},
	{ID: "booking-free-nights", Vendor: "booking", Name: "Free Nights Deal", Group: GroupPortfolio, Variable: true, DefaultPct: pct("25")},

	{ID: "booking-getaway-deal", Vendor: "booking", Name: "Getaway Deal", Group: GroupCampaign, Variable: true, DefaultPct: pct("20"), Blocks: []Group{GroupTargeted, GroupPortfolio}},
	{ID: "booking-deal-of-the-day", Vendor: "booking", Name: "Deal of the Day", Group: GroupCampaign, Variable: true, DefaultPct: pct("25"), Exclusive: true},
}

// Expedia: a single discount per booking, or a member deal plus one public discount.
var expediaPromotions = []Definition{
	{ID: "expedia-member-only", Vendor: "expedia", Name: "Member Only Deal", Group: GroupTargeted, Subcategory: "MEMBER", Variable: true, DefaultPct: pct("10"), Tags: []Tag{TagMember}},
	{ID: "expedia-mobile-rate", Vendor: "expedia", Name: "Mobile Rate", Group: GroupTargeted, Subcategory: "PLATFORM", Variable: true, DefaultPct: pct("10")},
	{ID: "expedia-early-booking", Vendor: "expedia", Name: "Early Booking", Group: GroupEssential, Variable: true, DefaultPct: pct("10"), Tags: []Tag{TagEarlyBird}},
	{ID: "expedia-same-day", Vendor: "expedia", Name: "Same Day Deal", Group: GroupEssential, Variable: true, DefaultPct: pct("10"), Tags: []Tag{TagLastMinute}},
	{ID: "expedia-multi-night", Vendor: "expedia", Name: "Multi-Night Stay", Group: GroupEssential, Variable: true, DefaultPct: pct("10")},
	{ID: "expedia-seasonal", Vendor: "expedia", Name: "Seasonal Sale", Group: GroupSeasonal, Variable: true, DefaultPct: pct("15")},
}

// Trip.com: deal boxes dedupe per box type.
var tripPromotions = []Definition{
	{ID: "trip-campaign-sale", Vendor: "trip", Name: "Trip.com Campaign Sale", Group: GroupSeasonal, Variable: true, DefaultPct: pct("10")},
	{ID: "trip-early-bird", Vendor: "trip", Name: "Early Bird", Group: GroupEssential, Subcategory: "EARLY_BIRD", Variable: true, DefaultPct: pct("10"), Tags: []Tag{TagEarlyBird}},
	{ID: "trip-last-minute", Vendor: "trip", Name: "Last Minute", Group: GroupEssential, Subcategory: "LAST_MINUTE", Variable: true, DefaultPct: pct("10"), Tags: []Tag{TagLastMinute}},
	{ID: "trip-long-stay", Vendor: "trip", Name: "Continuous Stay", Group: GroupEssential, Subcategory: "LENGTH_OF_STAY", Variable: true, DefaultPct: pct("10")},
	{ID: "trip-box-member-silver", Vendor: "trip", Name: "Member Box Silver", Group: GroupTargeted, Subcategory: "MEMBER_BOX", DefaultPct: pct("5")},
	{ID: "trip-box-member-gold", Vendor: "trip", Name: "Member Box Gold", Group: GroupTargeted, Subcategory: "MEMBER_BOX", DefaultPct: pct("8")},
	{ID: "trip-box-mobile", Vendor: "trip", Name: "App Deal Box", Group: GroupTargeted, Subcategory: "PLATFORM", Variable: true, DefaultPct: pct("8")},
	{ID: "trip-box-flash", Vendor: "trip", Name: "Flash Deal Box", Group: GroupTargeted, Subcategory: "FLASH", Variable: true, DefaultPct: pct("12")},
}

var travelokaPromotions = []Definition{
	{ID: "traveloka-epic-sale", Vendor: "traveloka", Name: "Epic Sale", Group: GroupSeasonal, Variable: true, DefaultPct: pct("15")},
	{ID: "traveloka-basic", Vendor: "traveloka", Name: "Basic Promo", Group: GroupEssential, Variable: true, DefaultPct: pct("10")},
	{ID: "traveloka-member", Vendor: "traveloka", Name: "Traveloka Priority", Group: GroupTargeted, Variable: true, DefaultPct: pct("5"), Tags: []Tag{TagMember}},
}
