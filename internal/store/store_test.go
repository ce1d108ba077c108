package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rms-pricing/internal/pricing"
)

const sampleFixture = `
[[hotel]]
id = "6f1c1f8e-55a3-4d7b-9d1e-0f3f4b8a2c11"
name = "Harbour View"
rounding = "ceil_1000"
max_rate = 5000000
occupancy_pct = "72.5"

  [[hotel.room_type]]
  id = "0b7d0a52-7c59-4a8e-8f0e-2f9a3f5d6e01"
  name = "Deluxe"
  net_price = 1000000
  display_price = 1500000

    [[hotel.room_type.season]]
    starts_on = "2026-12-20"
    ends_on = "2027-01-05"
    net_price = 1200000

  [[hotel.room_type]]
  name = "Suite"
  net_price = 2000000

  [[hotel.occupancy_tier]]
  min = "70"
  max = "90"
  multiplier = "1.1"

  [[hotel.channel]]
  name = "Booking.com"
  code = "booking.com"
  commission_percent = "15"

    [[hotel.channel.promotion]]
    promotion_id = "booking-early-booker"
    percent = "10"

    [[hotel.channel.promotion]]
    promotion_id = "booking-mobile-rate"
    mode = "additive"

    [[hotel.channel.booster]]
    name = "Preferred Partner"
    program = "PREFERRED"
    boost_percent = "3"

    [[hotel.channel.booster]]
    name = "Visibility Booster"
    program = "VISIBILITY"
    boost_percent = "5"
    enabled = false
`

func writeFixture(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFixture(t *testing.T) {
	f, err := LoadFixture(writeFixture(t, sampleFixture))
	require.NoError(t, err)
	require.Len(t, f.Hotels, 1)

	h := f.Hotels[0]
	require.Equal(t, "CEIL_1000", h.Rounding)
	require.Len(t, h.RoomTypes, 2)
	require.NotEmpty(t, h.RoomTypes[1].ID)
	require.Equal(t, int64(1500000), *h.RoomTypes[0].DisplayPrice)
	require.Nil(t, h.RoomTypes[1].DisplayPrice)
	require.Len(t, h.RoomTypes[0].Seasons, 1)

	ch := h.Channels[0]
	require.True(t, ch.isActive())
	require.Equal(t, "PROGRESSIVE", ch.CommissionMode)
	require.Len(t, ch.Promotions, 2)
	require.Equal(t, "ADDITIVE", ch.Promotions[1].Mode)
	require.Empty(t, ch.Promotions[1].Percent)
	require.Len(t, ch.Boosters, 2)
	require.NotEmpty(t, ch.Boosters[0].ID)
	require.True(t, ch.Boosters[0].isEnabled())
	require.False(t, ch.Boosters[1].isEnabled())
}

func TestLoadFixtureRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown key": `
[[hotel]]
name = "A"
colour = "blue"
`,
		"bad rounding": `
[[hotel]]
name = "A"
rounding = "FLOOR"
`,
		"negative commission": `
[[hotel]]
name = "A"
  [[hotel.channel]]
  name = "Agoda"
  code = "agoda"
  commission_percent = "-1"
`,
		"bad id": `
[[hotel]]
id = "hotel-1"
name = "A"
`,
		"inverted season": `
[[hotel]]
name = "A"
  [[hotel.room_type]]
  name = "Deluxe"
  net_price = 1
    [[hotel.room_type.season]]
    starts_on = "2026-02-01"
    ends_on = "2026-01-01"
    net_price = 1
`,
		"missing promotion id": `
[[hotel]]
name = "A"
  [[hotel.channel]]
  name = "Agoda"
  code = "agoda"
    [[hotel.channel.promotion]]
    percent = "5"
`,
		"negative booster": `
[[hotel]]
name = "A"
  [[hotel.channel]]
  name = "Agoda"
  code = "agoda"
    [[hotel.channel.booster]]
    name = "AGP"
    boost_percent = "-3"
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFixture(writeFixture(t, body))
			require.Error(t, err)
		})
	}
}

func TestMigrateURL(t *testing.T) {
	require.Equal(t, "pgx5://u:p@localhost:5432/rms?sslmode=disable", migrateURL("postgres://u:p@localhost:5432/rms?sslmode=disable"))
	require.Equal(t, "pgx5://localhost/rms", migrateURL("postgresql://localhost/rms"))
	require.Equal(t, "pgx5://localhost/rms", migrateURL("pgx5://localhost/rms"))
}

func TestSnapshotRequestCopies(t *testing.T) {
	snap := &Snapshot{
		RoomTypes:     []pricing.RoomType{{ID: "rt", NetPrice: 100}},
		Channels:      []pricing.Channel{{ID: "ch", Code: "agoda", Active: true}},
		Proposals:     map[string][]pricing.Proposal{"ch": {{PromotionID: "p"}}},
		DisplayPrices: map[string]pricing.Money{"rt": 150},
		Settings:      pricing.Settings{NetOverrides: map[string]pricing.Money{"rt": 120}},
	}
	req := snap.Request(pricing.MatrixBarToNet)
	req.Proposals["ch"] = nil
	req.DisplayPrices["rt"] = 1
	req.Settings.NetOverrides["rt"] = 1

	require.Len(t, snap.Proposals["ch"], 1)
	require.Equal(t, pricing.Money(150), snap.DisplayPrices["rt"])
	require.Equal(t, pricing.Money(120), snap.Settings.NetOverrides["rt"])

	ch, ok := snap.Channel("ch")
	require.True(t, ok)
	require.Equal(t, "agoda", ch.Code)
	_, ok = snap.Channel("missing")
	require.False(t, ok)
}

func TestParseDecimal(t *testing.T) {
	v, err := parseDecimal(nil)
	require.NoError(t, err)
	require.False(t, v.Valid)

	s := "15.2500"
	v, err = parseDecimal(&s)
	require.NoError(t, err)
	require.True(t, v.Decimal.Equal(decimal.RequireFromString("15.25")))

	bad := "abc"
	_, err = parseDecimal(&bad)
	require.Error(t, err)
}

// TestRepositoryRoundTrip needs a disposable database in RMS_TEST_DATABASE_URL.
func TestRepositoryRoundTrip(t *testing.T) {
	dsn := os.Getenv("RMS_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("RMS_TEST_DATABASE_URL not set")
	}
	require.NoError(t, Migrate(dsn, true))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	f, err := LoadFixture(writeFixture(t, sampleFixture))
	require.NoError(t, err)
	h := f.Hotels[0]

	repo := NewRepository(pool)
	repo.now = func() time.Time { return time.Date(2026, 12, 24, 12, 0, 0, 0, time.UTC) }
	require.NoError(t, repo.SaveHotel(ctx, &h))

	snap, err := repo.LoadSnapshot(ctx, h.ID)
	require.NoError(t, err)
	require.Equal(t, "Harbour View", snap.Name)
	require.Equal(t, pricing.RoundingCeil1000, snap.Settings.Rounding)
	require.Len(t, snap.RoomTypes, 2)
	require.Equal(t, pricing.Money(1200000), snap.Settings.NetOverrides[h.RoomTypes[0].ID])
	require.Equal(t, pricing.Money(1500000), snap.DisplayPrices[h.RoomTypes[0].ID])
	require.True(t, snap.Settings.OccupancyMultiplier.Equal(decimal.RequireFromString("1.1")))
	require.Len(t, snap.Channels, 1)
	require.True(t, snap.Channels[0].CommissionPercent.Equal(decimal.NewFromInt(15)))
	require.Len(t, snap.Channels[0].Boosters, 2)
	require.Equal(t, "PREFERRED", snap.Channels[0].Boosters[0].Program)
	require.True(t, snap.Channels[0].EffectiveCommission().Equal(decimal.NewFromInt(18)))

	proposals := snap.Proposals[snap.Channels[0].ID]
	require.Len(t, proposals, 2)
	require.Equal(t, "booking-early-booker", proposals[0].PromotionID)
	require.False(t, proposals[1].Percent.Valid)
	require.Equal(t, pricing.CompoundAdditive, proposals[1].Mode)

	_, err = repo.LoadSnapshot(ctx, "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = repo.LoadSnapshot(ctx, "not-a-uuid")
	require.ErrorIs(t, err, ErrNotFound)
}
