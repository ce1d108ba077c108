package rates

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rms-pricing/internal/common"
	"github.com/noah-isme/rms-pricing/internal/obs"
	"github.com/noah-isme/rms-pricing/internal/pricing"
	"github.com/noah-isme/rms-pricing/internal/store"
)

const testHotelID = "6f1c1f8e-55a3-4d7b-9d1e-0f3f4b8a2c11"

type fakeStore struct {
	mu    sync.Mutex
	snaps map[string]*store.Snapshot
	loads int
}

func (f *fakeStore) LoadSnapshot(_ context.Context, hotelID string) (*store.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	snap, ok := f.snaps[hotelID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return snap, nil
}

func (f *fakeStore) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

func pct(value string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(value))
}

func sampleSnapshot() *store.Snapshot {
	return &store.Snapshot{
		HotelID: testHotelID,
		Name:    "Harbour View",
		RoomTypes: []pricing.RoomType{
			{ID: "rt-deluxe", Name: "Deluxe", NetPrice: 1_000_000},
			{ID: "rt-suite", Name: "Suite", NetPrice: 2_500_000},
		},
		Channels: []pricing.Channel{
			{ID: "ch-agoda", Name: "Agoda", Code: "agoda", CommissionPercent: decimal.NewFromInt(15), CommissionMode: pricing.CompoundProgressive, Active: true},
		},
		Proposals: map[string][]pricing.Proposal{
			"ch-agoda": {
				{ID: "eb", PromotionID: "agoda-essential-early-bird", Percent: pct("10")},
				{ID: "mob", PromotionID: "agoda-targeted-mobile", Percent: pct("8")},
			},
		},
		DisplayPrices: map[string]pricing.Money{"rt-deluxe": 1_500_000},
	}
}

func newTestService(t *testing.T, cache *Cache, rounding string) (*Service, *fakeStore, *obs.PricingMetrics) {
	t.Helper()
	fs := &fakeStore{snaps: map[string]*store.Snapshot{testHotelID: sampleSnapshot()}}
	metrics := obs.NewPricingMetrics("test", prometheus.NewRegistry())
	svc, err := NewService(ServiceConfig{
		Store:           fs,
		Cache:           cache,
		Builder:         pricing.NewBuilder(pricing.DefaultCatalog(), 2),
		Logger:          zerolog.Nop(),
		Metrics:         metrics,
		DefaultRounding: rounding,
	})
	require.NoError(t, err)
	return svc, fs, metrics
}

func TestNewServiceValidates(t *testing.T) {
	_, err := NewService(ServiceConfig{})
	require.Error(t, err)

	_, err = NewService(ServiceConfig{Store: &fakeStore{}, DefaultRounding: "FLOOR"})
	require.ErrorIs(t, err, pricing.ErrInvalidSettings)
}

func TestMatrixForward(t *testing.T) {
	svc, _, metrics := newTestService(t, nil, "")

	res, err := svc.Matrix(context.Background(), testHotelID, MatrixInput{Mode: "net_to_bar"})
	require.NoError(t, err)
	require.Len(t, res.Matrix, 2)

	cell := res.Matrix[pricing.Key("rt-deluxe", "ch-agoda")]
	require.Equal(t, pricing.StatusOK, cell.Status)
	require.Equal(t, pricing.Money(1_176_471), cell.Bar)
	require.Equal(t, pricing.Money(974_118), cell.Display)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.MatrixRuns.WithLabelValues("net_to_bar", "ok")))
}

func TestMatrixAppliesOverrides(t *testing.T) {
	svc, _, _ := newTestService(t, nil, "CEIL_1000")

	res, err := svc.Matrix(context.Background(), testHotelID, MatrixInput{Mode: "net_to_bar"})
	require.NoError(t, err)
	cell := res.Matrix[pricing.Key("rt-deluxe", "ch-agoda")]
	require.Equal(t, pricing.Money(1_177_000), cell.Bar)
	require.Equal(t, pricing.Money(974_556), cell.Display)

	none := "none"
	res, err = svc.Matrix(context.Background(), testHotelID, MatrixInput{
		Mode: "net_to_bar",
		Proposals: map[string][]pricing.Proposal{
			"ch-agoda": {{PromotionID: "agoda-essential-early-bird", Percent: pct("10")}},
		},
		Settings: &SettingsOverride{
			Rounding:     &none,
			NetOverrides: map[string]int64{"rt-deluxe": 2_000_000},
		},
	})
	require.NoError(t, err)
	cell = res.Matrix[pricing.Key("rt-deluxe", "ch-agoda")]
	require.Equal(t, pricing.Money(2_000_000), cell.Net)
	require.Equal(t, pricing.Money(2_352_941), cell.Bar)
	require.Equal(t, []string{"Commission", "Early Bird"}, []string{cell.Trace[0].Step, cell.Trace[1].Step})
}

func TestMatrixReverseMergesDisplayPrices(t *testing.T) {
	svc, _, metrics := newTestService(t, nil, "")

	res, err := svc.Matrix(context.Background(), testHotelID, MatrixInput{Mode: "bar_to_net"})
	require.NoError(t, err)
	require.Equal(t, pricing.StatusNotComputed, res.Matrix[pricing.Key("rt-suite", "ch-agoda")].Status)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.MatrixRuns.WithLabelValues("bar_to_net", "partial")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.CellFailures.WithLabelValues(pricing.CodeMissingPrice)))

	res, err = svc.Matrix(context.Background(), testHotelID, MatrixInput{
		Mode:          "bar_to_net",
		DisplayPrices: map[string]int64{"rt-suite": 3_000_000},
	})
	require.NoError(t, err)
	require.Zero(t, res.Failed())
}

func TestMatrixErrors(t *testing.T) {
	svc, _, metrics := newTestService(t, nil, "")
	ctx := context.Background()

	cases := []struct {
		name   string
		hotel  string
		in     MatrixInput
		status int
		code   string
	}{
		{"unknown hotel", "00000000-0000-0000-0000-000000000000", MatrixInput{Mode: "net_to_bar"}, http.StatusNotFound, "NOT_FOUND"},
		{"bad mode", testHotelID, MatrixInput{Mode: "sideways"}, http.StatusBadRequest, "INVALID_MODE"},
		{"unknown promotion", testHotelID, MatrixInput{Mode: "net_to_bar", Proposals: map[string][]pricing.Proposal{
			"ch-agoda": {{PromotionID: "agoda-nope"}},
		}}, http.StatusUnprocessableEntity, "INVALID_PROPOSAL"},
		{"vendor mismatch", testHotelID, MatrixInput{Mode: "net_to_bar", Proposals: map[string][]pricing.Proposal{
			"ch-agoda": {{PromotionID: "booking-basic-deal"}},
		}}, http.StatusUnprocessableEntity, "INVALID_PROPOSAL"},
		{"unknown channel", testHotelID, MatrixInput{Mode: "net_to_bar", Proposals: map[string][]pricing.Proposal{
			"ch-missing": {{PromotionID: "agoda-targeted-mobile"}},
		}}, http.StatusUnprocessableEntity, "UNKNOWN_CHANNEL"},
		{"negative multiplier", testHotelID, MatrixInput{Mode: "net_to_bar", Settings: &SettingsOverride{
			OccupancyMultiplier: func() *decimal.Decimal { d := decimal.NewFromInt(-1); return &d }(),
		}}, http.StatusUnprocessableEntity, "INVALID_SETTINGS"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Matrix(ctx, tc.hotel, tc.in)
			var appErr *common.AppError
			require.True(t, errors.As(err, &appErr), "got %v", err)
			require.Equal(t, tc.status, appErr.HTTPStatus)
			require.Equal(t, tc.code, appErr.Code)
		})
	}
	require.Equal(t, float64(len(cases)-1), testutil.ToFloat64(metrics.MatrixRuns.WithLabelValues("net_to_bar", "error")))
}

func TestPreview(t *testing.T) {
	svc, _, metrics := newTestService(t, nil, "")
	ctx := context.Background()

	cell, err := svc.Preview(ctx, testHotelID, PreviewInput{ChannelID: "ch-agoda", Mode: "net", Price: 1_000_000})
	require.NoError(t, err)
	require.Equal(t, pricing.Money(974_118), cell.Display)
	require.Equal(t, "ch-agoda", cell.ChannelID)

	cell, err = svc.Preview(ctx, testHotelID, PreviewInput{ChannelID: "ch-agoda", Mode: "display", Price: 974_118, Proposals: []pricing.Proposal{}})
	require.NoError(t, err)
	require.Equal(t, pricing.Money(974_118), cell.Bar)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Previews.WithLabelValues("net", "ok")))

	_, err = svc.Preview(ctx, testHotelID, PreviewInput{ChannelID: "ch-expedia", Mode: "net", Price: 1})
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "UNKNOWN_CHANNEL", appErr.Code)
}

func TestSnapshotCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc, fs, metrics := newTestService(t, NewCache(client, time.Minute), "")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := svc.Matrix(ctx, testHotelID, MatrixInput{Mode: "net_to_bar"})
		require.NoError(t, err)
		require.Equal(t, pricing.Money(974_118), res.Matrix[pricing.Key("rt-deluxe", "ch-agoda")].Display)
	}
	require.Equal(t, 1, fs.loadCount())
	require.True(t, mr.Exists(snapshotKey(testHotelID)))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.SnapshotCache.WithLabelValues("miss")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.SnapshotCache.WithLabelValues("hit")))

	require.NoError(t, svc.Refresh(ctx, testHotelID))
	require.False(t, mr.Exists(snapshotKey(testHotelID)))
	_, err := svc.Matrix(ctx, testHotelID, MatrixInput{Mode: "net_to_bar"})
	require.NoError(t, err)
	require.Equal(t, 2, fs.loadCount())

	mr.FastForward(2 * time.Minute)
	require.False(t, mr.Exists(snapshotKey(testHotelID)))
}

func TestSnapshotCacheFailureFallsBackToStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, mr.Set(snapshotKey(testHotelID), "{not json"))

	svc, fs, metrics := newTestService(t, NewCache(client, time.Minute), "")
	_, err := svc.Matrix(context.Background(), testHotelID, MatrixInput{Mode: "net_to_bar"})
	require.NoError(t, err)
	require.Equal(t, 1, fs.loadCount())
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.SnapshotCache.WithLabelValues("error")))
}

func TestCatalog(t *testing.T) {
	svc, _, _ := newTestService(t, nil, "")
	defs := svc.Catalog("Booking.com")
	require.NotEmpty(t, defs)
	for _, def := range defs {
		require.Equal(t, "booking", def.Vendor)
	}
	require.Greater(t, len(svc.Catalog("")), len(defs))
}
