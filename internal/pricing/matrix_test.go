package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func testBuilder(concurrency int) *Builder {
	b := NewBuilder(nil, concurrency)
	b.Now = func() time.Time { return fixedNow }
	return b
}

func agodaChannel(commission string) Channel {
	return Channel{ID: "ch-agoda", Name: "Agoda", Code: "agoda", CommissionPercent: dec(commission), CommissionMode: CompoundProgressive, Active: true}
}

func bookingChannel(commission string) Channel {
	return Channel{ID: "ch-booking", Name: "Booking.com", Code: "booking.com", CommissionPercent: dec(commission), CommissionMode: CompoundProgressive, Active: true}
}

func roomTypes() []RoomType {
	return []RoomType{
		{ID: "rt-deluxe", Name: "Deluxe", NetPrice: 1_000_000},
		{ID: "rt-suite", Name: "Suite", NetPrice: 2_500_000},
	}
}

func proposal(id, promotionID, percent string) Proposal {
	p := Proposal{ID: id, PromotionID: promotionID}
	if percent != "" {
		p.Percent = decimal.NewNullDecimal(dec(percent))
	}
	return p
}

func TestComputeMatrixForward(t *testing.T) {
	res, err := testBuilder(4).ComputeMatrix(context.Background(), Request{
		Mode:      MatrixNetToBar,
		RoomTypes: roomTypes(),
		Channels:  []Channel{agodaChannel("15")},
		Proposals: map[string][]Proposal{
			"ch-agoda": {
				proposal("eb", "agoda-essential-early-bird", "10"),
				proposal("mob", "agoda-targeted-mobile", "8"),
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Matrix, 2)
	require.Equal(t, fixedNow, res.CalculatedAt)
	require.Zero(t, res.Failed())

	cell := res.Matrix[Key("rt-deluxe", "ch-agoda")]
	require.Equal(t, StatusOK, cell.Status)
	require.Equal(t, Money(1_000_000), cell.Net)
	require.Equal(t, Money(1_176_471), cell.Bar)
	require.Equal(t, Money(974_118), cell.Display)
	require.Equal(t, 17.2, cell.TotalDiscountPercent)
	require.Equal(t, []string{"Commission", "Early Bird", "Mobile Users"}, traceSteps(cell))
}

func TestComputeMatrixInvalidCommissionIsolated(t *testing.T) {
	res, err := testBuilder(2).ComputeMatrix(context.Background(), Request{
		Mode:      MatrixNetToBar,
		RoomTypes: roomTypes()[:1],
		Channels:  []Channel{agodaChannel("15"), bookingChannel("100")},
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Failed())

	bad := res.Matrix[Key("rt-deluxe", "ch-booking")]
	require.Equal(t, StatusFailed, bad.Status)
	require.NotNil(t, bad.Error)
	require.Equal(t, CodeInvalidCommission, bad.Error.Code)
	require.Zero(t, bad.Display)

	good := res.Matrix[Key("rt-deluxe", "ch-agoda")]
	require.Equal(t, StatusOK, good.Status)
	require.Equal(t, Money(1_176_471), good.Bar)
}

func TestComputeMatrixReverse(t *testing.T) {
	res, err := testBuilder(1).ComputeMatrix(context.Background(), Request{
		Mode:      MatrixBarToNet,
		RoomTypes: roomTypes(),
		Channels:  []Channel{agodaChannel("15")},
		Proposals: map[string][]Proposal{
			"ch-agoda": {proposal("eb", "agoda-essential-early-bird", "10")},
		},
		DisplayPrices: map[string]Money{"rt-deluxe": 1_500_000},
	})
	require.NoError(t, err)

	cell := res.Matrix[Key("rt-deluxe", "ch-agoda")]
	require.Equal(t, StatusOK, cell.Status)
	require.Equal(t, Money(1_666_667), cell.Bar)
	require.Equal(t, Money(1_416_667), cell.Net)
	require.Equal(t, []string{"Display", "Undo Early Bird", "Commission"}, traceSteps(cell))

	missing := res.Matrix[Key("rt-suite", "ch-agoda")]
	require.Equal(t, StatusNotComputed, missing.Status)
	require.Equal(t, CodeMissingPrice, missing.Error.Code)
}

func TestComputeMatrixConfigurationErrors(t *testing.T) {
	base := func() Request {
		return Request{Mode: MatrixNetToBar, RoomTypes: roomTypes(), Channels: []Channel{agodaChannel("15")}}
	}
	cases := []struct {
		name   string
		mutate func(*Request)
		want   error
	}{
		{"unknown mode", func(r *Request) { r.Mode = "sideways" }, ErrInvalidMode},
		{"unknown channel", func(r *Request) {
			r.Proposals = map[string][]Proposal{"ch-ghost": {proposal("x", "agoda-essential-early-bird", "10")}}
		}, ErrUnknownChannel},
		{"unknown promotion", func(r *Request) {
			r.Proposals = map[string][]Proposal{"ch-agoda": {proposal("x", "agoda-flying-carpet", "10")}}
		}, ErrUnknownPromotion},
		{"vendor mismatch", func(r *Request) {
			r.Proposals = map[string][]Proposal{"ch-agoda": {proposal("x", "booking-basic-deal", "10")}}
		}, ErrVendorMismatch},
		{"missing percent", func(r *Request) {
			r.Proposals = map[string][]Proposal{"ch-agoda": {proposal("x", "agoda-essential-customized", "")}}
		}, ErrMissingPercent},
		{"bad rounding", func(r *Request) { r.Settings.Rounding = "ROUND_7" }, ErrInvalidSettings},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := base()
			tc.mutate(&req)
			_, err := testBuilder(1).ComputeMatrix(context.Background(), req)
			require.True(t, errors.Is(err, tc.want), "expected %v, got %v", tc.want, err)
		})
	}
}

func TestComputeMatrixRejectsDuplicateInstances(t *testing.T) {
	_, err := testBuilder(1).ComputeMatrix(context.Background(), Request{
		Mode:      MatrixNetToBar,
		RoomTypes: roomTypes(),
		Channels:  []Channel{agodaChannel("15")},
		Proposals: map[string][]Proposal{"ch-agoda": {
			proposal("", "agoda-essential-early-bird", "10"),
			proposal("", "agoda-essential-early-bird", "12"),
		}},
	})
	require.ErrorIs(t, err, ErrDuplicateProposal)
	require.ErrorContains(t, err, "duplicate promotion instance")
}

func TestComputeMatrixSkipsInactiveChannels(t *testing.T) {
	inactive := bookingChannel("18")
	inactive.Active = false
	res, err := testBuilder(1).ComputeMatrix(context.Background(), Request{
		Mode:      MatrixNetToBar,
		RoomTypes: roomTypes(),
		Channels:  []Channel{agodaChannel("15"), inactive},
	})
	require.NoError(t, err)
	require.Len(t, res.Channels, 1)
	require.Len(t, res.Matrix, 2)
	_, ok := res.Matrix[Key("rt-deluxe", "ch-booking")]
	require.False(t, ok)
}

func TestComputeMatrixAppliesSettings(t *testing.T) {
	res, err := testBuilder(1).ComputeMatrix(context.Background(), Request{
		Mode:      MatrixNetToBar,
		RoomTypes: roomTypes(),
		Channels:  []Channel{agodaChannel("15")},
		Settings: Settings{
			Rounding:     RoundingCeil1000,
			NetOverrides: map[string]Money{"rt-suite": 2_000_000},
			MaxRate:      2_000_000,
		},
	})
	require.NoError(t, err)

	deluxe := res.Matrix[Key("rt-deluxe", "ch-agoda")]
	require.Equal(t, Money(1_177_000), deluxe.Bar)
	require.Empty(t, deluxe.Warnings)

	suite := res.Matrix[Key("rt-suite", "ch-agoda")]
	require.Equal(t, Money(2_000_000), suite.Net)
	require.Equal(t, Money(2_000_000), suite.Bar)
	require.Equal(t, Money(2_000_000), suite.Display)
	require.Equal(t, Money(300_000), suite.CommissionAmount)
	require.Equal(t, GuardrailMaxRate, suite.Guardrail)
	require.Empty(t, suite.Warnings)
	steps := make([]string, 0, len(suite.Trace))
	for _, step := range suite.Trace {
		steps = append(steps, step.Step)
	}
	require.Equal(t, []string{"Commission", "Rounding", "Guardrail"}, steps)
}

func TestComputeMatrixClampsToMinRate(t *testing.T) {
	res, err := testBuilder(1).ComputeMatrix(context.Background(), Request{
		Mode:      MatrixNetToBar,
		RoomTypes: []RoomType{{ID: "rt-dorm", Name: "Dorm", NetPrice: 100_000}},
		Channels:  []Channel{agodaChannel("15")},
		Proposals: map[string][]Proposal{"ch-agoda": {proposal("a1", "agoda-seasonal-payday", "10")}},
		Settings:  Settings{MinRate: 500_000, MaxRate: 2_000_000},
	})
	require.NoError(t, err)

	cell := res.Matrix[Key("rt-dorm", "ch-agoda")]
	require.Equal(t, StatusOK, cell.Status)
	require.Equal(t, GuardrailMinRate, cell.Guardrail)
	require.Equal(t, Money(100_000), cell.Net)
	require.Equal(t, Money(500_000), cell.Bar)
	require.Equal(t, Money(450_000), cell.Display)
	require.Equal(t, Money(75_000), cell.CommissionAmount)
	require.Equal(t, "Guardrail", cell.Trace[1].Step)
	require.Equal(t, Money(500_000), cell.Trace[1].PriceAfter)
	require.Empty(t, cell.Warnings)
}

func TestComputeMatrixReverseWarnsOutsideRates(t *testing.T) {
	res, err := testBuilder(1).ComputeMatrix(context.Background(), Request{
		Mode:          MatrixBarToNet,
		RoomTypes:     []RoomType{{ID: "rt-dorm", Name: "Dorm"}},
		Channels:      []Channel{agodaChannel("15")},
		DisplayPrices: map[string]Money{"rt-dorm": 100_000},
		Settings:      Settings{MinRate: 500_000},
	})
	require.NoError(t, err)

	cell := res.Matrix[Key("rt-dorm", "ch-agoda")]
	require.Equal(t, StatusOK, cell.Status)
	require.Empty(t, cell.Guardrail)
	require.Equal(t, Money(100_000), cell.Bar)
	require.Equal(t, Money(85_000), cell.Net)
	require.Equal(t, []string{"BAR 100,000 below minimum rate 500,000"}, cell.Warnings)
}

func TestComputeMatrixCommissionBoosters(t *testing.T) {
	boosted := agodaChannel("18")
	boosted.Boosters = []Booster{
		{ID: "agp", Name: "Agoda Growth Program", Program: "AGP", Percent: dec("3"), Enabled: true},
		{ID: "agx", Name: "Agoda Extra Boost", Program: "AGX", Percent: dec("2"), Enabled: true},
		{ID: "off", Name: "Disabled Boost", Program: "SL", Percent: dec("5")},
	}
	plain := bookingChannel("18")

	res, err := testBuilder(1).ComputeMatrix(context.Background(), Request{
		Mode:      MatrixNetToBar,
		RoomTypes: []RoomType{{ID: "rt-std", Name: "Standard", NetPrice: 500_000}},
		Channels:  []Channel{boosted, plain},
	})
	require.NoError(t, err)

	cell := res.Matrix[Key("rt-std", "ch-agoda")]
	require.Equal(t, Money(649_351), cell.Bar)
	require.Equal(t, 23.0, cell.EffectiveCommissionPercent)
	require.Contains(t, cell.Trace[0].Description, "boosters")
	require.Greater(t, cell.Bar, res.Matrix[Key("rt-std", "ch-booking")].Bar)
	require.Equal(t, 18.0, res.Matrix[Key("rt-std", "ch-booking")].EffectiveCommissionPercent)

	boosted.Boosters = append(boosted.Boosters, Booster{ID: "huge", Percent: dec("77"), Enabled: true})
	res, err = testBuilder(1).ComputeMatrix(context.Background(), Request{
		Mode:      MatrixNetToBar,
		RoomTypes: []RoomType{{ID: "rt-std", Name: "Standard", NetPrice: 500_000}},
		Channels:  []Channel{boosted},
	})
	require.NoError(t, err)
	failed := res.Matrix[Key("rt-std", "ch-agoda")]
	require.Equal(t, StatusFailed, failed.Status)
	require.Equal(t, CodeInvalidCommission, failed.Error.Code)
}

func TestComputeMatrixIsDeterministic(t *testing.T) {
	req := Request{
		Mode:      MatrixNetToBar,
		RoomTypes: roomTypes(),
		Channels:  []Channel{agodaChannel("15"), bookingChannel("18")},
		Proposals: map[string][]Proposal{
			"ch-agoda": {
				proposal("a1", "agoda-targeted-vip-gold", ""),
				proposal("a2", "agoda-targeted-vip-platinum", ""),
				proposal("a3", "agoda-seasonal-payday", "12"),
			},
			"ch-booking": {
				proposal("b1", "booking-basic-deal", "12"),
				proposal("b2", "booking-secret-deal", "12"),
				proposal("b3", "booking-genius-level1", ""),
			},
		},
	}
	serial, err := testBuilder(1).ComputeMatrix(context.Background(), req)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		parallel, err := testBuilder(8).ComputeMatrix(context.Background(), req)
		require.NoError(t, err)
		require.Equal(t, serial, parallel)
	}

	cell := serial.Matrix[Key("rt-deluxe", "ch-booking")]
	require.Len(t, cell.Excluded, 1)
	require.Equal(t, "b2", cell.Excluded[0].InstanceID)
	require.Equal(t, []string{"tie in group 'PORTFOLIO' at 12%: kept 'Basic Deal' over 'Secret Deal' by catalog order"}, cell.Notes)
}

func TestComputeMatrixHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testBuilder(1).ComputeMatrix(ctx, Request{
		Mode:      MatrixNetToBar,
		RoomTypes: roomTypes(),
		Channels:  []Channel{agodaChannel("15")},
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestPreviewKinds(t *testing.T) {
	b := testBuilder(1)
	proposals := []Proposal{proposal("eb", "agoda-essential-early-bird", "10")}

	cell, err := b.Preview(context.Background(), PreviewRequest{Channel: agodaChannel("15"), Proposals: proposals, Kind: PriceNet, Price: 1_000_000})
	require.NoError(t, err)
	require.Equal(t, Money(1_058_824), cell.Display)

	cell, err = b.Preview(context.Background(), PreviewRequest{Channel: agodaChannel("15"), Proposals: proposals, Kind: PriceBar, Price: 1_000_000})
	require.NoError(t, err)
	require.Equal(t, Money(900_000), cell.Display)
	require.Equal(t, Money(850_000), cell.Net)
	require.Equal(t, "BAR", cell.Trace[0].Step)

	cell, err = b.Preview(context.Background(), PreviewRequest{Channel: agodaChannel("15"), Proposals: proposals, Kind: PriceDisplay, Price: 1_500_000})
	require.NoError(t, err)
	require.Equal(t, Money(1_416_667), cell.Net)

	cell, err = b.Preview(context.Background(), PreviewRequest{Channel: agodaChannel("15"), Kind: PriceNet, Price: -5})
	require.NoError(t, err)
	require.Equal(t, StatusFailed, cell.Status)
	require.Equal(t, CodeInvalidPrice, cell.Error.Code)

	_, err = b.Preview(context.Background(), PreviewRequest{Channel: agodaChannel("15"), Kind: "gross", Price: 1})
	require.ErrorIs(t, err, ErrInvalidMode)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.Preview(ctx, PreviewRequest{Channel: agodaChannel("15"), Kind: PriceNet, Price: 1})
	require.ErrorIs(t, err, context.Canceled)
}

func traceSteps(cell Cell) []string {
	steps := make([]string, 0, len(cell.Trace))
	for _, s := range cell.Trace {
		steps = append(steps, s.Step)
	}
	return steps
}
