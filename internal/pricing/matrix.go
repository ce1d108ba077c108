package pricing

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// MatrixMode selects the matrix direction.
type MatrixMode string

const (
	MatrixNetToBar MatrixMode = "net_to_bar"
	MatrixBarToNet MatrixMode = "bar_to_net"
)

// PriceKind selects what a preview price represents.
type PriceKind string

const (
	PriceNet     PriceKind = "net"
	PriceBar     PriceKind = "bar"
	PriceDisplay PriceKind = "display"
)

// CellStatus describes how a cell was computed.
type CellStatus string

const (
	StatusOK          CellStatus = "ok"
	StatusFailed      CellStatus = "failed"
	StatusNotComputed CellStatus = "not_computed"
)

// Cell is the priced intersection of one room type and one channel.
type Cell struct {
	RoomTypeID       string `json:"roomTypeId"`
	ChannelID        string `json:"channelId"`
	Net              Money  `json:"net"`
	Bar              Money  `json:"bar"`
	Display          Money  `json:"display"`
	CommissionAmount Money  `json:"commissionAmount"`
	// EffectiveCommissionPercent includes enabled boosters.
	EffectiveCommissionPercent float64     `json:"effectiveCommissionPercent"`
	TotalDiscountPercent       float64     `json:"totalDiscountPercent"`
	Guardrail                  string      `json:"guardrail,omitempty"`
	Trace                      []TraceStep `json:"trace"`
	Excluded                   []Exclusion `json:"excluded,omitempty"`
	Notes                      []string    `json:"notes,omitempty"`
	Warnings                   []string    `json:"warnings,omitempty"`
	Status                     CellStatus  `json:"status"`
	Error                      *CellError  `json:"error,omitempty"`
}

// Key returns the matrix key "roomTypeId:channelId".
func Key(roomTypeID, channelID string) string {
	return roomTypeID + ":" + channelID
}

// Request carries every input of a matrix computation.
type Request struct {
	Mode      MatrixMode
	RoomTypes []RoomType
	Channels  []Channel
	// Proposals are keyed by channel id.
	Proposals map[string][]Proposal
	// DisplayPrices are keyed by room type id and only read in bar_to_net mode.
	DisplayPrices map[string]Money
	Settings      Settings
}

// Result is the assembled pricing matrix.
type Result struct {
	Mode         MatrixMode      `json:"mode"`
	RoomTypes    []RoomType      `json:"roomTypes"`
	Channels     []Channel       `json:"channels"`
	Matrix       map[string]Cell `json:"matrix"`
	CalculatedAt time.Time       `json:"calculatedAt"`
}

// Failed counts cells that did not compute successfully.
func (r *Result) Failed() int {
	n := 0
	for _, cell := range r.Matrix {
		if cell.Status != StatusOK {
			n++
		}
	}
	return n
}

// PreviewRequest prices a single value on a single channel.
type PreviewRequest struct {
	Channel   Channel
	Proposals []Proposal
	Kind      PriceKind
	Price     Money
	Settings  Settings
}

// Builder computes pricing matrices against a catalog.
type Builder struct {
	Catalog     *Catalog
	Concurrency int
	Now         func() time.Time
}

// NewBuilder returns a builder over catalog. Non-positive concurrency uses GOMAXPROCS.
func NewBuilder(catalog *Catalog, concurrency int) *Builder {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Builder{Catalog: catalog, Concurrency: concurrency, Now: time.Now}
}

type channelPlan struct {
	channel    Channel
	plan       Plan
	resolution Resolution
	warnings   []string
}

// prepare instantiates and resolves the proposals of one channel.
func (b *Builder) prepare(channel Channel, proposals []Proposal, settings Settings) (channelPlan, error) {
	instances := make([]Instance, 0, len(proposals))
	seen := make(map[string]bool, len(proposals))
	for _, p := range proposals {
		inst, err := b.Catalog.Instantiate(channel, p)
		if err != nil {
			return channelPlan{}, fmt.Errorf("channel %s: %w", channel.ID, err)
		}
		if seen[inst.ID] {
			return channelPlan{}, fmt.Errorf("channel %s: %w %q", channel.ID, ErrDuplicateProposal, inst.ID)
		}
		seen[inst.ID] = true
		instances = append(instances, inst)
	}
	policy := PolicyFor(channel.Code)
	res := Resolve(policy, instances)
	plan := NewPlan(channel, policy, res.Winners, settings)
	return channelPlan{channel: channel, plan: plan, resolution: res, warnings: plan.Warnings()}, nil
}

// ComputeMatrix prices every active channel against every room type. Configuration
// errors abort the computation; pricing failures are attached to their cells.
func (b *Builder) ComputeMatrix(ctx context.Context, req Request) (*Result, error) {
	if req.Mode != MatrixNetToBar && req.Mode != MatrixBarToNet {
		return nil, fmt.Errorf("%w: matrix mode %q", ErrInvalidMode, req.Mode)
	}
	if err := req.Settings.Validate(); err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(req.Channels))
	for _, ch := range req.Channels {
		known[ch.ID] = true
	}
	channelIDs := make([]string, 0, len(req.Proposals))
	for id := range req.Proposals {
		channelIDs = append(channelIDs, id)
	}
	sort.Strings(channelIDs)
	for _, id := range channelIDs {
		if !known[id] {
			return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, id)
		}
	}

	active := make([]Channel, 0, len(req.Channels))
	plans := make([]channelPlan, 0, len(req.Channels))
	for _, ch := range req.Channels {
		if !ch.Active {
			continue
		}
		cp, err := b.prepare(ch, req.Proposals[ch.ID], req.Settings)
		if err != nil {
			return nil, err
		}
		active = append(active, ch)
		plans = append(plans, cp)
	}

	grid := make([][]Cell, len(plans))
	for i := range grid {
		grid[i] = make([]Cell, len(req.RoomTypes))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.limit())
	for ci := range plans {
		for ri := range req.RoomTypes {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				grid[ci][ri] = b.cell(req, plans[ci], req.RoomTypes[ri])
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{
		Mode:         req.Mode,
		RoomTypes:    req.RoomTypes,
		Channels:     active,
		Matrix:       make(map[string]Cell, len(plans)*len(req.RoomTypes)),
		CalculatedAt: b.now(),
	}
	for ci, cp := range plans {
		for ri, rt := range req.RoomTypes {
			result.Matrix[Key(rt.ID, cp.channel.ID)] = grid[ci][ri]
		}
	}
	return result, nil
}

func (b *Builder) cell(req Request, cp channelPlan, rt RoomType) Cell {
	cell := newCell(rt.ID, cp)

	var (
		q   Quote
		err error
	)
	switch req.Mode {
	case MatrixNetToBar:
		net := rt.NetPrice
		if override, ok := req.Settings.NetOverrides[rt.ID]; ok {
			net = override
		}
		q, err = cp.plan.Forward(net)
	case MatrixBarToNet:
		display, ok := req.DisplayPrices[rt.ID]
		if !ok {
			cell.Status = StatusNotComputed
			cell.Error = cellErrorFrom(fmt.Errorf("%w: room type %s", ErrMissingPrice, rt.ID))
			return cell
		}
		q, err = cp.plan.Reverse(display)
	}
	return finish(cell, q, err, req.Settings)
}

// Preview prices a single value on one channel.
func (b *Builder) Preview(ctx context.Context, req PreviewRequest) (Cell, error) {
	if err := ctx.Err(); err != nil {
		return Cell{}, err
	}
	if err := req.Settings.Validate(); err != nil {
		return Cell{}, err
	}
	cp, err := b.prepare(req.Channel, req.Proposals, req.Settings)
	if err != nil {
		return Cell{}, err
	}

	cell := newCell("", cp)
	var q Quote
	switch req.Kind {
	case PriceNet:
		q, err = cp.plan.Forward(req.Price)
	case PriceBar:
		q, err = cp.plan.FromBar(req.Price)
	case PriceDisplay:
		q, err = cp.plan.Reverse(req.Price)
	default:
		return Cell{}, fmt.Errorf("%w: preview kind %q", ErrInvalidMode, req.Kind)
	}
	return finish(cell, q, err, req.Settings), nil
}

func newCell(roomTypeID string, cp channelPlan) Cell {
	return Cell{
		RoomTypeID: roomTypeID,
		ChannelID:  cp.channel.ID,
		Trace:      []TraceStep{},
		Excluded:   cp.resolution.Exclusions,
		Notes:      cp.resolution.Notes,
		Warnings:   append([]string(nil), cp.warnings...),
		Status:     StatusOK,

		EffectiveCommissionPercent: cp.plan.Commission.Percent.InexactFloat64(),
	}
}

func finish(cell Cell, q Quote, err error, settings Settings) Cell {
	if err != nil {
		cell.Status = StatusFailed
		cell.Error = cellErrorFrom(err)
		return cell
	}
	cell.Net = q.Net
	cell.Bar = q.Bar
	cell.Display = q.Display
	cell.CommissionAmount = q.CommissionAmount
	cell.TotalDiscountPercent = q.TotalDiscountPercent.InexactFloat64()
	cell.Trace = q.Trace
	cell.Guardrail = q.Guardrail
	cell.Warnings = append(cell.Warnings, settings.rateWarnings(q.Bar)...)
	return cell
}

func (b *Builder) limit() int {
	if b.Concurrency > 0 {
		return b.Concurrency
	}
	return runtime.GOMAXPROCS(0)
}

func (b *Builder) now() time.Time {
	if b.Now != nil {
		return b.Now().UTC()
	}
	return time.Now().UTC()
}
