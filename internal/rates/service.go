package rates

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/rms-pricing/internal/common"
	"github.com/noah-isme/rms-pricing/internal/obs"
	"github.com/noah-isme/rms-pricing/internal/pricing"
	"github.com/noah-isme/rms-pricing/internal/store"
)

// SnapshotLoader reads hotel reference data.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context, hotelID string) (*store.Snapshot, error)
}

// Service orchestrates snapshot loading, caching and matrix computation.
type Service struct {
	store           SnapshotLoader
	cache           *Cache
	builder         *pricing.Builder
	logger          zerolog.Logger
	metrics         *obs.PricingMetrics
	defaultRounding pricing.Rounding
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store   SnapshotLoader
	Cache   *Cache
	Builder *pricing.Builder
	Logger  zerolog.Logger
	Metrics *obs.PricingMetrics
	// DefaultRounding applies to hotels without their own rounding rule.
	DefaultRounding string
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("rates: snapshot store is required")
	}
	rounding, err := pricing.ParseRounding(cfg.DefaultRounding)
	if err != nil {
		return nil, err
	}
	builder := cfg.Builder
	if builder == nil {
		builder = pricing.NewBuilder(pricing.DefaultCatalog(), 0)
	}
	return &Service{
		store:           cfg.Store,
		cache:           cfg.Cache,
		builder:         builder,
		logger:          cfg.Logger,
		metrics:         cfg.Metrics,
		defaultRounding: rounding,
	}, nil
}

// SettingsOverride replaces individual fields of the stored settings for one request.
type SettingsOverride struct {
	Rounding            *string          `json:"rounding,omitempty" validate:"omitempty,oneof=NONE ROUND_100 CEIL_1000"`
	NetOverrides        map[string]int64 `json:"netOverrides,omitempty" validate:"omitempty,dive,gte=0"`
	OccupancyMultiplier *decimal.Decimal `json:"occupancyMultiplier,omitempty"`
	MinRate             *int64           `json:"minRate,omitempty" validate:"omitempty,gte=0"`
	MaxRate             *int64           `json:"maxRate,omitempty" validate:"omitempty,gte=0"`
}

// MatrixInput is a matrix computation request over a stored hotel.
type MatrixInput struct {
	Mode string `json:"mode" validate:"required,oneof=net_to_bar bar_to_net"`
	// DisplayPrices are merged over the stored reverse-mode targets.
	DisplayPrices map[string]int64 `json:"displayPrices,omitempty" validate:"omitempty,dive,gte=0"`
	// Proposals replace the stored proposals of each listed channel.
	Proposals map[string][]pricing.Proposal `json:"proposals,omitempty"`
	Settings  *SettingsOverride             `json:"settings,omitempty"`
}

// PreviewInput prices one value on one stored channel.
type PreviewInput struct {
	ChannelID string `json:"channelId" validate:"required"`
	Mode      string `json:"mode" validate:"required,oneof=net bar display"`
	Price     int64  `json:"price" validate:"gte=0"`
	// Proposals replace the stored proposals of the channel when present.
	Proposals []pricing.Proposal `json:"proposals,omitempty"`
	Settings  *SettingsOverride  `json:"settings,omitempty"`
}

// Matrix computes the pricing matrix of hotelID.
func (s *Service) Matrix(ctx context.Context, hotelID string, in MatrixInput) (*pricing.Result, error) {
	ctx, span := otel.Tracer("rates.Service").Start(ctx, "RatesService.Matrix")
	defer span.End()
	span.SetAttributes(attribute.String("hotel.id", hotelID), attribute.String("pricing.mode", in.Mode))

	start := time.Now()
	mode := pricing.MatrixMode(in.Mode)
	result, err := s.matrix(ctx, hotelID, mode, in)
	elapsed := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.observeRun(in.Mode, "error", elapsed)
		return nil, mapError(err)
	}

	failed := result.Failed()
	span.SetAttributes(attribute.Int("pricing.cells", len(result.Matrix)), attribute.Int("pricing.failed", failed))
	outcome := "ok"
	if failed > 0 {
		outcome = "partial"
	}
	s.observeRun(in.Mode, outcome, elapsed)
	if s.metrics != nil {
		for _, cell := range result.Matrix {
			if cell.Error != nil {
				s.metrics.CellFailures.WithLabelValues(cell.Error.Code).Inc()
			}
		}
	}
	s.logger.Info().
		Str("hotel_id", hotelID).
		Str("mode", in.Mode).
		Int("channels", len(result.Channels)).
		Int("cells", len(result.Matrix)).
		Int("failed", failed).
		Float64("duration_ms", obs.DurationMillis(elapsed)).
		Msg("pricing matrix computed")
	return result, nil
}

func (s *Service) matrix(ctx context.Context, hotelID string, mode pricing.MatrixMode, in MatrixInput) (*pricing.Result, error) {
	snap, err := s.snapshot(ctx, hotelID)
	if err != nil {
		return nil, err
	}
	req := snap.Request(mode)
	for channelID, proposals := range in.Proposals {
		req.Proposals[channelID] = proposals
	}
	for roomTypeID, price := range in.DisplayPrices {
		req.DisplayPrices[roomTypeID] = price
	}
	req.Settings = s.settings(req.Settings, in.Settings)
	return s.builder.ComputeMatrix(ctx, req)
}

// Preview prices one value on one channel of hotelID.
func (s *Service) Preview(ctx context.Context, hotelID string, in PreviewInput) (pricing.Cell, error) {
	ctx, span := otel.Tracer("rates.Service").Start(ctx, "RatesService.Preview")
	defer span.End()
	span.SetAttributes(attribute.String("hotel.id", hotelID), attribute.String("channel.id", in.ChannelID))

	cell, err := s.preview(ctx, hotelID, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.observePreview(in.Mode, "error")
		return pricing.Cell{}, mapError(err)
	}
	s.observePreview(in.Mode, string(cell.Status))
	return cell, nil
}

func (s *Service) preview(ctx context.Context, hotelID string, in PreviewInput) (pricing.Cell, error) {
	snap, err := s.snapshot(ctx, hotelID)
	if err != nil {
		return pricing.Cell{}, err
	}
	channel, ok := snap.Channel(in.ChannelID)
	if !ok {
		return pricing.Cell{}, fmt.Errorf("%w: %q", pricing.ErrUnknownChannel, in.ChannelID)
	}
	proposals := snap.Proposals[channel.ID]
	if in.Proposals != nil {
		proposals = in.Proposals
	}
	return s.builder.Preview(ctx, pricing.PreviewRequest{
		Channel:   channel,
		Proposals: proposals,
		Kind:      pricing.PriceKind(in.Mode),
		Price:     in.Price,
		Settings:  s.settings(snap.Request(pricing.MatrixNetToBar).Settings, in.Settings),
	})
}

// Refresh drops the cached snapshot of hotelID so the next request reloads it.
func (s *Service) Refresh(ctx context.Context, hotelID string) error {
	if err := s.cache.Delete(ctx, hotelID); err != nil {
		return fmt.Errorf("drop snapshot cache: %w", err)
	}
	return nil
}

// Catalog lists the promotion definitions of vendor, or every vendor when empty.
func (s *Service) Catalog(vendor string) []pricing.Definition {
	return s.builder.Catalog.Definitions(vendor)
}

func (s *Service) snapshot(ctx context.Context, hotelID string) (*store.Snapshot, error) {
	snap, ok, err := s.cache.Get(ctx, hotelID)
	switch {
	case err != nil:
		s.observeCache("error")
		s.logger.Warn().Err(err).Str("hotel_id", hotelID).Msg("snapshot cache read failed")
	case ok:
		s.observeCache("hit")
		return snap, nil
	case s.cache.enabled():
		s.observeCache("miss")
	}

	snap, err = s.store.LoadSnapshot(ctx, hotelID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, snap); err != nil {
		s.logger.Warn().Err(err).Str("hotel_id", hotelID).Msg("snapshot cache write failed")
	}
	return snap, nil
}

// settings merges override over base and fills the default rounding.
func (s *Service) settings(base pricing.Settings, override *SettingsOverride) pricing.Settings {
	if override != nil {
		if override.Rounding != nil {
			base.Rounding = pricing.Rounding(strings.ToUpper(*override.Rounding))
		}
		if len(override.NetOverrides) > 0 {
			merged := make(map[string]pricing.Money, len(base.NetOverrides)+len(override.NetOverrides))
			for id, net := range base.NetOverrides {
				merged[id] = net
			}
			for id, net := range override.NetOverrides {
				merged[id] = net
			}
			base.NetOverrides = merged
		}
		if override.OccupancyMultiplier != nil {
			base.OccupancyMultiplier = *override.OccupancyMultiplier
		}
		if override.MinRate != nil {
			base.MinRate = *override.MinRate
		}
		if override.MaxRate != nil {
			base.MaxRate = *override.MaxRate
		}
	}
	if base.Rounding == "" {
		base.Rounding = s.defaultRounding
	}
	return base
}

func (s *Service) observeRun(mode, outcome string, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.MatrixRuns.WithLabelValues(mode, outcome).Inc()
	s.metrics.MatrixDuration.WithLabelValues(mode).Observe(obs.DurationMillis(elapsed))
}

func (s *Service) observePreview(kind, status string) {
	if s.metrics != nil {
		s.metrics.Previews.WithLabelValues(kind, status).Inc()
	}
}

func (s *Service) observeCache(result string) {
	if s.metrics != nil {
		s.metrics.SnapshotCache.WithLabelValues(result).Inc()
	}
}

// mapError converts store and pricing errors into HTTP-facing errors.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case common.IsAppError(err):
		return err
	case errors.Is(err, store.ErrNotFound):
		return common.NotFound("hotel not found", err)
	case errors.Is(err, pricing.ErrInvalidMode):
		return common.NewAppError("INVALID_MODE", err.Error(), http.StatusBadRequest, err)
	case errors.Is(err, pricing.ErrInvalidSettings):
		return common.Unprocessable("INVALID_SETTINGS", err.Error(), err)
	case errors.Is(err, pricing.ErrUnknownChannel):
		return common.Unprocessable("UNKNOWN_CHANNEL", err.Error(), err)
	case errors.Is(err, pricing.ErrUnknownPromotion),
		errors.Is(err, pricing.ErrVendorMismatch),
		errors.Is(err, pricing.ErrMissingPercent),
		errors.Is(err, pricing.ErrDuplicateProposal):
		return common.Unprocessable("INVALID_PROPOSAL", err.Error(), err)
	default:
		return err
	}
}
