package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/rms-pricing/internal/pricing"
)

// Repository loads and stores hotel pricing reference data in Postgres.
type Repository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewRepository constructs a repository backed by pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, now: time.Now}
}

const (
	hotelQuery = `SELECT name, rounding, min_rate, max_rate FROM hotels WHERE id = $1`

	roomTypesQuery = `SELECT id::text, name, net_price, display_price
FROM room_types WHERE hotel_id = $1 ORDER BY position, name, id`

	seasonRatesQuery = `SELECT DISTINCT ON (s.room_type_id) s.room_type_id::text, s.net_price
FROM season_rates s
JOIN room_types r ON r.id = s.room_type_id
WHERE r.hotel_id = $1 AND $2::date BETWEEN s.starts_on AND s.ends_on
ORDER BY s.room_type_id, s.starts_on DESC`

	occupancyQuery = `SELECT t.multiplier::text
FROM occupancy_tiers t
JOIN hotels h ON h.id = t.hotel_id
WHERE t.hotel_id = $1 AND h.occupancy_pct >= t.min_occupancy AND h.occupancy_pct < t.max_occupancy
ORDER BY t.min_occupancy DESC LIMIT 1`

	channelsQuery = `SELECT id::text, name, code, commission_percent::text, commission_mode, is_active
FROM channels WHERE hotel_id = $1 ORDER BY position, name, id`

	boostersQuery = `SELECT b.id::text, b.channel_id::text, b.name, b.program, b.boost_percent::text, b.is_enabled
FROM channel_boosters b
JOIN channels c ON c.id = b.channel_id
WHERE c.hotel_id = $1
ORDER BY c.position, b.position, b.id`

	promotionsQuery = `SELECT p.id::text, p.channel_id::text, p.promotion_id, p.percent::text, p.mode
FROM channel_promotions p
JOIN channels c ON c.id = p.channel_id
WHERE c.hotel_id = $1
ORDER BY c.position, p.position, p.id`
)

// LoadSnapshot reads the pricing snapshot of hotelID. The season rate active today
// replaces the room type NET and the occupancy tier matching the hotel's current
// occupancy becomes the multiplier.
func (r *Repository) LoadSnapshot(ctx context.Context, hotelID string) (*Snapshot, error) {
	id, err := uuid.Parse(strings.TrimSpace(hotelID))
	if err != nil {
		return nil, ErrNotFound
	}
	snap := &Snapshot{
		HotelID:       id.String(),
		Proposals:     make(map[string][]pricing.Proposal),
		DisplayPrices: make(map[string]pricing.Money),
		LoadedAt:      r.now().UTC(),
	}

	var rounding *string
	err = r.pool.QueryRow(ctx, hotelQuery, id).Scan(&snap.Name, &rounding, &snap.Settings.MinRate, &snap.Settings.MaxRate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load hotel: %w", err)
	}
	// A hotel without its own rounding rule inherits the service default.
	if rounding != nil {
		if snap.Settings.Rounding, err = pricing.ParseRounding(*rounding); err != nil {
			return nil, fmt.Errorf("hotel %s: %w", id, err)
		}
	}

	if err := r.loadRoomTypes(ctx, id, snap); err != nil {
		return nil, err
	}
	if err := r.loadSeasonRates(ctx, id, snap); err != nil {
		return nil, err
	}
	if err := r.loadOccupancy(ctx, id, snap); err != nil {
		return nil, err
	}
	if err := r.loadChannels(ctx, id, snap); err != nil {
		return nil, err
	}
	if err := r.loadBoosters(ctx, id, snap); err != nil {
		return nil, err
	}
	if err := r.loadPromotions(ctx, id, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (r *Repository) loadRoomTypes(ctx context.Context, hotelID uuid.UUID, snap *Snapshot) error {
	rows, err := r.pool.Query(ctx, roomTypesQuery, hotelID)
	if err != nil {
		return fmt.Errorf("load room types: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			rt      pricing.RoomType
			display *int64
		)
		if err := rows.Scan(&rt.ID, &rt.Name, &rt.NetPrice, &display); err != nil {
			return fmt.Errorf("scan room type: %w", err)
		}
		if display != nil {
			snap.DisplayPrices[rt.ID] = *display
		}
		snap.RoomTypes = append(snap.RoomTypes, rt)
	}
	return rows.Err()
}

func (r *Repository) loadSeasonRates(ctx context.Context, hotelID uuid.UUID, snap *Snapshot) error {
	rows, err := r.pool.Query(ctx, seasonRatesQuery, hotelID, r.now().UTC().Format(time.DateOnly))
	if err != nil {
		return fmt.Errorf("load season rates: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			roomTypeID string
			net        int64
		)
		if err := rows.Scan(&roomTypeID, &net); err != nil {
			return fmt.Errorf("scan season rate: %w", err)
		}
		if snap.Settings.NetOverrides == nil {
			snap.Settings.NetOverrides = make(map[string]pricing.Money)
		}
		snap.Settings.NetOverrides[roomTypeID] = net
	}
	return rows.Err()
}

func (r *Repository) loadOccupancy(ctx context.Context, hotelID uuid.UUID, snap *Snapshot) error {
	var multiplier string
	err := r.pool.QueryRow(ctx, occupancyQuery, hotelID).Scan(&multiplier)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load occupancy tier: %w", err)
	}
	value, err := parseDecimal(&multiplier)
	if err != nil {
		return fmt.Errorf("occupancy multiplier: %w", err)
	}
	snap.Settings.OccupancyMultiplier = value.Decimal
	return nil
}

func (r *Repository) loadChannels(ctx context.Context, hotelID uuid.UUID, snap *Snapshot) error {
	rows, err := r.pool.Query(ctx, channelsQuery, hotelID)
	if err != nil {
		return fmt.Errorf("load channels: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			ch         pricing.Channel
			commission string
			mode       string
		)
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.Code, &commission, &mode, &ch.Active); err != nil {
			return fmt.Errorf("scan channel: %w", err)
		}
		pct, err := parseDecimal(&commission)
		if err != nil {
			return fmt.Errorf("channel %s commission: %w", ch.ID, err)
		}
		ch.CommissionPercent = pct.Decimal
		if ch.CommissionMode, err = pricing.ParseCompoundMode(mode); err != nil {
			return fmt.Errorf("channel %s: %w", ch.ID, err)
		}
		snap.Channels = append(snap.Channels, ch)
	}
	return rows.Err()
}

func (r *Repository) loadBoosters(ctx context.Context, hotelID uuid.UUID, snap *Snapshot) error {
	rows, err := r.pool.Query(ctx, boostersQuery, hotelID)
	if err != nil {
		return fmt.Errorf("load boosters: %w", err)
	}
	defer rows.Close()

	index := make(map[string]int, len(snap.Channels))
	for i, ch := range snap.Channels {
		index[ch.ID] = i
	}
	for rows.Next() {
		var (
			b         pricing.Booster
			channelID string
			percent   string
		)
		if err := rows.Scan(&b.ID, &channelID, &b.Name, &b.Program, &percent, &b.Enabled); err != nil {
			return fmt.Errorf("scan booster: %w", err)
		}
		pct, err := parseDecimal(&percent)
		if err != nil {
			return fmt.Errorf("booster %s percent: %w", b.ID, err)
		}
		b.Percent = pct.Decimal
		if i, ok := index[channelID]; ok {
			snap.Channels[i].Boosters = append(snap.Channels[i].Boosters, b)
		}
	}
	return rows.Err()
}

func (r *Repository) loadPromotions(ctx context.Context, hotelID uuid.UUID, snap *Snapshot) error {
	rows, err := r.pool.Query(ctx, promotionsQuery, hotelID)
	if err != nil {
		return fmt.Errorf("load promotions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			p         pricing.Proposal
			channelID string
			percent   *string
			mode      string
		)
		if err := rows.Scan(&p.ID, &channelID, &p.PromotionID, &percent, &mode); err != nil {
			return fmt.Errorf("scan promotion: %w", err)
		}
		if p.Percent, err = parseDecimal(percent); err != nil {
			return fmt.Errorf("promotion %s percent: %w", p.ID, err)
		}
		if p.Mode, err = pricing.ParseCompoundMode(mode); err != nil {
			return fmt.Errorf("promotion %s: %w", p.ID, err)
		}
		snap.Proposals[channelID] = append(snap.Proposals[channelID], p)
	}
	return rows.Err()
}

// SaveHotel replaces the hotel's reference data with h inside a single transaction.
// Missing ids are generated and written back into h.
func (r *Repository) SaveHotel(ctx context.Context, h *Hotel) error {
	if err := h.normalize(); err != nil {
		return err
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `INSERT INTO hotels (id, name, rounding, min_rate, max_rate, occupancy_pct)
VALUES ($1, $2, $3, $4, $5, $6::numeric)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, rounding = EXCLUDED.rounding,
    min_rate = EXCLUDED.min_rate, max_rate = EXCLUDED.max_rate,
    occupancy_pct = EXCLUDED.occupancy_pct, updated_at = now()`,
		h.ID, h.Name, nullableText(h.Rounding), h.MinRate, h.MaxRate, nullableText(h.OccupancyPct))
	if err != nil {
		return fmt.Errorf("upsert hotel: %w", err)
	}
	for _, stmt := range []string{
		`DELETE FROM room_types WHERE hotel_id = $1`,
		`DELETE FROM channels WHERE hotel_id = $1`,
		`DELETE FROM occupancy_tiers WHERE hotel_id = $1`,
	} {
		if _, err := tx.Exec(ctx, stmt, h.ID); err != nil {
			return fmt.Errorf("clear hotel data: %w", err)
		}
	}

	for i, rt := range h.RoomTypes {
		if _, err := tx.Exec(ctx, `INSERT INTO room_types (id, hotel_id, name, net_price, display_price, position)
VALUES ($1, $2, $3, $4, $5, $6)`, rt.ID, h.ID, rt.Name, rt.NetPrice, rt.DisplayPrice, i); err != nil {
			return fmt.Errorf("insert room type %s: %w", rt.Name, err)
		}
		for _, season := range rt.Seasons {
			if _, err := tx.Exec(ctx, `INSERT INTO season_rates (id, room_type_id, starts_on, ends_on, net_price)
VALUES ($1, $2, $3::date, $4::date, $5)`, uuid.NewString(), rt.ID, season.StartsOn, season.EndsOn, season.NetPrice); err != nil {
				return fmt.Errorf("insert season rate for %s: %w", rt.Name, err)
			}
		}
	}
	for _, tier := range h.OccupancyTiers {
		if _, err := tx.Exec(ctx, `INSERT INTO occupancy_tiers (id, hotel_id, min_occupancy, max_occupancy, multiplier)
VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric)`, uuid.NewString(), h.ID, tier.Min, tier.Max, tier.Multiplier); err != nil {
			return fmt.Errorf("insert occupancy tier: %w", err)
		}
	}
	for i, ch := range h.Channels {
		if _, err := tx.Exec(ctx, `INSERT INTO channels (id, hotel_id, name, code, commission_percent, commission_mode, is_active, position)
VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8)`, ch.ID, h.ID, ch.Name, ch.Code, ch.CommissionPercent, ch.CommissionMode, ch.isActive(), i); err != nil {
			return fmt.Errorf("insert channel %s: %w", ch.Name, err)
		}
		for j, promo := range ch.Promotions {
			if _, err := tx.Exec(ctx, `INSERT INTO channel_promotions (id, channel_id, promotion_id, percent, mode, position)
VALUES ($1, $2, $3, $4::numeric, $5, $6)`, promo.ID, ch.ID, promo.PromotionID, nullableText(promo.Percent), promo.Mode, j); err != nil {
				return fmt.Errorf("insert promotion %s on %s: %w", promo.PromotionID, ch.Name, err)
			}
		}
		for j, b := range ch.Boosters {
			if _, err := tx.Exec(ctx, `INSERT INTO channel_boosters (id, channel_id, name, program, boost_percent, is_enabled, position)
VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)`, b.ID, ch.ID, b.Name, b.Program, b.BoostPercent, b.isEnabled(), j); err != nil {
				return fmt.Errorf("insert booster %s on %s: %w", b.Name, ch.Name, err)
			}
		}
	}
	return tx.Commit(ctx)
}

func parseDecimal(value *string) (decimal.NullDecimal, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(*value))
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func nullableText(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}
