package store

import (
	"errors"
	"time"

	"github.com/noah-isme/rms-pricing/internal/pricing"
)

// ErrNotFound is returned when a hotel does not exist.
var ErrNotFound = errors.New("hotel not found")

// Snapshot is the pricing reference data of one hotel as of LoadedAt.
type Snapshot struct {
	HotelID   string             `json:"hotelId"`
	Name      string             `json:"name"`
	RoomTypes []pricing.RoomType `json:"roomTypes"`
	Channels  []pricing.Channel  `json:"channels"`
	// Proposals are keyed by channel id in channel position order.
	Proposals map[string][]pricing.Proposal `json:"proposals"`
	// DisplayPrices are the stored reverse-mode targets keyed by room type id.
	DisplayPrices map[string]pricing.Money `json:"displayPrices,omitempty"`
	Settings      pricing.Settings         `json:"settings"`
	LoadedAt      time.Time                `json:"loadedAt"`
}

// Channel returns the channel with the given id.
func (s *Snapshot) Channel(id string) (pricing.Channel, bool) {
	for _, ch := range s.Channels {
		if ch.ID == id {
			return ch, true
		}
	}
	return pricing.Channel{}, false
}

// Request builds a matrix request over the snapshot. Maps are copied so callers may
// merge overrides without touching the snapshot.
func (s *Snapshot) Request(mode pricing.MatrixMode) pricing.Request {
	proposals := make(map[string][]pricing.Proposal, len(s.Proposals))
	for id, list := range s.Proposals {
		proposals[id] = append([]pricing.Proposal(nil), list...)
	}
	display := make(map[string]pricing.Money, len(s.DisplayPrices))
	for id, price := range s.DisplayPrices {
		display[id] = price
	}
	settings := s.Settings
	if len(s.Settings.NetOverrides) > 0 {
		settings.NetOverrides = make(map[string]pricing.Money, len(s.Settings.NetOverrides))
		for id, net := range s.Settings.NetOverrides {
			settings.NetOverrides[id] = net
		}
	}
	return pricing.Request{
		Mode:          mode,
		RoomTypes:     append([]pricing.RoomType(nil), s.RoomTypes...),
		Channels:      append([]pricing.Channel(nil), s.Channels...),
		Proposals:     proposals,
		DisplayPrices: display,
		Settings:      settings,
	}
}
