package rates

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/rms-pricing/internal/common"
)

// Handler exposes the pricing endpoints.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

// Mount registers the pricing routes on r, which is expected to be the /api/v1 router.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/pricing/catalog", h.Catalog)
	r.Route("/hotels/{hotelID}/pricing", func(r chi.Router) {
		r.Post("/matrix", h.Matrix)
		r.Get("/matrix.csv", h.MatrixCSV)
		r.Post("/preview", h.Preview)
		r.Post("/snapshot/refresh", h.Refresh)
	})
}

// Matrix handles POST /api/v1/hotels/{hotelID}/pricing/matrix.
func (h *Handler) Matrix(w http.ResponseWriter, r *http.Request) {
	hotelID, ok := h.hotelID(w, r)
	if !ok {
		return
	}
	var in MatrixInput
	if err := common.DecodeJSON(r, &in, false); err != nil {
		common.WriteError(w, err)
		return
	}
	result, err := h.service.Matrix(r.Context(), hotelID, in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

// MatrixCSV handles GET /api/v1/hotels/{hotelID}/pricing/matrix.csv?mode=.
func (h *Handler) MatrixCSV(w http.ResponseWriter, r *http.Request) {
	hotelID, ok := h.hotelID(w, r)
	if !ok {
		return
	}
	in := MatrixInput{Mode: r.URL.Query().Get("mode")}
	if in.Mode == "" {
		in.Mode = "net_to_bar"
	}
	if err := common.ValidateStruct(in); err != nil {
		common.WriteError(w, err)
		return
	}
	result, err := h.service.Matrix(r.Context(), hotelID, in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="pricing-`+in.Mode+`.csv"`)
	w.WriteHeader(http.StatusOK)
	if err := WriteCSV(w, result); err != nil {
		h.service.logger.Warn().Err(err).Str("hotel_id", hotelID).Msg("write pricing csv")
	}
}

// Preview handles POST /api/v1/hotels/{hotelID}/pricing/preview.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	hotelID, ok := h.hotelID(w, r)
	if !ok {
		return
	}
	var in PreviewInput
	if err := common.DecodeJSON(r, &in, false); err != nil {
		common.WriteError(w, err)
		return
	}
	cell, err := h.service.Preview(r.Context(), hotelID, in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": cell})
}

// Refresh handles POST /api/v1/hotels/{hotelID}/pricing/snapshot/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	hotelID, ok := h.hotelID(w, r)
	if !ok {
		return
	}
	if err := h.service.Refresh(r.Context(), hotelID); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Catalog handles GET /api/v1/pricing/catalog?vendor=.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	defs := h.service.Catalog(r.URL.Query().Get("vendor"))
	common.JSON(w, http.StatusOK, map[string]any{"data": defs})
}

func (h *Handler) hotelID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "hotelID")
	if err := common.Validator().Var(id, "required,uuid"); err != nil {
		common.WriteError(w, common.BadRequest("hotelID must be a UUID", err))
		return "", false
	}
	return id, true
}
