package pricing

import "errors"

var (
	// ErrInvalidDiscount is returned when a single or cumulative discount reaches 100% or a channel cap.
	ErrInvalidDiscount = errors.New("invalid discount")
	// ErrInvalidCommission is returned when a channel commission is outside [0, 100).
	ErrInvalidCommission = errors.New("invalid commission")
	// ErrMissingPrice marks reverse-mode room types without a target display price.
	ErrMissingPrice = errors.New("missing display price")
	// ErrInvalidPrice is returned for negative input prices.
	ErrInvalidPrice = errors.New("invalid price")
	// ErrUnknownPromotion indicates a proposal referencing an id absent from the catalog.
	ErrUnknownPromotion = errors.New("unknown promotion")
	// ErrUnknownChannel indicates promotions proposed for a channel that was not supplied.
	ErrUnknownChannel = errors.New("unknown channel")
	// ErrVendorMismatch indicates a promotion proposed on a channel of another vendor.
	ErrVendorMismatch = errors.New("promotion vendor does not match channel")
	// ErrMissingPercent indicates a variable-rate promotion proposed without a percentage.
	ErrMissingPercent = errors.New("promotion percent required")
	// ErrDuplicateProposal indicates the same promotion instance proposed twice on a channel.
	ErrDuplicateProposal = errors.New("duplicate promotion instance")
	// ErrInvalidMode indicates an unknown matrix, preview or compounding mode.
	ErrInvalidMode = errors.New("invalid mode")
	// ErrInvalidSettings indicates a malformed pricing settings snapshot.
	ErrInvalidSettings = errors.New("invalid pricing settings")
)

// Cell error codes rendered to API consumers.
const (
	CodeInvalidDiscount   = "INVALID_DISCOUNT"
	CodeInvalidCommission = "INVALID_COMMISSION"
	CodeMissingPrice      = "MISSING_PRICE"
	CodeInvalidPrice      = "INVALID_PRICE"
	CodeInternal          = "INTERNAL"
)

// CellError is the failure attached to a single matrix cell.
type CellError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func cellErrorFrom(err error) *CellError {
	code := CodeInternal
	switch {
	case errors.Is(err, ErrInvalidDiscount):
		code = CodeInvalidDiscount
	case errors.Is(err, ErrInvalidCommission):
		code = CodeInvalidCommission
	case errors.Is(err, ErrMissingPrice):
		code = CodeMissingPrice
	case errors.Is(err, ErrInvalidPrice):
		code = CodeInvalidPrice
	}
	return &CellError{Code: code, Message: err.Error()}
}
