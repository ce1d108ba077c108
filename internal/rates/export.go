package rates

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/noah-isme/rms-pricing/internal/pricing"
)

var csvHeader = []string{
	"room_type_id", "room_type", "channel_id", "channel",
	"net", "bar", "display", "commission", "total_discount_pct",
	"status", "error_code", "warnings",
	"effective_commission_pct", "guardrail",
}

// WriteCSV renders result as one row per cell, room types outer and channels inner.
func WriteCSV(w io.Writer, result *pricing.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, rt := range result.RoomTypes {
		for _, ch := range result.Channels {
			cell, ok := result.Matrix[pricing.Key(rt.ID, ch.ID)]
			if !ok {
				continue
			}
			code := ""
			if cell.Error != nil {
				code = cell.Error.Code
			}
			row := []string{
				rt.ID, rt.Name, ch.ID, ch.Name,
				strconv.FormatInt(cell.Net, 10),
				strconv.FormatInt(cell.Bar, 10),
				strconv.FormatInt(cell.Display, 10),
				strconv.FormatInt(cell.CommissionAmount, 10),
				strconv.FormatFloat(cell.TotalDiscountPercent, 'f', 2, 64),
				string(cell.Status),
				code,
				strings.Join(cell.Warnings, "; "),
				strconv.FormatFloat(cell.EffectiveCommissionPercent, 'f', 2, 64),
				cell.Guardrail,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
