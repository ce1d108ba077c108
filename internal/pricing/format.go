package pricing

import (
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

func formatMoney(d decimal.Decimal) string {
	return humanize.Comma(roundMoney(d))
}

func formatPct(d decimal.Decimal) string {
	return d.String() + "%"
}
