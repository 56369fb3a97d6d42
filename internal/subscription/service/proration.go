package service

import (
	"time"

	"github.com/shopspring/decimal"
)

// prorate returns the unused value of a period priced at price, measured
// pro-rata over remaining time at instant at. rounding is "half_up" or
// "down"; unknown values fall back to half up.
func prorate(price int64, periodStart, periodEnd, at time.Time, rounding string) int64 {
	if price <= 0 || !periodEnd.After(periodStart) {
		return 0
	}
	if !at.After(periodStart) {
		return price
	}
	if !at.Before(periodEnd) {
		return 0
	}

	total := periodEnd.Sub(periodStart).Seconds()
	remaining := periodEnd.Sub(at).Seconds()

	value := decimal.NewFromInt(price).
		Mul(decimal.NewFromFloat(remaining)).
		Div(decimal.NewFromFloat(total))

	if rounding == "down" {
		return value.Floor().IntPart()
	}
	return value.Round(0).IntPart()
}
