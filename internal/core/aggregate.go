package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Aggregate reduces the provider's billing items to the costs of a single
// calendar day.
//
// Only items dated exactly on ref are kept. An item whose date or amount
// cannot be parsed, or whose amount is negative (payments and credits), is
// skipped and counted in Skipped rather than failing the whole day. An empty
// result is valid and has a zero total.
func Aggregate(items []BillingItem, ref Date) DailyCosts {
	out := DailyCosts{Date: ref, Items: []LineItem{}}
	total := decimal.Zero

	for _, it := range items {
		d, err := ParseDate(it.Date)
		if err != nil {
			out.Skipped++
			continue
		}
		if !d.SameDay(ref) {
			continue
		}
		amount, err := ParseDecimal(it.Amount)
		if err != nil || amount.IsNegative() {
			out.Skipped++
			continue
		}

		duration := strings.TrimSpace(it.Duration)
		if duration == "" {
			duration = NotApplicable
		}
		out.Items = append(out.Items, LineItem{
			Description: strings.TrimSpace(it.Description),
			Amount:      MoneyFromDecimal(amount),
			Duration:    duration,
		})
		total = total.Add(amount)
	}

	out.Total = MoneyFromDecimal(total)
	return out
}
