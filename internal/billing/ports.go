// Package billing defines the billing provider port and the errors providers
// report through it.
package billing

import (
	"context"

	"costalert/internal/core"
)

// Source supplies the account's billing line items.
type Source interface {
	FetchBillingItems(ctx context.Context) ([]core.BillingItem, error)
}
