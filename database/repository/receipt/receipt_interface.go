package receiptRepo

import (
	"context"
	"time"

	"localcity/models"
)

// Decision records the outcome of reviewing a pending receipt.
type Decision struct {
	Status    models.ReceiptStatus
	Reason    string
	DecidedBy string
	DecidedAt time.Time
}

// ReceiptRepository defines methods for receipt data access.
type ReceiptRepository interface {
	GetByID(ctx context.Context, id string) (*models.Receipt, error)
	// List returns matching receipts and the total count. A negative
	// filter.Limit returns every match.
	List(ctx context.Context, filter models.ReceiptFilter) ([]models.Receipt, int64, error)
	// Decide moves a pending receipt to approved or rejected. It returns
	// database.ErrNotFound when the receipt is missing or no longer pending.
	Decide(ctx context.Context, id string, d Decision) (*models.Receipt, error)
}
