package receipt

import (
	"bytes"
	"context"
	"fmt"
	"time"

	receiptRepo "localcity/database/repository/receipt"
	"localcity/models"
	"localcity/services/notification"
)

// MaxBulk caps the number of receipts one bulk request may touch.
const MaxBulk = 200

// BulkFailure explains why one receipt of a bulk request was not approved.
type BulkFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BulkResult reports a bulk approval. Some receipts may fail while others
// succeed; the caller shows Message and lists Failed.
type BulkResult struct {
	Requested int           `json:"requested"`
	Approved  int           `json:"approved"`
	Failed    []BulkFailure `json:"failed"`
	Message   string        `json:"message"`
}

type ReceiptService interface {
	ListReceipts(ctx context.Context, filter models.ReceiptFilter) ([]models.Receipt, int64, error)
	GetReceipt(ctx context.Context, id string) (*models.Receipt, error)
	Approve(ctx context.Context, id, adminID string) (*models.Receipt, error)
	Reject(ctx context.Context, id, adminID, reason string) (*models.Receipt, error)
	BulkApprove(ctx context.Context, ids []string, adminID string) (BulkResult, error)
	// Export renders matching receipts as an XLSX workbook.
	Export(ctx context.Context, filter models.ReceiptFilter) (*bytes.Buffer, error)
}

// DefaultReceiptService is the production implementation.
type DefaultReceiptService struct {
	Repo   receiptRepo.ReceiptRepository
	Notify notification.NotificationService
	Now    func() time.Time
}

func NewDefaultReceiptService(repo receiptRepo.ReceiptRepository, notify notification.NotificationService) (*DefaultReceiptService, error) {
	if repo == nil || notify == nil {
		return nil, fmt.Errorf("receipt service initialization error: one or more dependencies are nil")
	}
	return &DefaultReceiptService{Repo: repo, Notify: notify, Now: time.Now}, nil
}
