package receipt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"localcity/database"
	receiptRepo "localcity/database/repository/receipt"
	"localcity/models"
	"localcity/utils"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type memReceipts struct {
	mu   sync.Mutex
	byID map[string]models.Receipt
	fail map[string]error
}

func (r *memReceipts) GetByID(ctx context.Context, id string) (*models.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("receipt %s: %w", id, database.ErrNotFound)
	}
	return &rec, nil
}

func (r *memReceipts) List(ctx context.Context, filter models.ReceiptFilter) ([]models.Receipt, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Receipt
	for _, id := range []string{"r1", "r2", "r3"} {
		rec, ok := r.byID[id]
		if ok && (filter.Status == "" || rec.Status == filter.Status) {
			out = append(out, rec)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memReceipts) Decide(ctx context.Context, id string, d receiptRepo.Decision) (*models.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[id]; err != nil {
		return nil, err
	}
	rec, ok := r.byID[id]
	if !ok || rec.Status != models.ReceiptPending {
		return nil, database.ErrNotFound
	}
	rec.Status = d.Status
	rec.RejectionReason = d.Reason
	rec.ReviewedBy = d.DecidedBy
	at := d.DecidedAt
	rec.ReviewedAt = &at
	r.byID[id] = rec
	return &rec, nil
}

type push struct {
	userID, title, body string
}

type recordingNotifier struct {
	mu     sync.Mutex
	pushes []push
	err    error
}

func (n *recordingNotifier) SendUserPushNotification(ctx context.Context, userID, title, body string, data map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pushes = append(n.pushes, push{userID, title, body})
	return n.err
}

func amount(t *testing.T, s string) models.Amount {
	t.Helper()
	a, err := models.NewAmount(s)
	require.NoError(t, err)
	return a
}

func newReceiptService(t *testing.T) (*DefaultReceiptService, *memReceipts, *recordingNotifier) {
	t.Helper()
	created := time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)
	repo := &memReceipts{
		byID: map[string]models.Receipt{
			"r1": {ID: "r1", UserID: "u1", MerchantName: "Rosa's Bakery", Amount: amount(t, "12.5"), Status: models.ReceiptPending, CreatedAt: created},
			"r2": {ID: "r2", UserID: "u2", MerchantName: "Hardware Hub", Amount: amount(t, "48.99"), Status: models.ReceiptPending, CreatedAt: created},
			"r3": {ID: "r3", UserID: "u1", MerchantName: "Rosa's Bakery", Amount: amount(t, "3"), Status: models.ReceiptApproved, CreatedAt: created},
		},
		fail: map[string]error{},
	}
	notifier := &recordingNotifier{}
	svc, err := NewDefaultReceiptService(repo, notifier)
	require.NoError(t, err)
	svc.Now = func() time.Time { return created.Add(time.Hour) }
	return svc, repo, notifier
}

func TestApproveNotifiesCustomer(t *testing.T) {
	svc, _, notifier := newReceiptService(t)

	rec, err := svc.Approve(context.Background(), "r1", "admin-1")
	require.NoError(t, err)
	require.Equal(t, models.ReceiptApproved, rec.Status)
	require.Equal(t, "admin-1", rec.ReviewedBy)
	require.Len(t, notifier.pushes, 1)
	require.Equal(t, "u1", notifier.pushes[0].userID)
	require.Contains(t, notifier.pushes[0].body, "12.50")

	_, err = svc.Approve(context.Background(), "r1", "admin-1")
	require.ErrorIs(t, err, utils.ErrConflict)
	_, err = svc.Approve(context.Background(), "nope", "admin-1")
	require.ErrorIs(t, err, database.ErrNotFound)
}

func TestNotificationFailureIsNotFatal(t *testing.T) {
	svc, _, notifier := newReceiptService(t)
	notifier.err = errors.New("fcm down")

	rec, err := svc.Approve(context.Background(), "r2", "admin-1")
	require.NoError(t, err)
	require.Equal(t, models.ReceiptApproved, rec.Status)
}

func TestRejectRequiresReason(t *testing.T) {
	svc, _, notifier := newReceiptService(t)

	_, err := svc.Reject(context.Background(), "r1", "admin-1", "   ")
	require.ErrorIs(t, err, utils.ErrInvalidInput)

	rec, err := svc.Reject(context.Background(), "r1", "admin-1", "Receipt is unreadable")
	require.NoError(t, err)
	require.Equal(t, models.ReceiptRejected, rec.Status)
	require.Equal(t, "Receipt is unreadable", rec.RejectionReason)
	require.Contains(t, notifier.pushes[0].body, "Receipt is unreadable")
}

func TestBulkApprovePartialFailure(t *testing.T) {
	svc, repo, _ := newReceiptService(t)
	repo.fail["r2"] = errors.New("connection reset")

	res, err := svc.BulkApprove(context.Background(), []string{"r1", "r2", "r3", "r1", "missing", ""}, "admin-1")
	require.NoError(t, err)

	want := BulkResult{
		Requested: 4,
		Approved:  1,
		Failed: []BulkFailure{
			{ID: "r2", Reason: "internal error"},
			{ID: "r3", Reason: "receipt is already approved"},
			{ID: "missing", Reason: "not found"},
		},
		Message: "Approved 1 of 4 receipts, 3 failed",
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("BulkApprove mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, models.ReceiptApproved, repo.byID["r1"].Status)
}

func TestBulkApproveAllSucceed(t *testing.T) {
	svc, _, _ := newReceiptService(t)

	res, err := svc.BulkApprove(context.Background(), []string{"r1", "r2"}, "admin-1")
	require.NoError(t, err)
	require.Equal(t, 2, res.Approved)
	require.Empty(t, res.Failed)
	require.Equal(t, "Approved 2 receipts", res.Message)
}

func TestBulkApproveRejectsEmptyRequest(t *testing.T) {
	svc, _, _ := newReceiptService(t)

	_, err := svc.BulkApprove(context.Background(), []string{" ", ""}, "admin-1")
	require.ErrorIs(t, err, utils.ErrInvalidInput)
}

func TestExportWorkbook(t *testing.T) {
	svc, _, _ := newReceiptService(t)

	buf, err := svc.Export(context.Background(), models.ReceiptFilter{Status: models.ReceiptPending})
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "Receipt ID", rows[0][0])
	require.Equal(t, "Rejection Reason", rows[0][10])
	require.Equal(t, "r1", rows[1][0])
	require.Equal(t, "Rosa's Bakery", rows[1][3])
	require.Equal(t, "r2", rows[2][0])

	raw, err := f.GetCellValue(exportSheet, "G3", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Equal(t, "48.99", raw)
}
