package receipt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"localcity/database"
	receiptRepo "localcity/database/repository/receipt"
	"localcity/models"
	"localcity/utils"

	"go.uber.org/zap"
)

const maxReasonLength = 500

func (s *DefaultReceiptService) ListReceipts(ctx context.Context, filter models.ReceiptFilter) ([]models.Receipt, int64, error) {
	return s.Repo.List(ctx, filter)
}

func (s *DefaultReceiptService) GetReceipt(ctx context.Context, id string) (*models.Receipt, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *DefaultReceiptService) decide(ctx context.Context, id string, d receiptRepo.Decision) (*models.Receipt, error) {
	rec, err := s.Repo.Decide(ctx, id, d)
	if errors.Is(err, database.ErrNotFound) {
		existing, gerr := s.Repo.GetByID(ctx, id)
		if gerr != nil {
			return nil, gerr
		}
		return nil, fmt.Errorf("%w: receipt is already %s", utils.ErrConflict, existing.Status)
	}
	if err != nil {
		return nil, err
	}
	zap.L().Info("receipt reviewed",
		zap.String("receiptID", id),
		zap.String("status", string(rec.Status)),
		zap.String("adminID", d.DecidedBy))
	s.notify(ctx, rec)
	return rec, nil
}

// notify tells the customer about the decision. Failures are logged only.
func (s *DefaultReceiptService) notify(ctx context.Context, rec *models.Receipt) {
	var title, body string
	amount := rec.Amount.StringFixed(2)
	switch rec.Status {
	case models.ReceiptApproved:
		title = "Receipt approved"
		body = fmt.Sprintf("Your %s receipt from %s was approved. Your rewards are on the way!", amount, rec.MerchantName)
	case models.ReceiptRejected:
		title = "Receipt not accepted"
		body = fmt.Sprintf("Your %s receipt from %s was not accepted: %s", amount, rec.MerchantName, rec.RejectionReason)
	default:
		return
	}
	data := map[string]string{
		"type":      "receipt_review",
		"receiptId": rec.ID,
		"status":    string(rec.Status),
	}
	if err := s.Notify.SendUserPushNotification(ctx, rec.UserID, title, body, data); err != nil {
		zap.L().Warn("receipt notification failed", zap.String("receiptID", rec.ID), zap.String("userID", rec.UserID), zap.Error(err))
	}
}

func (s *DefaultReceiptService) Approve(ctx context.Context, id, adminID string) (*models.Receipt, error) {
	return s.decide(ctx, id, receiptRepo.Decision{
		Status:    models.ReceiptApproved,
		DecidedBy: adminID,
		DecidedAt: s.Now().UTC(),
	})
}

func (s *DefaultReceiptService) Reject(ctx context.Context, id, adminID, reason string) (*models.Receipt, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: a rejection reason is required", utils.ErrInvalidInput)
	}
	if len(reason) > maxReasonLength {
		return nil, fmt.Errorf("%w: rejection reason must be at most %d characters", utils.ErrInvalidInput, maxReasonLength)
	}
	return s.decide(ctx, id, receiptRepo.Decision{
		Status:    models.ReceiptRejected,
		Reason:    reason,
		DecidedBy: adminID,
		DecidedAt: s.Now().UTC(),
	})
}

// BulkApprove approves each receipt independently. The error is only
// non-nil for a malformed request; per-receipt failures land in the result.
func (s *DefaultReceiptService) BulkApprove(ctx context.Context, ids []string, adminID string) (BulkResult, error) {
	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return BulkResult{}, fmt.Errorf("%w: no receipt ids given", utils.ErrInvalidInput)
	}
	if len(unique) > MaxBulk {
		return BulkResult{}, fmt.Errorf("%w: at most %d receipts per request", utils.ErrInvalidInput, MaxBulk)
	}

	res := BulkResult{Requested: len(unique), Failed: []BulkFailure{}}
	for _, id := range unique {
		if ctx.Err() != nil {
			res.Failed = append(res.Failed, BulkFailure{ID: id, Reason: "request cancelled"})
			continue
		}
		if _, err := s.Approve(ctx, id, adminID); err != nil {
			res.Failed = append(res.Failed, BulkFailure{ID: id, Reason: failureReason(err)})
			continue
		}
		res.Approved++
	}

	switch {
	case len(res.Failed) == 0:
		res.Message = fmt.Sprintf("Approved %d receipts", res.Approved)
	case res.Approved == 0:
		res.Message = fmt.Sprintf("No receipts approved, %d failed", len(res.Failed))
	default:
		res.Message = fmt.Sprintf("Approved %d of %d receipts, %d failed", res.Approved, res.Requested, len(res.Failed))
	}
	zap.L().Info("bulk receipt approval",
		zap.String("adminID", adminID),
		zap.Int("requested", res.Requested),
		zap.Int("approved", res.Approved))
	return res, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return "not found"
	case errors.Is(err, utils.ErrConflict):
		return strings.TrimPrefix(err.Error(), utils.ErrConflict.Error()+": ")
	default:
		return "internal error"
	}
}
