package handlers

import (
	"fmt"
	"net/http"
	"time"

	"localcity/middleware"
	"localcity/models"
	"localcity/services/receipt"
	"localcity/services/review"
	"localcity/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReceiptHandler serves the receipt moderation queue.
type ReceiptHandler struct {
	Service receipt.ReceiptService
}

func (h *ReceiptHandler) ListReceiptsHandler(c *gin.Context) {
	var filter models.ReceiptFilter
	if !bindQuery(c, &filter) {
		return
	}
	filter.Limit, filter.Offset = pageBounds(filter.Limit, filter.Offset)
	items, total, err := h.Service.ListReceipts(c.Request.Context(), filter)
	if err != nil {
		utils.RespondError(c, "Failed to list receipts", err)
		return
	}
	c.JSON(http.StatusOK, listResponse{Items: items, Total: total, Limit: filter.Limit, Offset: filter.Offset})
}

// ExportReceiptsHandler handles GET /api/admin/receipts/export.
func (h *ReceiptHandler) ExportReceiptsHandler(c *gin.Context) {
	var filter models.ReceiptFilter
	if !bindQuery(c, &filter) {
		return
	}
	buf, err := h.Service.Export(c.Request.Context(), filter)
	if err != nil {
		utils.RespondError(c, "Failed to export receipts", err)
		return
	}
	name := fmt.Sprintf("receipts-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *ReceiptHandler) ApproveReceiptHandler(c *gin.Context) {
	rec, err := h.Service.Approve(c.Request.Context(), c.Param("id"), middleware.AdminID(c))
	if err != nil {
		utils.RespondError(c, "Failed to approve receipt", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *ReceiptHandler) RejectReceiptHandler(c *gin.Context) {
	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	rec, err := h.Service.Reject(c.Request.Context(), c.Param("id"), middleware.AdminID(c), req.Reason)
	if err != nil {
		utils.RespondError(c, "Failed to reject receipt", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// BulkApproveReceiptsHandler handles POST /api/admin/receipts/bulk-approve.
// Per-receipt failures are reported in the body with a 200.
func (h *ReceiptHandler) BulkApproveReceiptsHandler(c *gin.Context) {
	var req struct {
		IDs []string `json:"ids" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if len(req.IDs) > receipt.MaxBulk {
		utils.JSONError(c, http.StatusBadRequest, "Too many receipts",
			fmt.Sprintf("at most %d receipts per request", receipt.MaxBulk))
		return
	}
	res, err := h.Service.BulkApprove(c.Request.Context(), req.IDs, middleware.AdminID(c))
	if err != nil {
		utils.RespondError(c, "Failed to approve receipts", err)
		return
	}
	getLogger(c).Info("bulk receipt approval",
		zap.Int("requested", res.Requested),
		zap.Int("approved", res.Approved),
		zap.Int("failed", len(res.Failed)))
	c.JSON(http.StatusOK, res)
}

// ReviewHandler serves review moderation.
type ReviewHandler struct {
	Service review.ReviewService
}

func (h *ReviewHandler) ListReviewsHandler(c *gin.Context) {
	var filter models.ReviewFilter
	if !bindQuery(c, &filter) {
		return
	}
	filter.Limit, filter.Offset = pageBounds(filter.Limit, filter.Offset)
	items, total, err := h.Service.ListReviews(c.Request.Context(), filter)
	if err != nil {
		utils.RespondError(c, "Failed to list reviews", err)
		return
	}
	c.JSON(http.StatusOK, listResponse{Items: items, Total: total, Limit: filter.Limit, Offset: filter.Offset})
}

func (h *ReviewHandler) ApproveReviewHandler(c *gin.Context) {
	rv, err := h.Service.Approve(c.Request.Context(), c.Param("id"), middleware.AdminID(c))
	if err != nil {
		utils.RespondError(c, "Failed to approve review", err)
		return
	}
	c.JSON(http.StatusOK, rv)
}

func (h *ReviewHandler) HideReviewHandler(c *gin.Context) {
	rv, err := h.Service.Hide(c.Request.Context(), c.Param("id"), middleware.AdminID(c))
	if err != nil {
		utils.RespondError(c, "Failed to hide review", err)
		return
	}
	c.JSON(http.StatusOK, rv)
}

func (h *ReviewHandler) DeleteReviewHandler(c *gin.Context) {
	if err := h.Service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		utils.RespondError(c, "Failed to delete review", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Review deleted"})
}
