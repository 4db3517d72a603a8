package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"localcity/middleware"
	"localcity/models"
	"localcity/services/hours"
	"localcity/services/merchant"
	"localcity/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MaxUploadBytes caps merchant image uploads.
const MaxUploadBytes = 10 << 20

// MerchantHandler serves merchant page management.
type MerchantHandler struct {
	Service merchant.MerchantService
}

func NewMerchantHandler(svc merchant.MerchantService) *MerchantHandler {
	return &MerchantHandler{Service: svc}
}

// merchantResponse carries the merchant plus the days whose stored hours
// could not be read and were reset to the default.
type merchantResponse struct {
	Merchant     *models.Merchant `json:"merchant"`
	GuessedHours []hours.Weekday  `json:"guessedHours,omitempty"`
}

func withWarning(m *models.Merchant, w *merchant.HoursWarning) merchantResponse {
	res := merchantResponse{Merchant: m}
	if w != nil {
		res.GuessedHours = w.Days
	}
	return res
}

// ListMerchantsHandler handles GET /api/admin/merchants.
func (h *MerchantHandler) ListMerchantsHandler(c *gin.Context) {
	var filter models.MerchantFilter
	if !bindQuery(c, &filter) {
		return
	}
	filter.Limit, filter.Offset = pageBounds(filter.Limit, filter.Offset)
	items, total, err := h.Service.ListMerchants(c.Request.Context(), filter)
	if err != nil {
		utils.RespondError(c, "Failed to list merchants", err)
		return
	}
	c.JSON(http.StatusOK, listResponse{Items: items, Total: total, Limit: filter.Limit, Offset: filter.Offset})
}

// GetMerchantHandler handles GET /api/admin/merchants/:id.
func (h *MerchantHandler) GetMerchantHandler(c *gin.Context) {
	m, err := h.Service.GetMerchant(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, "Merchant not available", err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// CreateMerchantHandler handles POST /api/admin/merchants.
func (h *MerchantHandler) CreateMerchantHandler(c *gin.Context) {
	var req struct {
		models.MerchantPage
		OwnerID string `json:"ownerId"`
	}
	if !bindJSON(c, &req) {
		return
	}
	m, warn, err := h.Service.CreateMerchant(c.Request.Context(), req.MerchantPage, req.OwnerID)
	if err != nil {
		utils.RespondError(c, "Failed to create merchant", err)
		return
	}
	getLogger(c).Info("merchant created", zap.String("merchantID", m.ID), zap.String("adminID", middleware.AdminID(c)))
	c.JSON(http.StatusCreated, withWarning(m, warn))
}

// UpdateMerchantHandler handles PUT /api/admin/merchants/:id with a full page.
func (h *MerchantHandler) UpdateMerchantHandler(c *gin.Context) {
	var page models.MerchantPage
	if !bindJSON(c, &page) {
		return
	}
	m, warn, err := h.Service.UpdateMerchant(c.Request.Context(), c.Param("id"), page)
	if err != nil {
		utils.RespondError(c, "Failed to update merchant", err)
		return
	}
	c.JSON(http.StatusOK, withWarning(m, warn))
}

// DeleteMerchantHandler handles DELETE /api/admin/merchants/:id.
func (h *MerchantHandler) DeleteMerchantHandler(c *gin.Context) {
	id := c.Param("id")
	if err := h.Service.DeleteMerchant(c.Request.Context(), id); err != nil {
		utils.RespondError(c, "Failed to delete merchant", err)
		return
	}
	getLogger(c).Info("merchant deleted", zap.String("merchantID", id), zap.String("adminID", middleware.AdminID(c)))
	c.JSON(http.StatusOK, gin.H{"message": "Merchant deleted"})
}

func (h *MerchantHandler) setPublished(c *gin.Context, published bool) {
	m, err := h.Service.SetPublished(c.Request.Context(), c.Param("id"), published)
	if err != nil {
		utils.RespondError(c, "Failed to change publication", err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// PublishMerchantHandler handles POST /api/admin/merchants/:id/publish.
func (h *MerchantHandler) PublishMerchantHandler(c *gin.Context) { h.setPublished(c, true) }

// UnpublishMerchantHandler handles POST /api/admin/merchants/:id/unpublish.
func (h *MerchantHandler) UnpublishMerchantHandler(c *gin.Context) { h.setPublished(c, false) }

// UpdateHoursHandler handles PUT /api/admin/merchants/:id/hours.
func (h *MerchantHandler) UpdateHoursHandler(c *gin.Context) {
	var req struct {
		Hours hours.Week `json:"hours" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	m, warn, err := h.Service.UpdateHours(c.Request.Context(), c.Param("id"), req.Hours)
	if err != nil {
		utils.RespondError(c, "Failed to update hours", err)
		return
	}
	c.JSON(http.StatusOK, withWarning(m, warn))
}

// UploadImageHandler handles POST /api/admin/merchants/:id/images/:kind with a
// multipart "file" field.
func (h *MerchantHandler) UploadImageHandler(c *gin.Context) {
	kind := merchant.ImageKind(c.Param("kind"))
	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "file not provided", err.Error())
		return
	}
	if fileHeader.Size > MaxUploadBytes {
		utils.JSONError(c, http.StatusRequestEntityTooLarge, "file too large",
			fmt.Sprintf("images are limited to %d MB", MaxUploadBytes>>20))
		return
	}
	if ct := fileHeader.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		utils.JSONError(c, http.StatusUnsupportedMediaType, "unsupported file type", ct)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "unreadable upload", err.Error())
		return
	}
	defer file.Close()

	m, err := h.Service.UploadImage(c.Request.Context(), c.Param("id"), kind, file, fileHeader.Filename)
	if err != nil {
		utils.RespondError(c, "Failed to upload image", err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// RemoveImageHandler handles DELETE /api/admin/merchants/:id/images/:kind.
// Gallery images are picked with ?imageId=.
func (h *MerchantHandler) RemoveImageHandler(c *gin.Context) {
	kind := merchant.ImageKind(c.Param("kind"))
	m, err := h.Service.RemoveImage(c.Request.Context(), c.Param("id"), kind, c.Query("imageId"))
	if err != nil {
		utils.RespondError(c, "Failed to remove image", err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// ReorderGalleryHandler handles PUT /api/admin/merchants/:id/gallery/order.
func (h *MerchantHandler) ReorderGalleryHandler(c *gin.Context) {
	var req struct {
		ImageIDs []string `json:"imageIds" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.Service.ReorderGallery(c.Request.Context(), c.Param("id"), req.ImageIDs)
	if err != nil {
		utils.RespondError(c, "Failed to reorder gallery", err)
		return
	}
	c.JSON(http.StatusOK, m)
}
