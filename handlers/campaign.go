package handlers

import (
	"net/http"
	"time"

	"localcity/middleware"
	"localcity/models"
	"localcity/services/campaign"
	"localcity/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CampaignHandler serves the email campaign builder.
type CampaignHandler struct {
	Service campaign.CampaignService
}

func (h *CampaignHandler) ListCampaignsHandler(c *gin.Context) {
	var q struct {
		Status models.CampaignStatus `form:"status"`
		Limit  int                   `form:"limit"`
		Offset int                   `form:"offset"`
	}
	if !bindQuery(c, &q) {
		return
	}
	q.Limit, q.Offset = pageBounds(q.Limit, q.Offset)
	items, total, err := h.Service.ListCampaigns(c.Request.Context(), q.Status, q.Limit, q.Offset)
	if err != nil {
		utils.RespondError(c, "Failed to list campaigns", err)
		return
	}
	c.JSON(http.StatusOK, listResponse{Items: items, Total: total, Limit: q.Limit, Offset: q.Offset})
}

func (h *CampaignHandler) GetCampaignHandler(c *gin.Context) {
	cmp, err := h.Service.GetCampaign(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, "Campaign not available", err)
		return
	}
	c.JSON(http.StatusOK, cmp)
}

func (h *CampaignHandler) CreateCampaignHandler(c *gin.Context) {
	var draft models.CampaignDraft
	if !bindJSON(c, &draft) {
		return
	}
	cmp, err := h.Service.CreateCampaign(c.Request.Context(), draft, middleware.AdminID(c))
	if err != nil {
		utils.RespondError(c, "Failed to create campaign", err)
		return
	}
	c.JSON(http.StatusCreated, cmp)
}

func (h *CampaignHandler) UpdateCampaignHandler(c *gin.Context) {
	var draft models.CampaignDraft
	if !bindJSON(c, &draft) {
		return
	}
	cmp, err := h.Service.UpdateDraft(c.Request.Context(), c.Param("id"), draft)
	if err != nil {
		utils.RespondError(c, "Failed to update campaign", err)
		return
	}
	c.JSON(http.StatusOK, cmp)
}

func (h *CampaignHandler) DeleteCampaignHandler(c *gin.Context) {
	if err := h.Service.DeleteCampaign(c.Request.Context(), c.Param("id")); err != nil {
		utils.RespondError(c, "Failed to delete campaign", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Campaign deleted"})
}

// PreviewCampaignHandler handles GET /api/admin/campaigns/:id/preview.
// ?format=html returns the email body itself for an iframe.
func (h *CampaignHandler) PreviewCampaignHandler(c *gin.Context) {
	r, err := h.Service.Preview(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, "Failed to render preview", err)
		return
	}
	if c.Query("format") == "html" {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(r.HTML))
		return
	}
	c.JSON(http.StatusOK, r)
}

// TestCampaignHandler handles POST /api/admin/campaigns/:id/test.
func (h *CampaignHandler) TestCampaignHandler(c *gin.Context) {
	var req struct {
		To []string `json:"to" binding:"required,min=1"`
	}
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.Service.SendTest(c.Request.Context(), c.Param("id"), req.To)
	if err != nil {
		utils.RespondError(c, "Failed to send test email", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// SendCampaignHandler handles POST /api/admin/campaigns/:id/send. A partial
// delivery is still a 200; the counts are in the body.
func (h *CampaignHandler) SendCampaignHandler(c *gin.Context) {
	id := c.Param("id")
	res, err := h.Service.Send(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, "Failed to send campaign", err)
		return
	}
	getLogger(c).Info("campaign send requested",
		zap.String("campaignID", id),
		zap.String("adminID", middleware.AdminID(c)),
		zap.Int("sent", res.Sent))
	c.JSON(http.StatusOK, res)
}

func (h *CampaignHandler) ScheduleCampaignHandler(c *gin.Context) {
	var req struct {
		At time.Time `json:"at" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	cmp, err := h.Service.Schedule(c.Request.Context(), c.Param("id"), req.At)
	if err != nil {
		utils.RespondError(c, "Failed to schedule campaign", err)
		return
	}
	c.JSON(http.StatusOK, cmp)
}

func (h *CampaignHandler) UnscheduleCampaignHandler(c *gin.Context) {
	cmp, err := h.Service.Unschedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, "Failed to unschedule campaign", err)
		return
	}
	c.JSON(http.StatusOK, cmp)
}
