package handlers

import (
	"net/http"

	"localcity/middleware"
	"localcity/models"
	"localcity/services/user"
	"localcity/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserHandler serves account management.
type UserHandler struct {
	Service user.UserService
}

func (h *UserHandler) ListUsersHandler(c *gin.Context) {
	var filter models.UserFilter
	if !bindQuery(c, &filter) {
		return
	}
	filter.Limit, filter.Offset = pageBounds(filter.Limit, filter.Offset)
	items, total, err := h.Service.ListUsers(c.Request.Context(), filter)
	if err != nil {
		utils.RespondError(c, "Failed to list users", err)
		return
	}
	c.JSON(http.StatusOK, listResponse{Items: items, Total: total, Limit: filter.Limit, Offset: filter.Offset})
}

func (h *UserHandler) GetUserHandler(c *gin.Context) {
	u, err := h.Service.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, "User not available", err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// UpdateRoleHandler handles PUT /api/admin/users/:id/role.
func (h *UserHandler) UpdateRoleHandler(c *gin.Context) {
	var req struct {
		Role models.Role `json:"role" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.Service.UpdateRole(c.Request.Context(), c.Param("id"), req.Role, middleware.AdminID(c))
	if err != nil {
		utils.RespondError(c, "Failed to update role", err)
		return
	}
	getLogger(c).Info("user role changed",
		zap.String("userID", u.ID),
		zap.String("role", string(u.Role)),
		zap.String("adminID", middleware.AdminID(c)))
	c.JSON(http.StatusOK, u)
}

func (h *UserHandler) SuspendUserHandler(c *gin.Context) {
	u, err := h.Service.Suspend(c.Request.Context(), c.Param("id"), middleware.AdminID(c))
	if err != nil {
		utils.RespondError(c, "Failed to suspend user", err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *UserHandler) ReactivateUserHandler(c *gin.Context) {
	u, err := h.Service.Reactivate(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, "Failed to reactivate user", err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *UserHandler) DeleteUserHandler(c *gin.Context) {
	if err := h.Service.DeleteUser(c.Request.Context(), c.Param("id"), middleware.AdminID(c)); err != nil {
		utils.RespondError(c, "Failed to delete user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}
