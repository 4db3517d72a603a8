package handlers

import (
	"net/http"

	"localcity/services/user"
	"localcity/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler issues admin session tokens.
type AuthHandler struct {
	Users user.UserService
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginHandler handles POST /api/admin/login.
func (h *AuthHandler) LoginHandler(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.Users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		getLogger(c).Warn("admin login rejected", zap.String("email", req.Email), zap.Error(err))
		utils.RespondError(c, "Login failed", err)
		return
	}
	getLogger(c).Info("admin logged in", zap.String("userID", res.ID))
	c.JSON(http.StatusOK, res)
}
