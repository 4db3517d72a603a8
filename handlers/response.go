package handlers

import (
	"net/http"

	"localcity/database"
	"localcity/utils"

	"github.com/gin-gonic/gin"
)

// listResponse is the envelope of every paged listing.
type listResponse struct {
	Items  any   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = database.DefaultPageSize
	}
	if limit > database.MaxPageSize {
		limit = database.MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// bindJSON decodes the request body into v and answers 400 on failure.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return false
	}
	return true
}

func bindQuery(c *gin.Context, v any) bool {
	if err := c.ShouldBindQuery(v); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid query parameters", err.Error())
		return false
	}
	return true
}
