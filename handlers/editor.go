package handlers

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"localcity/middleware"
	"localcity/services/editor"
	"localcity/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EditorPingInterval keeps idle event streams open through proxies.
var EditorPingInterval = 25 * time.Second

// EditorHandler exposes live editing sessions.
type EditorHandler struct {
	Manager *editor.Manager
}

// session resolves :id and checks it belongs to the calling admin.
func (h *EditorHandler) session(c *gin.Context) (string, bool) {
	id := c.Param("id")
	st, err := h.Manager.State(id)
	if err != nil {
		utils.RespondError(c, "Editor session not available", err)
		return "", false
	}
	if st.AdminID != middleware.AdminID(c) {
		utils.RespondError(c, "Editor session not available",
			fmt.Errorf("%w: session belongs to another admin", utils.ErrForbidden))
		return "", false
	}
	return id, true
}

// OpenSessionHandler handles POST /api/admin/editor/sessions.
func (h *EditorHandler) OpenSessionHandler(c *gin.Context) {
	var req editor.OpenRequest
	if !bindJSON(c, &req) {
		return
	}
	req.AdminID = middleware.AdminID(c)
	st, err := h.Manager.Open(c.Request.Context(), req)
	if err != nil {
		utils.RespondError(c, "Failed to open editor", err)
		return
	}
	getLogger(c).Info("editor session opened",
		zap.String("sessionID", st.ID),
		zap.String("resource", st.Resource),
		zap.String("documentID", st.DocumentID),
		zap.Bool("recovered", st.Recovered))
	c.JSON(http.StatusOK, st)
}

func (h *EditorHandler) StateHandler(c *gin.Context) {
	id, ok := h.session(c)
	if !ok {
		return
	}
	st, err := h.Manager.State(id)
	if err != nil {
		utils.RespondError(c, "Editor session not available", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// EditHandler handles PATCH /api/admin/editor/sessions/:id. The body is the
// whole edited document.
func (h *EditorHandler) EditHandler(c *gin.Context) {
	id, ok := h.session(c)
	if !ok {
		return
	}
	raw, err := c.GetRawData()
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	st, err := h.Manager.Edit(id, raw)
	if err != nil {
		utils.RespondError(c, "Edit rejected", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// actionResponse reports whether a request changed anything.
type actionResponse struct {
	Applied bool                `json:"applied"`
	State   editor.SessionState `json:"state"`
}

func (h *EditorHandler) UndoHandler(c *gin.Context) {
	id, ok := h.session(c)
	if !ok {
		return
	}
	st, applied, err := h.Manager.Undo(id)
	if err != nil {
		utils.RespondError(c, "Undo failed", err)
		return
	}
	c.JSON(http.StatusOK, actionResponse{Applied: applied, State: st})
}

func (h *EditorHandler) SaveNowHandler(c *gin.Context) {
	id, ok := h.session(c)
	if !ok {
		return
	}
	st, applied, err := h.Manager.SaveNow(id)
	if err != nil {
		utils.RespondError(c, "Save failed", err)
		return
	}
	c.JSON(http.StatusOK, actionResponse{Applied: applied, State: st})
}

// SaveHandler waits for the save to finish. A failed save answers with the
// mapped error status and the state in the body.
func (h *EditorHandler) SaveHandler(c *gin.Context) {
	id, ok := h.session(c)
	if !ok {
		return
	}
	st, err := h.Manager.Save(c.Request.Context(), id)
	if err != nil {
		c.JSON(utils.StatusFor(err), gin.H{"error": "Save failed", "details": err.Error(), "state": st})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *EditorHandler) RetryHandler(c *gin.Context) {
	id, ok := h.session(c)
	if !ok {
		return
	}
	st, applied, err := h.Manager.Retry(c.Request.Context(), id)
	if err != nil {
		c.JSON(utils.StatusFor(err), gin.H{"error": "Retry failed", "details": err.Error(), "state": st})
		return
	}
	c.JSON(http.StatusOK, actionResponse{Applied: applied, State: st})
}

func (h *EditorHandler) CloseSessionHandler(c *gin.Context) {
	id, ok := h.session(c)
	if !ok {
		return
	}
	if err := h.Manager.Close(id); err != nil {
		utils.RespondError(c, "Failed to close editor", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Editor session closed"})
}

// EventsHandler handles GET /api/admin/editor/sessions/:id/events as a
// server-sent event stream of "state" events. The stream ends with a
// "closed" event when the session goes away.
func (h *EditorHandler) EventsHandler(c *gin.Context) {
	id, ok := h.session(c)
	if !ok {
		return
	}
	states, cancel, err := h.Manager.Subscribe(id)
	if err != nil {
		utils.RespondError(c, "Editor session not available", err)
		return
	}
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ping := time.NewTicker(EditorPingInterval)
	defer ping.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case st, open := <-states:
			if !open {
				c.SSEvent("closed", gin.H{"id": id})
				return false
			}
			c.SSEvent("state", st)
			return true
		case <-ping.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
