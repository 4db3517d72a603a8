package handlers

import (
	"fmt"
	"net/http"

	"localcity/services/hours"
	"localcity/utils"

	"github.com/gin-gonic/gin"
)

// HoursHandler exposes the opening-hours helpers used by the page editor.
// Nothing here is persisted.
type HoursHandler struct{}

type hoursResponse struct {
	Hours        hours.Week               `json:"hours"`
	Display      map[hours.Weekday]string `json:"display"`
	GuessedHours []hours.Weekday          `json:"guessedHours,omitempty"`
}

func respondWeek(c *gin.Context, w hours.Week) {
	normalized, guessed := w.Normalize()
	c.JSON(http.StatusOK, hoursResponse{
		Hours:        normalized,
		Display:      normalized.Display(),
		GuessedHours: guessed,
	})
}

// PresetsHandler handles GET /api/admin/hours/presets.
func (h *HoursHandler) PresetsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"presets": hours.Presets()})
}

type bulkHoursRequest struct {
	Hours  hours.Week      `json:"hours"`
	Op     string          `json:"op" binding:"required,oneof=apply-weekdays copy-all preset closed copy-day set"`
	Preset string          `json:"preset"`
	From   hours.Weekday   `json:"from"`
	To     []hours.Weekday `json:"to"`
	Value  string          `json:"value"`
}

func applyBulk(req bulkHoursRequest) (hours.Week, error) {
	w := req.Hours
	if w == nil {
		w = hours.Week{}
	}
	checkDays := func(days []hours.Weekday) error {
		if len(days) == 0 {
			return fmt.Errorf("%w: at least one target day is required", utils.ErrInvalidInput)
		}
		for _, d := range days {
			if !d.Valid() {
				return fmt.Errorf("%w: unknown day %q", utils.ErrInvalidInput, d)
			}
		}
		return nil
	}

	switch req.Op {
	case "apply-weekdays":
		return hours.ApplyToWeekdays(w), nil
	case "copy-all":
		return hours.CopyToAll(w), nil
	case "closed":
		return hours.SetAllClosed(w), nil
	case "preset":
		p, err := hours.LookupPreset(req.Preset)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", utils.ErrInvalidInput, err)
		}
		return hours.ApplyPreset(w, p), nil
	case "copy-day":
		if !req.From.Valid() {
			return nil, fmt.Errorf("%w: unknown day %q", utils.ErrInvalidInput, req.From)
		}
		if err := checkDays(req.To); err != nil {
			return nil, err
		}
		return hours.CopyDay(w, req.From, req.To...), nil
	case "set":
		if err := checkDays(req.To); err != nil {
			return nil, err
		}
		if _, err := hours.ParseChecked(req.Value); err != nil {
			return nil, fmt.Errorf("%w: %v", utils.ErrInvalidInput, err)
		}
		return hours.Set(w, req.Value, req.To...), nil
	}
	return nil, fmt.Errorf("%w: unknown operation %q", utils.ErrInvalidInput, req.Op)
}

// BulkHoursHandler handles POST /api/admin/hours/bulk. It applies one bulk
// operation to the submitted week and returns the result.
func (h *HoursHandler) BulkHoursHandler(c *gin.Context) {
	var req bulkHoursRequest
	if !bindJSON(c, &req) {
		return
	}
	w, err := applyBulk(req)
	if err != nil {
		utils.RespondError(c, "Invalid hours operation", err)
		return
	}
	respondWeek(c, w)
}

// DisplayHoursHandler handles POST /api/admin/hours/display.
func (h *HoursHandler) DisplayHoursHandler(c *gin.Context) {
	var req struct {
		Hours hours.Week `json:"hours"`
	}
	if !bindJSON(c, &req) {
		return
	}
	respondWeek(c, req.Hours)
}
