package handlers

import (
	"net/http"
	"strconv"

	"solar_mining/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errLimitInvalid = "invalid 'limit'; use a positive integer"
	maxSessionLimit = 1000
)

// @Summary      List mining sessions
// @Description  Completed sessions newest first, filtered by the time they stopped.
// @Tags         sessions
// @Produce      json
// @Param        from   query   string  false  "Start of range"  example(2025-08-01)
// @Param        to     query   string  false  "End of range. Date-only treated as end of day."  example(2025-08-31)
// @Param        limit  query   int     false  "Maximum number of sessions"  example(50)
// @Success      200    {object}  map[string]interface{}  "count, total_seconds, sessions"
// @Failure      400    {object}  map[string]string
// @Failure      401    {object}  map[string]string
// @Failure      500    {object}  map[string]string
// @Router       /api/v1/sessions [get]
// @Security     BearerAuth
func (h *Handler) getSessions(c *gin.Context) {
	from, to, ok := parseRangeOrBadRequest(c)
	if !ok {
		return
	}
	limit := 0
	if qs := c.Query("limit"); qs != "" {
		n, err := strconv.Atoi(qs)
		if err != nil || n <= 0 || n > maxSessionLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": errLimitInvalid})
			return
		}
		limit = n
	}

	sessions, summary, err := h.services.Sessions.ListSessions(c.Request.Context(), service.SessionFilter{
		From:  from,
		To:    to,
		Limit: limit,
	})
	if err != nil {
		if service.IsFilterError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load sessions", "sessions_list_failed", err,
			"from", from, "to", to, "limit", limit)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":         summary.Count,
		"total_seconds": summary.TotalSeconds,
		"sessions":      sessions,
	})
}
