package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	statusOK = "ok"

	errRefreshIndicator = "failed to refresh protocol indicator"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Live kettle status
// @Description  Status label with optional countdown, plus protocol attributes.
// @Tags         kettle
// @Produce      json
// @Success      200  {object}  service.StatusReading
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/kettle/status [get]
// @Security     BearerAuth
func (h *Handler) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.ReadStatus())
}

// @Summary      Keep-warm remaining time
// @Tags         kettle
// @Produce      json
// @Success      200  {object}  service.RemainingReading
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/kettle/remaining [get]
// @Security     BearerAuth
func (h *Handler) getRemaining(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.ReadRemaining())
}

// @Summary      Protocol activity indicator
// @Description  Reads the persisted anchor from storage, independent of the live engine.
// @Tags         kettle
// @Produce      json
// @Success      200  {object}  service.ActivityReading
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/kettle/active [get]
// @Security     BearerAuth
func (h *Handler) getActive(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.services.Refresh(ctx); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errRefreshIndicator, "indicator_refresh_failed", err)
		return
	}
	c.JSON(http.StatusOK, h.services.Reading())
}
