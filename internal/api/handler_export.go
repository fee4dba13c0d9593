package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lab-tracker-backend/internal/export"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func sendWorkbook(c *gin.Context, filename string, body []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, body)
}

// ExportRecords handles GET /api/export/excel.
func (h *Handler) ExportRecords(c *gin.Context) {
	records, err := h.store.ListRecords(c.Request.Context())
	if err != nil {
		h.logger.Error("export query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to retrieve records"})
		return
	}

	now := h.now()
	body, err := export.Records(records, now)
	if err != nil {
		h.logger.Error("export failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to build export"})
		return
	}
	sendWorkbook(c, export.RecordsFilename(now), body)
}

// ExportCurrentStatus handles GET /api/export/current_status.
func (h *Handler) ExportCurrentStatus(c *gin.Context) {
	open, err := h.store.OpenRecords(c.Request.Context())
	if err != nil {
		h.logger.Error("export query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to retrieve lab status"})
		return
	}

	body, err := export.CurrentStatus(open)
	if err != nil {
		h.logger.Error("export failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to build export"})
		return
	}
	sendWorkbook(c, export.CurrentStatusFilename(h.now()), body)
}
