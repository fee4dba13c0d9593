package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lab-tracker-backend/config"
	"lab-tracker-backend/internal/export"
	"lab-tracker-backend/internal/identity"
	"lab-tracker-backend/internal/occupancy"
	"lab-tracker-backend/internal/parse"
	"lab-tracker-backend/internal/store"
)

// ScanResponse is the body of POST /api/scan and POST /api/scan/manual.
type ScanResponse struct {
	Success   bool              `json:"success"`
	Action    string            `json:"action,omitempty"`
	Person    *identity.Payload `json:"person,omitempty"`
	LabName   string            `json:"lab_name,omitempty"`
	Timestamp string            `json:"timestamp,omitempty"`
	Message   string            `json:"message,omitempty"`
}

type scanRequest struct {
	QRContent string `json:"qr_content" binding:"required"`
	LabName   string `json:"lab_name"`
}

type manualScanRequest struct {
	PersonID int64  `json:"person_id"`
	LabName  string `json:"lab_name"`
}

// Scan handles POST /api/scan.
func (h *Handler) Scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ScanResponse{Message: "qr_content is required"})
		return
	}

	res, err := h.engine.SubmitScan(c.Request.Context(), req.QRContent, parse.LabName(req.LabName, config.DefaultLabName))
	h.writeScanResult(c, res, err)
}

// ScanManual handles POST /api/scan/manual.
func (h *Handler) ScanManual(c *gin.Context) {
	var req manualScanRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PersonID <= 0 {
		c.JSON(http.StatusBadRequest, ScanResponse{Message: parse.ErrInvalidID.Error()})
		return
	}

	res, err := h.engine.SubmitManual(c.Request.Context(), req.PersonID, parse.LabName(req.LabName, config.DefaultLabName))
	h.writeScanResult(c, res, err)
}

func (h *Handler) writeScanResult(c *gin.Context, res occupancy.Result, err error) {
	if err != nil {
		status := http.StatusInternalServerError
		message := "Error scanning QR code"
		switch {
		case errors.Is(err, identity.ErrInvalidPayload):
			status, message = http.StatusBadRequest, err.Error()
		case errors.Is(err, occupancy.ErrUnknownPerson):
			status, message = http.StatusNotFound, err.Error()
		case errors.Is(err, store.ErrToggleConflict):
			status, message = http.StatusConflict, "Scan conflicted with another scan, please try again"
		default:
			h.logger.Error("scan failed", zap.Error(err))
		}
		c.JSON(status, ScanResponse{Message: message})
		return
	}

	person := res.Person
	c.JSON(http.StatusOK, ScanResponse{
		Success:   true,
		Action:    string(res.Action),
		Person:    &person,
		LabName:   res.LabName,
		Timestamp: res.Timestamp.Format(export.TimeLayout),
	})
}
