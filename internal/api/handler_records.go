package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lab-tracker-backend/internal/export"
	"lab-tracker-backend/internal/model"
	"lab-tracker-backend/internal/store"
)

// RecordResponse is one row of GET /api/records.
type RecordResponse struct {
	ID        int64   `json:"id"`
	PersonID  int64   `json:"person_id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	LabName   string  `json:"lab_name"`
	EntryTime string  `json:"entry_time"`
	ExitTime  *string `json:"exit_time"`
}

type occupantResponse struct {
	LabName   string `json:"lab_name"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	EntryTime string `json:"entry_time"`
}

type lastExitResponse struct {
	LabName  string `json:"lab_name"`
	Name     string `json:"name"`
	LastExit string `json:"last_exit"`
}

// LabStatusResponse is the body of GET /api/current_lab_status.
type LabStatusResponse struct {
	CurrentOccupants []occupantResponse `json:"current_occupants"`
	LastExits        []lastExitResponse `json:"last_exits"`
}

func toRecordResponse(r model.LabRecord) RecordResponse {
	resp := RecordResponse{
		ID:        r.ID,
		PersonID:  r.PersonID,
		Name:      r.Person.Name,
		Email:     r.Person.Email,
		LabName:   r.LabName,
		EntryTime: r.EntryTime.Format(export.TimeLayout),
	}
	if r.ExitTime != nil {
		exit := r.ExitTime.Format(export.TimeLayout)
		resp.ExitTime = &exit
	}
	return resp
}

// ListRecords handles GET /api/records.
func (h *Handler) ListRecords(c *gin.Context) {
	records, err := h.store.ListRecords(c.Request.Context())
	if err != nil {
		h.logger.Error("listing records failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve records"})
		return
	}

	response := make([]RecordResponse, 0, len(records))
	for _, r := range records {
		response = append(response, toRecordResponse(r))
	}
	c.JSON(http.StatusOK, response)
}

// CurrentLabStatus handles GET /api/current_lab_status.
func (h *Handler) CurrentLabStatus(c *gin.Context) {
	ctx := c.Request.Context()

	open, err := h.store.OpenRecords(ctx)
	if err != nil {
		h.logger.Error("listing occupants failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve lab status"})
		return
	}
	exits, err := h.store.LastExits(ctx)
	if err != nil {
		h.logger.Error("listing last exits failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve lab status"})
		return
	}

	resp := LabStatusResponse{
		CurrentOccupants: make([]occupantResponse, 0, len(open)),
		LastExits:        make([]lastExitResponse, 0, len(exits)),
	}
	for _, r := range open {
		resp.CurrentOccupants = append(resp.CurrentOccupants, occupantResponse{
			LabName:   r.LabName,
			Name:      r.Person.Name,
			Email:     r.Person.Email,
			EntryTime: r.EntryTime.Format(export.TimeLayout),
		})
	}
	for _, e := range exits {
		resp.LastExits = append(resp.LastExits, lastExitResponse{
			LabName:  e.LabName,
			Name:     e.Name,
			LastExit: e.ExitTime.Format(export.TimeLayout),
		})
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteRecord handles DELETE /api/records/:id.
func (h *Handler) DeleteRecord(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid record ID"})
		return
	}

	if err := h.store.DeleteRecord(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Record not found"})
			return
		}
		h.logger.Error("deleting record failed", zap.Int64("record_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to delete record"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Record deleted successfully"})
}

// DeleteAllRecords handles DELETE /api/records.
func (h *Handler) DeleteAllRecords(c *gin.Context) {
	n, err := h.store.DeleteAllRecords(c.Request.Context())
	if err != nil {
		h.logger.Error("deleting all records failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to delete records"})
		return
	}
	h.logger.Info("all records deleted", zap.Int64("count", n))
	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": n, "message": "All records deleted successfully"})
}
