package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lab-tracker-backend/internal/identity"
	"lab-tracker-backend/internal/model"
	"lab-tracker-backend/internal/parse"
	"lab-tracker-backend/internal/qrcode"
	"lab-tracker-backend/internal/store"
)

type registerRequest struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required"`
	Phone      string `json:"phone"`
	Department string `json:"department"`
}

// Register handles POST /api/register.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "name and email are required"})
		return
	}

	person := model.Person{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Department: req.Department,
	}
	if err := h.store.RegisterPerson(c.Request.Context(), &person); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			c.JSON(http.StatusConflict, gin.H{"success": false, "message": err.Error()})
			return
		}
		h.logger.Error("registration failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to register person"})
		return
	}

	badge, err := qrcode.Base64PNG(identity.Payload{ID: person.ID, Name: person.Name, Email: person.Email}, qrcode.DefaultSize)
	if err != nil {
		h.logger.Error("badge rendering failed", zap.Int64("person_id", person.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to render QR code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"person_id": person.ID,
		"qr_code":   badge,
		"message":   "Person registered successfully",
	})
}

// GetPerson handles GET /api/person/:id.
func (h *Handler) GetPerson(c *gin.Context) {
	id, err := parse.PersonID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	person, err := h.store.GetPerson(c.Request.Context(), id)
	if errors.Is(err, store.ErrPersonNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": fmt.Sprintf("No person found with ID: %d", id)})
		return
	}
	if err != nil {
		h.logger.Error("person lookup failed", zap.Int64("person_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to retrieve person"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "person": person})
}

// ListPersons handles GET /api/persons.
func (h *Handler) ListPersons(c *gin.Context) {
	persons, err := h.store.ListPersons(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve persons"})
		return
	}
	c.JSON(http.StatusOK, persons)
}
