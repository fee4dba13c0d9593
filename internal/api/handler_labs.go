package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// LabResponse represents the API response for a single lab.
type LabResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// GetLabs handles GET /api/labs.
func (h *Handler) GetLabs(c *gin.Context) {
	labs, err := h.store.ListLabs(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve labs"})
		return
	}

	responses := make([]LabResponse, 0, len(labs))
	for _, l := range labs {
		responses = append(responses, LabResponse{ID: l.ID, Name: l.Name})
	}
	c.JSON(http.StatusOK, responses)
}
