package logaudit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GET /logs
func (h *Handler) GetLogEntries(c *gin.Context) {
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}

	entries, err := h.service.GetLogEntries(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve log entries"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// GET /logs/level/:level
func (h *Handler) GetLogEntriesByLevel(c *gin.Context) {
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}

	entries, err := h.service.GetLogEntriesByLevel(c.Param("level"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve log entries"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

func pagination(c *gin.Context) (limit, offset int, ok bool) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	if limit > 1000 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit cannot exceed 1000"})
		return 0, 0, false
	}
	return limit, offset, true
}
