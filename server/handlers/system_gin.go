package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pricematcher/database"
)

// SystemHandler служебные обработчики: здоровье сервиса
type SystemHandler struct {
	db        *database.DB
	startedAt time.Time
	version   string
}

// NewSystemHandler создает служебный обработчик
func NewSystemHandler(db *database.DB, version string) *SystemHandler {
	return &SystemHandler{
		db:        db,
		startedAt: time.Now(),
		version:   version,
	}
}

// HandleHealth проверка живости сервиса
func (h *SystemHandler) HandleHealth(c *gin.Context) {
	SendJSONResponse(c, http.StatusOK, gin.H{
		"status":   "ok",
		"version":  h.version,
		"uptime":   time.Since(h.startedAt).String(),
		"database": h.db.Path(),
	})
}
