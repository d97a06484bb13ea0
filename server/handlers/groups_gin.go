package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pricematcher/internal/domain/models"
	"pricematcher/server/services"
)

// GroupsHandler обработчики просмотра и валидации групп сопоставления
type GroupsHandler struct {
	service *services.GroupService
}

// NewGroupsHandler создает обработчик групп
func NewGroupsHandler(service *services.GroupService) *GroupsHandler {
	return &GroupsHandler{service: service}
}

// HandleListGroups возвращает группы с фильтрацией по статусу
// и минимальной уверенности
func (h *GroupsHandler) HandleListGroups(c *gin.Context) {
	filter := services.GroupListFilter{Status: c.Query("status")}

	if minConfStr := c.Query("min_confidence"); minConfStr != "" {
		minConf, err := strconv.ParseFloat(minConfStr, 64)
		if err != nil {
			SendJSONError(c, http.StatusBadRequest, "некорректное значение min_confidence")
			return
		}
		filter.MinConfidence = &minConf
	}

	groups, err := h.service.ListGroups(c.Request.Context(), filter)
	if err != nil {
		SendAppError(c, err)
		return
	}

	SendJSONResponse(c, http.StatusOK, gin.H{
		"groups": groups,
		"total":  len(groups),
	})
}

// HandleGetGroup возвращает группу по ID
func (h *GroupsHandler) HandleGetGroup(c *gin.Context) {
	group, err := h.service.GetGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		SendAppError(c, err)
		return
	}
	SendJSONResponse(c, http.StatusOK, group)
}

// groupTransitionRequest тело запроса подтверждения или отклонения группы
type groupTransitionRequest struct {
	// Version версия группы, которую видел клиент; 0 отключает проверку
	Version int64 `json:"version"`
}

// HandleConfirmGroup подтверждает группу
func (h *GroupsHandler) HandleConfirmGroup(c *gin.Context) {
	h.handleTransition(c, h.service.ConfirmGroup)
}

// HandleRejectGroup отклоняет группу и возвращает участников в unmatched
func (h *GroupsHandler) HandleRejectGroup(c *gin.Context) {
	h.handleTransition(c, h.service.RejectGroup)
}

// handleTransition общий обработчик переходов статуса группы
func (h *GroupsHandler) handleTransition(c *gin.Context, transition func(ctx context.Context, id string, version int64) (*models.MatchingGroup, error)) {
	var req groupTransitionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			SendJSONError(c, http.StatusBadRequest, "некорректное тело запроса")
			return
		}
	}

	group, err := transition(c.Request.Context(), c.Param("id"), req.Version)
	if err != nil {
		SendAppError(c, err)
		return
	}
	SendJSONResponse(c, http.StatusOK, group)
}

// HandlePriceComparison возвращает ценовое сравнение предложений группы
func (h *GroupsHandler) HandlePriceComparison(c *gin.Context) {
	comparison, err := h.service.ComparePrices(c.Request.Context(), c.Param("id"))
	if err != nil {
		SendAppError(c, err)
		return
	}
	SendJSONResponse(c, http.StatusOK, comparison)
}

// HandleStats возвращает агрегированную статистику сопоставления
func (h *GroupsHandler) HandleStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		SendAppError(c, err)
		return
	}
	SendJSONResponse(c, http.StatusOK, stats)
}
