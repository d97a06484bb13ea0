package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pricematcher/server/services"
)

// MatchingHandler обработчики запуска и отслеживания прогонов сопоставления
type MatchingHandler struct {
	service *services.MatchingService
}

// NewMatchingHandler создает обработчик сопоставления
func NewMatchingHandler(service *services.MatchingService) *MatchingHandler {
	return &MatchingHandler{service: service}
}

// HandleRunMatching запускает прогон сопоставления.
// По умолчанию прогон выполняется в фоне и возвращается задача;
// параметр ?sync=true выполняет прогон синхронно.
func (h *MatchingHandler) HandleRunMatching(c *gin.Context) {
	var req services.MatchingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			SendJSONError(c, http.StatusBadRequest, "некорректное тело запроса")
			return
		}
	}

	if c.Query("sync") == "true" {
		summary, err := h.service.RunMatching(c.Request.Context(), req)
		if err != nil {
			SendAppError(c, err)
			return
		}
		SendJSONResponse(c, http.StatusOK, summary)
		return
	}

	task, err := h.service.StartMatching(req)
	if err != nil {
		SendAppError(c, err)
		return
	}
	SendJSONResponse(c, http.StatusAccepted, task)
}

// HandleGetTask возвращает задачу сопоставления по ID
func (h *MatchingHandler) HandleGetTask(c *gin.Context) {
	task, err := h.service.GetTask(c.Param("id"))
	if err != nil {
		SendAppError(c, err)
		return
	}
	SendJSONResponse(c, http.StatusOK, task)
}

// HandleListTasks возвращает все задачи сопоставления, новые первыми
func (h *MatchingHandler) HandleListTasks(c *gin.Context) {
	SendJSONResponse(c, http.StatusOK, gin.H{"tasks": h.service.ListTasks()})
}

// HandleStopTask отменяет выполняющуюся задачу
func (h *MatchingHandler) HandleStopTask(c *gin.Context) {
	if err := h.service.StopTask(c.Param("id")); err != nil {
		SendAppError(c, err)
		return
	}
	SendJSONResponse(c, http.StatusOK, gin.H{"message": "задача останавливается"})
}
