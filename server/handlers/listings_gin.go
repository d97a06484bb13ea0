package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pricematcher/server/services"
)

// ListingsHandler обработчики листингов, их оценок и журнала цен
type ListingsHandler struct {
	listings *services.ListingService
	prices   *services.PriceHistoryService
}

// NewListingsHandler создает обработчик листингов
func NewListingsHandler(listings *services.ListingService, prices *services.PriceHistoryService) *ListingsHandler {
	return &ListingsHandler{listings: listings, prices: prices}
}

// HandleListListings возвращает листинги, опционально по статусу сопоставления
func (h *ListingsHandler) HandleListListings(c *gin.Context) {
	listings, err := h.listings.ListListings(c.Request.Context(), c.Query("status"))
	if err != nil {
		SendAppError(c, err)
		return
	}

	SendJSONResponse(c, http.StatusOK, gin.H{
		"listings": listings,
		"total":    len(listings),
	})
}

// HandleListingScores возвращает сохраненные попарные оценки листинга
func (h *ListingsHandler) HandleListingScores(c *gin.Context) {
	listingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		SendJSONError(c, http.StatusBadRequest, "некорректный ID листинга")
		return
	}

	scores, err := h.listings.ListingScores(c.Request.Context(), listingID)
	if err != nil {
		SendAppError(c, err)
		return
	}

	SendJSONResponse(c, http.StatusOK, gin.H{
		"listing_id": listingID,
		"scores":     scores,
		"total":      len(scores),
	})
}

// HandlePriceHistory возвращает журнал цен листинга в хронологическом
// порядке с дельтами относительно предыдущих наблюдений
func (h *ListingsHandler) HandlePriceHistory(c *gin.Context) {
	listingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		SendJSONError(c, http.StatusBadRequest, "некорректный ID листинга")
		return
	}

	history, err := h.prices.History(c.Request.Context(), listingID)
	if err != nil {
		SendAppError(c, err)
		return
	}

	SendJSONResponse(c, http.StatusOK, gin.H{
		"listing_id": listingID,
		"history":    history,
		"total":      len(history),
	})
}
