package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pricematcher/server/services"
)

// ImportHandler обработчик загрузки прайс-листов поставщиков
type ImportHandler struct {
	service *services.ImportService
}

// NewImportHandler создает обработчик импорта
func NewImportHandler(service *services.ImportService) *ImportHandler {
	return &ImportHandler{service: service}
}

// maxUploadSize предельный размер загружаемого прайс-листа (50 МБ)
const maxUploadSize = 50 << 20

// HandleImportPriceList принимает Excel-прайс поставщика.
// Форма: file — файл прайс-листа, supplier_id — идентификатор
// поставщика, currency — валюта по умолчанию для строк без валюты.
func (h *ImportHandler) HandleImportPriceList(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		SendJSONError(c, http.StatusBadRequest, "не передан файл прайс-листа")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		SendJSONError(c, http.StatusBadRequest, "не удалось открыть файл прайс-листа")
		return
	}
	defer file.Close()

	summary, err := h.service.ImportPriceList(
		c.Request.Context(),
		c.PostForm("supplier_id"),
		file,
		c.PostForm("currency"),
	)
	if err != nil {
		SendAppError(c, err)
		return
	}

	SendJSONResponse(c, http.StatusOK, summary)
}
