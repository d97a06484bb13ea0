package services

import (
	"context"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"pricematcher/database"
	"pricematcher/importer"
	"pricematcher/internal/domain/models"
	"pricematcher/matching/algorithms"
	apperrors "pricematcher/server/errors"
)

// ImageHashInvalidator сбрасывает кэшированный хэш изображения листинга
type ImageHashInvalidator interface {
	InvalidateImageHash(listingID int64)
}

// ImportService импорт прайс-листов поставщиков: разбор Excel,
// нормализация наименований, создание и обновление листингов,
// журналирование цен
type ImportService struct {
	db         *database.DB
	normalizer *algorithms.TextNormalizer
	prices     *PriceHistoryService
	hashes     ImageHashInvalidator
}

// NewImportService создает сервис импорта
func NewImportService(db *database.DB, prices *PriceHistoryService, hashes ImageHashInvalidator) *ImportService {
	return &ImportService{
		db:         db,
		normalizer: algorithms.NewTextNormalizer(true),
		prices:     prices,
		hashes:     hashes,
	}
}

// ImportSummary итог импорта прайс-листа
type ImportSummary struct {
	BatchID      string   `json:"batch_id"`
	SupplierID   string   `json:"supplier_id"`
	RowsParsed   int      `json:"rows_parsed"`
	Created      int      `json:"created"`
	Updated      int      `json:"updated"`
	SkippedRows  int      `json:"skipped_rows"`
	PriceChanges int      `json:"price_changes"`
	Warnings     []string `json:"warnings,omitempty"`
	Duration     string   `json:"duration"`
}

// ImportPriceList импортирует Excel-прайс поставщика.
// Позиция идентифицируется парой (поставщик, исходное наименование):
// существующие листинги обновляются, новые создаются. Каждая позиция
// получает ценовое наблюдение в журнале, даже если цена не изменилась.
func (s *ImportService) ImportPriceList(ctx context.Context, supplierID string, file io.Reader, defaultCurrency string) (*ImportSummary, error) {
	supplierID = strings.TrimSpace(supplierID)
	if supplierID == "" {
		return nil, apperrors.NewValidationError("не указан поставщик", nil)
	}
	if defaultCurrency == "" {
		defaultCurrency = "RUB"
	}

	parsed, err := importer.ParsePriceList(file, defaultCurrency)
	if err != nil {
		return nil, apperrors.NewValidationError("не удалось разобрать прайс-лист", err)
	}

	started := time.Now()
	summary := &ImportSummary{
		BatchID:     uuid.New().String(),
		SupplierID:  supplierID,
		RowsParsed:  len(parsed.Rows),
		SkippedRows: parsed.SkippedRows,
		Warnings:    parsed.Warnings,
	}

	for _, row := range parsed.Rows {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.NewInternalError("импорт прерван", err)
		}
		if err := s.importRow(ctx, supplierID, row, summary); err != nil {
			return nil, err
		}
	}

	summary.Duration = time.Since(started).String()
	log.Printf("📦 Импорт %s завершен: %d создано, %d обновлено, %d пропущено, %d изменений цен",
		summary.BatchID, summary.Created, summary.Updated, summary.SkippedRows, summary.PriceChanges)

	return summary, nil
}

// importRow создает или обновляет листинг по одной строке прайс-листа
func (s *ImportService) importRow(ctx context.Context, supplierID string, row importer.ListingRow, summary *ImportSummary) error {
	existing, err := s.db.FindListingBySupplierAndName(ctx, supplierID, row.RawName)
	if err != nil {
		return apperrors.NewInternalError("не удалось найти листинг", err)
	}

	normalized := s.normalizer.Normalize(row.RawName)

	if existing == nil {
		listing := &models.RawListing{
			SupplierID:      supplierID,
			RawName:         row.RawName,
			NormalizedName:  normalized,
			Price:           row.Price,
			Currency:        row.Currency,
			ImageRef:        row.ImageURL,
			ImportBatchID:   summary.BatchID,
			ExtraAttributes: row.Extra,
		}
		if err := s.db.CreateListing(ctx, listing); err != nil {
			return apperrors.NewInternalError("не удалось создать листинг", err)
		}

		if _, err := s.prices.RecordObservation(ctx, listing.ID, row.Price, row.Currency, models.PriceSourceImport); err != nil {
			return err
		}

		summary.Created++
		return nil
	}

	priceChanged := existing.Price != row.Price
	if priceChanged {
		summary.PriceChanges++
	}
	if existing.ImageRef != row.ImageURL && s.hashes != nil {
		s.hashes.InvalidateImageHash(existing.ID)
	}

	if err := s.db.UpdateListingOnReimport(ctx, existing.ID, normalized, row.Price, row.ImageURL, summary.BatchID); err != nil {
		return apperrors.NewInternalError("не удалось обновить листинг", err)
	}

	if _, err := s.prices.RecordObservation(ctx, existing.ID, row.Price, row.Currency, models.PriceSourceImport); err != nil {
		return err
	}

	// Изменение цены участника делает статистику его групп устаревшей:
	// min/max/avg и лучший поставщик пересчитываются сразу, включая
	// подтвержденные группы
	if priceChanged {
		if err := s.recomputeGroupsOf(ctx, existing.ID); err != nil {
			return err
		}
	}

	summary.Updated++
	return nil
}

// recomputeGroupsOf пересчитывает статистику всех групп листинга
func (s *ImportService) recomputeGroupsOf(ctx context.Context, listingID int64) error {
	groups, err := s.db.FindGroupsByListingIDs(ctx, []int64{listingID})
	if err != nil {
		return apperrors.NewInternalError("не удалось найти группы листинга", err)
	}
	for _, g := range groups {
		if err := s.db.RecomputeGroupStats(ctx, g.ID); err != nil {
			return apperrors.NewInternalError("не удалось пересчитать статистику группы", err)
		}
	}
	return nil
}
