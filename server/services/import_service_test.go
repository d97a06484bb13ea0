package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"pricematcher/database"
	"pricematcher/internal/domain/models"
)

// priceListFile собирает Excel-прайс в памяти
func priceListFile(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func newImportEnv(t *testing.T) (*ImportService, *database.DB) {
	t.Helper()

	matching, _, db := newTestEnv(t)
	return NewImportService(db, NewPriceHistoryService(db), matching), db
}

func TestImportPriceList_CreatesListings(t *testing.T) {
	svc, db := newImportEnv(t)
	ctx := context.Background()

	file := priceListFile(t, [][]interface{}{
		{"Наименование", "Цена", "Фото"},
		{"Резистор 10 кОм", "12,50", "http://example.com/r.jpg"},
		{"Конденсатор 100 мкФ", "8.40", ""},
		{"", "5", ""},
	})

	summary, err := svc.ImportPriceList(ctx, "supplier-a", file, "RUB")
	require.NoError(t, err)

	require.Equal(t, 2, summary.Created)
	require.Equal(t, 0, summary.Updated)
	require.Equal(t, 1, summary.SkippedRows)
	require.NotEmpty(t, summary.BatchID)

	listing, err := db.FindListingBySupplierAndName(ctx, "supplier-a", "Резистор 10 кОм")
	require.NoError(t, err)
	require.NotNil(t, listing)
	require.Equal(t, 12.50, listing.Price)
	require.Equal(t, "резистор 10 ком", listing.NormalizedName)
	require.Equal(t, models.MatchingStatusUnmatched, listing.MatchingStatus)

	// Первое ценовое наблюдение без дельт
	history, err := db.ListPriceHistory(ctx, listing.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Nil(t, history[0].ChangeAbs)
	require.Equal(t, models.PriceSourceImport, history[0].Source)
}

// Реимпорт обновляет существующий листинг и дописывает наблюдение
// с дельтами относительно предыдущей цены
func TestImportPriceList_ReimportTracksPriceChange(t *testing.T) {
	svc, db := newImportEnv(t)
	ctx := context.Background()

	first := priceListFile(t, [][]interface{}{
		{"Наименование", "Цена"},
		{"Модуль питания", "10"},
	})
	_, err := svc.ImportPriceList(ctx, "supplier-a", first, "RUB")
	require.NoError(t, err)

	second := priceListFile(t, [][]interface{}{
		{"Наименование", "Цена"},
		{"Модуль питания", "8"},
	})
	summary, err := svc.ImportPriceList(ctx, "supplier-a", second, "RUB")
	require.NoError(t, err)

	require.Equal(t, 0, summary.Created)
	require.Equal(t, 1, summary.Updated)
	require.Equal(t, 1, summary.PriceChanges)

	listing, err := db.FindListingBySupplierAndName(ctx, "supplier-a", "Модуль питания")
	require.NoError(t, err)
	require.Equal(t, 8.0, listing.Price)

	history, err := db.ListPriceHistory(ctx, listing.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)

	last := history[1]
	require.NotNil(t, last.ChangeAbs)
	require.InDelta(t, -2.0, *last.ChangeAbs, 0.001)
	require.NotNil(t, last.ChangePct)
	require.InDelta(t, -20.0, *last.ChangePct, 0.001)
}

// Изменение цены участника при реимпорте сразу пересчитывает статистику
// его групп: минимум, максимум и лучшего поставщика
func TestImportPriceList_ReimportRecomputesGroupStats(t *testing.T) {
	matching, groupsSvc, db := newTestEnv(t)
	svc := NewImportService(db, NewPriceHistoryService(db), matching)
	ctx := context.Background()

	importAt := func(supplierID string, price string) {
		file := priceListFile(t, [][]interface{}{
			{"Наименование", "Цена"},
			{"Модуль питания 12В", price},
		})
		_, err := svc.ImportPriceList(ctx, supplierID, file, "RUB")
		require.NoError(t, err)
	}

	importAt("supplier-a", "500")
	importAt("supplier-b", "520")

	_, err := matching.RunMatching(ctx, MatchingRequest{Method: "text"})
	require.NoError(t, err)

	groups, err := db.ListGroups(ctx, database.GroupFilter{})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, 500.0, groups[0].MinPrice)
	require.Equal(t, "supplier-a", groups[0].BestSupplierID)

	// Подорожание у лучшего поставщика меняет лидера без нового прогона
	importAt("supplier-a", "600")

	reloaded, err := db.GetGroupByID(ctx, groups[0].ID)
	require.NoError(t, err)
	require.Equal(t, 520.0, reloaded.MinPrice)
	require.Equal(t, 600.0, reloaded.MaxPrice)
	require.Equal(t, "supplier-b", reloaded.BestSupplierID)

	// Статистика подтвержденной группы тоже не отстает от цен
	confirmed, err := groupsSvc.ConfirmGroup(ctx, reloaded.ID, reloaded.Version)
	require.NoError(t, err)
	require.Equal(t, models.GroupStatusManualMatched, confirmed.Status)

	importAt("supplier-b", "700")

	frozen, err := db.GetGroupByID(ctx, reloaded.ID)
	require.NoError(t, err)
	require.Equal(t, 600.0, frozen.MinPrice)
	require.Equal(t, "supplier-a", frozen.BestSupplierID)
}

func TestImportPriceList_RequiresSupplier(t *testing.T) {
	svc, _ := newImportEnv(t)

	file := priceListFile(t, [][]interface{}{
		{"Наименование", "Цена"},
		{"Товар", "10"},
	})

	_, err := svc.ImportPriceList(context.Background(), "  ", file, "RUB")
	require.Error(t, err)
}
