package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"pricematcher/internal/domain/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("не удалось открыть тестовую базу: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustCreateListing(t *testing.T, db *DB, supplierID, rawName string, price float64) *models.RawListing {
	t.Helper()

	l := &models.RawListing{
		SupplierID:     supplierID,
		RawName:        rawName,
		NormalizedName: rawName,
		Price:          price,
		Currency:       "RUB",
		ImportBatchID:  "batch-1",
	}
	if err := db.CreateListing(context.Background(), l); err != nil {
		t.Fatalf("не удалось создать листинг: %v", err)
	}
	return l
}

func TestListings_CreateAndFind(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	created := mustCreateListing(t, db, "supplier-a", "Резистор 10 кОм", 12.50)
	if created.ID == 0 {
		t.Fatal("ID листинга не проставлен")
	}

	found, err := db.FindListingBySupplierAndName(ctx, "supplier-a", "Резистор 10 кОм")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if found == nil || found.ID != created.ID {
		t.Fatal("листинг не найден по поставщику и наименованию")
	}
	if found.MatchingStatus != models.MatchingStatusUnmatched {
		t.Errorf("статус нового листинга = %s, want unmatched", found.MatchingStatus)
	}

	missing, err := db.FindListingBySupplierAndName(ctx, "supplier-a", "нет такого")
	if err != nil {
		t.Fatalf("отсутствие листинга не должно быть ошибкой: %v", err)
	}
	if missing != nil {
		t.Error("ожидался nil для отсутствующего листинга")
	}
}

func TestListings_Reimport(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	l := mustCreateListing(t, db, "supplier-a", "Модуль питания", 500)

	err := db.UpdateListingOnReimport(ctx, l.ID, "модуль питания", 450, "http://example.com/img.png", "batch-2")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	updated, err := db.GetListingByID(ctx, l.ID)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if updated.Price != 450 || updated.ImportBatchID != "batch-2" {
		t.Errorf("реимпорт не обновил листинг: price=%v batch=%s", updated.Price, updated.ImportBatchID)
	}
}

func TestGroups_CreateMarksMembersMatched(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a := mustCreateListing(t, db, "supplier-a", "Товар А", 100)
	b := mustCreateListing(t, db, "supplier-b", "Товар Б", 120)

	group := &models.MatchingGroup{
		ID:                 "group-1",
		RepresentativeName: "товар",
		ConfidenceScore:    0.82,
		MatchingMethod:     models.MatchingMethodText,
		MemberListingIDs:   []int64{a.ID, b.ID},
	}
	if err := db.CreateGroup(ctx, group); err != nil {
		t.Fatalf("не удалось создать группу: %v", err)
	}

	loaded, err := db.GetGroupByID(ctx, "group-1")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(loaded.MemberListingIDs) != 2 {
		t.Fatalf("число участников = %d, want 2", len(loaded.MemberListingIDs))
	}
	if loaded.Version != 1 {
		t.Errorf("версия новой группы = %d, want 1", loaded.Version)
	}

	member, err := db.GetListingByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if member.MatchingStatus != models.MatchingStatusMatched {
		t.Errorf("участник группы должен быть matched, получено %s", member.MatchingStatus)
	}
}

func TestGroups_RecomputeStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a := mustCreateListing(t, db, "supplier-a", "Товар А", 80)
	b := mustCreateListing(t, db, "supplier-b", "Товар Б", 120)
	c := mustCreateListing(t, db, "supplier-c", "Товар В", 100)

	group := &models.MatchingGroup{
		ID:               "group-1",
		MatchingMethod:   models.MatchingMethodText,
		MemberListingIDs: []int64{a.ID, b.ID, c.ID},
	}
	if err := db.CreateGroup(ctx, group); err != nil {
		t.Fatalf("не удалось создать группу: %v", err)
	}
	if err := db.RecomputeGroupStats(ctx, "group-1"); err != nil {
		t.Fatalf("не удалось пересчитать статистику: %v", err)
	}

	loaded, err := db.GetGroupByID(ctx, "group-1")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if loaded.MinPrice != 80 || loaded.MaxPrice != 120 {
		t.Errorf("min/max = %v/%v, want 80/120", loaded.MinPrice, loaded.MaxPrice)
	}
	if loaded.AvgPrice != 100 {
		t.Errorf("avg = %v, want 100", loaded.AvgPrice)
	}
	if loaded.BestSupplierID != "supplier-a" {
		t.Errorf("лучший поставщик = %s, want supplier-a", loaded.BestSupplierID)
	}
	if loaded.Version != 2 {
		t.Errorf("версия после пересчета = %d, want 2", loaded.Version)
	}
}

// При равных минимальных ценах лучший поставщик выбирается детерминированно:
// поставщик листинга с меньшим ID
func TestGroups_RecomputeStats_TieBreak(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a := mustCreateListing(t, db, "supplier-a", "Товар А", 100)
	b := mustCreateListing(t, db, "supplier-b", "Товар Б", 100)

	group := &models.MatchingGroup{
		ID:               "group-1",
		MatchingMethod:   models.MatchingMethodText,
		MemberListingIDs: []int64{b.ID, a.ID},
	}
	if err := db.CreateGroup(ctx, group); err != nil {
		t.Fatalf("не удалось создать группу: %v", err)
	}
	if err := db.RecomputeGroupStats(ctx, "group-1"); err != nil {
		t.Fatalf("не удалось пересчитать статистику: %v", err)
	}

	loaded, _ := db.GetGroupByID(ctx, "group-1")
	if loaded.BestSupplierID != "supplier-a" {
		t.Errorf("при равных ценах побеждает меньший ID листинга, получено %s", loaded.BestSupplierID)
	}
}

func TestGroups_UpdateStatusVersionConflict(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a := mustCreateListing(t, db, "supplier-a", "Товар А", 100)
	group := &models.MatchingGroup{
		ID:               "group-1",
		MatchingMethod:   models.MatchingMethodText,
		MemberListingIDs: []int64{a.ID},
	}
	if err := db.CreateGroup(ctx, group); err != nil {
		t.Fatalf("не удалось создать группу: %v", err)
	}

	if err := db.UpdateGroupStatus(ctx, "group-1", models.GroupStatusManualMatched, 1); err != nil {
		t.Fatalf("обновление с актуальной версией должно пройти: %v", err)
	}

	err := db.UpdateGroupStatus(ctx, "group-1", models.GroupStatusManualRejected, 1)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("обновление с устаревшей версией должно вернуть ErrConflict, получено %v", err)
	}
}

func TestGroups_DeleteEmptiedRefusesManual(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a := mustCreateListing(t, db, "supplier-a", "Товар А", 100)
	group := &models.MatchingGroup{
		ID:               "group-1",
		MatchingMethod:   models.MatchingMethodText,
		MemberListingIDs: []int64{a.ID},
	}
	if err := db.CreateGroup(ctx, group); err != nil {
		t.Fatalf("не удалось создать группу: %v", err)
	}
	if err := db.UpdateGroupStatus(ctx, "group-1", models.GroupStatusManualMatched, 1); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if err := db.DeleteEmptiedGroup(ctx, "group-1"); err == nil {
		t.Error("удаление группы с ручным статусом должно отклоняться")
	}
}

func TestGroups_FindByListingIDs(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a := mustCreateListing(t, db, "supplier-a", "Товар А", 100)
	b := mustCreateListing(t, db, "supplier-b", "Товар Б", 100)

	group := &models.MatchingGroup{
		ID:               "group-1",
		MatchingMethod:   models.MatchingMethodText,
		MemberListingIDs: []int64{a.ID},
	}
	if err := db.CreateGroup(ctx, group); err != nil {
		t.Fatalf("не удалось создать группу: %v", err)
	}

	found, err := db.FindGroupsByListingIDs(ctx, []int64{a.ID, b.ID})
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(found) != 1 || found[0].ID != "group-1" {
		t.Fatalf("ожидалась одна группа group-1, получено %d", len(found))
	}

	// Отклоненные группы не участвуют в поиске при рекластеризации
	if err := db.UpdateGroupStatus(ctx, "group-1", models.GroupStatusManualRejected, 1); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	found, err = db.FindGroupsByListingIDs(ctx, []int64{a.ID})
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(found) != 0 {
		t.Error("отклоненная группа не должна находиться по участникам")
	}
}

func TestPriceHistory_AppendAndList(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	l := mustCreateListing(t, db, "supplier-a", "Товар А", 10)

	last, err := db.GetLastPriceEntry(ctx, l.ID)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if last != nil {
		t.Fatal("для нового листинга наблюдений быть не должно")
	}

	first := models.NextPriceEntry(nil, l.ID, 10, "RUB", models.PriceSourceImport)
	if err := db.AppendPriceEntry(ctx, &first); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	prev, _ := db.GetLastPriceEntry(ctx, l.ID)
	second := models.NextPriceEntry(prev, l.ID, 8, "RUB", models.PriceSourceImport)
	second.RecordedAt = first.RecordedAt.Add(time.Second)
	if err := db.AppendPriceEntry(ctx, &second); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	history, err := db.ListPriceHistory(ctx, l.ID)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("длина журнала = %d, want 2", len(history))
	}
	if history[0].ChangeAbs != nil {
		t.Error("первое наблюдение не должно иметь дельту")
	}
	if history[1].ChangeAbs == nil || *history[1].ChangeAbs != -2 {
		t.Errorf("change_abs второго наблюдения должен быть -2")
	}
	if history[1].ChangePct == nil || *history[1].ChangePct != -20 {
		t.Errorf("change_pct второго наблюдения должен быть -20")
	}
}

func TestScores_UpsertReplacesPair(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	scores := []models.PairwiseScore{{
		ListingAID:       2,
		ListingBID:       1, // неканонический порядок нормализуется при записи
		TextScore:        0.5,
		HybridScore:      0.5,
		AlgorithmVersion: models.AlgorithmVersion,
		ComputedAt:       time.Now(),
	}}
	if err := db.UpsertPairwiseScores(ctx, scores); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	scores[0].HybridScore = 0.7
	if err := db.UpsertPairwiseScores(ctx, scores); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	loaded, err := db.GetPairwiseScore(ctx, 1, 2)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if loaded.HybridScore != 0.7 {
		t.Errorf("повторный прогон должен перезаписать оценку, получено %v", loaded.HybridScore)
	}
	if loaded.ListingAID != 1 || loaded.ListingBID != 2 {
		t.Error("пара должна храниться в каноническом порядке")
	}
}

func TestComputeMatchingStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a := mustCreateListing(t, db, "supplier-a", "Товар А", 80)
	b := mustCreateListing(t, db, "supplier-b", "Товар Б", 120)
	mustCreateListing(t, db, "supplier-c", "Одиночка", 5)

	group := &models.MatchingGroup{
		ID:               "group-1",
		ConfidenceScore:  0.9,
		MatchingMethod:   models.MatchingMethodText,
		MemberListingIDs: []int64{a.ID, b.ID},
	}
	if err := db.CreateGroup(ctx, group); err != nil {
		t.Fatalf("не удалось создать группу: %v", err)
	}
	if err := db.RecomputeGroupStats(ctx, "group-1"); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	stats, err := db.ComputeMatchingStats(ctx)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if stats.ListingsByStatus[models.MatchingStatusMatched] != 2 {
		t.Errorf("matched листингов = %d, want 2", stats.ListingsByStatus[models.MatchingStatusMatched])
	}
	if stats.ListingsByStatus[models.MatchingStatusUnmatched] != 1 {
		t.Errorf("unmatched листингов = %d, want 1", stats.ListingsByStatus[models.MatchingStatusUnmatched])
	}
	if stats.GroupsByStatus[models.GroupStatusAutoMatched] != 1 {
		t.Errorf("auto_matched групп = %d, want 1", stats.GroupsByStatus[models.GroupStatusAutoMatched])
	}
	if stats.AvgConfidence != 0.9 {
		t.Errorf("средняя уверенность = %v, want 0.9", stats.AvgConfidence)
	}
	if stats.PotentialSavings != 40 {
		t.Errorf("потенциальная экономия = %v, want 40", stats.PotentialSavings)
	}
}
