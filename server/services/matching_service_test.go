package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pricematcher/database"
	"pricematcher/internal/domain/models"
	"pricematcher/matching/algorithms"
	"pricematcher/matching/imaging"
)

// newTestEnv поднимает сервисы на временной базе данных
func newTestEnv(t *testing.T) (*MatchingService, *GroupService, *database.DB) {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	matching := NewMatchingService(db, imaging.NewFetcher(time.Second, 1), MatchingDefaults{
		Threshold:     0.70,
		Workers:       2,
		TextWeights:   algorithms.DefaultTextWeights(),
		HybridWeights: algorithms.DefaultHybridWeights(),
	})
	return matching, NewGroupService(db), db
}

// createListing создает нормализованный листинг напрямую в хранилище
func createListing(t *testing.T, db *database.DB, supplierID, name string, price float64) *models.RawListing {
	t.Helper()

	normalizer := algorithms.NewTextNormalizer(true)
	l := &models.RawListing{
		SupplierID:     supplierID,
		RawName:        name,
		NormalizedName: normalizer.Normalize(name),
		Price:          price,
		Currency:       "RUB",
		ImportBatchID:  "batch-test",
	}
	require.NoError(t, db.CreateListing(context.Background(), l))
	return l
}

// Переставленные иероглифы одного товара группируются при пороге 0.70
func TestRunMatching_ReorderedCJKNames(t *testing.T) {
	matching, _, db := newTestEnv(t)
	ctx := context.Background()

	createListing(t, db, "supplier-a", "电子元件模块", 100)
	createListing(t, db, "supplier-b", "电子模块元件", 120)

	summary, err := matching.RunMatching(ctx, MatchingRequest{Method: "text"})
	require.NoError(t, err)

	require.Equal(t, 1, summary.GroupsCreated)
	require.Equal(t, 1, summary.ComparedPairs)

	groups, err := db.ListGroups(ctx, database.GroupFilter{})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].MemberListingIDs, 2)
	require.GreaterOrEqual(t, groups[0].ConfidenceScore, 0.70)
	require.Equal(t, models.GroupStatusAutoMatched, groups[0].Status)
}

// Несхожие наименования не группируются, но оценки сохраняются
func TestRunMatching_DissimilarNamesStayApart(t *testing.T) {
	matching, _, db := newTestEnv(t)
	ctx := context.Background()

	createListing(t, db, "supplier-a", "Резистор выводной 10 кОм", 5)
	createListing(t, db, "supplier-b", "Шуруп жёлтый мебельный", 3)

	summary, err := matching.RunMatching(ctx, MatchingRequest{Method: "text"})
	require.NoError(t, err)

	require.Equal(t, 0, summary.GroupsCreated)
	require.Equal(t, 1, summary.ScoresPersisted)

	groups, err := db.ListGroups(ctx, database.GroupFilter{})
	require.NoError(t, err)
	require.Empty(t, groups)
}

// Повторный прогон на неизменных данных не создает дубликатов групп
func TestRunMatching_Idempotent(t *testing.T) {
	matching, _, db := newTestEnv(t)
	ctx := context.Background()

	createListing(t, db, "supplier-a", "Модуль питания 12В", 500)
	createListing(t, db, "supplier-b", "Модуль питания 12В", 520)

	first, err := matching.RunMatching(ctx, MatchingRequest{Method: "text"})
	require.NoError(t, err)
	require.Equal(t, 1, first.GroupsCreated)

	second, err := matching.RunMatching(ctx, MatchingRequest{Method: "text"})
	require.NoError(t, err)
	require.Equal(t, 0, second.GroupsCreated)
	require.Equal(t, 1, second.ClustersUntouched)

	groups, err := db.ListGroups(ctx, database.GroupFilter{})
	require.NoError(t, err)
	require.Len(t, groups, 1)
}

// Листинги подтвержденной группы исключаются из последующих прогонов
func TestRunMatching_FrozenGroupUntouched(t *testing.T) {
	matching, groupsSvc, db := newTestEnv(t)
	ctx := context.Background()

	createListing(t, db, "supplier-a", "Модуль питания 12В", 500)
	createListing(t, db, "supplier-b", "Модуль питания 12В", 520)

	_, err := matching.RunMatching(ctx, MatchingRequest{Method: "text"})
	require.NoError(t, err)

	groups, err := db.ListGroups(ctx, database.GroupFilter{})
	require.NoError(t, err)
	require.Len(t, groups, 1)

	confirmed, err := groupsSvc.ConfirmGroup(ctx, groups[0].ID, groups[0].Version)
	require.NoError(t, err)
	require.Equal(t, models.GroupStatusManualMatched, confirmed.Status)

	summary, err := matching.RunMatching(ctx, MatchingRequest{Method: "text"})
	require.NoError(t, err)
	require.Equal(t, 2, summary.ListingsFrozen)
	require.Equal(t, 0, summary.ListingsTotal)
	require.Equal(t, 0, summary.GroupsCreated)

	reloaded, err := db.GetGroupByID(ctx, groups[0].ID)
	require.NoError(t, err)
	require.Equal(t, models.GroupStatusManualMatched, reloaded.Status)
	require.Len(t, reloaded.MemberListingIDs, 2)
}

// При слиянии групп участники поглощенной группы, не вошедшие в новый
// кластер, возвращаются в unmatched, а не остаются сиротами со статусом matched
func TestRunMatching_AbsorbResetsOrphans(t *testing.T) {
	matching, _, db := newTestEnv(t)
	ctx := context.Background()

	a := createListing(t, db, "supplier-a", "Модуль питания 12В", 500)
	b := createListing(t, db, "supplier-b", "Модуль питания 12В", 520)
	c := createListing(t, db, "supplier-c", "Модуль питания 12В", 510)
	d := createListing(t, db, "supplier-d", "Шуруп жёлтый мебельный", 3)

	target := createGroup(t, db, []int64{a.ID, b.ID}, 0.9)
	absorbed := createGroup(t, db, []int64{c.ID, d.ID}, 0.75)

	summary, err := matching.RunMatching(ctx, MatchingRequest{Method: "text"})
	require.NoError(t, err)
	require.Equal(t, 1, summary.GroupsUpdated)

	// Кластер {a, b, c} поглощен старейшей группой, вторая удалена
	merged, err := db.GetGroupByID(ctx, target.ID)
	require.NoError(t, err)
	require.Len(t, merged.MemberListingIDs, 3)

	_, err = db.GetGroupByID(ctx, absorbed.ID)
	require.ErrorIs(t, err, database.ErrNotFound)

	orphan, err := db.GetListingByID(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, models.MatchingStatusUnmatched, orphan.MatchingStatus)

	member, err := db.GetListingByID(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, models.MatchingStatusMatched, member.MatchingStatus)
}

// Неизвестный метод и некорректный порог отклоняются до начала работы
func TestRunMatching_Validation(t *testing.T) {
	matching, _, _ := newTestEnv(t)
	ctx := context.Background()

	_, err := matching.RunMatching(ctx, MatchingRequest{Method: "телепатия"})
	require.Error(t, err)

	badThreshold := 1.5
	_, err = matching.RunMatching(ctx, MatchingRequest{Method: "text", Threshold: &badThreshold})
	require.Error(t, err)
}

// Фоновая задача доводит прогон до конца и фиксирует итог
func TestStartMatching_TaskLifecycle(t *testing.T) {
	matching, _, db := newTestEnv(t)
	ctx := context.Background()

	createListing(t, db, "supplier-a", "Модуль питания 12В", 500)
	createListing(t, db, "supplier-b", "Модуль питания 12В", 520)

	task, err := matching.StartMatching(MatchingRequest{Method: "text"})
	require.NoError(t, err)
	require.Equal(t, TaskStatusRunning, task.Status)

	require.Eventually(t, func() bool {
		current, err := matching.GetTask(task.ID)
		return err == nil && current.Status == TaskStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	finished, err := matching.GetTask(task.ID)
	require.NoError(t, err)
	require.NotNil(t, finished.Summary)
	require.Equal(t, 1, finished.Summary.GroupsCreated)

	groups, err := db.ListGroups(ctx, database.GroupFilter{})
	require.NoError(t, err)
	require.Len(t, groups, 1)
}
