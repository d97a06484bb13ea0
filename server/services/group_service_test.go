package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"pricematcher/database"
	"pricematcher/internal/domain/models"
	apperrors "pricematcher/server/errors"
)

// createGroup создает группу с участниками и пересчитанной статистикой
func createGroup(t *testing.T, db *database.DB, memberIDs []int64, confidence float64) *models.MatchingGroup {
	t.Helper()
	ctx := context.Background()

	group := &models.MatchingGroup{
		ID:                 "group-" + memberIDsKey(memberIDs),
		RepresentativeName: "тестовая группа",
		ConfidenceScore:    confidence,
		MatchingMethod:     models.MatchingMethodText,
		MemberListingIDs:   memberIDs,
	}
	require.NoError(t, db.CreateGroup(ctx, group))
	require.NoError(t, db.RecomputeGroupStats(ctx, group.ID))

	loaded, err := db.GetGroupByID(ctx, group.ID)
	require.NoError(t, err)
	return loaded
}

func memberIDsKey(ids []int64) string {
	key := ""
	for _, id := range ids {
		key += string(rune('a' + id%26))
	}
	return key
}

func requireAppErrorCode(t *testing.T, err error, code int) {
	t.Helper()

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr), "ожидалась AppError, получено %T", err)
	require.Equal(t, code, appErr.StatusCode())
}

func TestGroupService_ConfirmAndReject(t *testing.T) {
	_, svc, db := newTestEnv(t)
	ctx := context.Background()

	a := createListing(t, db, "supplier-a", "Товар А", 100)
	b := createListing(t, db, "supplier-b", "Товар Б", 120)
	group := createGroup(t, db, []int64{a.ID, b.ID}, 0.9)

	confirmed, err := svc.ConfirmGroup(ctx, group.ID, group.Version)
	require.NoError(t, err)
	require.Equal(t, models.GroupStatusManualMatched, confirmed.Status)

	// Отклонение подтвержденной группы запрещено
	reloaded, err := svc.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	_, err = svc.RejectGroup(ctx, group.ID, reloaded.Version)
	requireAppErrorCode(t, err, http.StatusUnprocessableEntity)

	// Статус группы не изменился
	after, err := svc.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	require.Equal(t, models.GroupStatusManualMatched, after.Status)
}

// Отклонение возвращает участников в unmatched, группа остается для аудита
func TestGroupService_RejectResetsMembers(t *testing.T) {
	_, svc, db := newTestEnv(t)
	ctx := context.Background()

	a := createListing(t, db, "supplier-a", "Товар А", 100)
	b := createListing(t, db, "supplier-b", "Товар Б", 120)
	group := createGroup(t, db, []int64{a.ID, b.ID}, 0.9)

	rejected, err := svc.RejectGroup(ctx, group.ID, group.Version)
	require.NoError(t, err)
	require.Equal(t, models.GroupStatusManualRejected, rejected.Status)

	member, err := db.GetListingByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, models.MatchingStatusUnmatched, member.MatchingStatus)

	// Группа сохранена со статусом manual_rejected
	kept, err := svc.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	require.Equal(t, models.GroupStatusManualRejected, kept.Status)
}

// Устаревшая версия означает конкурентное изменение и дает 409
func TestGroupService_VersionConflict(t *testing.T) {
	_, svc, db := newTestEnv(t)
	ctx := context.Background()

	a := createListing(t, db, "supplier-a", "Товар А", 100)
	b := createListing(t, db, "supplier-b", "Товар Б", 120)
	group := createGroup(t, db, []int64{a.ID, b.ID}, 0.9)

	_, err := svc.ConfirmGroup(ctx, group.ID, group.Version-1)
	requireAppErrorCode(t, err, http.StatusConflict)
}

func TestGroupService_ComparePrices(t *testing.T) {
	_, svc, db := newTestEnv(t)
	ctx := context.Background()

	a := createListing(t, db, "supplier-a", "Товар А", 120)
	b := createListing(t, db, "supplier-b", "Товар Б", 80)
	c := createListing(t, db, "supplier-c", "Товар В", 100)
	group := createGroup(t, db, []int64{a.ID, b.ID, c.ID}, 0.85)

	comparison, err := svc.ComparePrices(ctx, group.ID)
	require.NoError(t, err)

	require.Equal(t, "supplier-b", comparison.BestSupplierID)
	require.Equal(t, 80.0, comparison.MinPrice)
	require.Equal(t, 120.0, comparison.MaxPrice)
	require.Equal(t, 40.0, comparison.Spread)

	// Предложения по возрастанию цены, лучшее без переплаты
	require.Len(t, comparison.Rows, 3)
	require.Equal(t, b.ID, comparison.Rows[0].ListingID)
	require.Equal(t, 0.0, comparison.Rows[0].DiffFromMin)
	require.Equal(t, a.ID, comparison.Rows[2].ListingID)
	require.Equal(t, 40.0, comparison.Rows[2].DiffFromMin)
	require.InDelta(t, 50.0, comparison.Rows[2].PctOverMin, 0.001)
}

func TestGroupService_ListGroupsFilter(t *testing.T) {
	_, svc, db := newTestEnv(t)
	ctx := context.Background()

	a := createListing(t, db, "supplier-a", "Товар А", 100)
	b := createListing(t, db, "supplier-b", "Товар Б", 120)
	c := createListing(t, db, "supplier-c", "Товар В", 90)
	d := createListing(t, db, "supplier-d", "Товар Г", 95)

	createGroup(t, db, []int64{a.ID, b.ID}, 0.95)
	createGroup(t, db, []int64{c.ID, d.ID}, 0.72)

	minConf := 0.9
	groups, err := svc.ListGroups(ctx, GroupListFilter{MinConfidence: &minConf})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.GreaterOrEqual(t, groups[0].ConfidenceScore, 0.9)

	_, err = svc.ListGroups(ctx, GroupListFilter{Status: "несуществующий"})
	requireAppErrorCode(t, err, http.StatusBadRequest)
}

func TestGroupService_GetGroupNotFound(t *testing.T) {
	_, svc, _ := newTestEnv(t)

	_, err := svc.GetGroup(context.Background(), "нет-такой")
	requireAppErrorCode(t, err, http.StatusNotFound)
}
