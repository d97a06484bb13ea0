package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"pricematcher/database"
	"pricematcher/internal/domain/models"
	"pricematcher/matching/algorithms"
	"pricematcher/matching/clustering"
	"pricematcher/matching/imaging"
	apperrors "pricematcher/server/errors"
)

// MatchingDefaults параметры прогона по умолчанию из конфигурации
type MatchingDefaults struct {
	Threshold     float64
	Workers       int
	TextWeights   algorithms.TextWeights
	HybridWeights algorithms.HybridWeights
}

// MatchingRequest параметры запуска прогона сопоставления
type MatchingRequest struct {
	Method    string   `json:"method"`    // text | image | hybrid; по умолчанию hybrid
	Threshold *float64 `json:"threshold"` // по умолчанию из конфигурации
	Workers   int      `json:"workers"`
	Blocking  string   `json:"blocking"` // none | token | price
	// IncludeFrozen включает в прогон листинги из подтвержденных
	// и отклоненных групп (явная переоценка решений человека)
	IncludeFrozen bool `json:"include_frozen"`
}

// MatchingRunSummary итог прогона сопоставления
type MatchingRunSummary struct {
	Method            models.MatchingMethod `json:"method"`
	Threshold         float64               `json:"threshold"`
	ListingsTotal     int                   `json:"listings_total"`
	ListingsFrozen    int                   `json:"listings_frozen"`
	ComparedPairs     int                   `json:"compared_pairs"`
	SkippedPairs      int                   `json:"skipped_pairs"`
	ScoresPersisted   int                   `json:"scores_persisted"`
	ClustersFound     int                   `json:"clusters_found"`
	GroupsCreated     int                   `json:"groups_created"`
	GroupsUpdated     int                   `json:"groups_updated"`
	ClustersUntouched int                   `json:"clusters_untouched"`
	Duration          string                `json:"duration"`
}

// MatchingService запускает прогоны сопоставления: готовит листинги,
// обеспечивает перцептивные хэши изображений, выполняет кластеризацию
// и согласовывает кластеры с существующими группами
type MatchingService struct {
	db       *database.DB
	fetcher  *imaging.Fetcher
	hashes   *imaging.HashCache
	defaults MatchingDefaults

	mu    sync.RWMutex
	tasks map[string]*MatchingTask
}

// NewMatchingService создает сервис сопоставления
func NewMatchingService(db *database.DB, fetcher *imaging.Fetcher, defaults MatchingDefaults) *MatchingService {
	if defaults.Threshold == 0 {
		defaults.Threshold = 0.70
	}
	return &MatchingService{
		db:       db,
		fetcher:  fetcher,
		hashes:   imaging.NewHashCache(),
		defaults: defaults,
		tasks:    make(map[string]*MatchingTask),
	}
}

// RunMatching выполняет синхронный прогон сопоставления.
// Прогон идемпотентен: повторный запуск на неизменных данных не создает
// дубликатов групп и не меняет их состав.
func (s *MatchingService) RunMatching(ctx context.Context, req MatchingRequest) (*MatchingRunSummary, error) {
	started := time.Now()

	method := models.MatchingMethodHybrid
	if req.Method != "" {
		var err error
		method, err = models.ParseMatchingMethod(req.Method)
		if err != nil {
			return nil, apperrors.NewValidationError("неизвестный метод сопоставления", err)
		}
	}

	threshold := s.defaults.Threshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	engine, err := s.buildEngine(method, threshold, req)
	if err != nil {
		return nil, apperrors.NewValidationError("некорректные параметры прогона", err)
	}

	listings, frozenCount, err := s.loadListings(ctx, req.IncludeFrozen)
	if err != nil {
		return nil, apperrors.NewInternalError("не удалось загрузить листинги", err)
	}

	summary := &MatchingRunSummary{
		Method:         method,
		Threshold:      threshold,
		ListingsTotal:  len(listings),
		ListingsFrozen: frozenCount,
	}

	arena := s.buildArena(ctx, listings, method)

	result, err := engine.Cluster(ctx, arena)
	if err != nil {
		return nil, apperrors.NewInternalError("прогон кластеризации прерван", err)
	}

	summary.ComparedPairs = result.ComparedPairs
	summary.SkippedPairs = result.SkippedPairs
	summary.ClustersFound = len(result.Clusters)

	if err := s.db.UpsertPairwiseScores(ctx, result.Scores); err != nil {
		return nil, apperrors.NewInternalError("не удалось сохранить парные оценки", err)
	}
	summary.ScoresPersisted = len(result.Scores)

	// Кластеры фиксируются по одному: отмена посреди прогона оставляет
	// уже согласованные группы в корректном состоянии
	byID := listingsByID(listings)
	for _, cluster := range result.Clusters {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.NewInternalError("прогон прерван при фиксации групп", err)
		}

		created, updated, err := s.reconcileCluster(ctx, cluster, method, byID)
		if err != nil {
			return nil, err
		}
		switch {
		case created:
			summary.GroupsCreated++
		case updated:
			summary.GroupsUpdated++
		default:
			summary.ClustersUntouched++
		}
	}

	summary.Duration = time.Since(started).String()
	log.Printf("✅ Прогон сопоставления завершен: %d листингов, %d пар, %d новых групп, %d обновлено за %s",
		summary.ListingsTotal, summary.ComparedPairs, summary.GroupsCreated, summary.GroupsUpdated, summary.Duration)

	return summary, nil
}

// buildEngine собирает движок кластеризации под параметры запроса
func (s *MatchingService) buildEngine(method models.MatchingMethod, threshold float64, req MatchingRequest) (*clustering.Engine, error) {
	textScorer, err := algorithms.NewTextScorer(s.defaults.TextWeights)
	if err != nil {
		return nil, err
	}
	fuser, err := algorithms.NewHybridScorer(s.defaults.HybridWeights)
	if err != nil {
		return nil, err
	}

	workers := req.Workers
	if workers <= 0 {
		workers = s.defaults.Workers
	}

	return clustering.NewEngine(
		clustering.NewMethodScorer(textScorer, fuser, method),
		clustering.Config{
			Threshold: threshold,
			Workers:   workers,
			Blocking:  clustering.ParseBlockingStrategy(req.Blocking),
		})
}

// loadListings загружает листинги прогона, исключая замороженные
func (s *MatchingService) loadListings(ctx context.Context, includeFrozen bool) ([]models.RawListing, int, error) {
	all, err := s.db.ListAllListings(ctx)
	if err != nil {
		return nil, 0, err
	}
	if includeFrozen {
		return all, 0, nil
	}

	frozen, err := s.db.FrozenListingIDs(ctx)
	if err != nil {
		return nil, 0, err
	}

	listings := all[:0]
	for _, l := range all {
		if !frozen[l.ID] {
			listings = append(listings, l)
		}
	}
	return listings, len(all) - len(listings), nil
}

// buildArena готовит снимки листингов для движка. Для методов с участием
// изображений хэши считаются заранее: загрузка по сети не должна
// происходить внутри воркеров оценки. Ошибки загрузки не прерывают
// прогон — листинг участвует без визуальной составляющей.
func (s *MatchingService) buildArena(ctx context.Context, listings []models.RawListing, method models.MatchingMethod) []clustering.Listing {
	arena := make([]clustering.Listing, len(listings))
	for i, l := range listings {
		arena[i] = clustering.Listing{
			ID:             l.ID,
			SupplierID:     l.SupplierID,
			NormalizedName: l.NormalizedName,
			Price:          l.Price,
		}

		if method == models.MatchingMethodText || l.ImageRef == "" {
			continue
		}

		hash, err := s.hashes.GetOrCompute(l.ID, func() (imaging.Hash, error) {
			img, err := s.fetcher.FetchImage(ctx, l.ImageRef)
			if err != nil {
				return 0, err
			}
			return imaging.ComputeHash(img), nil
		})
		if err != nil {
			log.Printf("⚠️ Изображение листинга %d не загружено: %v", l.ID, err)
			continue
		}
		arena[i].ImageHash = &hash
	}
	return arena
}

// reconcileCluster согласует кластер с существующими группами.
// Возвращает (создана новая группа, обновлена существующая).
func (s *MatchingService) reconcileCluster(ctx context.Context, cluster clustering.Cluster, method models.MatchingMethod, byID map[int64]models.RawListing) (bool, bool, error) {
	existing, err := s.db.FindGroupsByListingIDs(ctx, cluster.MemberIDs)
	if err != nil {
		return false, false, apperrors.NewInternalError("не удалось найти группы кластера", err)
	}

	// Замороженные группы не трогаются даже при явной переоценке:
	// их состав меняется только руками
	var autoGroups []models.MatchingGroup
	for _, g := range existing {
		if g.IsFrozen() {
			log.Printf("Кластер %v пересекается с замороженной группой %s, пропущен", cluster.MemberIDs, g.ID)
			return false, false, nil
		}
		autoGroups = append(autoGroups, g)
	}

	representative := representativeName(cluster.MemberIDs, byID)

	if len(autoGroups) == 0 {
		group := &models.MatchingGroup{
			ID:                 uuid.New().String(),
			RepresentativeName: representative,
			MemberListingIDs:   cluster.MemberIDs,
			ConfidenceScore:    cluster.Confidence,
			MatchingMethod:     method,
			Status:             models.GroupStatusAutoMatched,
		}
		if err := s.db.CreateGroup(ctx, group); err != nil {
			return false, false, apperrors.NewInternalError("не удалось создать группу", err)
		}
		if err := s.db.RecomputeGroupStats(ctx, group.ID); err != nil {
			return false, false, apperrors.NewInternalError("не удалось пересчитать статистику группы", err)
		}
		return true, false, nil
	}

	// Кластер поглощается старейшей из затронутых групп; остальные
	// опустевшие автоматические группы удаляются
	target := autoGroups[0]
	changed := false

	current := make(map[int64]bool, len(target.MemberListingIDs))
	for _, id := range target.MemberListingIDs {
		current[id] = true
	}

	var newMembers []int64
	for _, id := range cluster.MemberIDs {
		if !current[id] {
			newMembers = append(newMembers, id)
		}
	}
	if len(newMembers) > 0 {
		if err := s.db.AddGroupMembers(ctx, target.ID, newMembers); err != nil {
			return false, false, apperrors.NewInternalError("не удалось расширить группу", err)
		}
		changed = true
	}

	inCluster := make(map[int64]bool, len(cluster.MemberIDs))
	for _, id := range cluster.MemberIDs {
		inCluster[id] = true
	}

	// Участники поглощенных групп, не вошедшие в текущий кластер
	// (возможно при блокировке или пропуске пар), остаются без группы
	// и возвращаются в unmatched
	var orphans []int64
	for _, absorbed := range autoGroups[1:] {
		for _, id := range absorbed.MemberListingIDs {
			if !inCluster[id] {
				orphans = append(orphans, id)
			}
		}
		if err := s.db.RemoveGroupMembers(ctx, absorbed.ID, absorbed.MemberListingIDs); err != nil {
			return false, false, apperrors.NewInternalError("не удалось слить группы", err)
		}
		if err := s.db.DeleteEmptiedGroup(ctx, absorbed.ID); err != nil {
			return false, false, apperrors.NewInternalError("не удалось удалить опустевшую группу", err)
		}
		changed = true
	}
	if len(orphans) > 0 {
		if err := s.db.SetListingsMatchingStatus(ctx, orphans, models.MatchingStatusUnmatched); err != nil {
			return false, false, apperrors.NewInternalError("не удалось сбросить статус листингов", err)
		}
	}

	if changed || target.ConfidenceScore != cluster.Confidence {
		if err := s.db.UpdateGroupConfidence(ctx, target.ID, cluster.Confidence, representative); err != nil {
			return false, false, apperrors.NewInternalError("не удалось обновить уверенность группы", err)
		}
		if err := s.db.RecomputeGroupStats(ctx, target.ID); err != nil {
			return false, false, apperrors.NewInternalError("не удалось пересчитать статистику группы", err)
		}
		return false, true, nil
	}

	return false, false, nil
}

// InvalidateImageHash сбрасывает кэшированный хэш изображения листинга.
// Вызывается при реимпорте, если ссылка на изображение изменилась.
func (s *MatchingService) InvalidateImageHash(listingID int64) {
	s.hashes.Invalidate(listingID)
}

// representativeName выбирает представительное наименование группы:
// нормализованное наименование участника с наименьшим ID (детерминизм
// важнее красоты, выбор всегда можно поправить руками)
func representativeName(memberIDs []int64, byID map[int64]models.RawListing) string {
	if len(memberIDs) == 0 {
		return ""
	}
	if l, ok := byID[memberIDs[0]]; ok {
		return l.NormalizedName
	}
	return ""
}

// listingsByID индексирует листинги по ID
func listingsByID(listings []models.RawListing) map[int64]models.RawListing {
	byID := make(map[int64]models.RawListing, len(listings))
	for _, l := range listings {
		byID[l.ID] = l
	}
	return byID
}
