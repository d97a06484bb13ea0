package clustering

import (
	"context"
	"errors"
	"log"
	"runtime"
	"sort"
	"sync"

	"pricematcher/internal/domain/models"
	"pricematcher/matching/algorithms"
)

// batchSize число кандидатных пар в одной порции для воркера
const batchSize = 256

// Config конфигурация движка кластеризации
type Config struct {
	Threshold float64          // порог парной оценки, строго внутри (0, 1)
	Workers   int              // число воркеров парной оценки; <=0 — по числу CPU
	Blocking  BlockingStrategy // стратегия сокращения кандидатных пар
}

// Cluster связная компонента листингов — будущая группа сопоставления.
// Кластеризация однослойная (single-link): участники гарантированно
// связаны цепочкой пар выше порога, но не обязательно попарно схожи.
// Слабые звенья цепочки видны по Confidence — минимальной оценке
// среди ребер, собравших компоненту.
type Cluster struct {
	MemberIDs  []int64
	Edges      []models.PairwiseScore
	Confidence float64
}

// Result результат прогона кластеризации
type Result struct {
	Clusters      []Cluster
	Scores        []models.PairwiseScore // все вычисленные парные оценки (свидетельства)
	ComparedPairs int
	SkippedPairs  int // пары, пропущенные из-за ошибок оценки
}

// Engine движок кластеризации: генерирует кандидатные пары, оценивает
// их параллельно и объединяет листинги выше порога в связные компоненты
// через union-find. Парная оценка независима и распараллеливается;
// слияние union-find последовательно и выполняется одним коллектором.
type Engine struct {
	scorer PairScorer
	cfg    Config
}

// NewEngine создает движок кластеризации.
// Порог вне (0, 1) отклоняется до начала любой работы.
func NewEngine(scorer PairScorer, cfg Config) (*Engine, error) {
	if err := algorithms.ValidateThreshold(cfg.Threshold); err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Engine{scorer: scorer, cfg: cfg}, nil
}

// scoredPair результат оценки одной кандидатной пары
type scoredPair struct {
	idxA, idxB int
	score      models.PairwiseScore
	err        error
}

// Cluster разбивает листинги на связные компоненты по порогу схожести.
// Отмена контекста прерывает работу между порциями пар; уже собранные
// результаты при этом не возвращаются — прогон повторяется целиком,
// идемпотентность обеспечивает вызывающая сторона.
func (e *Engine) Cluster(ctx context.Context, listings []Listing) (*Result, error) {
	candidates := GenerateCandidates(listings, e.cfg.Blocking)

	result := &Result{ComparedPairs: len(candidates)}
	if len(candidates) == 0 {
		return result, nil
	}

	batches := make(chan [][2]int)
	scored := make(chan scoredPair, batchSize)

	// Нарезка кандидатов на порции
	go func() {
		defer close(batches)
		for start := 0; start < len(candidates); start += batchSize {
			end := start + batchSize
			if end > len(candidates) {
				end = len(candidates)
			}
			select {
			case batches <- candidates[start:end]:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Воркеры парной оценки
	var wg sync.WaitGroup
	for w := 0; w < e.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range batches {
				for _, pair := range batch {
					score, err := e.scorer.ScorePair(&listings[pair[0]], &listings[pair[1]])
					select {
					case scored <- scoredPair{idxA: pair[0], idxB: pair[1], score: score, err: err}:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(scored)
	}()

	// Коллектор: единственная критическая секция слияния union-find
	uf := NewUnionFind(len(listings))
	var allEdges []edgeRef

	for sp := range scored {
		if sp.err != nil {
			result.SkippedPairs++
			if !errors.Is(sp.err, ErrNoImage) {
				// Ошибка скорера: пара исключается из вклада, прогон продолжается
				log.Printf("⚠️ Пара (%d, %d) пропущена: %v",
					listings[sp.idxA].ID, listings[sp.idxB].ID, sp.err)
			}
			continue
		}

		result.Scores = append(result.Scores, sp.score)

		if sp.score.HybridScore >= e.cfg.Threshold {
			uf.Union(sp.idxA, sp.idxB)
			allEdges = append(allEdges, edgeRef{idx: sp.idxA, score: sp.score})
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result.Clusters = e.assembleClusters(listings, uf, allEdges)
	return result, nil
}

// edgeRef ребро, прошедшее порог, с индексом одного из концов
type edgeRef struct {
	idx   int
	score models.PairwiseScore
}

// assembleClusters превращает компоненты union-find в кластеры.
// Confidence — минимальная оценка среди ребер компоненты: минимум,
// а не среднее, чтобы не завышать уверенность цепочечных слияний.
func (e *Engine) assembleClusters(listings []Listing, uf *UnionFind, edges []edgeRef) []Cluster {
	members := make(map[int][]int64)
	for i := range listings {
		root := uf.Find(i)
		members[root] = append(members[root], listings[i].ID)
	}

	edgesByRoot := make(map[int][]models.PairwiseScore)
	for _, edge := range edges {
		root := uf.Find(edge.idx)
		edgesByRoot[root] = append(edgesByRoot[root], edge.score)
	}

	var clusters []Cluster
	for root, ids := range members {
		if len(ids) < 2 {
			continue // одиночные листинги группу не образуют
		}

		clusterEdges := edgesByRoot[root]
		confidence := 1.0
		for _, edge := range clusterEdges {
			if edge.HybridScore < confidence {
				confidence = edge.HybridScore
			}
		}

		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		clusters = append(clusters, Cluster{
			MemberIDs:  ids,
			Edges:      clusterEdges,
			Confidence: confidence,
		})
	}

	// Детерминированный порядок: по наименьшему ID участника
	sort.Slice(clusters, func(i, j int) bool {
		return clusters[i].MemberIDs[0] < clusters[j].MemberIDs[0]
	})

	return clusters
}
