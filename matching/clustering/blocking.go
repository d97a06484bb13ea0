package clustering

import (
	"math"
	"strconv"
	"strings"
)

// BlockingStrategy стратегия предварительной фильтрации кандидатных пар.
// Блокировка только сокращает число сравнений, никогда не меняя саму
// функцию схожести: пары внутри блока оцениваются как обычно.
type BlockingStrategy string

const (
	// BlockingNone полное попарное сравнение O(n^2), поведение по умолчанию
	BlockingNone BlockingStrategy = "none"
	// BlockingToken сравниваются только листинги с общим ведущим токеном
	BlockingToken BlockingStrategy = "token"
	// BlockingPrice сравниваются только листинги из одной ценовой корзины
	BlockingPrice BlockingStrategy = "price"
)

// ParseBlockingStrategy разбирает стратегию блокировки из строки.
// Пустая строка означает отсутствие блокировки.
func ParseBlockingStrategy(s string) BlockingStrategy {
	switch BlockingStrategy(s) {
	case BlockingToken, BlockingPrice:
		return BlockingStrategy(s)
	default:
		return BlockingNone
	}
}

// GenerateCandidates строит список кандидатных пар (индексы арены).
// Без блокировки — все пары i < j; с блокировкой — только пары,
// разделяющие общий грубый ключ.
func GenerateCandidates(listings []Listing, strategy BlockingStrategy) [][2]int {
	switch strategy {
	case BlockingToken, BlockingPrice:
		return candidatesFromBlocks(buildBlocks(listings, strategy))
	default:
		return allPairs(len(listings))
	}
}

// allPairs возвращает все пары i < j
func allPairs(n int) [][2]int {
	if n < 2 {
		return nil
	}
	pairs := make([][2]int, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, [2]int{i, j})
		}
	}
	return pairs
}

// buildBlocks раскладывает индексы листингов по грубым ключам
func buildBlocks(listings []Listing, strategy BlockingStrategy) map[string][]int {
	blocks := make(map[string][]int)
	for i, listing := range listings {
		var key string
		if strategy == BlockingPrice {
			key = priceBucket(listing.Price)
		} else {
			key = leadingToken(listing.NormalizedName)
		}
		blocks[key] = append(blocks[key], i)
	}
	return blocks
}

// candidatesFromBlocks строит пары внутри каждого блока
func candidatesFromBlocks(blocks map[string][]int) [][2]int {
	var pairs [][2]int
	for _, members := range blocks {
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				pairs = append(pairs, [2]int{members[i], members[j]})
			}
		}
	}
	return pairs
}

// leadingToken возвращает ведущий токен нормализованного наименования.
// Для слитных записей без пробелов (иероглифические наименования)
// токеном была бы вся строка, поэтому ключ огрубляется до первой руны.
func leadingToken(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	token := fields[0]
	runes := []rune(token)
	if len(runes) > 4 {
		return string(runes[0])
	}
	return token
}

// priceBucket возвращает ценовую корзину (логарифмическая шкала по основанию 2)
func priceBucket(price float64) string {
	if price <= 0 {
		return "p0"
	}
	bucket := int(math.Floor(math.Log2(price + 1)))
	return "p" + strconv.Itoa(bucket)
}
