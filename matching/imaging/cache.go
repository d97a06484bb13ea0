package imaging

import (
	"sync"
)

// HashCache кэш перцептивных хэшей по ID листинга.
// Хэш вычисляется один раз на листинг и переиспользуется во всех
// парных сравнениях внутри прогона сопоставления.
type HashCache struct {
	mu     sync.RWMutex
	hashes map[int64]Hash
}

// NewHashCache создает новый кэш хэшей
func NewHashCache() *HashCache {
	return &HashCache{
		hashes: make(map[int64]Hash),
	}
}

// Get возвращает хэш листинга, если он уже вычислен
func (c *HashCache) Get(listingID int64) (Hash, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	hash, ok := c.hashes[listingID]
	return hash, ok
}

// Put сохраняет хэш листинга
func (c *HashCache) Put(listingID int64, hash Hash) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hashes[listingID] = hash
}

// GetOrCompute возвращает хэш из кэша либо вычисляет и сохраняет его.
// При ошибке вычисления кэш не изменяется.
func (c *HashCache) GetOrCompute(listingID int64, compute func() (Hash, error)) (Hash, error) {
	if hash, ok := c.Get(listingID); ok {
		return hash, nil
	}

	hash, err := compute()
	if err != nil {
		return 0, err
	}

	c.Put(listingID, hash)
	return hash, nil
}

// Invalidate удаляет хэш листинга (например, при смене image_ref на реимпорте)
func (c *HashCache) Invalidate(listingID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.hashes, listingID)
}

// Len возвращает число закэшированных хэшей
func (c *HashCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.hashes)
}
