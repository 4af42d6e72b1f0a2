package service

import (
	"context"
	"sync"
	"time"

	"github.com/loomworks/atelier/internal/mes/entity"
	"github.com/loomworks/atelier/internal/mes/repository"
)

// WorkerCache 活跃工人列表的单槽TTL缓存。进程内状态，不跨重启。
// 时钟通过构造函数注入，测试可用假时钟推进过期。
type WorkerCache struct {
	mu        sync.Mutex
	workers   []entity.Contact
	expiresAt time.Time
	ttl       time.Duration
	now       func() time.Time
}

func NewWorkerCache(ttl time.Duration, now func() time.Time) *WorkerCache {
	if now == nil {
		now = time.Now
	}
	return &WorkerCache{ttl: ttl, now: now}
}

// Get 返回缓存的列表，过期或为空时调用 fetch 重新装载。
// 返回的是共享切片，调用方只读不改。
// 并发下最多造成一次多余的重取，覆盖写是幂等的。
func (c *WorkerCache) Get(ctx context.Context, fetch func(ctx context.Context) ([]entity.Contact, error)) ([]entity.Contact, error) {
	c.mu.Lock()
	if c.workers != nil && c.now().Before(c.expiresAt) {
		cached := c.workers
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	workers, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.workers = workers
	c.expiresAt = c.now().Add(c.ttl)
	c.mu.Unlock()

	return workers, nil
}

// Clear 无条件清空缓存，下一次读取必然回源
func (c *WorkerCache) Clear() {
	c.mu.Lock()
	c.workers = nil
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

// WorkerService 工人列表服务
type WorkerService struct {
	contacts *repository.ContactRepository
	cache    *WorkerCache
}

func NewWorkerService(contacts *repository.ContactRepository, cache *WorkerCache) *WorkerService {
	return &WorkerService{contacts: contacts, cache: cache}
}

// GetWorkers 取活跃工人列表，优先走缓存
func (s *WorkerService) GetWorkers(ctx context.Context) ([]entity.Contact, error) {
	return s.cache.Get(ctx, s.contacts.ListActiveWorkers)
}

// ClearCache 手动失效缓存
func (s *WorkerService) ClearCache() {
	s.cache.Clear()
}
