// 本文件用于知识库快照的来源解析
// 严格优先级：新鲜缓存 > 远程拉取 > 内置副本
// 任何失败都向下一级降级 不向调用方抛错 降级原因走日志与指标而不是控制流

// 文件职责：实现当前模块的核心业务逻辑与数据流转
// 关键路径：入口参数先校验再执行业务处理 最后返回统一结果
// 边界与容错：异常场景显式返回错误 由上层决定重试或降级

package kbstore

import (
	"context"
	"time"

	"error-match/internal/kb"
	"error-match/internal/logger"
	"error-match/internal/metrics"
)

const DefaultTTL = 30 * time.Minute

// Store 负责向匹配层提供一份可用的知识库快照
type Store struct {
	cache   *Cache
	fetcher Fetcher // nil 表示远程拉取被关闭
	ttl     time.Duration
	bundled func() []kb.Entry
	now     func() time.Time
}

// Options Store 的装配参数
type Options struct {
	Cache   *Cache
	Fetcher Fetcher
	TTL     time.Duration
	Bundled func() []kb.Entry
	Now     func() time.Time // 测试用，缺省为 time.Now
}

// NewStore 装配快照存取器
func NewStore(opts Options) *Store {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	bundled := opts.Bundled
	if bundled == nil {
		bundled = BundledLoader("")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		cache:   opts.Cache,
		fetcher: opts.Fetcher,
		ttl:     ttl,
		bundled: bundled,
		now:     now,
	}
}

// Snapshot 解析当前应使用的知识库快照，永不失败
// 并发刷新允许重复拉取远程并各自写缓存 快照幂等 最后写入生效
func (s *Store) Snapshot(ctx context.Context) kb.Snapshot {
	if s == nil {
		return kb.Snapshot{Items: []kb.Entry{}, SourceKind: kb.SourceBundled}
	}
	if items, updatedAt, ok := s.freshCache(); ok {
		metrics.Global().IncKBSource(kb.SourceCache)
		return kb.Snapshot{Items: items, SourceKind: kb.SourceCache, UpdatedAt: updatedAt}
	}

	if s.fetcher != nil {
		start := s.now()
		items, err := s.fetcher.Fetch(ctx)
		if err != nil {
			// 降级到内置副本，错误只进日志与指标
			logger.Warn("远程知识库拉取失败，降级内置副本 (%s): %v", s.fetcher.Source(), err)
			metrics.Global().IncKBRemoteFailure()
		} else {
			fetchedAt := s.now()
			metrics.Global().ObserveKBFetch(fetchedAt.Sub(start))
			if saveErr := s.cache.Save(items, fetchedAt); saveErr != nil {
				// 缓存写失败不影响本次返回 下次查询会重新走远程
				logger.Warn("知识库缓存写入失败: %v", saveErr)
			}
			metrics.Global().IncKBSource(kb.SourceRemote)
			return kb.Snapshot{Items: items, SourceKind: kb.SourceRemote, UpdatedAt: fetchedAt}
		}
	}

	metrics.Global().IncKBSource(kb.SourceBundled)
	return kb.Snapshot{Items: s.bundled(), SourceKind: kb.SourceBundled}
}

// Invalidate 清空缓存槽位，下一次查询会重新解析来源
// 供运维强制刷新与本地文档热更新联动使用
func (s *Store) Invalidate() error {
	if s == nil || s.cache == nil {
		return nil
	}
	metrics.Global().IncKBInvalidate()
	return s.cache.Clear()
}

// freshCache 读取缓存槽位并做 TTL 检查
// 读失败与过期同样处理：继续向低优先级来源解析
func (s *Store) freshCache() ([]kb.Entry, time.Time, bool) {
	if s.cache == nil {
		return nil, time.Time{}, false
	}
	items, updatedAt, ok, err := s.cache.Load()
	if err != nil {
		logger.Warn("知识库缓存读取失败: %v", err)
		return nil, time.Time{}, false
	}
	if !ok || len(items) == 0 {
		return nil, time.Time{}, false
	}
	if s.now().Sub(updatedAt) >= s.ttl {
		return nil, time.Time{}, false
	}
	return items, updatedAt, true
}
