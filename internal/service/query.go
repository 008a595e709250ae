// 本文件用于查询服务编排 串联知识库快照解析与匹配打分

// 文件职责：实现当前模块的核心业务逻辑与数据流转
// 关键路径：入口参数先校验再执行业务处理 最后返回统一结果
// 边界与容错：异常场景显式返回错误 由上层决定重试或降级

package service

import (
	"context"
	"time"

	"error-match/internal/kb"
	"error-match/internal/kbstore"
	"error-match/internal/match"
	"error-match/internal/metrics"
	"error-match/internal/models"
)

// QueryService 查询边界 自身无状态 持久状态只有 Store 的缓存槽位
type QueryService struct {
	store        *kbstore.Store
	limitBasic   int
	limitRefined int
}

// MatchOutput 匹配结果与来源信息
type MatchOutput struct {
	Matches     []match.Result `json:"matches"`
	KBSource    string         `json:"kbSource"`
	KBUpdatedAt string         `json:"kbUpdatedAt,omitempty"`
}

// MatchDebug 精确档位返回的调试信息
type MatchDebug struct {
	NormalizedText string `json:"normalizedText"`
	ExactHit       bool   `json:"exactHit"`
	Considered     int    `json:"considered"`
}

// RefinedOutput 精确档位的匹配结果
type RefinedOutput struct {
	MatchOutput
	Debug MatchDebug `json:"debug"`
}

// NewQueryService 创建查询服务
func NewQueryService(store *kbstore.Store, cfg *models.Config) *QueryService {
	limitBasic := match.DefaultLimitBasic
	limitRefined := match.DefaultLimitRefined
	if cfg != nil {
		if cfg.MatchLimit > 0 {
			limitBasic = cfg.MatchLimit
		}
		if cfg.MatchLimitRefined > 0 {
			limitRefined = cfg.MatchLimitRefined
		}
	}
	return &QueryService{
		store:        store,
		limitBasic:   limitBasic,
		limitRefined: limitRefined,
	}
}

// Match 基础档位匹配：纯模糊打分 返回 top 3
func (q *QueryService) Match(ctx context.Context, errorText string) MatchOutput {
	start := time.Now()
	snapshot := q.snapshot(ctx)
	results := match.Rank(errorText, snapshot.Items, match.Options{
		ExactShortCircuit: false,
		Limit:             q.limitBasic,
	})
	metrics.Global().ObserveMatch(false, len(results), false, time.Since(start))
	return MatchOutput{
		Matches:     results,
		KBSource:    snapshot.SourceKind,
		KBUpdatedAt: snapshot.UpdatedAtString(),
	}
}

// MatchRefined 精确档位匹配：标题精确命中短路 否则模糊打分 返回 top 5
func (q *QueryService) MatchRefined(ctx context.Context, errorText string) RefinedOutput {
	start := time.Now()
	snapshot := q.snapshot(ctx)
	results := match.Rank(errorText, snapshot.Items, match.Options{
		ExactShortCircuit: true,
		Limit:             q.limitRefined,
	})
	exactHit := len(results) > 0 && results[0].Score >= 1.0
	metrics.Global().ObserveMatch(true, len(results), exactHit, time.Since(start))
	return RefinedOutput{
		MatchOutput: MatchOutput{
			Matches:     results,
			KBSource:    snapshot.SourceKind,
			KBUpdatedAt: snapshot.UpdatedAtString(),
		},
		Debug: MatchDebug{
			NormalizedText: match.Normalize(errorText),
			ExactHit:       exactHit,
			Considered:     len(snapshot.Items),
		},
	}
}

// Status 报告当前会使用的知识库来源与规模，不需要查询串
func (q *QueryService) Status(ctx context.Context) models.KBStatus {
	metrics.Global().IncStatus()
	snapshot := q.snapshot(ctx)
	return models.KBStatus{
		Source:    snapshot.SourceKind,
		UpdatedAt: snapshot.UpdatedAtString(),
		Count:     len(snapshot.Items),
	}
}

// Refresh 强制失效缓存槽位并报告重新解析后的来源
func (q *QueryService) Refresh(ctx context.Context) (models.KBStatus, error) {
	if q == nil || q.store == nil {
		return models.KBStatus{}, nil
	}
	if err := q.store.Invalidate(); err != nil {
		return models.KBStatus{}, err
	}
	return q.Status(ctx), nil
}

// snapshot 每次请求重新解析快照 没有跨请求的知识库实体
func (q *QueryService) snapshot(ctx context.Context) kb.Snapshot {
	if q == nil || q.store == nil {
		return kb.Snapshot{Items: []kb.Entry{}, SourceKind: kb.SourceBundled}
	}
	return q.store.Snapshot(ctx)
}
