// 本文件用于知识库领域类型定义 统一约束条目与快照结构

// 文件职责：实现当前模块的核心业务逻辑与数据流转
// 关键路径：入口参数先校验再执行业务处理 最后返回统一结果
// 边界与容错：异常场景显式返回错误 由上层决定重试或降级

package kb

import (
	"errors"
	"time"
)

// 快照来源，优先级从高到低为 cache > remote > bundled
const (
	SourceCache   = "cache"
	SourceRemote  = "remote"
	SourceBundled = "bundled"
)

var (
	ErrEmptyDocument = errors.New("kb document is empty")
	ErrInvalidEntry  = errors.New("invalid kb entry")
)

// Link 条目关联的外部链接，url 为空的链接在解码时丢弃
type Link struct {
	Label string `json:"label" yaml:"label"`
	URL   string `json:"url" yaml:"url"`
}

// Entry 单条已知问题记录
type Entry struct {
	ID        string   `json:"id" yaml:"id"`
	Title     string   `json:"title" yaml:"title"`
	Patterns  []string `json:"patterns" yaml:"patterns"`
	Symptoms  string   `json:"symptoms,omitempty" yaml:"symptoms"`
	RootCause string   `json:"rootCause,omitempty" yaml:"rootCause"`
	FixSteps  []string `json:"fixSteps" yaml:"fixSteps"` // 顺序有意义，按序执行
	Links     []Link   `json:"links,omitempty" yaml:"links"`
	Tags      []string `json:"tags,omitempty" yaml:"tags"`
}

// Snapshot 一次解析后的自洽条目集合及其来源信息
// 内置副本没有可信的更新时间，UpdatedAt 为零值
type Snapshot struct {
	Items      []Entry
	SourceKind string
	UpdatedAt  time.Time
}

// UpdatedAtString 以 RFC3339 输出更新时间，内置来源返回空串
func (s Snapshot) UpdatedAtString() string {
	if s.UpdatedAt.IsZero() {
		return ""
	}
	return s.UpdatedAt.UTC().Format(time.RFC3339)
}
