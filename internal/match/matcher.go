// 本文件用于错误文本与知识库条目的两档打分排序

// 文件职责：实现当前模块的核心业务逻辑与数据流转
// 关键路径：入口参数先校验再执行业务处理 最后返回统一结果
// 边界与容错：异常场景显式返回错误 由上层决定重试或降级

package match

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"

	"error-match/internal/kb"
)

// 打分常量
// 精确命中 > 正则命中 > 标题包含 > 关键词重叠，上限依次收紧
const (
	scoreExact        = 1.0
	scorePattern      = 0.95
	scoreTitleContain = 0.85
	scoreKeywordBase  = 0.55
	scoreKeywordStep  = 0.08
	scoreKeywordCap   = 0.35

	// 标题足够具体的门槛，防止 "Error" 之类的短标题误命中
	exactMinTitleLen    = 18
	exactMinTitleTokens = 3

	DefaultLimitBasic   = 3
	DefaultLimitRefined = 5
)

// Result 单条匹配结果，Score 取值范围 [0,1]
type Result struct {
	Entry kb.Entry `json:"item"`
	Score float64  `json:"score"`
}

// Options 控制匹配行为
// ExactShortCircuit 打开时先尝试标题精确命中，命中则完全跳过模糊打分
type Options struct {
	ExactShortCircuit bool
	Limit             int
}

// Rank 对条目集合按错误文本打分并返回有序候选
// 两档打分共用同一套 scoreEntry 核心，只靠策略开关区分，避免口径漂移
func Rank(errorText string, items []kb.Entry, opts Options) []Result {
	normText := Normalize(errorText)
	if normText == "" {
		// 空错误文本没有可匹配信号
		return []Result{}
	}
	limit := opts.Limit
	if limit <= 0 {
		if opts.ExactShortCircuit {
			limit = DefaultLimitRefined
		} else {
			limit = DefaultLimitBasic
		}
	}

	if opts.ExactShortCircuit {
		exact := exactHits(normText, items)
		if len(exact) > 0 {
			if len(exact) > limit {
				exact = exact[:limit]
			}
			return exact
		}
	}

	errorTokens := tokenSet(Tokenize(errorText))
	scored := make([]Result, 0, len(items))
	for _, item := range items {
		score := scoreEntry(errorText, normText, errorTokens, item)
		if score <= 0 {
			continue
		}
		scored = append(scored, Result{Entry: item, Score: score})
	}
	// 稳定排序保证同分条目保持知识库原始顺序
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// exactHits 收集标题与错误文本互为包含关系的条目
// 只有标题足够具体才允许精确命中，命中条目一律满分
func exactHits(normText string, items []kb.Entry) []Result {
	out := make([]Result, 0, 4)
	for _, item := range items {
		normTitle := Normalize(item.Title)
		if normTitle == "" || !isSpecificTitle(normTitle) {
			continue
		}
		if normTitle == normText ||
			strings.Contains(normText, normTitle) ||
			strings.Contains(normTitle, normText) {
			out = append(out, Result{Entry: item, Score: scoreExact})
		}
	}
	return out
}

func isSpecificTitle(normTitle string) bool {
	if len(normTitle) >= exactMinTitleLen {
		return true
	}
	return len(Tokenize(normTitle)) >= exactMinTitleTokens
}

// scoreEntry 计算单条目的模糊得分，取三路信号的最大值
func scoreEntry(rawText, normText string, errorTokens map[string]struct{}, entry kb.Entry) float64 {
	best := 0.0

	if matchesAnyPattern(rawText, entry.Patterns) {
		best = scorePattern
	}

	if best < scoreTitleContain {
		normTitle := Normalize(entry.Title)
		if normTitle != "" && strings.Contains(normText, normTitle) {
			best = scoreTitleContain
		}
	}

	if keyword := keywordScore(errorTokens, entry.Title); keyword > best {
		best = keyword
	}
	return best
}

// 模式集合随知识库条目长期稳定，进程级缓存避免每次请求重复编译
// 缓存值为 nil 表示该模式编译失败
var patternCache sync.Map

// matchesAnyPattern 按序测试条目的正则模式
// 通配 .* 不携带任何信息量直接忽略，编译失败按未命中处理不中断其余模式
func matchesAnyPattern(rawText string, patterns []string) bool {
	for _, pattern := range patterns {
		trimmed := strings.TrimSpace(pattern)
		if trimmed == "" || trimmed == ".*" || trimmed == "^.*$" {
			continue
		}
		re := compilePattern(trimmed)
		if re == nil {
			continue
		}
		if re.MatchString(rawText) {
			return true
		}
	}
	return false
}

// compilePattern 返回模式的编译结果，编译失败返回 nil
func compilePattern(pattern string) *regexp.Regexp {
	if cached, ok := patternCache.Load(pattern); ok {
		re, _ := cached.(*regexp.Regexp)
		return re
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		re = nil
	}
	patternCache.Store(pattern, re)
	return re
}

// keywordScore 统计错误文本与标题在领域词表上的重叠词数
// 一次命中约 0.63，收益递减封顶 0.90
func keywordScore(errorTokens map[string]struct{}, title string) float64 {
	if len(errorTokens) == 0 {
		return 0
	}
	hits := 0
	for _, token := range Tokenize(title) {
		if _, significant := vocabularySet[token]; !significant {
			continue
		}
		if _, ok := errorTokens[token]; ok {
			hits++
		}
	}
	if hits == 0 {
		return 0
	}
	gain := float64(hits) * scoreKeywordStep
	if gain > scoreKeywordCap {
		gain = scoreKeywordCap
	}
	return scoreKeywordBase + gain
}

// Normalize 归一化文本：小写 压缩空白 去首尾空格
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Tokenize 切分归一化词元
// 先按非字母数字下划线边界切分，再拆开下划线拼接的复合词，去重保序
func Tokenize(text string) []string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return nil
	}
	tokens := make([]string, 0, 16)
	seen := make(map[string]struct{}, 32)
	push := func(token string) {
		token = strings.TrimSpace(token)
		if token == "" {
			return
		}
		if _, ok := seen[token]; ok {
			return
		}
		seen[token] = struct{}{}
		tokens = append(tokens, token)
	}
	parts := strings.FieldsFunc(normalized, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
	for _, part := range parts {
		part = strings.Trim(part, "_")
		if part == "" {
			continue
		}
		push(part)
		if !strings.Contains(part, "_") {
			continue
		}
		for _, sub := range strings.Split(part, "_") {
			push(sub)
		}
	}
	return tokens
}

func tokenSet(tokens []string) map[string]struct{} {
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		out[token] = struct{}{}
	}
	return out
}
