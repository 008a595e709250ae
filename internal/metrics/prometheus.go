// 本文件用于 Prometheus 指标聚合与导出 将运行时指标统一收口便于监控接入

package metrics

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Collector 聚合运行期指标，并以 Prometheus 文本格式输出。
type Collector struct {
	matchTotal        atomic.Uint64
	matchHitTotal     atomic.Uint64
	matchRefinedTotal atomic.Uint64
	exactHitTotal     atomic.Uint64
	statusTotal       atomic.Uint64

	kbRemoteFailureTotal atomic.Uint64
	kbInvalidateTotal    atomic.Uint64

	mu            sync.RWMutex
	kbSourceTotal map[string]uint64
	matchDuration *histogram
	kbFetchSec    *histogram
}

type histogram struct {
	buckets []float64
	counts  []uint64 // 累计桶计数
	count   uint64
	sum     float64
}

var globalCollector = NewCollector()

// Global 返回进程级全局指标收集器。
func Global() *Collector {
	return globalCollector
}

// NewCollector 创建指标收集器。
func NewCollector() *Collector {
	return &Collector{
		kbSourceTotal: make(map[string]uint64),
		matchDuration: newHistogram([]float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250}),
		kbFetchSec:    newHistogram([]float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}),
	}
}

func newHistogram(buckets []float64) *histogram {
	clean := make([]float64, 0, len(buckets))
	for _, bucket := range buckets {
		if bucket <= 0 {
			continue
		}
		clean = append(clean, bucket)
	}
	sort.Float64s(clean)
	return &histogram{
		buckets: clean,
		counts:  make([]uint64, len(clean)),
	}
}

func (h *histogram) observe(v float64) {
	if h == nil {
		return
	}
	for idx, bound := range h.buckets {
		if v <= bound {
			h.counts[idx]++
		}
	}
	h.count++
	h.sum += v
}

func (h *histogram) writePrometheus(builder *strings.Builder, metric string) {
	if h == nil {
		return
	}
	for idx, bound := range h.buckets {
		builder.WriteString(metric)
		builder.WriteString(`_bucket{le="`)
		builder.WriteString(trimFloat(bound))
		builder.WriteString(`"} `)
		builder.WriteString(strconv.FormatUint(h.counts[idx], 10))
		builder.WriteByte('\n')
	}
	builder.WriteString(metric)
	builder.WriteString(`_bucket{le="+Inf"} `)
	builder.WriteString(strconv.FormatUint(h.count, 10))
	builder.WriteByte('\n')

	builder.WriteString(metric)
	builder.WriteString("_sum ")
	builder.WriteString(trimFloat(h.sum))
	builder.WriteByte('\n')

	builder.WriteString(metric)
	builder.WriteString("_count ")
	builder.WriteString(strconv.FormatUint(h.count, 10))
	builder.WriteByte('\n')
}

// ObserveMatch 记录一次匹配请求的结果与耗时。
func (c *Collector) ObserveMatch(refined bool, hitCount int, exactHit bool, latency time.Duration) {
	if c == nil {
		return
	}
	c.matchTotal.Add(1)
	if refined {
		c.matchRefinedTotal.Add(1)
	}
	if hitCount > 0 {
		c.matchHitTotal.Add(1)
	}
	if exactHit {
		c.exactHitTotal.Add(1)
	}
	ms := float64(latency.Microseconds()) / 1000
	c.mu.Lock()
	c.matchDuration.observe(ms)
	c.mu.Unlock()
}

// IncStatus 记录一次状态查询。
func (c *Collector) IncStatus() {
	if c == nil {
		return
	}
	c.statusTotal.Add(1)
}

// IncKBSource 记录一次快照来源的使用。
func (c *Collector) IncKBSource(source string) {
	if c == nil {
		return
	}
	key := strings.TrimSpace(strings.ToLower(source))
	if key == "" {
		key = "unknown"
	}
	c.mu.Lock()
	c.kbSourceTotal[key]++
	c.mu.Unlock()
}

// IncKBRemoteFailure 记录一次被吞掉的远程拉取失败，保证降级可观测。
func (c *Collector) IncKBRemoteFailure() {
	if c == nil {
		return
	}
	c.kbRemoteFailureTotal.Add(1)
}

// IncKBInvalidate 记录一次缓存槽位失效。
func (c *Collector) IncKBInvalidate() {
	if c == nil {
		return
	}
	c.kbInvalidateTotal.Add(1)
}

// ObserveKBFetch 记录一次成功的远程拉取耗时。
func (c *Collector) ObserveKBFetch(latency time.Duration) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.kbFetchSec.observe(latency.Seconds())
	c.mu.Unlock()
}

// RenderPrometheus 以 text exposition 格式导出指标。
func (c *Collector) RenderPrometheus() string {
	if c == nil {
		return ""
	}
	builder := strings.Builder{}
	builder.Grow(2048)

	writeMetricHeader(&builder, "em_match_total", "counter", "Total match requests handled.")
	writeCounter(&builder, "em_match_total", c.matchTotal.Load(), nil)

	writeMetricHeader(&builder, "em_match_hit_total", "counter", "Total match requests with at least one candidate.")
	writeCounter(&builder, "em_match_hit_total", c.matchHitTotal.Load(), nil)

	writeMetricHeader(&builder, "em_match_refined_total", "counter", "Total refined-tier match requests.")
	writeCounter(&builder, "em_match_refined_total", c.matchRefinedTotal.Load(), nil)

	writeMetricHeader(&builder, "em_match_exact_hit_total", "counter", "Total refined matches resolved by exact title hit.")
	writeCounter(&builder, "em_match_exact_hit_total", c.exactHitTotal.Load(), nil)

	writeMetricHeader(&builder, "em_kb_status_total", "counter", "Total knowledge base status requests.")
	writeCounter(&builder, "em_kb_status_total", c.statusTotal.Load(), nil)

	writeMetricHeader(&builder, "em_kb_remote_failure_total", "counter", "Total remote fetch failures absorbed by fallback.")
	writeCounter(&builder, "em_kb_remote_failure_total", c.kbRemoteFailureTotal.Load(), nil)

	writeMetricHeader(&builder, "em_kb_invalidate_total", "counter", "Total cache slot invalidations.")
	writeCounter(&builder, "em_kb_invalidate_total", c.kbInvalidateTotal.Load(), nil)

	kbSource := make(map[string]uint64)
	var matchCopy, fetchCopy histogram
	c.mu.RLock()
	for source, count := range c.kbSourceTotal {
		kbSource[source] = count
	}
	matchCopy = cloneHistogram(c.matchDuration)
	fetchCopy = cloneHistogram(c.kbFetchSec)
	c.mu.RUnlock()

	writeMetricHeader(&builder, "em_kb_source_total", "counter", "Snapshot resolutions grouped by source kind.")
	// 始终输出三个来源，避免零流量时缺失时序导致巡检误报
	for _, source := range []string{"cache", "remote", "bundled"} {
		if _, ok := kbSource[source]; !ok {
			kbSource[source] = 0
		}
	}
	sources := sortedStringKeysFromUintMap(kbSource)
	for _, source := range sources {
		writeCounter(&builder, "em_kb_source_total", kbSource[source], map[string]string{
			"source": source,
		})
	}

	writeMetricHeader(&builder, "em_match_duration_ms", "histogram", "Match latency distribution in milliseconds.")
	matchCopy.writePrometheus(&builder, "em_match_duration_ms")

	writeMetricHeader(&builder, "em_kb_fetch_duration_seconds", "histogram", "Remote fetch latency distribution in seconds.")
	fetchCopy.writePrometheus(&builder, "em_kb_fetch_duration_seconds")

	return builder.String()
}

func cloneHistogram(h *histogram) histogram {
	if h == nil {
		return histogram{}
	}
	return histogram{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		count:   h.count,
		sum:     h.sum,
	}
}

func writeMetricHeader(builder *strings.Builder, metric, metricType, help string) {
	builder.WriteString("# HELP ")
	builder.WriteString(metric)
	builder.WriteByte(' ')
	builder.WriteString(help)
	builder.WriteByte('\n')
	builder.WriteString("# TYPE ")
	builder.WriteString(metric)
	builder.WriteByte(' ')
	builder.WriteString(metricType)
	builder.WriteByte('\n')
}

func writeCounter(builder *strings.Builder, metric string, value uint64, labels map[string]string) {
	builder.WriteString(metric)
	writeLabels(builder, labels)
	builder.WriteByte(' ')
	builder.WriteString(strconv.FormatUint(value, 10))
	builder.WriteByte('\n')
}

func writeLabels(builder *strings.Builder, labels map[string]string) {
	if len(labels) == 0 {
		return
	}
	keys := make([]string, 0, len(labels))
	for key := range labels {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	builder.WriteByte('{')
	for idx, key := range keys {
		if idx > 0 {
			builder.WriteByte(',')
		}
		builder.WriteString(key)
		builder.WriteString("=\"")
		builder.WriteString(labels[key])
		builder.WriteByte('"')
	}
	builder.WriteByte('}')
}

func sortedStringKeysFromUintMap(items map[string]uint64) []string {
	keys := make([]string, 0, len(items))
	for key := range items {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func trimFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// ResetForTest 仅用于测试，避免跨用例污染。
func (c *Collector) ResetForTest() {
	if c == nil {
		return
	}
	c.matchTotal.Store(0)
	c.matchHitTotal.Store(0)
	c.matchRefinedTotal.Store(0)
	c.exactHitTotal.Store(0)
	c.statusTotal.Store(0)
	c.kbRemoteFailureTotal.Store(0)
	c.kbInvalidateTotal.Store(0)

	c.mu.Lock()
	c.kbSourceTotal = make(map[string]uint64)
	c.matchDuration = newHistogram([]float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250})
	c.kbFetchSec = newHistogram([]float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10})
	c.mu.Unlock()
}
