package metrics

import (
	"strings"
	"testing"
	"time"
)

func TestCollectorRenderPrometheus(t *testing.T) {
	c := NewCollector()
	c.ObserveMatch(false, 1, false, 2*time.Millisecond)
	c.ObserveMatch(true, 2, true, 3*time.Millisecond)
	c.IncStatus()
	c.IncKBSource("cache")
	c.IncKBRemoteFailure()
	c.IncKBInvalidate()
	c.ObserveKBFetch(120 * time.Millisecond)

	body := c.RenderPrometheus()
	wantLines := []string{
		"em_match_total 2",
		"em_match_hit_total 2",
		"em_match_refined_total 1",
		"em_match_exact_hit_total 1",
		"em_kb_status_total 1",
		"em_kb_remote_failure_total 1",
		"em_kb_invalidate_total 1",
		`em_kb_source_total{source="cache"} 1`,
		"em_match_duration_ms_count 2",
		"em_kb_fetch_duration_seconds_count 1",
	}
	for _, line := range wantLines {
		if !strings.Contains(body, line) {
			t.Fatalf("缺少指标行 %q:\n%s", line, body)
		}
	}
}

// 零流量时三个来源时序也必须存在，避免巡检误报
func TestCollectorRenderAlwaysEmitsSources(t *testing.T) {
	c := NewCollector()
	body := c.RenderPrometheus()
	for _, source := range []string{"cache", "remote", "bundled"} {
		want := `em_kb_source_total{source="` + source + `"} 0`
		if !strings.Contains(body, want) {
			t.Fatalf("缺少来源时序 %q:\n%s", want, body)
		}
	}
}

func TestCollectorResetForTest(t *testing.T) {
	c := NewCollector()
	c.ObserveMatch(false, 1, false, time.Millisecond)
	c.IncKBSource("remote")
	c.ResetForTest()

	body := c.RenderPrometheus()
	if !strings.Contains(body, "em_match_total 0") {
		t.Fatalf("重置后计数应归零:\n%s", body)
	}
	if !strings.Contains(body, `em_kb_source_total{source="remote"} 0`) {
		t.Fatalf("重置后来源计数应归零:\n%s", body)
	}
}

func TestCollectorNilSafety(t *testing.T) {
	var c *Collector
	c.ObserveMatch(true, 1, true, time.Millisecond)
	c.IncStatus()
	c.IncKBSource("cache")
	c.IncKBRemoteFailure()
	c.IncKBInvalidate()
	c.ObserveKBFetch(time.Millisecond)
	if c.RenderPrometheus() != "" {
		t.Fatalf("nil 收集器应输出空串")
	}
}
