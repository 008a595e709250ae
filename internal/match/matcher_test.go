package match

import (
	"reflect"
	"testing"

	"error-match/internal/kb"
)

func entryWith(id, title string, patterns ...string) kb.Entry {
	return kb.Entry{
		ID:       id,
		Title:    title,
		Patterns: patterns,
		FixSteps: []string{"do something"},
	}
}

// 覆盖正则命中档位：模式命中得 0.95 且压过关键词档
func TestRankPatternHit(t *testing.T) {
	items := []kb.Entry{
		entryWith("invalid_postcode", "Invalid postal code for carrier", "invalid postcode"),
	}
	results := Rank("SendCloud label creation failed: invalid postcode", items, Options{})
	if len(results) != 1 {
		t.Fatalf("期望 1 条结果: got=%d", len(results))
	}
	if results[0].Score != 0.95 {
		t.Fatalf("期望正则命中得分 0.95: got=%v", results[0].Score)
	}
}

func TestRankPatternCaseInsensitive(t *testing.T) {
	items := []kb.Entry{
		entryWith("label_error", "Shipping label generation failed", "label error"),
	}
	results := Rank("LABEL ERROR occurred while printing", items, Options{})
	if len(results) != 1 || results[0].Score != 0.95 {
		t.Fatalf("期望忽略大小写命中: got=%+v", results)
	}
}

// 通配模式不携带信息量，永远不算命中
func TestRankWildcardPatternIgnored(t *testing.T) {
	items := []kb.Entry{
		entryWith("catch_all", "Fallback troubleshooting entry", ".*", "^.*$", "  "),
	}
	results := Rank("some random failure text", items, Options{})
	if len(results) != 0 {
		t.Fatalf("期望通配模式不命中: got=%+v", results)
	}
}

// 非法正则按未命中处理，不影响同条目的其余模式
func TestRankMalformedPatternSkipped(t *testing.T) {
	items := []kb.Entry{
		entryWith("mixed_patterns", "Shipping label generation failed", "([", "label error"),
	}
	results := Rank("got label error from carrier api", items, Options{})
	if len(results) != 1 || results[0].Score != 0.95 {
		t.Fatalf("期望跳过坏模式并命中好模式: got=%+v", results)
	}
}

func TestRankTitleContainment(t *testing.T) {
	items := []kb.Entry{
		entryWith("house_number", "Missing house number", "no_such_pattern_xyz"),
	}
	results := Rank("order rejected:   MISSING   house number in address", items, Options{})
	if len(results) != 1 {
		t.Fatalf("期望标题包含命中: got=%+v", results)
	}
	if results[0].Score != 0.85 {
		t.Fatalf("期望标题包含得分 0.85: got=%v", results[0].Score)
	}
}

// 关键词档：一次命中约 0.63 两次命中约 0.71
// 得分是浮点加法的结果 断言用误差容忍而不是字面量相等
func TestRankKeywordOverlap(t *testing.T) {
	single := []kb.Entry{
		entryWith("addr_missing", "Address missing", "no_such_pattern_xyz"),
	}
	results := Rank("the address is wrong", single, Options{})
	if len(results) != 1 {
		t.Fatalf("期望单词命中: got=%+v", results)
	}
	assertScoreNear(t, results[0].Score, scoreKeywordBase+1*scoreKeywordStep)

	double := []kb.Entry{
		entryWith("addr_postcode", "Address postcode validation", "no_such_pattern_xyz"),
	}
	results = Rank("carrier rejected the address and postcode fields", double, Options{})
	if len(results) != 1 {
		t.Fatalf("期望双词命中: got=%+v", results)
	}
	assertScoreNear(t, results[0].Score, scoreKeywordBase+2*scoreKeywordStep)
}

// 关键词收益封顶：命中再多也不超过 base+cap
func TestRankKeywordOverlapCapped(t *testing.T) {
	items := []kb.Entry{
		entryWith("many_hits", "Address postcode city country carrier parcel", "no_such_pattern_xyz"),
	}
	results := Rank("address postcode city country carrier parcel all wrong", items, Options{})
	if len(results) != 1 {
		t.Fatalf("期望关键词命中: got=%+v", results)
	}
	assertScoreNear(t, results[0].Score, scoreKeywordBase+scoreKeywordCap)
}

func assertScoreNear(t *testing.T, got, want float64) {
	t.Helper()
	const epsilon = 1e-9
	diff := got - want
	if diff < -epsilon || diff > epsilon {
		t.Fatalf("得分不匹配: got=%v want=%v", got, want)
	}
}

func TestRankKeywordNoOverlap(t *testing.T) {
	items := []kb.Entry{
		entryWith("addr_missing", "Address missing", "no_such_pattern_xyz"),
	}
	results := Rank("database connection refused", items, Options{})
	if len(results) != 0 {
		t.Fatalf("期望零分结果被丢弃: got=%+v", results)
	}
}

// 精确档位：标题足够具体且互为包含时短路返回满分，模糊候选一律抑制
func TestRankExactShortCircuit(t *testing.T) {
	items := []kb.Entry{
		entryWith("exact_hit", "Invalid postal code for carrier", "no_such_pattern_xyz"),
		entryWith("fuzzy_hit", "Parcel weight exceeded for service", "postal"),
	}
	results := Rank("invalid postal code for carrier: NL-1234", items, Options{ExactShortCircuit: true})
	if len(results) != 1 {
		t.Fatalf("期望精确命中抑制模糊候选: got=%+v", results)
	}
	if results[0].Entry.ID != "exact_hit" || results[0].Score != 1.0 {
		t.Fatalf("期望 exact_hit 满分: got=%+v", results[0])
	}
}

// 短标题不够具体，不允许精确命中
func TestRankShortTitleNoExact(t *testing.T) {
	items := []kb.Entry{
		entryWith("timeout", "Timeout", "no_such_pattern_xyz"),
	}
	results := Rank("timeout", items, Options{ExactShortCircuit: true})
	for _, result := range results {
		if result.Score >= 1.0 {
			t.Fatalf("短标题不应精确命中: got=%+v", result)
		}
	}
}

// 基础档位没有精确档，同样的输入只走模糊打分
func TestRankBasicTierNoExact(t *testing.T) {
	items := []kb.Entry{
		entryWith("exact_hit", "Invalid postal code for carrier", "no_such_pattern_xyz"),
	}
	results := Rank("invalid postal code for carrier", items, Options{ExactShortCircuit: false})
	if len(results) != 1 {
		t.Fatalf("期望标题包含命中: got=%+v", results)
	}
	if results[0].Score != 0.85 {
		t.Fatalf("基础档位不应出现满分: got=%v", results[0].Score)
	}
}

func TestRankEmptyTextNoMatches(t *testing.T) {
	items := []kb.Entry{
		entryWith("any", "Invalid postal code for carrier", ".+"),
	}
	for _, opts := range []Options{{}, {ExactShortCircuit: true}} {
		results := Rank("   \t  ", items, opts)
		if len(results) != 0 {
			t.Fatalf("空文本不应产生结果: opts=%+v got=%+v", opts, results)
		}
	}
}

// 截断到档位上限，得分非增，同分保持知识库原始顺序
func TestRankLimitAndOrdering(t *testing.T) {
	items := []kb.Entry{
		entryWith("a", "Entry A title", "boom"),
		entryWith("b", "Entry B title", "boom"),
		entryWith("c", "Entry C title", "boom"),
		entryWith("d", "Entry D title", "boom"),
		entryWith("e", "Entry E title", "boom"),
	}
	results := Rank("boom happened", items, Options{Limit: 3})
	if len(results) != 3 {
		t.Fatalf("期望截断到 3 条: got=%d", len(results))
	}
	wantOrder := []string{"a", "b", "c"}
	for idx, result := range results {
		if result.Entry.ID != wantOrder[idx] {
			t.Fatalf("同分顺序漂移: got=%s want=%s", result.Entry.ID, wantOrder[idx])
		}
		if result.Score <= 0 || result.Score > 1 {
			t.Fatalf("得分越界: %v", result.Score)
		}
		if idx > 0 && results[idx-1].Score < result.Score {
			t.Fatalf("得分不是非增序: %+v", results)
		}
	}
}

// 编译结果进程级复用：同一模式第二次拿到同一实例 坏模式稳定返回 nil
func TestCompilePatternCached(t *testing.T) {
	first := compilePattern("carrier rejected order [0-9]+")
	if first == nil {
		t.Fatalf("合法模式编译不应失败")
	}
	second := compilePattern("carrier rejected order [0-9]+")
	if first != second {
		t.Fatalf("期望复用编译结果: first=%p second=%p", first, second)
	}
	if compilePattern("([") != nil {
		t.Fatalf("坏模式应返回 nil")
	}
	if compilePattern("([") != nil {
		t.Fatalf("坏模式缓存后仍应返回 nil")
	}
}

// 缓存不改变匹配语义：重复请求结果一致
func TestRankRepeatedRequestsStable(t *testing.T) {
	items := []kb.Entry{
		entryWith("repeat", "Shipping label generation failed", "label error"),
	}
	for i := 0; i < 3; i++ {
		results := Rank("got label error from carrier api", items, Options{})
		if len(results) != 1 || results[0].Score != 0.95 {
			t.Fatalf("第 %d 次匹配结果漂移: %+v", i+1, results)
		}
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize("  Foo \t  BAR\nbaz  ")
	if got != "foo bar baz" {
		t.Fatalf("归一化不匹配: got=%q", got)
	}
	if Normalize("   ") != "" {
		t.Fatalf("纯空白应归一化为空串")
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("carrier_code: DPD-4!")
	want := []string{"carrier_code", "carrier", "code", "dpd", "4"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("分词不匹配: got=%v want=%v", got, want)
	}
	if Tokenize("") != nil {
		t.Fatalf("空串应返回 nil")
	}
}
