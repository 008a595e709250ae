// 本文件用于匹配质量评估命令入口 将命中率评估集中到一个 CLI 便于回归复用

// 文件职责：实现当前模块的核心业务逻辑与数据流转
// 关键路径：入口参数先校验再执行业务处理 最后返回统一结果
// 边界与容错：异常场景显式返回错误 由上层决定重试或降级

package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

type hitrateSample struct {
	ErrorText string   `json:"errorText"`
	ExpectAny []string `json:"expectAny"` // 命中其中任意一个条目 id 即算命中
}

type matchResponse struct {
	OK      bool `json:"ok"`
	Matches []struct {
		Item struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"item"`
		Score float64 `json:"score"`
	} `json:"matches"`
	KBSource string `json:"kbSource"`
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "hitrate":
		if err := runHitrate(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "hitrate failed: %v\n", err)
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  kb-eval hitrate -base http://localhost:8086 -samples samples.json [-refined]")
}

func runHitrate(args []string) error {
	fs := flag.NewFlagSet("hitrate", flag.ContinueOnError)
	baseURL := fs.String("base", "http://localhost:8086", "api base url")
	samplesPath := fs.String("samples", "samples.json", "samples json path")
	refined := fs.Bool("refined", false, "use refined match endpoint")
	timeoutSec := fs.Int("timeout", 8, "request timeout seconds")
	if err := fs.Parse(args); err != nil {
		return err
	}
	raw, err := os.ReadFile(*samplesPath)
	if err != nil {
		return fmt.Errorf("read samples failed: %w", err)
	}
	var samples []hitrateSample
	if err := json.Unmarshal(raw, &samples); err != nil {
		return fmt.Errorf("parse samples failed: %w", err)
	}
	if len(samples) == 0 {
		return fmt.Errorf("samples is empty")
	}

	endpoint := strings.TrimRight(*baseURL, "/") + "/api/match"
	if *refined {
		endpoint += "/refined"
	}
	client := &http.Client{Timeout: time.Duration(*timeoutSec) * time.Second}
	hit := 0
	for i, sample := range samples {
		ok, candidates, err := evaluateSample(client, endpoint, sample)
		if err != nil {
			return fmt.Errorf("sample %d failed: %w", i+1, err)
		}
		if ok {
			hit++
		}
		fmt.Printf("[%02d] %s => %s\n", i+1, sample.ErrorText, boolLabel(ok))
		if len(candidates) > 0 {
			fmt.Printf("     candidates: %s\n", strings.Join(candidates, " | "))
		}
	}
	ratio := float64(hit) / float64(len(samples))
	fmt.Printf("\nHitrate: %d/%d = %.2f%%\n", hit, len(samples), ratio*100)
	return nil
}

func evaluateSample(client *http.Client, endpoint string, sample hitrateSample) (bool, []string, error) {
	body, err := json.Marshal(map[string]string{"errorText": sample.ErrorText})
	if err != nil {
		return false, nil, err
	}
	resp, err := client.Post(endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return false, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return false, nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	var parsed matchResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return false, nil, err
	}
	expected := make(map[string]struct{}, len(sample.ExpectAny))
	for _, id := range sample.ExpectAny {
		expected[strings.TrimSpace(id)] = struct{}{}
	}
	candidates := make([]string, 0, len(parsed.Matches))
	hit := false
	for _, m := range parsed.Matches {
		candidates = append(candidates, fmt.Sprintf("%s (%.2f)", m.Item.ID, m.Score))
		if _, ok := expected[m.Item.ID]; ok {
			hit = true
		}
	}
	return hit, candidates, nil
}

func boolLabel(ok bool) string {
	if ok {
		return "HIT"
	}
	return "MISS"
}
