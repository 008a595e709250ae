// 本文件用于知识库构建 将逐条 YAML 源文件编译为校验过的 JSON 文档

// 文件职责：实现当前模块的核心业务逻辑与数据流转
// 关键路径：入口参数先校验再执行业务处理 最后返回统一结果
// 边界与容错：异常场景显式返回错误 由上层决定重试或降级

package kbbuild

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"

	"error-match/internal/kb"
)

// sourceEntry 单个 YAML 源文件的结构，与 kb.Entry 字段一一对应
type sourceEntry struct {
	ID        string   `yaml:"id"`
	Title     string   `yaml:"title"`
	Patterns  []string `yaml:"patterns"`
	Symptoms  string   `yaml:"symptoms"`
	RootCause string   `yaml:"rootCause"`
	FixSteps  []string `yaml:"fixSteps"`
	Links     []struct {
		Label string `yaml:"label"`
		URL   string `yaml:"url"`
	} `yaml:"links"`
	Tags []string `yaml:"tags"`
}

// BuildDir 读取目录下全部 YAML 源文件并编译为条目集合
// 文件按名称排序 决定知识库的稳定顺序（同分排序的打破依据）
// 任何源文件损坏都是致命错误 报错信息指明文件与字段 坏文档绝不出包
func BuildDir(srcDir string) ([]kb.Entry, error) {
	root := strings.TrimSpace(srcDir)
	if root == "" {
		return nil, fmt.Errorf("源目录不能为空")
	}
	files, err := collectSourceFiles(root)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("源目录没有 YAML 文件: %s", root)
	}

	entries := make([]kb.Entry, 0, len(files))
	seen := make(map[string]string, len(files)) // id -> 首次出现的文件
	for _, file := range files {
		entry, err := loadSourceFile(file)
		if err != nil {
			return nil, err
		}
		if err := kb.ValidateEntry(entry); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		if prev, ok := seen[entry.ID]; ok {
			return nil, fmt.Errorf("%s: duplicate entry id %q (first defined in %s)", file, entry.ID, prev)
		}
		seen[entry.ID] = file
		entries = append(entries, entry)
	}
	return entries, nil
}

// WriteArtifact 把编译结果序列化为 JSON 文档
func WriteArtifact(entries []kb.Entry, outPath string) error {
	if err := kb.ValidateEntries(entries); err != nil {
		return err
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化知识库文档失败: %w", err)
	}
	data = append(data, '\n')
	outDir := filepath.Dir(outPath)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("写入知识库文档失败: %w", err)
	}
	return nil
}

func collectSourceFiles(root string) ([]string, error) {
	dirEntries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("读取源目录失败: %w", err)
	}
	files := make([]string, 0, len(dirEntries))
	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(dirEntry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		files = append(files, filepath.Join(root, dirEntry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func loadSourceFile(path string) (kb.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return kb.Entry{}, fmt.Errorf("%s: read failed: %w", path, err)
	}
	var src sourceEntry
	if err := yaml.Unmarshal(data, &src); err != nil {
		return kb.Entry{}, fmt.Errorf("%s: yaml parse failed: %w", path, err)
	}
	entry := kb.Entry{
		ID:        src.ID,
		Title:     src.Title,
		Patterns:  src.Patterns,
		Symptoms:  src.Symptoms,
		RootCause: src.RootCause,
		FixSteps:  src.FixSteps,
		Tags:      src.Tags,
	}
	for _, link := range src.Links {
		entry.Links = append(entry.Links, kb.Link{Label: link.Label, URL: link.URL})
	}
	return kb.NormalizeEntry(entry), nil
}
