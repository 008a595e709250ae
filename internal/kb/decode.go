// 本文件用于知识库文档解码与条目校验
// 远程与内置文档共用同一套 JSON 数组格式 这里统一归一化和约束检查

package kb

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeEntries 解析 JSON 数组格式的知识库文档
// 解码后做空白归一化并丢弃 url 为空的链接，空文档视为错误由上层降级
func DecodeEntries(raw []byte) ([]Entry, error) {
	var items []Entry
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("解析知识库文档失败: %w", err)
	}
	out := make([]Entry, 0, len(items))
	for _, item := range items {
		out = append(out, NormalizeEntry(item))
	}
	if len(out) == 0 {
		return nil, ErrEmptyDocument
	}
	return out, nil
}

// NormalizeEntry 对单条记录做空白归一化
func NormalizeEntry(entry Entry) Entry {
	entry.ID = strings.TrimSpace(entry.ID)
	entry.Title = strings.TrimSpace(entry.Title)
	entry.Symptoms = strings.TrimSpace(entry.Symptoms)
	entry.RootCause = strings.TrimSpace(entry.RootCause)
	entry.Patterns = trimNonEmpty(entry.Patterns)
	entry.FixSteps = trimNonEmpty(entry.FixSteps)
	entry.Tags = trimNonEmpty(entry.Tags)

	links := make([]Link, 0, len(entry.Links))
	for _, link := range entry.Links {
		url := strings.TrimSpace(link.URL)
		if url == "" {
			// url 为空的链接没有展示价值，直接丢弃
			continue
		}
		links = append(links, Link{
			Label: strings.TrimSpace(link.Label),
			URL:   url,
		})
	}
	entry.Links = links
	return entry
}

// ValidateEntry 校验单条记录的必填字段
func ValidateEntry(entry Entry) error {
	if entry.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidEntry)
	}
	if entry.Title == "" {
		return fmt.Errorf("%w: entry %q: title is required", ErrInvalidEntry, entry.ID)
	}
	if len(entry.Patterns) == 0 {
		return fmt.Errorf("%w: entry %q: patterns must not be empty", ErrInvalidEntry, entry.ID)
	}
	if len(entry.FixSteps) == 0 {
		return fmt.Errorf("%w: entry %q: fixSteps must not be empty", ErrInvalidEntry, entry.ID)
	}
	return nil
}

// ValidateEntries 校验整个集合，包括全局 id 唯一性
func ValidateEntries(items []Entry) error {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if err := ValidateEntry(item); err != nil {
			return err
		}
		if _, ok := seen[item.ID]; ok {
			return fmt.Errorf("%w: duplicate entry id %q", ErrInvalidEntry, item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	return nil
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
