// 本文件用于内置知识库副本的加载
// 内置副本保证离线可用 是降级链的最后一环 永远不会失败

package kbstore

import (
	_ "embed"
	"os"
	"strings"
	"sync"

	"error-match/internal/kb"
	"error-match/internal/logger"
)

//go:embed kb.json
var bundledDocument []byte

var (
	bundledOnce  sync.Once
	bundledItems []kb.Entry
)

// BundledLoader 返回一个按配置解析内置副本的加载函数
// kbFile 配置了本地文档路径时优先读盘（运维可以直接替换文件热更新）
// 读盘或解码失败时回退随包内置的副本
func BundledLoader(kbFile string) func() []kb.Entry {
	path := strings.TrimSpace(kbFile)
	return func() []kb.Entry {
		if path != "" {
			if items, err := loadBundledFile(path); err != nil {
				logger.Warn("本地知识库文档不可用，回退内置副本: %v", err)
			} else {
				return items
			}
		}
		return embeddedItems()
	}
}

func loadBundledFile(path string) ([]kb.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	items, err := kb.DecodeEntries(data)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// embeddedItems 解析随包内置的文档，只解析一次
// 内置文档由构建步骤校验过，解析失败属于打包事故，返回空集而不是崩溃
func embeddedItems() []kb.Entry {
	bundledOnce.Do(func() {
		items, err := kb.DecodeEntries(bundledDocument)
		if err != nil {
			logger.Error("内置知识库文档解析失败: %v", err)
			items = []kb.Entry{}
		}
		bundledItems = items
	})
	return bundledItems
}
