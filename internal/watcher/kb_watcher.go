// 本文件用于本地知识库文档的变更监听
// 运维直接替换磁盘上的文档文件时 自动失效缓存槽位 下次查询重新解析

package watcher

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"error-match/internal/logger"
)

const debounceDuration = 500 * time.Millisecond // 编辑器保存常触发多次事件 去抖合并

// KBFileWatcher 监听知识库文档文件
type KBFileWatcher struct {
	watcher    *fsnotify.Watcher
	kbFile     string
	onChange   func()
	stateMutex sync.Mutex
	debounce   *time.Timer
	done       chan struct{}
}

// NewKBFileWatcher 创建文档监听器
// 监听所在目录而不是文件本身 避免原子替换（rename 后重建）丢失监听
func NewKBFileWatcher(kbFile string, onChange func()) (*KBFileWatcher, error) {
	path := strings.TrimSpace(kbFile)
	if path == "" {
		return nil, fmt.Errorf("知识库文档路径不能为空")
	}
	if onChange == nil {
		return nil, fmt.Errorf("变更回调不能为空")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &KBFileWatcher{
		watcher:  watcher,
		kbFile:   filepath.Clean(path),
		onChange: onChange,
		done:     make(chan struct{}),
	}, nil
}

// Start 启动监听
func (w *KBFileWatcher) Start() error {
	dir := filepath.Dir(w.kbFile)
	if err := w.watcher.Add(dir); err != nil {
		logger.Error("添加知识库文档监听失败: %v", err)
		return err
	}
	go w.handleEvents()
	logger.Info("知识库文档监听已启动: %s", w.kbFile)
	return nil
}

// Close 关闭监听器
func (w *KBFileWatcher) Close() error {
	if w == nil || w.watcher == nil {
		return nil
	}
	close(w.done)
	w.stateMutex.Lock()
	if w.debounce != nil {
		w.debounce.Stop()
		w.debounce = nil
	}
	w.stateMutex.Unlock()
	return w.watcher.Close()
}

func (w *KBFileWatcher) handleEvents() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("知识库文档监听错误: %v", err)
		case <-w.done:
			return
		}
	}
}

func (w *KBFileWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.kbFile {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	logger.Debug("收到知识库文档事件: %s, 操作: %s", event.Name, event.Op.String())

	w.stateMutex.Lock()
	defer w.stateMutex.Unlock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(debounceDuration, func() {
		logger.Info("知识库文档已更新，失效缓存: %s", w.kbFile)
		w.onChange()
	})
}
