// 本文件用于程序启动入口
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"error-match/internal/api"
	"error-match/internal/config"
	"error-match/internal/kbstore"
	"error-match/internal/logger"
	"error-match/internal/models"
	"error-match/internal/service"
	"error-match/internal/sysinfo"
	"error-match/internal/watcher"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("程序退出: %v", err)
	}
}

func run() error {
	configPath := parseFlags()
	log.Printf("程序启动，配置文件: %s", configPath)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}

	if err := logger.InitLogger(cfg); err != nil {
		return err
	}
	defer logger.Close()

	logConfig(cfg)

	cache, err := kbstore.OpenCache(cfg.KBCacheDir)
	if err != nil {
		logger.Error("初始化知识库缓存失败: %v", err)
		return err
	}
	defer cache.Close()

	fetcher, err := buildFetcher(cfg)
	if err != nil {
		logger.Error("初始化远程知识库来源失败: %v", err)
		return err
	}

	store := kbstore.NewStore(kbstore.Options{
		Cache:   cache,
		Fetcher: fetcher,
		TTL:     config.CacheTTL(cfg),
		Bundled: kbstore.BundledLoader(cfg.KBFile),
	})

	kbWatcher, err := startKBWatcher(cfg, store)
	if err != nil {
		return err
	}

	querySvc := service.NewQueryService(store, cfg)
	apiServer := api.NewServer(cfg, querySvc, sysinfo.NewCollector())
	apiServer.Start()

	waitForShutdown(apiServer, kbWatcher)
	return nil
}

func parseFlags() string {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "配置文件路径")
	flag.Parse()
	return configPath
}

// buildFetcher 按配置装配远程来源，远程关闭时返回 nil
func buildFetcher(cfg *models.Config) (kbstore.Fetcher, error) {
	if !cfg.KBRemoteEnabled {
		return nil, nil
	}
	switch strings.TrimSpace(cfg.KBRemoteKind) {
	case "oss":
		return kbstore.NewOSSFetcher(kbstore.OSSOptions{
			Endpoint: cfg.Endpoint,
			AK:       cfg.AK,
			SK:       cfg.SK,
			Bucket:   cfg.Bucket,
			Object:   cfg.KBObject,
		})
	default:
		return kbstore.NewHTTPFetcher(cfg.KBRemoteURL, config.RemoteTimeout(cfg))
	}
}

func startKBWatcher(cfg *models.Config, store *kbstore.Store) (*watcher.KBFileWatcher, error) {
	if strings.TrimSpace(cfg.KBFile) == "" {
		return nil, nil
	}
	kbWatcher, err := watcher.NewKBFileWatcher(cfg.KBFile, func() {
		if err := store.Invalidate(); err != nil {
			logger.Warn("缓存失效失败: %v", err)
		}
	})
	if err != nil {
		logger.Error("创建知识库文档监听失败: %v", err)
		return nil, err
	}
	if err := kbWatcher.Start(); err != nil {
		return nil, err
	}
	return kbWatcher, nil
}

func logConfig(cfg *models.Config) {
	logger.Info("配置加载成功")
	logger.Info("API 监听地址: %s", cfg.APIBind)
	logger.Info("远程知识库: enabled=%v kind=%s", cfg.KBRemoteEnabled, cfg.KBRemoteKind)
	if cfg.KBRemoteEnabled && cfg.KBRemoteKind == "http" {
		logger.Info("远程知识库地址: %s", cfg.KBRemoteURL)
	}
	if cfg.KBRemoteEnabled && cfg.KBRemoteKind == "oss" {
		logger.Info("OSS Bucket: %s", cfg.Bucket)
		logger.Info("OSS Endpoint: %s", cfg.Endpoint)
		logger.Info("OSS 对象: %s", cfg.KBObject)
	}
	logger.Info("缓存目录: %s", cfg.KBCacheDir)
	logger.Info("缓存有效期: %s", cfg.KBCacheTTL)
	if strings.TrimSpace(cfg.KBFile) != "" {
		logger.Info("本地知识库文档: %s", cfg.KBFile)
	}
	logger.Info("日志级别: %s", cfg.LogLevel)
	if cfg.LogFile != "" {
		logger.Info("日志文件: %s", cfg.LogFile)
	}
	logger.Info("匹配返回上限: basic=%d refined=%d", cfg.MatchLimit, cfg.MatchLimitRefined)
}

func waitForShutdown(apiServer *api.Server, kbWatcher *watcher.KBFileWatcher) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	<-signalChan
	logger.Info("收到退出信号，正在关闭服务...")

	if kbWatcher != nil {
		if err := kbWatcher.Close(); err != nil {
			logger.Warn("关闭知识库文档监听失败: %v", err)
		}
	}
	if apiServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(ctx); err != nil {
			logger.Warn("关闭 API 服务失败: %v", err)
		}
	}

	logger.Info("程序已退出")
}
