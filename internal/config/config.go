package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"error-match/internal/models"
)

const (
	DefaultCacheTTL      = 30 * time.Minute
	DefaultRemoteTimeout = 8 * time.Second
)

// LoadConfig 加载配置文件
func LoadConfig(configFile string) (*models.Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %v", err)
	}

	var config models.Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %v", err)
	}

	// 设置默认值
	applyDefaults(&config)
	return &config, nil
}

func applyDefaults(config *models.Config) {
	if config.APIBind == "" {
		config.APIBind = ":8086"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.KBRemoteKind == "" {
		config.KBRemoteKind = "http"
	}
	if config.KBCacheDir == "" {
		config.KBCacheDir = "data/kbcache"
	}
	if config.KBCacheTTL == "" {
		config.KBCacheTTL = "30m"
	}
	if config.MatchLimit <= 0 {
		config.MatchLimit = 3
	}
	if config.MatchLimitRefined <= 0 {
		config.MatchLimitRefined = 5
	}
}

// ValidateConfig 验证配置
func ValidateConfig(config *models.Config) error {
	if strings.TrimSpace(config.APIBind) == "" {
		return fmt.Errorf("API 监听地址不能为空")
	}
	if _, err := time.ParseDuration(config.KBCacheTTL); err != nil {
		return fmt.Errorf("kb_cache_ttl 格式无效: %v", err)
	}
	if config.KBRemoteTimeout != "" {
		if _, err := time.ParseDuration(config.KBRemoteTimeout); err != nil {
			return fmt.Errorf("kb_remote_timeout 格式无效: %v", err)
		}
	}
	if !config.KBRemoteEnabled {
		return nil
	}
	switch strings.TrimSpace(config.KBRemoteKind) {
	case "http":
		if strings.TrimSpace(config.KBRemoteURL) == "" {
			return fmt.Errorf("kb_remote_url 不能为空")
		}
	case "oss":
		if config.Bucket == "" {
			return fmt.Errorf("OSS Bucket不能为空")
		}
		if config.AK == "" || config.SK == "" {
			return fmt.Errorf("OSS 认证信息不能为空")
		}
		if config.Endpoint == "" {
			return fmt.Errorf("OSS Endpoint不能为空")
		}
		if strings.TrimSpace(config.KBObject) == "" {
			return fmt.Errorf("kb_object 不能为空")
		}
	default:
		return fmt.Errorf("不支持的 kb_remote_kind: %s", config.KBRemoteKind)
	}
	return nil
}

// CacheTTL 解析缓存有效期，解析失败时回退默认值
func CacheTTL(config *models.Config) time.Duration {
	if config == nil {
		return DefaultCacheTTL
	}
	ttl, err := time.ParseDuration(strings.TrimSpace(config.KBCacheTTL))
	if err != nil || ttl <= 0 {
		return DefaultCacheTTL
	}
	return ttl
}

// RemoteTimeout 解析远程拉取超时，解析失败时回退默认值
func RemoteTimeout(config *models.Config) time.Duration {
	if config == nil {
		return DefaultRemoteTimeout
	}
	timeout, err := time.ParseDuration(strings.TrimSpace(config.KBRemoteTimeout))
	if err != nil || timeout <= 0 {
		return DefaultRemoteTimeout
	}
	return timeout
}
