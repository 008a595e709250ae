// 本文件用于定义配置与业务模型
package models

// Config 配置结构体
type Config struct {
	APIBind       string `yaml:"api_bind"` // API 服务监听地址
	LogLevel      string `yaml:"log_level"`
	LogFile       string `yaml:"log_file"`
	LogToStd      *bool  `yaml:"log_to_std"`
	LogShowCaller bool   `yaml:"log_show_caller"`

	KBRemoteEnabled bool   `yaml:"kb_remote_enabled"` // 是否允许远程拉取知识库
	KBRemoteKind    string `yaml:"kb_remote_kind"`    // http 或 oss
	KBRemoteURL     string `yaml:"kb_remote_url"`
	KBRemoteTimeout string `yaml:"kb_remote_timeout"`

	Bucket   string `yaml:"bucket"`
	AK       string `yaml:"ak"`
	SK       string `yaml:"sk"`
	Endpoint string `yaml:"endpoint"`
	KBObject string `yaml:"kb_object"` // OSS 上知识库文档的对象 Key

	KBCacheDir string `yaml:"kb_cache_dir"`
	KBCacheTTL string `yaml:"kb_cache_ttl"` // 缓存快照有效期，默认 30m
	KBFile     string `yaml:"kb_file"`      // 本地知识库文档路径，覆盖内置副本

	MatchLimit        int `yaml:"match_limit"`         // 基础匹配返回上限
	MatchLimitRefined int `yaml:"match_limit_refined"` // 精确匹配返回上限
}

// KBStatus 知识库当前可用来源的摘要
type KBStatus struct {
	Source    string `json:"kbSource"`
	UpdatedAt string `json:"kbUpdatedAt,omitempty"`
	Count     int    `json:"count"`
}

// HealthSnapshot 表示健康检查返回的运行指标
type HealthSnapshot struct {
	Hostname       string  `json:"hostname"`
	UptimeSec      uint64  `json:"uptimeSec"`
	CPUPercent     float64 `json:"cpuPercent"`
	MemUsedPercent float64 `json:"memUsedPercent"`
	ProcessRSS     uint64  `json:"processRss"`
	Goroutines     int     `json:"goroutines"`
}
