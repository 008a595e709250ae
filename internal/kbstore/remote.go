// 本文件用于知识库文档的远程拉取
// 支持 HTTP GET 与 OSS GetObject 两种来源 失败语义一致：网络错误 非 2xx 解码失败 空结果都视为拉取失败

package kbstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	sdk "github.com/aliyun/aliyun-oss-go-sdk/oss"

	"error-match/internal/kb"
)

// Fetcher 抽象一次远程知识库文档拉取
type Fetcher interface {
	Fetch(ctx context.Context) ([]kb.Entry, error)
	Source() string
}

// HTTPFetcher 通过单个 GET 拉取 JSON 数组文档
type HTTPFetcher struct {
	url    string
	client *http.Client
}

// NewHTTPFetcher 创建 HTTP 拉取器
func NewHTTPFetcher(rawURL string, timeout time.Duration) (*HTTPFetcher, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return nil, fmt.Errorf("远程知识库地址不能为空")
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &HTTPFetcher{
		url:    trimmed,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// Fetch 拉取并解码远程文档
func (f *HTTPFetcher) Fetch(ctx context.Context) ([]kb.Entry, error) {
	if f == nil || f.client == nil {
		return nil, fmt.Errorf("http fetcher not ready")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("kb remote status %d", resp.StatusCode)
	}
	return kb.DecodeEntries(data)
}

// Source 返回来源描述，用于日志
func (f *HTTPFetcher) Source() string {
	if f == nil {
		return "http"
	}
	return "http " + f.url
}

// OSSFetcher 从 OSS Bucket 拉取知识库文档对象
type OSSFetcher struct {
	bucket *sdk.Bucket
	object string
}

// OSSOptions OSS 拉取器配置
type OSSOptions struct {
	Endpoint   string
	AK         string
	SK         string
	Bucket     string
	Object     string
	DisableSSL bool
}

// NewOSSFetcher 创建并初始化 OSS 拉取器
func NewOSSFetcher(opts OSSOptions) (*OSSFetcher, error) {
	endpoint, err := normalizeOSSEndpoint(opts.Endpoint, opts.DisableSSL)
	if err != nil {
		return nil, err
	}
	object := strings.TrimSpace(opts.Object)
	if object == "" {
		return nil, fmt.Errorf("OSS 对象 Key 不能为空")
	}
	client, err := sdk.New(endpoint, opts.AK, opts.SK)
	if err != nil {
		return nil, fmt.Errorf("创建OSS客户端失败: %w", err)
	}
	bucket, err := client.Bucket(opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("获取OSS Bucket失败: %w", err)
	}
	return &OSSFetcher{bucket: bucket, object: object}, nil
}

// Fetch 下载对象并解码
func (f *OSSFetcher) Fetch(ctx context.Context) ([]kb.Entry, error) {
	if f == nil || f.bucket == nil {
		return nil, fmt.Errorf("OSS Bucket未初始化")
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	body, err := f.bucket.GetObject(f.object)
	if err != nil {
		return nil, fmt.Errorf("OSS下载失败: %w", err)
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read object failed: %w", err)
	}
	return kb.DecodeEntries(data)
}

// Source 返回来源描述，用于日志
func (f *OSSFetcher) Source() string {
	if f == nil {
		return "oss"
	}
	return "oss " + f.object
}

// normalizeOSSEndpoint 用于统一 OSS Endpoint 格式
func normalizeOSSEndpoint(endpoint string, disableSSL bool) (string, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return "", fmt.Errorf("OSS Endpoint不能为空")
	}
	parsed, err := url.Parse(trimmed)
	if err == nil && parsed.Scheme != "" && parsed.Host != "" {
		return trimmed, nil
	}
	parsed, err = url.Parse("//" + trimmed)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("无效的 OSS Endpoint: %s", endpoint)
	}
	scheme := "https"
	if disableSSL {
		scheme = "http"
	}
	return scheme + "://" + parsed.Host + strings.TrimSuffix(parsed.Path, "/"), nil
}
