package kbstore

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"error-match/internal/kb"
)

func TestHTTPFetcherSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("期望 GET: got=%s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": "a", "title": "Invalid postal code for carrier", "patterns": ["invalid postcode"], "fixSteps": ["fix"]},
			{"id": "b", "title": "Missing house number in address", "patterns": ["house number"], "fixSteps": ["fix"]}
		]`))
	}))
	defer server.Close()

	fetcher, err := NewHTTPFetcher(server.URL, time.Second)
	if err != nil {
		t.Fatalf("创建拉取器失败: %v", err)
	}
	items, err := fetcher.Fetch(context.Background())
	if err != nil {
		t.Fatalf("拉取失败: %v", err)
	}
	if len(items) != 2 || items[0].ID != "a" {
		t.Fatalf("拉取内容不匹配: %+v", items)
	}
}

func TestHTTPFetcherNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	fetcher, err := NewHTTPFetcher(server.URL, time.Second)
	if err != nil {
		t.Fatalf("创建拉取器失败: %v", err)
	}
	if _, err := fetcher.Fetch(context.Background()); err == nil {
		t.Fatalf("非 2xx 应视为失败")
	}
}

// 空数组与解码失败同样视为拉取失败，由上层降级
func TestHTTPFetcherEmptyDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	fetcher, err := NewHTTPFetcher(server.URL, time.Second)
	if err != nil {
		t.Fatalf("创建拉取器失败: %v", err)
	}
	_, err = fetcher.Fetch(context.Background())
	if !errors.Is(err, kb.ErrEmptyDocument) {
		t.Fatalf("空文档应视为失败: got=%v", err)
	}
}

func TestHTTPFetcherBadPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not": "an array"}`))
	}))
	defer server.Close()

	fetcher, err := NewHTTPFetcher(server.URL, time.Second)
	if err != nil {
		t.Fatalf("创建拉取器失败: %v", err)
	}
	if _, err := fetcher.Fetch(context.Background()); err == nil {
		t.Fatalf("解码失败应视为失败")
	}
}

func TestNewHTTPFetcherEmptyURL(t *testing.T) {
	if _, err := NewHTTPFetcher("   ", time.Second); err == nil {
		t.Fatalf("空地址应报错")
	}
}

func TestNormalizeOSSEndpoint(t *testing.T) {
	cases := []struct {
		endpoint   string
		disableSSL bool
		want       string
		wantErr    bool
	}{
		{"oss-cn-hangzhou.aliyuncs.com", false, "https://oss-cn-hangzhou.aliyuncs.com", false},
		{"oss-cn-hangzhou.aliyuncs.com", true, "http://oss-cn-hangzhou.aliyuncs.com", false},
		{"https://oss-cn-hangzhou.aliyuncs.com", false, "https://oss-cn-hangzhou.aliyuncs.com", false},
		{"http://custom:9000", true, "http://custom:9000", false},
		{"", false, "", true},
		{"   ", false, "", true},
	}
	for _, tc := range cases {
		got, err := normalizeOSSEndpoint(tc.endpoint, tc.disableSSL)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("endpoint=%q 期望报错", tc.endpoint)
			}
			continue
		}
		if err != nil {
			t.Fatalf("endpoint=%q 不应报错: %v", tc.endpoint, err)
		}
		if got != tc.want {
			t.Fatalf("endpoint=%q: got=%q want=%q", tc.endpoint, got, tc.want)
		}
	}
}

func TestNewOSSFetcherMissingObject(t *testing.T) {
	_, err := NewOSSFetcher(OSSOptions{
		Endpoint: "oss-cn-hangzhou.aliyuncs.com",
		AK:       "ak",
		SK:       "sk",
		Bucket:   "bucket",
		Object:   "  ",
	})
	if err == nil {
		t.Fatalf("缺少对象 Key 应报错")
	}
}
