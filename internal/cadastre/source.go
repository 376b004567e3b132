package cadastre

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

// Source：地块数据的一次性读取入口（本地文件或 HTTP GET）
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	String() string
}

// FileSource：从本地路径读取静态文件
type FileSource struct {
	Path string
}

func (s FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(s.Path)
}

func (s FileSource) String() string { return "file:" + s.Path }

// 文档注释：HTTP 数据源
// 背景：前端原本直接请求静态路径；服务端同样只做一次简单 GET，无参数无分页。
// 约束：非 2xx 视为失败；响应体上限 MaxBytes（默认 512MiB）防止异常大文件占满内存。
type HTTPSource struct {
	URL      string
	Client   *http.Client
	MaxBytes int64
}

func (s HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/geo+json, application/json")
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s: status %d", s.URL, resp.StatusCode)
	}
	limit := s.MaxBytes
	if limit <= 0 {
		limit = 512 << 20
	}
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}

func (s HTTPSource) String() string { return "http:" + s.URL }

// BytesSource：内存数据源，测试与内嵌数据使用
type BytesSource []byte

func (s BytesSource) Fetch(ctx context.Context) ([]byte, error) { return s, ctx.Err() }

func (s BytesSource) String() string { return "bytes" }

// SourceFunc：函数适配器
type SourceFunc func(ctx context.Context) ([]byte, error)

func (f SourceFunc) Fetch(ctx context.Context) ([]byte, error) { return f(ctx) }

func (f SourceFunc) String() string { return "func" }

// NewSource：按配置选择数据源，URL 优先于本地路径
func NewSource(url, path string) Source {
	if url != "" {
		return HTTPSource{URL: url}
	}
	return FileSource{Path: path}
}
