// Package background 负责获取背景 PDF，并借助 pdfcpu 将生成的文本层叠加到其第一页上。
package background

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrUnavailable 表示背景文档无法获取或无法解析。
var ErrUnavailable = errors.New("背景文档不可用")

const (
	DefaultTimeout  = 15 * time.Second
	DefaultMaxBytes = 32 << 20
)

var pdfMagic = []byte("%PDF-")

// Fetcher 按引用（URL 或路径）返回背景 PDF 的原始字节。
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// Source 通过 HTTP(S) 获取远程背景，其余引用按 BaseDir 下的本地路径读取。
type Source struct {
	Client   *http.Client
	BaseDir  string
	Timeout  time.Duration
	MaxBytes int64
	Logger   *zap.Logger
}

var _ Fetcher = (*Source)(nil)

// NewSource creates a Source with the package defaults applied.
func NewSource(baseDir string, timeout time.Duration, logger *zap.Logger) *Source {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{
		Client:   &http.Client{Timeout: timeout},
		BaseDir:  baseDir,
		Timeout:  timeout,
		MaxBytes: DefaultMaxBytes,
		Logger:   logger.Named("background"),
	}
}

// Fetch 获取背景文档。任何失败都包装 ErrUnavailable。
func (s *Source) Fetch(ctx context.Context, ref string) ([]byte, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: 引用为空", ErrUnavailable)
	}
	var (
		data []byte
		err  error
	)
	if IsRemote(ref) {
		data, err = s.fetchRemote(ctx, ref)
	} else {
		data, err = s.readLocal(ref)
	}
	if err != nil {
		s.logger().Warn("background fetch failed", zap.String("ref", ref), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), pdfMagic) {
		return nil, fmt.Errorf("%w: %s 不是 PDF 文档", ErrUnavailable, ref)
	}
	return data, nil
}

func (s *Source) fetchRemote(ctx context.Context, url string) ([]byte, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("构造请求失败: %w", err)
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求 %s 失败: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("请求 %s 返回状态 %d", url, resp.StatusCode)
	}
	return readLimited(resp.Body, s.maxBytes())
}

func (s *Source) readLocal(ref string) ([]byte, error) {
	path := ref
	if !filepath.IsAbs(path) {
		if s.BaseDir == "" {
			return nil, fmt.Errorf("未指定资源目录时不允许直接使用路径：%s", ref)
		}
		path = filepath.Join(s.BaseDir, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("读取背景 %s 失败: %w", ref, err)
	}
	defer f.Close()
	return readLimited(f, s.maxBytes())
}

func (s *Source) maxBytes() int64 {
	if s.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return s.MaxBytes
}

func (s *Source) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("读取背景内容失败: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("背景文档超过 %d 字节上限", limit)
	}
	return data, nil
}

// IsRemote 判断引用是否为 http(s) 地址。
func IsRemote(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Memo 在一次批量渲染内缓存背景文档，同一引用只获取一次；并发请求合并为一次。
// 失败结果同样被缓存，同一批次内不会重复请求不可用的背景。
type Memo struct {
	next  Fetcher
	group singleflight.Group

	mu    sync.Mutex
	items map[string]memoEntry
}

type memoEntry struct {
	data []byte
	err  error
}

// NewMemo wraps next with per-reference memoisation.
func NewMemo(next Fetcher) *Memo {
	return &Memo{next: next, items: map[string]memoEntry{}}
}

func (m *Memo) Fetch(ctx context.Context, ref string) ([]byte, error) {
	m.mu.Lock()
	entry, ok := m.items[ref]
	m.mu.Unlock()
	if ok {
		return entry.data, entry.err
	}
	v, err, _ := m.group.Do(ref, func() (any, error) {
		data, err := m.next.Fetch(ctx, ref)
		if err != nil && ctx.Err() != nil {
			// 调用方取消导致的失败不缓存
			return nil, err
		}
		m.mu.Lock()
		m.items[ref] = memoEntry{data: data, err: err}
		m.mu.Unlock()
		return data, err
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
