// Package batch 将多位接收人的证书分别渲染，并打包为一个 ZIP 归档。
package batch

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ByLCY/certgen/background"
	"github.com/ByLCY/certgen/binding"
	"github.com/ByLCY/certgen/layout"
	"github.com/ByLCY/certgen/renderer"
)

const DefaultWorkers = 4

// ErrEmptyBatch 表示批次中没有任何接收人。
var ErrEmptyBatch = errors.New("批次为空")

// Failure 记录单个接收人的渲染失败，不影响批次中的其他接收人。
type Failure struct {
	Index       int    `json:"index"`
	RecipientID string `json:"recipientId"`
	Name        string `json:"name"`
	Reason      string `json:"reason"`
}

// Result 为批量渲染结果。Documents 与归档内条目均按接收人输入顺序排列。
type Result struct {
	Documents []renderer.Document
	Failures  []Failure
	Archive   []byte
}

// Options configures a Packager.
type Options struct {
	Renderer renderer.Renderer
	Fetcher  background.Fetcher // 非空且渲染器支持时，批次内按引用缓存背景
	Workers  int
	Logger   *zap.Logger
	Now      func() time.Time // 归档条目的修改时间
}

// Packager 并发渲染批次中的各个请求；各请求之间不共享可变状态。
type Packager struct {
	renderer renderer.Renderer
	fetcher  background.Fetcher
	workers  int
	log      *zap.Logger
	now      func() time.Time
}

type fetcherBinder interface {
	WithFetcher(background.Fetcher) renderer.Renderer
}

// NewPackager creates a Packager; Options.Renderer is required.
func NewPackager(opts Options) *Packager {
	p := &Packager{
		renderer: opts.Renderer,
		fetcher:  opts.Fetcher,
		workers:  opts.Workers,
		log:      opts.Logger,
		now:      opts.Now,
	}
	if p.workers <= 0 {
		p.workers = DefaultWorkers
	}
	if p.log == nil {
		p.log = zap.NewNop()
	}
	p.log = p.log.Named("batch")
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Render 使用同一版式、竞赛与背景为每位接收人渲染证书。
func (p *Packager) Render(ctx context.Context, l *layout.Layout, contest *binding.Contest, recipients []binding.Recipient, backgroundRef string) (*Result, error) {
	reqs := make([]renderer.Request, len(recipients))
	for i, rec := range recipients {
		reqs[i] = renderer.Request{
			Layout:     l,
			Contest:    contest,
			Recipient:  rec,
			Background: backgroundRef,
		}
	}
	return p.RenderAll(ctx, reqs)
}

type outcome struct {
	doc *renderer.Document
	err error
}

// RenderAll 渲染全部请求后再统一打包。单个请求失败只记入 Failures；
// 仅当批次为空或 ctx 被取消时返回错误。
func (p *Packager) RenderAll(ctx context.Context, reqs []renderer.Request) (*Result, error) {
	if len(reqs) == 0 {
		return nil, ErrEmptyBatch
	}
	if p.renderer == nil {
		return nil, fmt.Errorf("batch: 缺少渲染器")
	}
	r := p.renderer
	if binder, ok := r.(fetcherBinder); ok && p.fetcher != nil {
		r = binder.WithFetcher(background.NewMemo(p.fetcher))
	}

	outcomes := make([]outcome, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, req := range reqs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			doc, err := r.Render(gctx, req)
			outcomes[i] = outcome{doc: doc, err: err}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{}
	names := newNameSet()
	for i, o := range outcomes {
		rec := reqs[i].Recipient
		if o.err != nil || o.doc == nil {
			reason := "未生成文档"
			if o.err != nil {
				reason = o.err.Error()
			}
			f := Failure{Index: i, RecipientID: recipientID(rec, i), Name: rec.Name, Reason: reason}
			p.log.Warn("certificate render failed",
				zap.String("recipient_id", f.RecipientID),
				zap.String("name", f.Name),
				zap.String("reason", reason))
			res.Failures = append(res.Failures, f)
			continue
		}
		res.Documents = append(res.Documents, renderer.Document{
			Filename: names.claim(o.doc.Filename),
			Bytes:    o.doc.Bytes,
		})
	}

	archive, err := p.archive(res.Documents)
	if err != nil {
		return nil, err
	}
	res.Archive = archive
	p.log.Info("batch rendered",
		zap.Int("requested", len(reqs)),
		zap.Int("rendered", len(res.Documents)),
		zap.Int("failed", len(res.Failures)))
	return res, nil
}

// archive 以 Deflate 压缩写入全部文档。
func (p *Packager) archive(docs []renderer.Document) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	modified := p.now()
	for _, doc := range docs {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     doc.Filename,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return nil, fmt.Errorf("写入归档条目 %s 失败: %w", doc.Filename, err)
		}
		if _, err := w.Write(doc.Bytes); err != nil {
			return nil, fmt.Errorf("写入归档条目 %s 失败: %w", doc.Filename, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("关闭归档失败: %w", err)
	}
	return buf.Bytes(), nil
}

func recipientID(r binding.Recipient, index int) string {
	if id := strings.TrimSpace(r.ID); id != "" {
		return id
	}
	return fmt.Sprintf("#%d", index+1)
}

// nameSet 为重复的文件名追加 -2、-3 等后缀。
type nameSet map[string]bool

func newNameSet() nameSet { return nameSet{} }

func (s nameSet) claim(name string) string {
	if name == "" {
		name = "certificado.pdf"
	}
	candidate := name
	if s[candidate] {
		base := strings.TrimSuffix(name, ".pdf")
		for n := 2; ; n++ {
			candidate = fmt.Sprintf("%s-%d.pdf", base, n)
			if !s[candidate] {
				break
			}
		}
	}
	s[candidate] = true
	return candidate
}
