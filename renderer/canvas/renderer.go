package canvasrenderer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"
	"strings"
	"time"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"go.uber.org/zap"

	"github.com/ByLCY/certgen/background"
	"github.com/ByLCY/certgen/binding"
	"github.com/ByLCY/certgen/layout"
	"github.com/ByLCY/certgen/renderer"
)

const defaultCreator = "certgen"

// Renderer composes certificates via github.com/tdewolff/canvas, optionally on top of
// the first page of a background PDF.
type Renderer struct {
	fetcher background.Fetcher
	log     *zap.Logger
	now     func() time.Time
	creator string
}

var _ renderer.Renderer = (*Renderer)(nil)

// Options configures the canvas renderer.
type Options struct {
	Fetcher background.Fetcher // 为空时使用默认的 background.Source
	Logger  *zap.Logger
	Now     func() time.Time // 用于 {{FECHA}}，默认 time.Now
	Creator string           // PDF 元信息中的 Creator
}

// NewRenderer creates a renderer with the given options.
func NewRenderer(opts Options) *Renderer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = background.NewSource("", background.DefaultTimeout, logger)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	creator := opts.Creator
	if creator == "" {
		creator = defaultCreator
	}
	return &Renderer{
		fetcher: fetcher,
		log:     logger.Named("renderer"),
		now:     now,
		creator: creator,
	}
}

// WithFetcher 返回共享其余配置、但使用另一 Fetcher 的渲染器（例如批量渲染时的缓存）。
func (r *Renderer) WithFetcher(f background.Fetcher) renderer.Renderer {
	clone := *r
	clone.fetcher = f
	return &clone
}

// Render 渲染一份证书。
func (r *Renderer) Render(ctx context.Context, req renderer.Request) (*renderer.Document, error) {
	doc, _, err := r.RenderDebug(ctx, req)
	return doc, err
}

// RenderDebug 与 Render 相同，另外返回各文本框的排版结果。
// 流程：获取画布 → 解析 token → 绘制文本框 → 序列化。任一步失败都不会返回部分文档。
func (r *Renderer) RenderDebug(ctx context.Context, req renderer.Request) (*renderer.Document, *layout.PageDebug, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	width, height := req.Layout.Width, req.Layout.Height
	var page *background.Page
	if ref := strings.TrimSpace(req.Background); ref != "" {
		var err error
		page, err = r.acquireBackground(ctx, ref)
		if err != nil {
			return nil, nil, err
		}
		width, height = page.Width, page.Height
	}

	tokens := binding.Resolve(req.Layout, req.Contest, req.Recipient, r.now())

	cache := newFontCache()
	plans, err := planBoxes(req.Layout, tokens, height, cache)
	if err != nil {
		return nil, nil, err
	}

	out, err := r.drawLayer(plans, width, height, r.documentInfo(req))
	if err != nil {
		return nil, nil, err
	}
	if page != nil {
		if out, err = background.Stamp(page, out); err != nil {
			return nil, nil, err
		}
	}

	debug := &layout.PageDebug{Width: width, Height: height, Boxes: make([]layout.BoxDebug, 0, len(plans))}
	for _, p := range plans {
		debug.Boxes = append(debug.Boxes, p.BoxDebug)
	}
	r.log.Debug("certificate rendered",
		zap.String("recipient", req.Recipient.Name),
		zap.Int("boxes", len(plans)),
		zap.Int("bytes", len(out)))
	return &renderer.Document{Filename: renderer.SuggestFilename(req.Recipient), Bytes: out}, debug, nil
}

func (r *Renderer) acquireBackground(ctx context.Context, ref string) (*background.Page, error) {
	src, err := r.fetcher.Fetch(ctx, ref)
	if err != nil {
		if !errors.Is(err, background.ErrUnavailable) {
			err = fmt.Errorf("%w: %v", background.ErrUnavailable, err)
		}
		return nil, fmt.Errorf("获取背景 %s 失败: %w", ref, err)
	}
	page, err := background.FirstPage(src)
	if err != nil {
		return nil, fmt.Errorf("背景 %s: %w", ref, err)
	}
	return page, nil
}

type boxPlan struct {
	layout.BoxDebug
	family *canvas.FontFamily
}

// planBoxes 为每个值非空的文本框选择字体、折行并定位；值为空的文本框直接跳过。
func planBoxes(l *layout.Layout, tokens binding.TokenMap, pageHeight float64, cache *fontCache) ([]boxPlan, error) {
	var plans []boxPlan
	for _, token := range l.Tokens() {
		box := l.Boxes[token]
		box.Color = box.Color.OrDefault()
		value := tokens.Get(token)
		if strings.TrimSpace(value) == "" || box.FontSize <= 0 {
			continue
		}
		family, err := cache.get(box.FontFamily, box.Bold)
		if err != nil {
			return nil, err
		}
		m := newMeasurer(family)
		lines := layout.Wrap(value, box.W, m, box.FontSize)
		plans = append(plans, boxPlan{
			BoxDebug: layout.BoxDebug{
				Token: token,
				Value: value,
				Box:   box,
				Lines: layout.Place(box, lines, m, pageHeight),
			},
			family: family,
		})
	}
	return plans, nil
}

type documentInfo struct {
	title, subject, keywords, author, creator string
}

func (r *Renderer) documentInfo(req renderer.Request) documentInfo {
	info := documentInfo{author: req.Recipient.Name, creator: r.creator}
	if req.Contest != nil {
		info.title = req.Contest.Name
		info.subject = req.Contest.Category
	}
	if info.title == "" {
		info.title = req.Layout.Name
	}
	return info
}

// drawLayer 在左下角为原点的坐标系中绘制所有行，输出单页 PDF。
func (r *Renderer) drawLayer(plans []boxPlan, width, height float64, info documentInfo) ([]byte, error) {
	var buf bytes.Buffer
	writer := pdf.New(&buf, toMm(width), toMm(height), nil)
	writer.SetInfo(info.title, info.subject, info.keywords, info.author, info.creator)

	c := canvas.New(toMm(width), toMm(height))
	ctx := canvas.NewContext(c)
	for _, p := range plans {
		face := p.family.Face(p.Box.FontSize, colorFromLayout(p.Box.Color), canvas.FontRegular, canvas.FontNormal)
		for _, line := range p.Lines {
			ctx.DrawText(toMm(line.X), toMm(line.Y), canvas.NewTextLine(face, line.Text, canvas.Left))
		}
	}
	c.RenderTo(writer)

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(c.R, c.G, c.B, 1.0)
}

// toMm 将点(pt)转换为毫米(mm)。
func toMm(pt float64) float64 { return pt * layout.PtToMm }
