package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ByLCY/certgen/background"
	"github.com/ByLCY/certgen/batch"
	"github.com/ByLCY/certgen/binding"
	"github.com/ByLCY/certgen/dsl"
	"github.com/ByLCY/certgen/layout"
	"github.com/ByLCY/certgen/renderer"
	canvasrenderer "github.com/ByLCY/certgen/renderer/canvas"
)

type options struct {
	layoutPath     string
	recipientsPath string
	contest        string
	category       string
	background     string
	outputPath     string
	debugPath      string
	workers        int
	timeout        time.Duration
	verbose        bool
}

func main() {
	var opts options
	flag.StringVar(&opts.layoutPath, "layout", "examples/diploma.papyrus", "版式文件路径（DSL 或 JSON）")
	flag.StringVar(&opts.recipientsPath, "recipients", "examples/recipients.json", "接收人 JSON 数组文件")
	flag.StringVar(&opts.contest, "contest", "", "竞赛名称")
	flag.StringVar(&opts.category, "category", "", "竞赛类别")
	flag.StringVar(&opts.background, "background", "", "背景 PDF（本地路径或 http(s) 地址）")
	flag.StringVar(&opts.outputPath, "out", "output/certificados.zip", "输出路径：.pdf 仅渲染第一位接收人，.zip 渲染全部")
	flag.StringVar(&opts.debugPath, "debug", "", "排版调试 JSON 输出路径（仅 .pdf 输出）")
	flag.IntVar(&opts.workers, "workers", batch.DefaultWorkers, "批量渲染并发数")
	flag.DurationVar(&opts.timeout, "timeout", background.DefaultTimeout, "背景下载超时")
	flag.BoolVar(&opts.verbose, "v", false, "输出详细日志")
	flag.Parse()

	logger, err := newLogger(opts.verbose)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer logger.Sync()

	if err := run(context.Background(), opts, logger); err != nil {
		log.Fatalf("生成证书失败: %v", err)
	}
	fmt.Printf("已生成：%s\n", opts.outputPath)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}

// run 串联版式读取、接收人读取与渲染。
func run(ctx context.Context, opts options, logger *zap.Logger) error {
	l, err := loadLayout(opts.layoutPath)
	if err != nil {
		return err
	}
	recipients, err := loadRecipients(opts.recipientsPath)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		return fmt.Errorf("接收人列表为空")
	}
	contest := &binding.Contest{Name: opts.contest, Category: opts.category}

	// 本地背景路径相对于版式文件所在目录解析
	source := background.NewSource(filepath.Dir(opts.layoutPath), opts.timeout, logger)
	r := canvasrenderer.NewRenderer(canvasrenderer.Options{Fetcher: source, Logger: logger})

	if err := os.MkdirAll(filepath.Dir(opts.outputPath), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}

	switch strings.ToLower(filepath.Ext(opts.outputPath)) {
	case ".pdf":
		return renderSingle(ctx, r, renderer.Request{
			Layout:     l,
			Contest:    contest,
			Recipient:  recipients[0],
			Background: opts.background,
		}, opts.outputPath, opts.debugPath)
	case ".zip":
		p := batch.NewPackager(batch.Options{
			Renderer: r,
			Fetcher:  source,
			Workers:  opts.workers,
			Logger:   logger,
		})
		res, err := p.Render(ctx, l, contest, recipients, opts.background)
		if err != nil {
			return fmt.Errorf("批量渲染失败: %w", err)
		}
		for _, f := range res.Failures {
			fmt.Fprintf(os.Stderr, "跳过 %s（%s）: %s\n", f.RecipientID, f.Name, f.Reason)
		}
		if len(res.Documents) == 0 {
			return fmt.Errorf("没有任何证书渲染成功")
		}
		if err := os.WriteFile(opts.outputPath, res.Archive, 0o644); err != nil {
			return fmt.Errorf("写入归档失败: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("不支持的输出格式 %s，请使用 .pdf 或 .zip", opts.outputPath)
	}
}

func renderSingle(ctx context.Context, r *canvasrenderer.Renderer, req renderer.Request, outputPath, debugPath string) error {
	doc, debug, err := r.RenderDebug(ctx, req)
	if err != nil {
		return fmt.Errorf("渲染 PDF 失败: %w", err)
	}
	if debugPath != "" {
		if err := writeDebug(debug, debugPath); err != nil {
			return err
		}
	}
	if err := os.WriteFile(outputPath, doc.Bytes, 0o644); err != nil {
		return fmt.Errorf("写入 PDF 文件失败: %w", err)
	}
	return nil
}

// loadLayout 按扩展名读取 JSON 版式或 DSL 版式。
func loadLayout(path string) (*layout.Layout, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开版式文件 %s: %w", path, err)
	}
	defer file.Close()

	var l *layout.Layout
	if strings.EqualFold(filepath.Ext(path), ".json") {
		l = &layout.Layout{}
		if err := json.NewDecoder(file).Decode(l); err != nil {
			return nil, fmt.Errorf("解析版式 JSON 失败: %w", err)
		}
	} else {
		doc, err := dsl.Parse(file)
		if err != nil {
			return nil, fmt.Errorf("解析 DSL 失败: %w", err)
		}
		if l, err = layout.FromDSL(doc); err != nil {
			return nil, fmt.Errorf("版式转换失败: %w", err)
		}
	}
	l.Normalize()
	return l, nil
}

func loadRecipients(path string) ([]binding.Recipient, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取接收人文件 %s: %w", path, err)
	}
	var recipients []binding.Recipient
	if err := json.Unmarshal(data, &recipients); err != nil {
		return nil, fmt.Errorf("解析接收人 JSON 失败: %w", err)
	}
	return recipients, nil
}

func writeDebug(page *layout.PageDebug, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(page, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
