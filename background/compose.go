package background

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// 文本层按 1:1 比例贴在背景页左下角，置于原有内容之上。
const layerDescription = "pos:bl, off:0 0, scalefactor:1 abs, rot:0, op:1"

func init() {
	// 不读写用户目录下的 pdfcpu 配置
	api.DisableConfigDir()
}

// Page 为仅保留第一页的背景文档，宽高以 pt 为单位。
type Page struct {
	Bytes  []byte
	Width  float64
	Height float64
}

func newConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// FirstPage 解析背景文档并只保留第一页；页面的实际尺寸作为画布尺寸。
func FirstPage(src []byte) (*Page, error) {
	conf := newConfig()
	dims, err := api.PageDims(bytes.NewReader(src), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: 解析背景文档失败: %v", ErrUnavailable, err)
	}
	if len(dims) == 0 || dims[0].Width <= 0 || dims[0].Height <= 0 {
		return nil, fmt.Errorf("%w: 背景文档没有可用页面", ErrUnavailable)
	}
	var out bytes.Buffer
	if err := api.Trim(bytes.NewReader(src), &out, []string{"1"}, conf); err != nil {
		return nil, fmt.Errorf("%w: 提取背景第一页失败: %v", ErrUnavailable, err)
	}
	return &Page{Bytes: out.Bytes(), Width: dims[0].Width, Height: dims[0].Height}, nil
}

// Stamp 将单页 PDF 文本层作为新的内容层追加到背景页上，返回合成后的文档。
func Stamp(page *Page, layer []byte) ([]byte, error) {
	if page == nil {
		return nil, fmt.Errorf("背景页为空")
	}
	tmp, err := os.CreateTemp("", "certgen-layer-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("创建临时文本层失败: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(layer); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("写入临时文本层失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("写入临时文本层失败: %w", err)
	}

	wm, err := pdfcpu.ParsePDFWatermarkDetails(tmp.Name(), layerDescription, true, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("解析文本层失败: %w", err)
	}
	var out bytes.Buffer
	if err := api.AddWatermarks(bytes.NewReader(page.Bytes), &out, []string{"1"}, wm, newConfig()); err != nil {
		return nil, fmt.Errorf("合成背景与文本层失败: %w", err)
	}
	return out.Bytes(), nil
}
