package renderer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ByLCY/certgen/binding"
	"github.com/ByLCY/certgen/layout"
)

// ErrInvalidLayout 表示版式无法渲染（例如缺少尺寸）。
var ErrInvalidLayout = errors.New("版式无效")

// Renderer 将一次渲染请求输出为最终文件（PDF 字节）。
type Renderer interface {
	Render(ctx context.Context, req Request) (*Document, error)
}

// Request 描述一次渲染：版式、可选的竞赛信息、接收人与可选的背景文档引用。
// Contest 与 Recipient 由调用方持有，渲染器不会修改。
type Request struct {
	Layout     *layout.Layout    `json:"layout"`
	Contest    *binding.Contest  `json:"contest,omitempty"`
	Recipient  binding.Recipient `json:"recipient"`
	Background string            `json:"background,omitempty"`
}

// Document 是渲染完成的文档及其建议文件名，创建后不再修改。
type Document struct {
	Filename string
	Bytes    []byte
}

// Validate 检查版式是否可渲染；有背景时页面尺寸取自背景，不要求版式声明尺寸。
func (r Request) Validate() error {
	if r.Layout == nil {
		return fmt.Errorf("%w: 版式为空", ErrInvalidLayout)
	}
	if strings.TrimSpace(r.Background) == "" && (r.Layout.Width <= 0 || r.Layout.Height <= 0) {
		return fmt.Errorf("%w: 页面尺寸 %gx%g 不合法", ErrInvalidLayout, r.Layout.Width, r.Layout.Height)
	}
	return nil
}

const defaultFilename = "certificado"

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// SuggestFilename 由接收人姓名与职务（或队伍）生成文件名，如 "ana-lopez-capitana.pdf"。
func SuggestFilename(r binding.Recipient) string {
	parts := []string{slug(r.Name)}
	qualifier := r.Role
	if strings.TrimSpace(qualifier) == "" {
		qualifier = r.Team
	}
	if s := slug(qualifier); s != "" {
		parts = append(parts, s)
	}
	name := strings.Trim(strings.Join(parts, "-"), "-")
	if name == "" {
		name = defaultFilename
	}
	return name + ".pdf"
}

// slug 去除重音符号并只保留小写字母与数字。
func slug(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		folded = s
	}
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(folded), "-"), "-")
}
