// Package fonts 提供固定的内置字体目录：无衬线（Sans）、衬线（Serif）与等宽（Mono），
// 各自包含常规与粗体两种字重。字体数据为只读的包级数据，可在并发渲染间共享。
package fonts

import (
	"fmt"
	"strings"

	"github.com/go-fonts/latin-modern/lmroman10bold"
	"github.com/go-fonts/latin-modern/lmroman10regular"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
)

// Category 是字体的大类。
type Category int

const (
	Sans Category = iota
	Serif
	Mono
)

func (c Category) String() string {
	switch c {
	case Serif:
		return "serif"
	case Mono:
		return "mono"
	default:
		return "sans"
	}
}

// Face 标识目录中的一个具体字体。
type Face struct {
	Category Category
	Bold     bool
}

func (f Face) String() string {
	if f.Bold {
		return f.Category.String() + "-bold"
	}
	return f.Category.String() + "-regular"
}

var (
	serifHints = []string{"serif", "times", "roman", "georgia", "garamond", "book"}
	monoHints  = []string{"mono", "courier", "code", "console", "typewriter"}
)

// Classify 按子串（不区分大小写）判断字体标签所属大类；无法识别时回退为 Sans。
// 含 "sans" 的标签（如 "sans-serif"）始终归为 Sans。
func Classify(label string) Category {
	s := strings.ToLower(strings.TrimSpace(label))
	if s == "" || strings.Contains(s, "sans") {
		return Sans
	}
	for _, hint := range monoHints {
		if strings.Contains(s, hint) {
			return Mono
		}
	}
	for _, hint := range serifHints {
		if strings.Contains(s, hint) {
			return Serif
		}
	}
	return Sans
}

// Select 将字体标签与粗体标志映射到目录中的字体，从不失败。
func Select(label string, bold bool) Face {
	return Face{Category: Classify(label), Bold: bold}
}

// Load 返回字体的 TTF/OTF 数据。
func Load(f Face) ([]byte, error) {
	var data []byte
	switch f.Category {
	case Serif:
		data = pick(f.Bold, lmroman10bold.TTF, lmroman10regular.TTF)
	case Mono:
		data = pick(f.Bold, gomonobold.TTF, gomono.TTF)
	case Sans:
		data = pick(f.Bold, gobold.TTF, goregular.TTF)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("读取内置字体 %s 失败", f)
	}
	return data, nil
}

func pick(bold bool, boldData, regularData []byte) []byte {
	if bold {
		return boldData
	}
	return regularData
}
