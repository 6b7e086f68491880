package canvasrenderer

import (
	"fmt"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/certgen/fonts"
	"github.com/ByLCY/certgen/layout"
)

type fontKey struct {
	label string
	bold  bool
}

// fontCache 缓存单个文档内已加载的字体族。每次渲染新建一个，不在文档间共享，因此无需加锁。
// 映射到同一字体的不同标签共用一个字体族，避免重复嵌入。
type fontCache struct {
	byKey  map[fontKey]*canvas.FontFamily
	byFace map[fonts.Face]*canvas.FontFamily
}

func newFontCache() *fontCache {
	return &fontCache{
		byKey:  map[fontKey]*canvas.FontFamily{},
		byFace: map[fonts.Face]*canvas.FontFamily{},
	}
}

func (c *fontCache) get(label string, bold bool) (*canvas.FontFamily, error) {
	key := fontKey{label: label, bold: bold}
	if family, ok := c.byKey[key]; ok {
		return family, nil
	}
	face := fonts.Select(label, bold)
	family, ok := c.byFace[face]
	if !ok {
		data, err := fonts.Load(face)
		if err != nil {
			return nil, err
		}
		family = canvas.NewFontFamily(face.String())
		if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
			return nil, fmt.Errorf("加载字体 %s 失败: %w", face, err)
		}
		c.byFace[face] = family
	}
	c.byKey[key] = family
	return family, nil
}

// familyMeasurer 以字体族的真实度量实现 layout.Measurer。canvas 的字号为 pt、宽度为 mm，这里换算回 pt。
type familyMeasurer struct {
	family *canvas.FontFamily
	faces  map[float64]*canvas.FontFace
}

var _ layout.Measurer = (*familyMeasurer)(nil)

func newMeasurer(family *canvas.FontFamily) *familyMeasurer {
	return &familyMeasurer{family: family, faces: map[float64]*canvas.FontFace{}}
}

func (m *familyMeasurer) TextWidth(text string, size float64) float64 {
	face, ok := m.faces[size]
	if !ok {
		face = m.family.Face(size, canvas.Black, canvas.FontRegular, canvas.FontNormal)
		m.faces[size] = face
	}
	return face.TextWidth(text) * layout.MmToPt
}
