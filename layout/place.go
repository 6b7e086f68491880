package layout

// PlacedLine 是一行已定位的文本，坐标位于 PDF 文档空间（左下角为原点，Y 为基线）。
type PlacedLine struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Top   float64 `json:"top"` // 行顶部，左上角坐标系
	Width float64 `json:"width"`
	Text  string  `json:"text"`
}

// ToPDFY 将左上角坐标系中的行顶部换算为左下角坐标系中的绘制 Y。
func ToPDFY(pageHeight, top, size float64) float64 {
	return pageHeight - (top + size)
}

// Place 在文本框内自上而下堆叠各行并计算水平偏移。
// 行顶部超出 box.Y+box.H 的行及其后续各行被直接丢弃，不报错。
func Place(box Box, lines []string, m Measurer, pageHeight float64) []PlacedLine {
	if len(lines) == 0 {
		return nil
	}
	bottom := box.Y + box.H
	lineHeight := box.LineHeight()
	out := make([]PlacedLine, 0, len(lines))
	for i, text := range lines {
		top := box.Y + float64(i)*lineHeight
		if top > bottom {
			break
		}
		width := m.TextWidth(text, box.FontSize)
		out = append(out, PlacedLine{
			X:     alignX(box, width),
			Y:     ToPDFY(pageHeight, top, box.FontSize),
			Top:   top,
			Width: width,
			Text:  text,
		})
	}
	return out
}

func alignX(box Box, width float64) float64 {
	switch box.Align {
	case AlignCenter:
		return box.X + (box.W-width)/2
	case AlignRight:
		return box.X + box.W - width
	default:
		return box.X
	}
}
