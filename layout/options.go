package layout

// LineHeightFactor 为行距与字号之比。
const LineHeightFactor = 1.15

// Measurer 负责测量文本在给定字号下的宽度（pt）。
// 渲染器以真实字体度量实现该接口；测试中可使用等宽的假实现。
type Measurer interface {
	TextWidth(text string, size float64) float64
}

// MeasurerFunc 允许以普通函数实现 Measurer。
type MeasurerFunc func(text string, size float64) float64

func (f MeasurerFunc) TextWidth(text string, size float64) float64 { return f(text, size) }
