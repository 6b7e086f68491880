package layout

// 该文件定义证书版式（Layout）与文本框（Box），供 DSL 解析、排版、渲染与调试 JSON 共用。
// 所有坐标与尺寸均以 pt 为单位，原点位于页面左上角。

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Layout 描述一份可复用的证书版式：画布尺寸、基础消息模板与各 token 对应的文本框。
type Layout struct {
	Name        string         `json:"name,omitempty"`
	Width       float64        `json:"width"`
	Height      float64        `json:"height"`
	BaseMessage string         `json:"baseMessage"`
	Boxes       map[string]Box `json:"boxes"`
}

// Tokens 返回按字典序排列的 token 标记，保证绘制顺序稳定。
func (l *Layout) Tokens() []string {
	if l == nil {
		return nil
	}
	out := make([]string, 0, len(l.Boxes))
	for token := range l.Boxes {
		out = append(out, token)
	}
	sort.Strings(out)
	return out
}

// Normalize 将 Boxes 的键统一为 {{TOKEN}} 形式，重复键以后出现者为准（按原键排序）。
func (l *Layout) Normalize() {
	if l == nil || len(l.Boxes) == 0 {
		return
	}
	keys := make([]string, 0, len(l.Boxes))
	for k := range l.Boxes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	boxes := make(map[string]Box, len(l.Boxes))
	for _, k := range keys {
		boxes[NormalizeToken(k)] = l.Boxes[k]
	}
	l.Boxes = boxes
}

// NormalizeToken 将 "NOMBRE"、"{{ nombre }}" 等写法统一为 "{{NOMBRE}}"。
func NormalizeToken(key string) string {
	name := strings.TrimSpace(key)
	if strings.HasPrefix(name, "{{") && strings.HasSuffix(name, "}}") {
		name = strings.TrimSpace(name[2 : len(name)-2])
	}
	if name == "" {
		return ""
	}
	return "{{" + strings.ToUpper(name) + "}}"
}

// Box 是绑定到单个 token 的矩形文本区域及其排版设置。
type Box struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	W          float64 `json:"w"`
	H          float64 `json:"h"`
	FontSize   float64 `json:"fontSize"`
	Align      Align   `json:"align,omitempty"`
	Bold       bool    `json:"bold,omitempty"`
	Color      Color   `json:"color"`
	FontFamily string  `json:"fontFamily,omitempty"`
}

// UnmarshalJSON 在字段缺省时使用默认颜色与左对齐。
func (b *Box) UnmarshalJSON(data []byte) error {
	type plain Box
	p := plain{Align: AlignLeft, Color: DefaultColor}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*b = Box(p)
	return nil
}

// LineHeight 返回该文本框的行距（字号 × LineHeightFactor）。
func (b Box) LineHeight() float64 { return b.FontSize * LineHeightFactor }

// Align 为水平对齐方式。
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// ParseAlign 不区分大小写；无法识别的值按 left 处理。
func ParseAlign(s string) Align {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "center", "middle":
		return AlignCenter
	case "right", "end":
		return AlignRight
	default:
		return AlignLeft
	}
}

// UnmarshalJSON 接受任意字符串并归一化。
func (a *Align) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*a = ParseAlign(s)
	return nil
}

// Color 为 [0,1] 区间的 RGB 三元组。零值表示未设置，绘制时使用 DefaultColor；
// 纯黑请通过 RGB(0, 0, 0) 或 ParseColor("#000000") 构造。
type Color struct {
	R   float64
	G   float64
	B   float64
	set bool
}

// DefaultColor 为近黑色 #1E1E1E。
var DefaultColor = RGB(30.0/255, 30.0/255, 30.0/255)

// RGB 构造一个已设置的颜色。
func RGB(r, g, b float64) Color {
	return Color{R: r, G: g, B: b, set: true}
}

// OrDefault 未设置时返回 DefaultColor。
func (c Color) OrDefault() Color {
	if !c.set && c.R == 0 && c.G == 0 && c.B == 0 {
		return DefaultColor
	}
	return c
}

// ParseColor 解析 6 位十六进制颜色（# 可省略）。
func ParseColor(value string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(hex) != 6 {
		return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("颜色值 %s 无法解析: %w", value, err)
	}
	return RGB(
		float64(v>>16&0xff)/255,
		float64(v>>8&0xff)/255,
		float64(v&0xff)/255,
	), nil
}

// ColorOrDefault 解析失败或为空时返回 DefaultColor。
func ColorOrDefault(value string) Color {
	c, err := ParseColor(value)
	if err != nil {
		return DefaultColor
	}
	return c
}

// Hex 返回 #RRGGBB 形式。
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", channel(c.R), channel(c.G), channel(c.B))
}

func channel(v float64) int {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return int(v*255 + 0.5)
	}
}

func (c Color) MarshalJSON() ([]byte, error) { return json.Marshal(c.OrDefault().Hex()) }

// UnmarshalJSON 接受 "#RRGGBB" 字符串，空值或非法值回退为默认色。
func (c *Color) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*c = ColorOrDefault(s)
	return nil
}
