package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// 版式内部统一使用 pt（1/72 英寸）。canvas 以 mm 为单位，只在绘制与度量处换算。

const (
	PtToMm = 25.4 / 72
	MmToPt = 72 / 25.4
)

// Unit 为 DSL 中长度的书写单位。
type Unit int

const (
	UnitNone Unit = iota // 裸数字，等同 pt
	UnitPT
	UnitMM
	UnitCM
	UnitIN
)

var unitSuffixes = []struct {
	suffix string
	unit   Unit
	toPT   float64
}{
	{"pt", UnitPT, 1},
	{"mm", UnitMM, MmToPt},
	{"cm", UnitCM, 10 * MmToPt},
	{"in", UnitIN, 72},
}

func (u Unit) String() string {
	for _, s := range unitSuffixes {
		if s.unit == u {
			return s.suffix
		}
	}
	return ""
}

func (u Unit) factor() float64 {
	for _, s := range unitSuffixes {
		if s.unit == u {
			return s.toPT
		}
	}
	return 1
}

// Length 保留 DSL 中书写的数值与单位。
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// ToPT 换算为 pt。
func (l Length) ToPT() float64 { return l.Value * l.Unit.factor() }

func (l Length) String() string {
	return strconv.FormatFloat(l.Value, 'f', -1, 64) + l.Unit.String()
}

// ParseLength 解析 "12"、"35mm"、"1.5 in" 等写法，单位不区分大小写。
func ParseLength(raw string) (Length, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	unit := UnitNone
	for _, suf := range unitSuffixes {
		if rest, ok := strings.CutSuffix(s, suf.suffix); ok {
			s, unit = strings.TrimSpace(rest), suf.unit
			break
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Length{}, fmt.Errorf("无效的长度 %q", raw)
	}
	return Length{Value: v, Unit: unit}, nil
}
