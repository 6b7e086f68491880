package layout

import "strings"

// Wrap 使用贪心算法将 text 按空白拆词后折成多行。
//
// 当前行追加 " "+word 后的测量宽度不超过 maxWidth 时继续累积，否则输出当前行并以该词开始新行。
// 单个词超过 maxWidth 时独占一行且不在词内拆分（允许溢出文本框）。空输入返回 nil。
func Wrap(text string, maxWidth float64, m Measurer, size float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	current := ""
	for _, word := range words {
		if current == "" {
			current = word
			continue
		}
		candidate := current + " " + word
		if m.TextWidth(candidate, size) <= maxWidth {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}
