package layout

import (
	"strings"
	"testing"
	"unicode/utf8"
)

// fixedWidth 模拟每个字符 10 个单位宽的字体。
var fixedWidth = MeasurerFunc(func(text string, size float64) float64 {
	return float64(utf8.RuneCountInString(text)) * 10
})

func TestWrapEmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t"} {
		if lines := Wrap(in, 100, fixedWidth, 12); len(lines) != 0 {
			t.Fatalf("Wrap(%q) expected no lines, got %q", in, lines)
		}
	}
}

func TestWrapGreedy(t *testing.T) {
	cases := []struct {
		width float64
		want  []string
	}{
		// "ccc dddd" 宽 80，超过 70
		{70, []string{"aaa bbb", "ccc", "dddd"}},
		{80, []string{"aaa bbb", "ccc dddd"}},
	}
	for _, tc := range cases {
		lines := Wrap("aaa bbb ccc dddd", tc.width, fixedWidth, 12)
		if strings.Join(lines, "|") != strings.Join(tc.want, "|") {
			t.Fatalf("width %g: got %q want %q", tc.width, lines, tc.want)
		}
	}
}

func TestWrapExactWidthFits(t *testing.T) {
	lines := Wrap("aaaa bbbb", 90, fixedWidth, 12)
	if len(lines) != 1 || lines[0] != "aaaa bbbb" {
		t.Fatalf("text exactly at the limit must stay on one line, got %q", lines)
	}
}

// 单个超宽的词独占一行，不在词内拆分。
func TestWrapOverlongWordIsKept(t *testing.T) {
	lines := Wrap("AAAAAAAAAAAA", 100, fixedWidth, 12)
	if len(lines) != 1 || lines[0] != "AAAAAAAAAAAA" {
		t.Fatalf("expected a single unsplit line, got %q", lines)
	}
	if w := fixedWidth.TextWidth(lines[0], 12); w != 120 {
		t.Fatalf("expected width 120, got %g", w)
	}

	lines = Wrap("ab AAAAAAAAAAAA cd", 100, fixedWidth, 12)
	want := []string{"ab", "AAAAAAAAAAAA", "cd"}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Fatalf("got %q want %q", lines, want)
	}
}

func TestWrapSingleWordIdempotent(t *testing.T) {
	lines := Wrap("  Robotics \n", 200, fixedWidth, 12)
	if len(lines) != 1 || lines[0] != "Robotics" {
		t.Fatalf("got %q", lines)
	}
}

func TestWrapNeverSplitsWords(t *testing.T) {
	text := "Felicitaciones a   todo el equipo\tpor su destacada participación en la Copa de Robótica 2026"
	words := strings.Fields(text)
	for _, width := range []float64{10, 45, 80, 150, 300, 1000} {
		lines := Wrap(text, width, fixedWidth, 12)
		var rejoined []string
		for _, line := range lines {
			rejoined = append(rejoined, strings.Split(line, " ")...)
		}
		if strings.Join(rejoined, " ") != strings.Join(words, " ") {
			t.Fatalf("width %g: lines %q do not reproduce the word sequence", width, lines)
		}
		for _, line := range lines {
			if strings.Contains(line, " ") && fixedWidth.TextWidth(line, 12)-width > 1e-9 {
				t.Fatalf("width %g: multi-word line %q exceeds limit", width, line)
			}
		}
	}
}

func TestWrapUsesSize(t *testing.T) {
	scaled := MeasurerFunc(func(text string, size float64) float64 {
		return float64(len(text)) * size / 2
	})
	small := Wrap("aa bb cc", 40, scaled, 10)
	large := Wrap("aa bb cc", 40, scaled, 20)
	if len(small) != 1 || len(large) != 3 {
		t.Fatalf("expected size to drive measurement: small=%q large=%q", small, large)
	}
}
