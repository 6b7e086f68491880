package layout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ByLCY/certgen/dsl"
)

// 未在 DSL 中指定时使用的默认值（pt）。
const (
	defaultFontSize = 12.0
	defaultBoxW     = 200.0
	defaultBoxH     = 40.0
)

// FromDSL 将 DSL AST 转换为 Layout。长度支持 pt/mm/cm/in 后缀，无单位时按 pt 处理。
func FromDSL(doc *dsl.Document) (*Layout, error) {
	if doc == nil || doc.Block == nil {
		return nil, fmt.Errorf("文档为空")
	}
	l := &Layout{Name: doc.Name, Boxes: map[string]Box{}}
	for _, st := range doc.Block.Statements {
		switch {
		case st.Assignment != nil:
			switch st.Assignment.Key {
			case "message":
				l.BaseMessage = st.Assignment.Value.Text()
			case "width", "height":
				v, err := points(st.Assignment.Value.Text())
				if err != nil {
					return nil, fmt.Errorf("%s: %w", st.Assignment.Pos, err)
				}
				if st.Assignment.Key == "width" {
					l.Width = v
				} else {
					l.Height = v
				}
			default:
				return nil, fmt.Errorf("%s: 未知属性 %s", st.Assignment.Pos, st.Assignment.Key)
			}
		case st.Command != nil:
			if err := applyCommand(l, st.Command); err != nil {
				return nil, err
			}
		}
	}
	return l, nil
}

func applyCommand(l *Layout, cmd *dsl.Command) error {
	switch cmd.Name {
	case "page":
		if len(cmd.Args) != 2 {
			return fmt.Errorf("%s: page 需要宽、高两个参数", cmd.Pos)
		}
		var err error
		if l.Width, err = points(cmd.Args[0].Text()); err != nil {
			return fmt.Errorf("%s: %w", cmd.Pos, err)
		}
		if l.Height, err = points(cmd.Args[1].Text()); err != nil {
			return fmt.Errorf("%s: %w", cmd.Pos, err)
		}
		return nil
	case "box":
		if len(cmd.Args) != 1 {
			return fmt.Errorf("%s: box 需要一个 token 参数", cmd.Pos)
		}
		token := NormalizeToken(cmd.Args[0].Text())
		if token == "" {
			return fmt.Errorf("%s: box 的 token 为空", cmd.Pos)
		}
		box, err := parseBox(cmd.Block)
		if err != nil {
			return fmt.Errorf("box %s: %w", token, err)
		}
		l.Boxes[token] = box
		return nil
	default:
		return fmt.Errorf("%s: 未知命令 %s", cmd.Pos, cmd.Name)
	}
}

func parseBox(block *dsl.Block) (Box, error) {
	box := Box{
		W:        defaultBoxW,
		H:        defaultBoxH,
		FontSize: defaultFontSize,
		Align:    AlignLeft,
		Color:    DefaultColor,
	}
	if block == nil {
		return box, nil
	}
	for _, st := range block.Statements {
		a := st.Assignment
		if a == nil {
			return box, fmt.Errorf("文本框内只允许属性赋值")
		}
		raw := a.Value.Text()
		var err error
		switch a.Key {
		case "x":
			box.X, err = points(raw)
		case "y":
			box.Y, err = points(raw)
		case "w", "width":
			box.W, err = points(raw)
		case "h", "height":
			box.H, err = points(raw)
		case "size", "fontSize":
			box.FontSize, err = points(raw)
		case "align":
			box.Align = ParseAlign(raw)
		case "bold":
			b, perr := strconv.ParseBool(strings.TrimSpace(raw))
			if perr != nil {
				return box, fmt.Errorf("%s: bold 需要 true/false", a.Pos)
			}
			box.Bold = b
		case "color":
			box.Color = ColorOrDefault(raw)
		case "font", "fontFamily":
			box.FontFamily = raw
		default:
			return box, fmt.Errorf("%s: 未知属性 %s", a.Pos, a.Key)
		}
		if err != nil {
			return box, fmt.Errorf("%s: %s: %w", a.Pos, a.Key, err)
		}
	}
	return box, nil
}

func points(raw string) (float64, error) {
	l, err := ParseLength(raw)
	if err != nil {
		return 0, err
	}
	return l.ToPT(), nil
}
