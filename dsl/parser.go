// Package dsl 解析证书版式文件。语法示例：
//
//	layout Diploma {
//	  page 297mm 210mm
//	  message: "Felicitaciones {{NOMBRE}} por {{CONCURSO}}"
//	  box NOMBRE { x: 100; y: 220; size: 32; align: center }
//	}
package dsl

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	layoutLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "Space", Pattern: `[ \t\r]+`},
		{Name: "Color", Pattern: `#[0-9A-Fa-f]{6}`},
		{Name: "Number", Pattern: `-?\d+(?:\.\d+)?(?:pt|mm|cm|in)?`},
		{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Punct", Pattern: `[:;{}]`},
	})

	layoutParser = participle.MustBuild[Document](
		participle.Lexer(layoutLexer),
		participle.Elide("Space", "LineComment", "BlockComment"),
	)
)

// Document is the root of a layout file.
type Document struct {
	Pos   lexer.Position
	Name  string `parser:"Newline* 'layout' @Ident"`
	Block *Block `parser:"@@ Newline*"`
}

// Block 为花括号内的语句列表，语句以换行或分号分隔。
type Block struct {
	Statements []*Statement `parser:"'{' ( Newline | ';' )* ( @@ ( Newline | ';' )* )* '}'"`
}

// Statement is either `key: value` or `name args... { ... }`.
type Statement struct {
	Assignment *Assignment `parser:"  @@"`
	Command    *Command    `parser:"| @@"`
}

type Assignment struct {
	Pos   lexer.Position
	Key   string `parser:"@Ident ':'"`
	Value *Value `parser:"@@"`
}

type Command struct {
	Pos   lexer.Position
	Name  string   `parser:"@Ident"`
	Args  []*Value `parser:"@@*"`
	Block *Block   `parser:"@@?"`
}

// Value 为属性值或命令参数；裸单词可以连写，例如 `font: Times New Roman`。
type Value struct {
	Pos    lexer.Position
	String *Quoted  `parser:"  @String"`
	Number *string  `parser:"| @Number"`
	Color  *string  `parser:"| @Color"`
	Words  []string `parser:"| @Ident+"`
}

// Text 返回值的文本形式，字符串已去除引号。
func (v *Value) Text() string {
	switch {
	case v == nil:
		return ""
	case v.String != nil:
		return string(*v.String)
	case v.Number != nil:
		return *v.Number
	case v.Color != nil:
		return *v.Color
	default:
		return strings.Join(v.Words, " ")
	}
}

// Quoted 在捕获时去除引号并处理转义。
type Quoted string

func (q *Quoted) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("字符串为空")
	}
	s, err := strconv.Unquote(values[0])
	if err != nil {
		return fmt.Errorf("无效的字符串 %s: %w", values[0], err)
	}
	*q = Quoted(s)
	return nil
}

// Parse 从 r 读取并解析版式文件。
func Parse(r io.Reader) (*Document, error) {
	return layoutParser.Parse("", r)
}

func ParseString(input string) (*Document, error) {
	return layoutParser.ParseString("", input)
}
