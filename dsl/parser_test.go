package dsl_test

import (
	"testing"

	"github.com/ByLCY/certgen/dsl"
)

const sampleDSL = `
// 竞赛证书
layout Diploma {
  page 842 595
  message: "Felicitaciones {{NOMBRE}} por {{CONCURSO}}"

  box NOMBRE {
    x: 100; y: 220
    w: 642
    h: 60mm
    size: 32
    align: center
    bold: true
    color: #1F2937
    font: "Serif"
  }

  /* 日期 */
  box "{{FECHA}}" {
    x: 600
    y: 520
  }
}
`

func TestParseDocument(t *testing.T) {
	doc, err := dsl.ParseString(sampleDSL)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if doc.Name != "Diploma" {
		t.Fatalf("expected layout name Diploma, got %s", doc.Name)
	}
	stmts := doc.Block.Statements
	if len(stmts) != 4 {
		t.Fatalf("expected 4 statements, got %d", len(stmts))
	}

	page := stmts[0].Command
	if page == nil || page.Name != "page" {
		t.Fatalf("expected page command, got %+v", stmts[0])
	}
	if len(page.Args) != 2 || page.Args[0].Text() != "842" || page.Args[1].Text() != "595" {
		t.Fatalf("unexpected page args: %+v", page.Args)
	}

	msg := stmts[1].Assignment
	if msg == nil || msg.Key != "message" {
		t.Fatalf("expected message assignment, got %+v", stmts[1])
	}
	if got := msg.Value.Text(); got != "Felicitaciones {{NOMBRE}} por {{CONCURSO}}" {
		t.Fatalf("unexpected message %q", got)
	}

	box := stmts[2].Command
	if box == nil || box.Name != "box" || len(box.Args) != 1 || box.Args[0].Text() != "NOMBRE" {
		t.Fatalf("unexpected box command: %+v", stmts[2])
	}
	if box.Block == nil || len(box.Block.Statements) != 9 {
		t.Fatalf("expected 9 box properties, got %+v", box.Block)
	}
	props := map[string]string{}
	for _, st := range box.Block.Statements {
		if st.Assignment == nil {
			t.Fatalf("box body should only contain assignments, got %+v", st)
		}
		props[st.Assignment.Key] = st.Assignment.Value.Text()
	}
	want := map[string]string{
		"x": "100", "y": "220", "w": "642", "h": "60mm", "size": "32",
		"align": "center", "bold": "true", "color": "#1F2937", "font": "Serif",
	}
	for k, v := range want {
		if props[k] != v {
			t.Fatalf("property %s: got %q want %q", k, props[k], v)
		}
	}

	date := stmts[3].Command
	if date == nil || len(date.Args) != 1 || date.Args[0].String == nil || date.Args[0].Text() != "{{FECHA}}" {
		t.Fatalf("unexpected quoted box token: %+v", stmts[3])
	}
}

func TestParseMultiWordValue(t *testing.T) {
	doc, err := dsl.ParseString("layout X {\n  box EQUIPO { font: Times New Roman; size: 10.5pt }\n}")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	box := doc.Block.Statements[0].Command
	if box == nil || box.Block == nil || len(box.Block.Statements) != 2 {
		t.Fatalf("unexpected box: %+v", doc.Block.Statements[0])
	}
	if got := box.Block.Statements[0].Assignment.Value.Text(); got != "Times New Roman" {
		t.Fatalf("unexpected font %q", got)
	}
	if got := box.Block.Statements[1].Assignment.Value.Text(); got != "10.5pt" {
		t.Fatalf("unexpected size %q", got)
	}
}

func TestParseRejectsMissingRoot(t *testing.T) {
	if _, err := dsl.ParseString(`box NOMBRE { x: 1 }`); err == nil {
		t.Fatalf("expected error for document without layout root")
	}
}
