package batch

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ByLCY/certgen/background"
	"github.com/ByLCY/certgen/binding"
	"github.com/ByLCY/certgen/layout"
	"github.com/ByLCY/certgen/renderer"
	canvasrenderer "github.com/ByLCY/certgen/renderer/canvas"
)

var fixedNow = func() time.Time { return time.Date(2026, time.October, 18, 12, 0, 0, 0, time.UTC) }

func testLayout() *layout.Layout {
	return &layout.Layout{
		Width:       500,
		Height:      300,
		BaseMessage: "Felicitaciones {{NOMBRE}} por {{CONCURSO}}",
		Boxes: map[string]layout.Box{
			binding.TokenName:    {X: 20, Y: 40, W: 460, H: 40, FontSize: 24, Align: layout.AlignCenter, Color: layout.DefaultColor},
			binding.TokenMessage: {X: 20, Y: 120, W: 460, H: 60, FontSize: 12, Color: layout.DefaultColor},
		},
	}
}

type backgroundServer struct {
	*httptest.Server
	okHits atomic.Int32
}

func newBackgroundServer(t *testing.T) *backgroundServer {
	t.Helper()
	bg, err := canvasrenderer.NewRenderer(canvasrenderer.Options{}).Render(context.Background(),
		renderer.Request{Layout: &layout.Layout{Width: 500, Height: 300}})
	if err != nil {
		t.Fatalf("render background: %v", err)
	}
	s := &backgroundServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ok.pdf" {
			http.NotFound(w, r)
			return
		}
		s.okHits.Add(1)
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(bg.Bytes)
	}))
	t.Cleanup(s.Close)
	return s
}

func newTestPackager(logger *zap.Logger) *Packager {
	source := background.NewSource("", time.Second, nil)
	return NewPackager(Options{
		Renderer: canvasrenderer.NewRenderer(canvasrenderer.Options{Fetcher: source, Now: fixedNow}),
		Fetcher:  source,
		Workers:  3,
		Logger:   logger,
		Now:      fixedNow,
	})
}

func zipNames(t *testing.T, archive []byte) []string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	var names []string
	for _, f := range zr.File {
		if f.Method != zip.Deflate {
			t.Fatalf("entry %s not deflated", f.Name)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry: %v", err)
		}
		head := make([]byte, 5)
		if _, err := io.ReadFull(rc, head); err != nil || string(head) != "%PDF-" {
			t.Fatalf("entry %s is not a PDF", f.Name)
		}
		rc.Close()
		names = append(names, f.Name)
	}
	return names
}

func TestRenderAllIsolatesFailures(t *testing.T) {
	srv := newBackgroundServer(t)
	core, logs := observer.New(zapcore.WarnLevel)
	p := newTestPackager(zap.New(core))

	l := testLayout()
	contest := &binding.Contest{Name: "Copa de Robótica"}
	reqs := []renderer.Request{
		{Layout: l, Contest: contest, Recipient: binding.Recipient{ID: "r1", Name: "Ana López"}, Background: srv.URL + "/ok.pdf"},
		{Layout: l, Contest: contest, Recipient: binding.Recipient{ID: "r2", Name: "Luis Pérez"}, Background: srv.URL + "/missing.pdf"},
		{Layout: l, Contest: contest, Recipient: binding.Recipient{ID: "r3", Name: "Marta Ruiz"}, Background: srv.URL + "/ok.pdf"},
	}
	res, err := p.RenderAll(context.Background(), reqs)
	if err != nil {
		t.Fatalf("RenderAll: %v", err)
	}
	if len(res.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(res.Documents))
	}
	if len(res.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %+v", res.Failures)
	}
	f := res.Failures[0]
	if f.RecipientID != "r2" || f.Index != 1 || f.Name != "Luis Pérez" || f.Reason == "" {
		t.Fatalf("unexpected failure %+v", f)
	}
	names := zipNames(t, res.Archive)
	if len(names) != 2 || names[0] != "ana-lopez.pdf" || names[1] != "marta-ruiz.pdf" {
		t.Fatalf("unexpected archive entries %v", names)
	}
	if got := srv.okHits.Load(); got != 1 {
		t.Fatalf("shared background should be fetched once per batch, got %d", got)
	}
	if logs.FilterField(zap.String("recipient_id", "r2")).Len() != 1 {
		t.Fatalf("expected a warning for r2, got %v", logs.All())
	}
}

func TestRenderDeduplicatesFilenamesInInputOrder(t *testing.T) {
	p := newTestPackager(nil)
	recipients := []binding.Recipient{
		{Name: "Ana López"},
		{Name: "Ana Lopez"},
		{Name: "Ana López", Team: "Bits"},
		{Name: "ana lópez"},
		{Name: ""},
	}
	res, err := p.Render(context.Background(), testLayout(), &binding.Contest{Name: "Copa"}, recipients, "")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := []string{"ana-lopez.pdf", "ana-lopez-2.pdf", "ana-lopez-bits.pdf", "ana-lopez-3.pdf", "certificado.pdf"}
	if len(res.Documents) != len(want) {
		t.Fatalf("expected %d documents, got %d (failures %+v)", len(want), len(res.Documents), res.Failures)
	}
	for i, doc := range res.Documents {
		if doc.Filename != want[i] {
			t.Fatalf("document %d: got %q want %q", i, doc.Filename, want[i])
		}
	}
	names := zipNames(t, res.Archive)
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("archive order: got %v want %v", names, want)
		}
	}
}

func TestRenderAllFailureWithoutID(t *testing.T) {
	p := newTestPackager(nil)
	res, err := p.RenderAll(context.Background(), []renderer.Request{
		{Layout: testLayout(), Recipient: binding.Recipient{Name: "Ana"}},
		{Layout: nil, Recipient: binding.Recipient{Name: "Sin版式"}},
	})
	if err != nil {
		t.Fatalf("RenderAll: %v", err)
	}
	if len(res.Failures) != 1 || res.Failures[0].RecipientID != "#2" {
		t.Fatalf("expected positional identifier, got %+v", res.Failures)
	}
	if len(zipNames(t, res.Archive)) != 1 {
		t.Fatalf("archive should hold the single success")
	}
}

func TestRenderAllEmptyAndCancelled(t *testing.T) {
	p := newTestPackager(nil)
	if _, err := p.RenderAll(context.Background(), nil); !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Render(ctx, testLayout(), nil, []binding.Recipient{{Name: "Ana"}}, "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNameSetClaim(t *testing.T) {
	s := newNameSet()
	got := []string{s.claim("a.pdf"), s.claim("a.pdf"), s.claim("a-2.pdf"), s.claim("a.pdf"), s.claim("")}
	want := []string{"a.pdf", "a-2.pdf", "a-2-2.pdf", "a-3.pdf", "certificado.pdf"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("claim %d: got %q want %q", i, got[i], want[i])
		}
	}
}
