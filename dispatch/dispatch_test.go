package dispatch

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func encoded(n int) string {
	return base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{'x'}, n))
}

func TestPrepareRequiresFields(t *testing.T) {
	att := &Attachment{Content: encoded(10), Filename: "a.pdf"}
	cases := map[string]Request{
		"no to":         {Subject: "s", Attachment: att},
		"no subject":    {To: "a@b.c", Attachment: att},
		"no attachment": {To: "a@b.c", Subject: "s"},
		"both forms":    {To: "a@b.c", Subject: "s", Attachment: att, Attachments: []Attachment{*att}},
		"bad base64":    {To: "a@b.c", Subject: "s", Attachment: &Attachment{Content: "@@@", Filename: "a.pdf"}},
		"no filename":   {To: "a@b.c", Subject: "s", Attachment: &Attachment{Content: encoded(3)}},
	}
	for name, req := range cases {
		if _, err := Prepare(req); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("%s: 期望 ErrInvalidRequest，得到 %v", name, err)
		}
	}
}

func TestPrepareSingleLimit(t *testing.T) {
	req := Request{
		To:         "a@b.c",
		Subject:    "s",
		Attachment: &Attachment{Content: encoded(int(SingleLimit) + 1), Filename: "big.pdf"},
	}
	_, err := Prepare(req)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("期望 ErrTooLarge，得到 %v", err)
	}
	var sizeErr *SizeError
	if !errors.As(err, &sizeErr) || sizeErr.Size != SingleLimit+1 || sizeErr.Limit != SingleLimit {
		t.Fatalf("大小信息不正确: %+v", sizeErr)
	}
}

func TestPrepareArchiveLimit(t *testing.T) {
	// 超过单文件上限但未超过列表上限
	n := int(SingleLimit) + 1024
	msg, err := Prepare(Request{
		To:          " a@b.c ",
		Subject:     "Certificados",
		Message:     "Hola,\n\nadjuntamos.",
		Attachments: []Attachment{{Content: encoded(n), Filename: "todos.zip", ContentType: "application/zip"}},
	})
	if err != nil {
		t.Fatalf("列表附件应允许到 %d 字节: %v", ArchiveLimit, err)
	}
	if msg.To != "a@b.c" || msg.Text != "Hola,\n\nadjuntamos." {
		t.Fatalf("消息字段不正确: %+v", msg)
	}
	if len(msg.Attachments) != 1 || len(msg.Attachments[0].Data) != n {
		t.Fatalf("附件未正确解码")
	}

	_, err = Prepare(Request{
		To:      "a@b.c",
		Subject: "s",
		Attachments: []Attachment{
			{Content: encoded(int(ArchiveLimit) / 2), Filename: "1.pdf"},
			{Content: encoded(int(ArchiveLimit)/2 + 1), Filename: "2.pdf"},
		},
	})
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("总大小超过列表上限应报错，得到 %v", err)
	}
}

type recordingTransport struct {
	calls int
	err   error
}

func (r *recordingTransport) Send(ctx context.Context, msg *Message) (string, error) {
	r.calls++
	if r.err != nil {
		return "", r.err
	}
	return "msg-1", nil
}

func TestDispatcherSkipsTransportOnInvalid(t *testing.T) {
	tr := &recordingTransport{}
	d := NewDispatcher(tr, nil)
	if _, err := d.Send(context.Background(), Request{To: "a@b.c"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("期望 ErrInvalidRequest，得到 %v", err)
	}
	if tr.calls != 0 {
		t.Fatalf("无效请求不应调用邮件服务")
	}

	id, err := d.Send(context.Background(), Request{
		To:         "a@b.c",
		Subject:    "s",
		Attachment: &Attachment{Content: encoded(5), Filename: "a.pdf"},
	})
	if err != nil || id != "msg-1" || tr.calls != 1 {
		t.Fatalf("发送结果不正确: id=%q err=%v calls=%d", id, err, tr.calls)
	}
}

func TestHTTPTransport(t *testing.T) {
	var got providerRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("解析请求失败: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"re_123"}`))
	}))
	defer srv.Close()

	tr := &HTTPTransport{Endpoint: srv.URL, APIKey: "key", From: "certs@example.org"}
	id, err := tr.Send(context.Background(), &Message{
		To:          "ana@example.org",
		Name:        "Ana",
		Subject:     "Tu certificado",
		Text:        "Felicidades",
		Attachments: []File{{Filename: "ana.pdf", ContentType: "application/pdf", Data: []byte("%PDF-")}},
	})
	if err != nil {
		t.Fatalf("发送失败: %v", err)
	}
	if id != "re_123" {
		t.Fatalf("消息 ID 不正确: %q", id)
	}
	if auth != "Bearer key" {
		t.Fatalf("Authorization 头不正确: %q", auth)
	}
	if got.From != "certs@example.org" || len(got.To) != 1 || got.To[0] != "Ana <ana@example.org>" || got.Text != "Felicidades" {
		t.Fatalf("请求体不正确: %+v", got)
	}
	if len(got.Attachments) != 1 || got.Attachments[0].Content != base64.StdEncoding.EncodeToString([]byte("%PDF-")) {
		t.Fatalf("附件未编码: %+v", got.Attachments)
	}
}

func TestHTTPTransportProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid from"}`))
	}))
	defer srv.Close()

	tr := &HTTPTransport{Endpoint: srv.URL}
	_, err := tr.Send(context.Background(), &Message{To: "a@b.c", Subject: "s"})
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("期望 ProviderError，得到 %v", err)
	}
	if perr.Status != http.StatusUnprocessableEntity || perr.Detail != `{"message":"invalid from"}` {
		t.Fatalf("错误信息不正确: %+v", perr)
	}
}
