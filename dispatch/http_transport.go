package dispatch

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPTransport 以 JSON 调用邮件服务商的 HTTP API（与 Resend 的 /emails 接口兼容）。
type HTTPTransport struct {
	Endpoint string
	APIKey   string
	From     string
	Client   *http.Client
}

var _ Transport = (*HTTPTransport)(nil)

type providerAttachment struct {
	Filename    string `json:"filename"`
	Content     string `json:"content"`
	ContentType string `json:"content_type,omitempty"`
}

type providerRequest struct {
	From        string               `json:"from"`
	To          []string             `json:"to"`
	Subject     string               `json:"subject"`
	Text        string               `json:"text"`
	Attachments []providerAttachment `json:"attachments,omitempty"`
	Tags        []providerTag        `json:"tags,omitempty"`
}

type providerTag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type providerResponse struct {
	ID string `json:"id"`
}

func (t *HTTPTransport) Send(ctx context.Context, msg *Message) (string, error) {
	if t.Endpoint == "" {
		return "", fmt.Errorf("未配置邮件服务地址")
	}
	to := msg.To
	if msg.Name != "" {
		to = fmt.Sprintf("%s <%s>", msg.Name, msg.To)
	}
	body := providerRequest{
		From:    t.From,
		To:      []string{to},
		Subject: msg.Subject,
		Text:    msg.Text,
	}
	for _, f := range msg.Attachments {
		body.Attachments = append(body.Attachments, providerAttachment{
			Filename:    f.Filename,
			Content:     base64.StdEncoding.EncodeToString(f.Data),
			ContentType: f.ContentType,
		})
	}
	for k, v := range msg.Metadata {
		body.Tags = append(body.Tags, providerTag{Name: k, Value: v})
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("编码邮件请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("构造邮件请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.APIKey)
	}
	client := t.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("调用邮件服务失败: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &ProviderError{Status: resp.StatusCode, Detail: strings.TrimSpace(string(raw))}
	}
	var out providerResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("解析邮件服务响应失败: %w", err)
	}
	return out.ID, nil
}
