// Package dispatch 是证书邮件发送的边界：校验请求、计算附件大小上限，并交给外部邮件服务。
package dispatch

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// 附件解码后的总大小上限。
const (
	SingleLimit  int64 = 15 << 20
	ArchiveLimit int64 = 20 << 20
)

var (
	ErrInvalidRequest = errors.New("邮件请求无效")
	ErrTooLarge       = errors.New("附件过大")
)

// SizeError 报告超出上限的附件总大小。
type SizeError struct {
	Size  int64
	Limit int64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("附件总大小 %d 字节超过上限 %d 字节", e.Size, e.Limit)
}

func (e *SizeError) Is(target error) bool { return target == ErrTooLarge }

// ProviderError 为邮件服务返回的失败，携带其状态码与原始内容。
type ProviderError struct {
	Status int
	Detail string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("邮件服务返回 %d: %s", e.Status, e.Detail)
}

// Attachment 为 base64 编码的附件。
type Attachment struct {
	Content     string `json:"content"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

// Request 为发送请求：单个 Attachment 或 Attachments 列表二选一。
// Message 作为纯文本正文原样发送，不自动添加问候语或签名。
type Request struct {
	To          string            `json:"to"`
	Name        string            `json:"name,omitempty"`
	Subject     string            `json:"subject"`
	Message     string            `json:"message"`
	Attachment  *Attachment       `json:"attachment,omitempty"`
	Attachments []Attachment      `json:"attachments,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// File 为解码后的附件。
type File struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message 为交给 Transport 的邮件。
type Message struct {
	To          string
	Name        string
	Subject     string
	Text        string
	Attachments []File
	Metadata    map[string]string
}

// Transport 负责实际发送邮件，返回服务商的消息 ID。
type Transport interface {
	Send(ctx context.Context, msg *Message) (string, error)
}

// Prepare 校验请求并解码附件；在任何网络调用之前完成大小检查。
func Prepare(req Request) (*Message, error) {
	to := strings.TrimSpace(req.To)
	subject := strings.TrimSpace(req.Subject)
	switch {
	case to == "":
		return nil, fmt.Errorf("%w: 缺少收件人", ErrInvalidRequest)
	case subject == "":
		return nil, fmt.Errorf("%w: 缺少主题", ErrInvalidRequest)
	case req.Attachment == nil && len(req.Attachments) == 0:
		return nil, fmt.Errorf("%w: 缺少附件", ErrInvalidRequest)
	case req.Attachment != nil && len(req.Attachments) > 0:
		return nil, fmt.Errorf("%w: attachment 与 attachments 不能同时提供", ErrInvalidRequest)
	}

	list := req.Attachments
	limit := ArchiveLimit
	if req.Attachment != nil {
		list = []Attachment{*req.Attachment}
		limit = SingleLimit
	}

	files := make([]File, 0, len(list))
	var total int64
	for i, a := range list {
		if strings.TrimSpace(a.Filename) == "" || a.Content == "" {
			return nil, fmt.Errorf("%w: 第 %d 个附件缺少文件名或内容", ErrInvalidRequest, i+1)
		}
		data, err := base64.StdEncoding.DecodeString(a.Content)
		if err != nil {
			return nil, fmt.Errorf("%w: 附件 %s 不是合法的 base64: %v", ErrInvalidRequest, a.Filename, err)
		}
		total += int64(len(data))
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		files = append(files, File{Filename: a.Filename, ContentType: contentType, Data: data})
	}
	if total > limit {
		return nil, &SizeError{Size: total, Limit: limit}
	}

	return &Message{
		To:          to,
		Name:        strings.TrimSpace(req.Name),
		Subject:     subject,
		Text:        req.Message,
		Attachments: files,
		Metadata:    req.Metadata,
	}, nil
}

// Dispatcher 串联校验与发送。
type Dispatcher struct {
	transport Transport
	log       *zap.Logger
}

func NewDispatcher(t Transport, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{transport: t, log: logger.Named("dispatch")}
}

// Send 校验并发送邮件。服务商错误不重试。
func (d *Dispatcher) Send(ctx context.Context, req Request) (string, error) {
	msg, err := Prepare(req)
	if err != nil {
		return "", err
	}
	if d.transport == nil {
		return "", fmt.Errorf("未配置邮件服务")
	}
	id, err := d.transport.Send(ctx, msg)
	if err != nil {
		d.log.Warn("mail send failed", zap.String("to", msg.To), zap.Error(err))
		return "", err
	}
	d.log.Info("mail sent", zap.String("to", msg.To), zap.String("id", id), zap.Int("attachments", len(msg.Attachments)))
	return id, nil
}
