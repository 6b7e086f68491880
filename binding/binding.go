// Package binding 负责构建 token → 文本 的映射，并将其代入基础消息模板。
package binding

import (
	"regexp"
	"strings"
	"time"

	"github.com/ByLCY/certgen/layout"
)

// 固定的 token 词表。
const (
	TokenName     = "{{NOMBRE}}"
	TokenTeam     = "{{EQUIPO}}"
	TokenContest  = "{{CONCURSO}}"
	TokenCategory = "{{CATEGORIA}}"
	TokenPlace    = "{{LUGAR}}"
	TokenRole     = "{{PUESTO}}"
	TokenDate     = "{{FECHA}}"
	TokenMessage  = "{{MENSAJE}}"
)

// DateLayout 为与区域设置无关的长日期格式（日 月份全称 年）。
const DateLayout = "2 January 2006"

var markerPattern = regexp.MustCompile(`\{\{[^{}]*\}\}`)

// Contest 描述竞赛信息，由调用方持有，只读。
type Contest struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// Recipient 描述证书接收人，由调用方持有，只读。
type Recipient struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Team  string `json:"team,omitempty"`
	Role  string `json:"role,omitempty"`
	Place string `json:"place,omitempty"`
	Email string `json:"email,omitempty"`
}

// TokenMap 将 token 标记映射为具体文本；缺失的键视为空字符串。
type TokenMap map[string]string

// Get 返回 token 对应的值，token 可写为 "NOMBRE" 或 "{{NOMBRE}}"。
func (m TokenMap) Get(token string) string {
	return m[layout.NormalizeToken(token)]
}

// Resolve 为一次渲染构建 TokenMap，包括由 BaseMessage 代入其余 token 得到的 {{MENSAJE}}。
// 纯函数：相同输入总是得到相同结果，不会返回错误。
func Resolve(l *layout.Layout, contest *Contest, recipient Recipient, now time.Time) TokenMap {
	tokens := TokenMap{
		TokenName:  strings.TrimSpace(recipient.Name),
		TokenTeam:  strings.TrimSpace(recipient.Team),
		TokenPlace: strings.TrimSpace(recipient.Place),
		TokenRole:  strings.TrimSpace(recipient.Role),
		TokenDate:  FormatDate(now),
	}
	if contest != nil {
		tokens[TokenContest] = strings.TrimSpace(contest.Name)
		tokens[TokenCategory] = strings.TrimSpace(contest.Category)
	} else {
		tokens[TokenContest] = ""
		tokens[TokenCategory] = ""
	}
	message := ""
	if l != nil {
		message = Substitute(l.BaseMessage, tokens)
	}
	tokens[TokenMessage] = message
	return tokens
}

// Substitute 将 template 中每一处 {{TOKEN}} 替换为 tokens 中的值；
// 未映射的标记（包括 {{MENSAJE}} 本身）替换为空字符串，不会原样保留。
func Substitute(template string, tokens TokenMap) string {
	if template == "" {
		return ""
	}
	return markerPattern.ReplaceAllStringFunc(template, func(marker string) string {
		key := layout.NormalizeToken(marker)
		if key == TokenMessage {
			return ""
		}
		return tokens[key]
	})
}

// FormatDate 以 DateLayout 格式化日期。
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
