package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProxyPDF 转发远程 PDF，供浏览器端预览背景时绕开跨域限制。
func (s *Server) ProxyPDF(c *gin.Context) {
	target := strings.TrimSpace(c.Query("url"))
	if target == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing url parameter"})
		return
	}
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "url must be an absolute http(s) address"})
		return
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, u.String(), nil)
	if err != nil {
		AbortWithError(c, fmt.Errorf("proxy request: %w", err))
		return
	}
	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Warn("proxy fetch failed", zap.String("url", target), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch upstream document"})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.log.Debug("proxy upstream error", zap.String("url", target), zap.Int("status", resp.StatusCode))
	}

	// 状态码与内容均原样转发，包括上游的错误响应
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	extra := map[string]string{}
	if v := resp.Header.Get("Accept-Ranges"); v != "" {
		extra["Accept-Ranges"] = v
	}
	c.DataFromReader(resp.StatusCode, resp.ContentLength, contentType, resp.Body, extra)
}
