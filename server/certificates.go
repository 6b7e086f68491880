package server

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ByLCY/certgen/background"
	"github.com/ByLCY/certgen/binding"
	"github.com/ByLCY/certgen/layout"
	"github.com/ByLCY/certgen/renderer"
)

const (
	headerFailures   = "X-Render-Failures"
	archiveFilename  = "certificados.zip"
	contentTypePDF   = "application/pdf"
	contentTypeZip   = "application/zip"
	maxFailureHeader = 4 << 10
)

type batchRequest struct {
	Layout     *layout.Layout      `json:"layout"`
	Contest    *binding.Contest    `json:"contest"`
	Recipients []binding.Recipient `json:"recipients"`
	Background string              `json:"background"`
}

// RenderCertificate 渲染单份证书并直接返回 PDF。
func (s *Server) RenderCertificate(c *gin.Context) {
	var req renderer.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", errInvalidRequest, err))
		return
	}
	if err := s.checkBackground(req.Background); err != nil {
		AbortWithError(c, err)
		return
	}
	if req.Layout != nil {
		req.Layout.Normalize()
	}

	doc, err := s.renderer.Render(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Header("Content-Disposition", attachment(doc.Filename))
	c.Data(http.StatusOK, contentTypePDF, doc.Bytes)
}

// RenderBatch 为每位接收人渲染证书并返回 ZIP；失败数写入 X-Render-Failures，
// 全部失败时返回 422 与失败明细。
func (s *Server) RenderBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", errInvalidRequest, err))
		return
	}
	if req.Layout == nil {
		AbortWithError(c, fmt.Errorf("%w: 版式为空", renderer.ErrInvalidLayout))
		return
	}
	if err := s.checkBackground(req.Background); err != nil {
		AbortWithError(c, err)
		return
	}
	req.Layout.Normalize()

	res, err := s.packager.Render(c.Request.Context(), req.Layout, req.Contest, req.Recipients, req.Background)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Header(headerFailures, strconv.Itoa(len(res.Failures)))
	if len(res.Documents) == 0 {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"error":    "no certificate could be rendered",
			"failures": res.Failures,
		})
		return
	}
	if len(res.Failures) > 0 {
		if detail, err := json.Marshal(res.Failures); err == nil && len(detail) <= maxFailureHeader {
			c.Header(headerFailures+"-Detail", string(detail))
		}
	}
	c.Header("Content-Disposition", attachment(archiveFilename))
	c.Data(http.StatusOK, contentTypeZip, res.Archive)
}

// checkBackground 服务端只接受远程背景，不读取本地文件。
func (s *Server) checkBackground(ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" || background.IsRemote(ref) {
		return nil
	}
	return fmt.Errorf("%w: background must be an http(s) url", errInvalidRequest)
}

func attachment(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}
