package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ByLCY/certgen/dispatch"
)

// SendCertificate 通过邮件服务发送证书附件。
func (s *Server) SendCertificate(c *gin.Context) {
	var req dispatch.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", dispatch.ErrInvalidRequest, err))
		return
	}
	id, err := s.dispatcher.Send(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}
