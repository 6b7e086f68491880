// Package server 提供证书渲染、批量打包、PDF 代理与邮件发送的 HTTP 接口。
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/ByLCY/certgen/background"
	"github.com/ByLCY/certgen/batch"
	"github.com/ByLCY/certgen/config"
	"github.com/ByLCY/certgen/dispatch"
	"github.com/ByLCY/certgen/renderer"
)

var errInvalidRequest = errors.New("invalid request")

// Params 为 Server 的依赖；Dispatcher 为空时不注册邮件接口。
type Params struct {
	fx.In

	Config     config.Config
	Log        *zap.Logger
	Renderer   renderer.Renderer
	Packager   *batch.Packager
	Dispatcher *dispatch.Dispatcher `optional:"true"`
	Client     *http.Client         `name:"proxy" optional:"true"`
}

type Server struct {
	cfg        config.Config
	log        *zap.Logger
	renderer   renderer.Renderer
	packager   *batch.Packager
	dispatcher *dispatch.Dispatcher
	client     *http.Client
}

func New(p Params) *Server {
	logger := p.Log
	if logger == nil {
		logger = zap.NewNop()
	}
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: p.Config.FetchTimeout}
	}
	return &Server{
		cfg:        p.Config,
		log:        logger.Named("server"),
		renderer:   p.Renderer,
		packager:   p.Packager,
		dispatcher: p.Dispatcher,
		client:     client,
	}
}

// Router 构建 gin 路由。
func (s *Server) Router() *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	api := r.Group("/api")
	api.GET("/proxy-pdf", s.ProxyPDF)
	api.POST("/certificates/render", s.RenderCertificate)
	api.POST("/certificates/batch", s.RenderBatch)
	if s.dispatcher != nil {
		api.POST("/send-certificate", s.SendCertificate)
	}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Int("bytes", c.Writer.Size()))
	}
}

// AbortWithError 将领域错误映射为 HTTP 状态码与 JSON 错误体。
func AbortWithError(c *gin.Context, err error) {
	var sizeErr *dispatch.SizeError
	var providerErr *dispatch.ProviderError
	switch {
	case errors.As(err, &sizeErr):
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": err.Error(),
			"size":  sizeErr.Size,
			"limit": sizeErr.Limit,
		})
	case errors.As(err, &providerErr):
		c.AbortWithStatusJSON(providerErr.Status, gin.H{
			"error":  "mail provider error",
			"detail": providerErr.Detail,
		})
	case errors.Is(err, errInvalidRequest),
		errors.Is(err, renderer.ErrInvalidLayout),
		errors.Is(err, batch.ErrEmptyBatch),
		errors.Is(err, dispatch.ErrInvalidRequest):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, background.ErrUnavailable):
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		c.AbortWithStatusJSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// Module 注册 Server 并在应用生命周期内运行 HTTP 服务。
var Module = fx.Module("server",
	fx.Provide(New),
	fx.Invoke(runServer),
)

func runServer(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{Addr: s.cfg.Addr, Handler: s.Router()}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			s.log.Info("http server listening", zap.String("addr", s.cfg.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
