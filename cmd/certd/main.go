package main

import (
	"github.com/ByLCY/certgen/background"
	"github.com/ByLCY/certgen/batch"
	"github.com/ByLCY/certgen/config"
	"github.com/ByLCY/certgen/dispatch"
	"github.com/ByLCY/certgen/renderer"
	canvasrenderer "github.com/ByLCY/certgen/renderer/canvas"
	"github.com/ByLCY/certgen/server"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	app := fx.New(
		fx.Provide(config.Load),
		fx.Provide(newLogger),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Provide(newSource),
		fx.Provide(newRenderer),
		fx.Provide(newPackager),
		fx.Provide(newDispatcher),
		server.Module,
	)
	app.Run()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		log *zap.Logger
		err error
	)
	if cfg.IsProduction() {
		log, err = zap.NewProduction()
	} else {
		log, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	return log.With(zap.String("version", version)), nil
}

func newSource(cfg config.Config, log *zap.Logger) background.Fetcher {
	src := background.NewSource(cfg.AssetsDir, cfg.FetchTimeout, log)
	src.MaxBytes = cfg.MaxBackgroundBytes
	return src
}

func newRenderer(fetcher background.Fetcher, log *zap.Logger) renderer.Renderer {
	return canvasrenderer.NewRenderer(canvasrenderer.Options{
		Fetcher: fetcher,
		Logger:  log,
		Creator: "certgen " + version,
	})
}

func newPackager(cfg config.Config, r renderer.Renderer, fetcher background.Fetcher, log *zap.Logger) *batch.Packager {
	return batch.NewPackager(batch.Options{
		Renderer: r,
		Fetcher:  fetcher,
		Workers:  cfg.Workers,
		Logger:   log,
	})
}

// newDispatcher 在未配置邮件服务时返回 nil，此时不注册发送接口。
func newDispatcher(cfg config.Config, log *zap.Logger) *dispatch.Dispatcher {
	if !cfg.MailEnabled() {
		log.Info("mail endpoint not configured, send-certificate disabled")
		return nil
	}
	return dispatch.NewDispatcher(&dispatch.HTTPTransport{
		Endpoint: cfg.Mail.Endpoint,
		APIKey:   cfg.Mail.APIKey,
		From:     cfg.Mail.From,
	}, log)
}
