// Package bridge exposes the agent over an OpenAI-compatible HTTP API so
// stock OpenAI clients can talk to the wrapped CLI unchanged.
package bridge

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	hzServer "github.com/cloudwego/hertz/pkg/app/server"
	hzconfig "github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	hzprom "github.com/hertz-contrib/monitor-prometheus"

	"github.com/slipwaylabs/slipway/internal/agent"
	"github.com/slipwaylabs/slipway/internal/config"
	"github.com/slipwaylabs/slipway/internal/pkg/logs"
	prom "github.com/slipwaylabs/slipway/internal/pkg/prometheus"
	pkgutils "github.com/slipwaylabs/slipway/internal/pkg/utils"
)

type Bridge struct {
	agent   *agent.Agent
	cfg     config.GatewayConfig
	srv     *hzServer.Hertz
	started time.Time

	stopOnce sync.Once
	stopErr  error
}

func New(cfg config.GatewayConfig, ag *agent.Agent) *Bridge {
	hlog.SetLogger(logs.NewHertzLogger())

	opts := []hzconfig.Option{
		hzServer.WithHostPorts(cfg.Bind),
		hzServer.WithReadTimeout(time.Duration(cfg.ReadTimeoutSec) * time.Second),
		hzServer.WithWriteTimeout(time.Duration(cfg.WriteTimeoutSec) * time.Second),
		hzServer.WithExitWaitTime(5 * time.Second),
	}
	if cfg.MetricsBind != "" {
		opts = append(opts, hzServer.WithTracer(hzprom.NewServerTracer(
			cfg.MetricsBind, "/metrics",
			hzprom.WithRegistry(prom.Registry()),
			hzprom.WithEnableGoCollector(true),
		)))
	}

	b := &Bridge{
		agent:   ag,
		cfg:     cfg,
		srv:     hzServer.Default(opts...),
		started: time.Now(),
	}
	b.registerRoutes()
	return b
}

// Start begins serving in the background. Serve errors surface through the
// hertz logger, which is routed into the slipway log pipeline.
func (b *Bridge) Start(ctx context.Context) error {
	if b.cfg.AuthToken == "" {
		host, _, err := net.SplitHostPort(b.cfg.Bind)
		if err == nil && !pkgutils.IsPrivateHost(host) {
			logs.CtxWarn(ctx, "[bridge] no auth token configured while binding %s, anyone who can reach this port can drive the agent", b.cfg.Bind)
		}
	}

	go b.srv.Spin()
	logs.CtxInfo(ctx, "[bridge] listening on %s", b.cfg.Bind)
	return nil
}

func (b *Bridge) Stop(ctx context.Context) error {
	b.stopOnce.Do(func() {
		b.stopErr = b.srv.Shutdown(ctx)
		logs.CtxInfo(ctx, "[bridge] stopped")
	})
	return b.stopErr
}

func (b *Bridge) registerRoutes() {
	b.srv.Use(withLogID)
	b.srv.GET("/health", b.handleHealth)

	v1 := b.srv.Group("/v1", b.auth)
	v1.POST("/chat/completions", b.handleChatCompletions)
	v1.GET("/models", b.handleListModels)
}

// withLogID tags each request context so hertz and handler logs correlate.
func withLogID(ctx context.Context, c *app.RequestContext) {
	c.Next(logs.SetLogID(ctx, logs.NewLogID()))
}

func (b *Bridge) auth(_ context.Context, c *app.RequestContext) {
	if b.cfg.AuthToken == "" {
		return
	}
	got := string(c.GetHeader("Authorization"))
	if got != "Bearer "+b.cfg.AuthToken {
		c.AbortWithStatusJSON(consts.StatusUnauthorized,
			errorBody("missing or invalid api key", "invalid_request_error"))
	}
}

func (b *Bridge) handleHealth(_ context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, utils.H{
		"status":    "ok",
		"agent":     b.agent.Binary(),
		"available": b.agent.Available(),
		"version":   b.agent.CachedVersion(),
		"uptime":    time.Since(b.started).Round(time.Second).String(),
	})
}
