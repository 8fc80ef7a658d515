package parseserver

import (
	"context"
	"io"
	"net/http"
	ossignal "os/signal"
	"strconv"
	"syscall"

	"github.com/gin-contrib/graceful"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	healthcheck "github.com/tavsec/gin-healthcheck"
	healthchecks "github.com/tavsec/gin-healthcheck/checks"
	healthconfig "github.com/tavsec/gin-healthcheck/config"
	"go.uber.org/zap"

	"github.com/vipcxj/dash.go/config"
	"github.com/vipcxj/dash.go/errors"
	"github.com/vipcxj/dash.go/log"
	"github.com/vipcxj/dash.go/middleware"
	"github.com/vipcxj/dash.go/pkg/cache"
	"github.com/vipcxj/dash.go/pkg/mpd"
	"github.com/vipcxj/dash.go/pkg/tree"
	"github.com/vipcxj/dash.go/pkg/xlink"
)

const (
	FORMAT_TREE    = "tree"
	FORMAT_SUMMARY = "summary"
	FORMAT_XML     = "xml"

	HEADER_CACHE         = "X-Cache"
	HEADER_XLINK_PENDING = "X-Xlink-Pending"
)

type resultCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// cachedResult is what the cache holds for one request: the rendered body and
// the number of xlinks it still references.
type cachedResult struct {
	Pending int    `json:"pending"`
	Body    []byte `json:"body"`
}

type Server struct {
	conf   *config.DashConfigure
	reg    *prometheus.Registry
	parser *mpd.Parser
	cache  resultCache
	logger *zap.Logger
}

func NewServer(conf *config.DashConfigure, reg *prometheus.Registry) (*Server, error) {
	logger := log.Logger().With(zap.String("tag", "parse-server"))
	var parserMetrics *mpd.Metrics
	var cacheMetrics *cache.Metrics
	if conf.PromEnable() {
		parserMetrics = mpd.NewMetrics(reg, conf.GetProm())
		cacheMetrics = cache.NewMetrics(reg, conf.GetProm())
	}
	s := &Server{
		conf:   conf,
		reg:    reg,
		logger: logger,
		parser: mpd.NewParser(mpd.WithLogger(logger), mpd.WithMetrics(parserMetrics)),
	}
	var mc *cache.ManifestCache
	if conf.Cache.Enable {
		client, err := cache.MakeRedisClient(conf.GetRedis(), "dash-parse-server")
		if err != nil {
			return nil, err
		}
		mc = cache.New(client, conf.Cache.Redis.KeyPrefix, conf.CacheTTL(), cacheMetrics)
	}
	s.cache = mc
	return s, nil
}

func (s *Server) Close() error {
	return s.cache.Close()
}

func (s *Server) Register(engine *gin.Engine) {
	if s.conf.PromEnable() {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{
			Registry: s.reg,
		})))
	}
	engine.POST("/parse", s.handleParse)
}

func contentType(format string) string {
	if format == FORMAT_XML {
		return "application/xml; charset=utf-8"
	}
	return "application/json; charset=utf-8"
}

func render(root *tree.Node, format string) ([]byte, error) {
	switch format {
	case FORMAT_TREE:
		return root.MarshalJSON()
	case FORMAT_SUMMARY:
		summaries, err := mpd.Summarize(root)
		if err != nil {
			return nil, err
		}
		return json.Marshal(summaries)
	case FORMAT_XML:
		return tree.ToXML(root)
	default:
		return nil, errors.InvalidParam("unsupported format %s", format)
	}
}

func (s *Server) handleParse(c *gin.Context) {
	format := c.DefaultQuery("format", FORMAT_TREE)
	if format != FORMAT_TREE && format != FORMAT_SUMMARY && format != FORMAT_XML {
		panic(errors.InvalidParam("unsupported format %s, support one is tree, summary or xml", format))
	}
	baseURL := c.DefaultQuery("baseUrl", s.conf.Parser.FallbackBaseUrl)
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.conf.Server.MaxBodyBytes))
	if err != nil {
		panic(errors.InvalidParam("unable to read the manifest, %v", err))
	}
	logger := s.logger.With(zap.String("requestId", middleware.GetRequestID(c)))
	key := cache.Key([]byte(format), []byte(baseURL), body)
	if hit, ok := s.lookup(c, logger, key); ok {
		c.Header(HEADER_CACHE, "HIT")
		c.Header(HEADER_XLINK_PENDING, strconv.Itoa(hit.Pending))
		c.Data(http.StatusOK, contentType(format), hit.Body)
		return
	}
	links := xlink.NewController(logger)
	root, err := s.parser.Parse(body, baseURL, links)
	if err != nil {
		panic(err)
	}
	out, err := render(root, format)
	if err != nil {
		panic(errors.FatalError(err.Error()))
	}
	pending := len(links.Pending(root))
	s.store(c, logger, key, cachedResult{Pending: pending, Body: out})
	c.Header(HEADER_CACHE, "MISS")
	c.Header(HEADER_XLINK_PENDING, strconv.Itoa(pending))
	c.Data(http.StatusOK, contentType(format), out)
}

func (s *Server) lookup(ctx context.Context, logger *zap.Logger, key string) (cachedResult, bool) {
	var hit cachedResult
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.Warn("cache lookup failed", zap.Error(err))
		return hit, false
	}
	if !ok {
		return hit, false
	}
	if err = json.Unmarshal(raw, &hit); err != nil {
		logger.Warn("dropping unreadable cache entry", zap.Error(err))
		return hit, false
	}
	return hit, true
}

func (s *Server) store(ctx context.Context, logger *zap.Logger, key string, result cachedResult) {
	raw, err := json.Marshal(result)
	if err == nil {
		err = s.cache.Set(ctx, key, raw)
	}
	if err != nil {
		logger.Warn("cache store failed", zap.Error(err))
	}
}

func Run(conf *config.DashConfigure, ch chan error) {
	if !conf.Server.Enable {
		ch <- errors.Ok()
		return
	}
	var err error

	if conf.Server.Gin.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	var g *graceful.Graceful
	if conf.Server.Tls.Enable {
		certPath := conf.Server.Tls.Cert
		keyPath := conf.Server.Tls.Key
		if certPath == "" || keyPath == "" {
			ch <- errors.FatalError("to enable ssl for parse server, the server.tls.cert and server.tls.key must be provided")
			return
		}
		g, err = graceful.New(gin.New(), graceful.WithTLS(conf.ServerListenAddress(), certPath, keyPath))
	} else {
		g, err = graceful.New(gin.New(), graceful.WithAddr(conf.ServerListenAddress()))
	}
	if err != nil {
		ch <- err
		return
	}
	defer g.Close()

	if !conf.Server.Gin.NoRequestLog {
		g.Use(gin.Logger())
	}

	server, err := NewServer(conf, config.NewPromRegistry(conf.GetProm()))
	if err != nil {
		ch <- err
		return
	}
	defer server.Close()

	pprof.Register(g.Engine)
	g.Use(middleware.ErrorHandler())
	g.Use(middleware.RequestID())
	if cors := conf.Server.Cors; cors != "" {
		g.Use(middleware.Cors(cors))
	}
	server.Register(g.Engine)

	ctx, stop := ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if conf.Server.Healthy.Enable {
		healthConf := healthconfig.DefaultConfig()
		healthConf.FailureNotification.Chan = make(chan error, 1)
		defer close(healthConf.FailureNotification.Chan)
		healthConf.FailureNotification.Threshold = uint32(conf.Server.Healthy.FailureThreshold)
		healthConf.HealthPath = conf.Server.Healthy.Path

		serverCheck := healthchecks.NewContextCheck(ctx, "parse-server")
		healthcheck.New(g.Engine, healthConf, []healthchecks.Check{serverCheck})
	}

	logger := log.Sugar()
	logger.Infof("parse server listening on %s", conf.ServerListenAddress())
	err = g.RunWithContext(ctx)
	if err != nil && err != context.Canceled {
		ch <- err
		return
	}
	ch <- errors.Ok()
}
