package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"futures-dash/internal/events"
	"futures-dash/internal/market"
	"futures-dash/internal/monitor"
	"futures-dash/internal/realtime"
	"futures-dash/pkg/db"
	"futures-dash/pkg/i18n"
	binance "futures-dash/pkg/market/binance"
)

// StreamStatus reports the state of the trading backend socket.
type StreamStatus interface {
	Connected() bool
	Stats() realtime.StreamStats
}

// Deps are the components the HTTP layer serves.
type Deps struct {
	Bus      *events.Bus
	Registry *realtime.Registry
	Fanout   *realtime.Fanout
	Stream   StreamStatus
	DB       *db.Database
	Funding  *market.FundingService
	Feed     *market.Feed
	Exchange *binance.Client
	Metrics  *monitor.SystemMetrics
	Log      *zap.Logger
}

// Options are the HTTP-facing settings.
type Options struct {
	BackendURL    string
	ProxyTimeout  time.Duration
	JWTSecret     string
	AuthRequired  bool
	Language      i18n.Language
	DefaultMarket realtime.Market
	Version       string
}

// Server wires HTTP endpoints around the registry, bus and stores.
type Server struct {
	Router *gin.Engine
	Deps
	opts    Options
	backend *http.Client
}

func NewServer(deps Deps, opts Options) *Server {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if opts.ProxyTimeout <= 0 {
		opts.ProxyTimeout = 15 * time.Second
	}
	if opts.Language == "" {
		opts.Language = i18n.LangEN
	}
	if opts.DefaultMarket == "" {
		opts.DefaultMarket = realtime.MarketFutures
	}

	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())                           // Panic recovery (first)
	r.Use(RequestIDMiddleware())                    // Request ID tracking
	r.Use(RequestLogger(deps.Log, deps.Metrics))    // Request logging (after ID is set)
	r.Use(RateLimitMiddleware(deps.Log))            // Rate limiting
	r.Use(TimeoutMiddleware(30*time.Second, "/ws")) // Request timeout (30s)
	r.Use(CORSMiddleware())                         // CORS (last before routes)

	s := &Server{
		Router:  r,
		Deps:    deps,
		opts:    opts,
		backend: &http.Client{Timeout: opts.ProxyTimeout},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)

	ws := s.Router.Group("/ws")
	ws.Use(s.auth())
	ws.GET("", s.websocket)

	api := s.Router.Group("/api")
	{
		api.GET("/system/status", s.getSystemStatus)
		api.GET("/metrics", s.getMetrics)

		// TP/SL math is stateless and needs no session
		tp := api.Group("/tpsl")
		{
			tp.POST("/price", s.convertTrigger)
			tp.POST("/validate", s.validateTrigger)
			tp.POST("/tooltip", s.projectTooltip)
			tp.POST("/pnl", s.calculatePnL)
		}

		protected := api.Group("")
		protected.Use(s.auth())
		{
			protected.POST("/auth/refresh", s.refreshToken)

			protected.GET("/orders/history", s.getOrderHistory)
			protected.GET("/orders/:id", s.getOrder)
			protected.GET("/orders/:id/trades", s.getOrderTrades)

			protected.GET("/market/funding/:symbol", s.getFunding)
			protected.DELETE("/market/funding/:symbol", s.invalidateFunding)
			protected.DELETE("/market/funding", s.invalidateAllFunding)
			protected.GET("/market/mark/:symbol", s.getMarkPrice)

			protected.GET("/subscriptions", s.getSubscriptions)

			protected.Any("/backend/*path", s.proxyBackend)
			protected.GET("/exchange/*path", s.proxyExchange)
		}
	}
}

func (s *Server) auth() gin.HandlerFunc {
	if !s.opts.AuthRequired {
		return func(c *gin.Context) { c.Next() }
	}
	return AuthMiddleware(s.opts.JWTSecret)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// language picks the response language: ?lang, then Accept-Language, then
// the configured default.
func (s *Server) language(c *gin.Context) i18n.Language {
	if q := c.Query("lang"); q != "" {
		return i18n.Parse(q, s.opts.Language)
	}
	return i18n.Parse(c.GetHeader("Accept-Language"), s.opts.Language)
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{
		"code":  code,
		"error": msg,
	})
}
