package routes

import (
	"time"

	"notify-service/internal/api/handlers"
	"notify-service/internal/api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Limits applied per window.
type Limits struct {
	Handshakes      int
	HandshakeWindow time.Duration
	Requests        int
	RequestWindow   time.Duration
}

type Dependencies struct {
	WSHandler           *handlers.WSHandler
	NotificationHandler *handlers.NotificationHandler
	EventHandler        *handlers.EventHandler
	HealthHandler       *handlers.HealthHandler

	AuthMW         *middleware.AuthMiddleware
	RateLimitMW    *middleware.RateLimitMiddleware
	InternalKey    string
	AllowedOrigins []string
	Limits         Limits

	// Gatherer backs /metrics; nil means the default registry.
	Gatherer prometheus.Gatherer
}

type Router struct {
	engine *gin.Engine
	deps   Dependencies
}

func NewRouter(deps Dependencies) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(deps.AllowedOrigins))
	engine.Use(middleware.LogApi())

	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	return &Router{engine: engine, deps: deps}
}

func (r *Router) SetupRoutes() {
	d := r.deps

	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.engine.GET("/health", d.HealthHandler.Health)
	r.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))

	api := r.engine.Group("/api/v1")

	// The handshake authenticates after the upgrade, so it is limited per IP.
	wsRoutes := api.Group("/ws")
	{
		wsRoutes.GET("/notifications",
			d.RateLimitMW.RateLimitIP(d.Limits.Handshakes, d.Limits.HandshakeWindow),
			d.WSHandler.HandleWebSocket,
		)
		wsRoutes.GET("/connected-users", d.WSHandler.GetConnectedUsers)
	}

	internal := api.Group("/internal")
	internal.Use(middleware.RequireInternalKey(d.InternalKey))
	{
		internal.POST("/events", d.EventHandler.IngestEvent)
	}

	notifications := api.Group("/notifications")
	notifications.Use(d.AuthMW.RequireAuth())
	notifications.Use(d.RateLimitMW.RateLimit(d.Limits.Requests, d.Limits.RequestWindow))
	{
		notifications.GET("", d.NotificationHandler.GetNotifications)
		notifications.GET("/unread-count", d.NotificationHandler.GetUnreadCount)
		notifications.POST("/read-all", d.NotificationHandler.MarkAllRead)
		notifications.POST("/:id/read", d.NotificationHandler.MarkRead)
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
