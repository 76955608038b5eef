package server

import (
	"context"
	"net/http"

	"ledgerkeeper/internal/auth"
	"ledgerkeeper/internal/config"
	"ledgerkeeper/internal/ledger"
	"ledgerkeeper/internal/operator"
	"ledgerkeeper/internal/reconcile"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Server struct {
	router *gin.Engine
	http   *http.Server
	db     *sqlx.DB
	config *config.Config
}

func New(db *sqlx.DB, cfg *config.Config, service reconcile.Service, queue *reconcile.Queue) *Server {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		corsMiddleware(),
		RequestLoggingMiddleware(),
		MetricsMiddleware(),
		RateLimitMiddleware(50, 100),
	)

	operatorHandler := operator.NewHandler(operator.NewRepository(db), cfg.JWTSecret)
	ledgerHandler := ledger.NewHandler(ledger.NewRepository(db))
	reconcileHandler := reconcile.NewHandler(service, queue)

	public := router.Group("/auth")
	{
		public.POST("/register", operatorHandler.Register)
		public.POST("/login", operatorHandler.Login)
	}

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", operatorHandler.GetMe)
		protected.GET("/users/:userID/balance", reconcileHandler.GetBalance)
		protected.GET("/users/:userID/balance/cached", reconcileHandler.GetCachedBalance)
		protected.GET("/users/:userID/entries", ledgerHandler.ListEntries)
	}

	adminMiddleware := auth.RequireRole(auth.RoleAdmin)
	admin := router.Group("/admin")
	admin.Use(authMiddleware, adminMiddleware)
	{
		admin.POST("/users/:userID/entries", ledgerHandler.CreateEntry)
		admin.DELETE("/entries/:entryID", ledgerHandler.DeleteEntry)
		admin.POST("/users/:userID/reconcile", reconcileHandler.ReconcileUser)
		admin.POST("/reconcile/sweep", reconcileHandler.Sweep)
		admin.POST("/reconcile/sweep/enqueue", reconcileHandler.EnqueueSweep)
		admin.GET("/reconcile/queue", reconcileHandler.QueueDepth)
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())

	return &Server{
		router: router,
		db:     db,
		config: cfg,
	}
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Router is exposed for handler tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
