package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"perito.app/casetrack/internal/authz"
	"perito.app/casetrack/internal/config"
	"perito.app/casetrack/internal/middleware"

	activityHttp "perito.app/casetrack/internal/modules/activity/delivery/http"
	activityService "perito.app/casetrack/internal/modules/activity/service"

	authHttp "perito.app/casetrack/internal/modules/auth/delivery/http"
	authService "perito.app/casetrack/internal/modules/auth/service"
	"perito.app/casetrack/internal/modules/auth/token"

	casoHttp "perito.app/casetrack/internal/modules/caso/delivery/http"
	casoRepo "perito.app/casetrack/internal/modules/caso/repository"
	casoService "perito.app/casetrack/internal/modules/caso/service"

	evidenciaHttp "perito.app/casetrack/internal/modules/evidencia/delivery/http"
	evidenciaRepo "perito.app/casetrack/internal/modules/evidencia/repository"
	evidenciaService "perito.app/casetrack/internal/modules/evidencia/service"

	searchService "perito.app/casetrack/internal/modules/search/service"

	userHttp "perito.app/casetrack/internal/modules/user/delivery/http"
	userRepo "perito.app/casetrack/internal/modules/user/repository"
	userService "perito.app/casetrack/internal/modules/user/service"

	"perito.app/casetrack/pkg/ratelimiter"
)

// Deps carries everything the HTTP layer needs. Redis and Search are
// optional; without them login throttling, activity events and the
// full-text index are disabled.
type Deps struct {
	Config    *config.Config
	Log       *zap.Logger
	Users     userRepo.UserRepository
	Cases     casoRepo.CaseRepository
	Evidences evidenciaRepo.EvidenceRepository
	Redis     *redis.Client
	Search    meilisearch.ServiceManager
}

type Server struct {
	engine *gin.Engine
	cfg    *config.Config
	log    *zap.Logger
	http   *http.Server
}

func NewServer(deps Deps) (*Server, error) {
	cfg, log := deps.Config, deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	policy, err := authz.NewPolicy(authz.DefaultTable)
	if err != nil {
		return nil, err
	}
	issuer := token.NewIssuer([]byte(cfg.JWTSecret), cfg.JWTExpiration)

	var limiter *ratelimiter.LoginLimiter
	if deps.Redis != nil {
		limiter = ratelimiter.NewLoginLimiter(deps.Redis, cfg.LoginMaxAttempts, cfg.LoginLockout)
	}
	var index searchService.CaseIndex
	if deps.Search != nil {
		index = searchService.NewCaseIndex(deps.Search, log)
	}
	publisher := activityService.NewPublisher(deps.Redis, log)

	userSvc := userService.NewUserService(deps.Users)
	authSvc := authService.NewAuthService(deps.Users, userSvc, issuer, limiter, log)
	casoSvc := casoService.NewCaseService(deps.Cases, deps.Evidences, deps.Users, index, publisher, log)
	evidenciaSvc := evidenciaService.NewEvidenceService(deps.Evidences, deps.Cases, deps.Users, publisher, log)

	authHandler := authHttp.NewAuthHandler(authSvc, issuer.TTL(), cfg.IsProduction())
	userHandler := userHttp.NewUserHandler(userSvc)
	casoHandler := casoHttp.NewCasoHandler(casoSvc)
	evidenciaHandler := evidenciaHttp.NewEvidenciaHandler(evidenciaSvc)
	activityHandler := activityHttp.NewActivityHandler(deps.Redis, cfg.AllowedOrigins, log)

	router := gin.New()
	router.MaxMultipartMemory = cfg.UploadMaxBytes

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Metrics())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.NewAuthMiddleware(issuer, policy)
	allow := authMiddleware.Require

	api := router.Group("/api")

	// Public routes
	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/register", authHandler.Register)
	}

	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.POST("/auth/logout", allow(authz.AuthLogout), authHandler.Logout)
		protected.GET("/auth/me", allow(authz.AuthMe), authHandler.Me)

		users := protected.Group("/users")
		{
			users.POST("", allow(authz.UserCreate), userHandler.Create)
			users.GET("", allow(authz.UserList), userHandler.List)
			users.GET("/me", allow(authz.UserMe), userHandler.Me)
			users.PUT("/change-password", allow(authz.UserChangePassword), userHandler.ChangePassword)
			users.PUT("/reset-password/:id", allow(authz.UserResetPassword), userHandler.ResetPassword)
			users.GET("/:id", allow(authz.UserGet), userHandler.GetByID)
			users.PUT("/:id", allow(authz.UserUpdate), userHandler.Update)
			users.DELETE("/:id", allow(authz.UserDelete), userHandler.Delete)
		}

		casos := protected.Group("/casos")
		{
			casos.POST("", allow(authz.CasoCreate), casoHandler.Create)
			casos.GET("", allow(authz.CasoList), casoHandler.List)
			casos.GET("/:id", allow(authz.CasoGet), casoHandler.GetByID)
			casos.PUT("/:id", allow(authz.CasoUpdate), casoHandler.Update)
			casos.POST("/:id/historico", allow(authz.CasoAppendHistory), casoHandler.AppendHistory)
			casos.DELETE("/:id", allow(authz.CasoDelete), casoHandler.Delete)
		}

		evidencias := protected.Group("/evidencias")
		evidencias.Use(limitBody(cfg.UploadMaxBytes))
		{
			evidencias.POST("", allow(authz.EvidenciaCreate), evidenciaHandler.Create)
			evidencias.GET("/caso/:casoId", allow(authz.EvidenciaList), evidenciaHandler.ListByCase)
			evidencias.GET("/:id/arquivo", allow(authz.EvidenciaDownload), evidenciaHandler.Download)
			evidencias.GET("/:id", allow(authz.EvidenciaGet), evidenciaHandler.GetByID)
			evidencias.PUT("/:id", allow(authz.EvidenciaUpdate), evidenciaHandler.Update)
			evidencias.DELETE("/:id", allow(authz.EvidenciaDelete), evidenciaHandler.Delete)
		}

		protected.GET("/activity/ws", allow(authz.ActivityStream), activityHandler.Stream)
	}

	return &Server{
		engine: router,
		cfg:    cfg,
		log:    log,
	}, nil
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run blocks until ctx is cancelled or the listener fails, then drains
// in-flight requests for up to ten seconds.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("shutting down http server")
	return s.http.Shutdown(shutdownCtx)
}

func limitBody(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if max > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		}
		c.Next()
	}
}

func setupCORS(router *gin.Engine, origins []string) {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
